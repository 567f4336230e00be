package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recastvideo/recast/internal/segment"
	"github.com/recastvideo/recast/internal/video"
)

func solidRun(start, end int, v uint8) segmentResult {
	frames := make([]*video.Frame, end-start)
	for i := range frames {
		frames[i] = video.NewSolidFrame(4, 4, v, v, v)
	}
	return segmentResult{
		seg:    segment.Segment{Start: start, End: end},
		frames: frames,
	}
}

func TestStitchDisjointSegments(t *testing.T) {
	out := stitch([]segmentResult{
		solidRun(0, 3, 10),
		solidRun(3, 6, 20),
	}, 6, BlendLinearCrossfade)

	require.Len(t, out, 6)
	for i := 0; i < 3; i++ {
		r, _, _ := out[i].RGB(0, 0)
		assert.Equal(t, uint8(10), r, "frame %d", i)
	}
	for i := 3; i < 6; i++ {
		r, _, _ := out[i].RGB(0, 0)
		assert.Equal(t, uint8(20), r, "frame %d", i)
	}
}

func TestStitchCrossfadeOverlap(t *testing.T) {
	// overlap zone is frames 2..5 (4 frames)
	out := stitch([]segmentResult{
		solidRun(0, 6, 100),
		solidRun(2, 8, 200),
	}, 8, BlendLinearCrossfade)

	require.Len(t, out, 8)

	// before the overlap: pure earlier segment
	r, _, _ := out[1].RGB(0, 0)
	assert.Equal(t, uint8(100), r)

	// inside the overlap the weight ramps toward the later segment
	var prev float64
	for i := 2; i < 6; i++ {
		r, _, _ := out[i].RGB(0, 0)
		assert.Greater(t, float64(r), 100.0, "frame %d", i)
		assert.Less(t, float64(r), 200.0, "frame %d", i)
		assert.Greater(t, float64(r), prev, "frame %d not increasing", i)
		prev = float64(r)
	}

	// after the overlap: pure later segment
	r, _, _ = out[6].RGB(0, 0)
	assert.Equal(t, uint8(200), r)
}

func TestStitchLaterWins(t *testing.T) {
	out := stitch([]segmentResult{
		solidRun(0, 6, 100),
		solidRun(2, 8, 200),
	}, 8, BlendLaterWins)

	r, _, _ := out[2].RGB(0, 0)
	assert.Equal(t, uint8(200), r)
	r, _, _ = out[5].RGB(0, 0)
	assert.Equal(t, uint8(200), r)
	r, _, _ = out[1].RGB(0, 0)
	assert.Equal(t, uint8(100), r)
}

func TestStitchFillsEveryFrame(t *testing.T) {
	out := stitch([]segmentResult{
		solidRun(0, 5, 10),
		solidRun(3, 9, 20),
		solidRun(7, 12, 30),
	}, 12, BlendLinearCrossfade)

	for i, f := range out {
		require.NotNil(t, f, "frame %d", i)
	}
}

func TestCrossfadeWeights(t *testing.T) {
	a := video.NewSolidFrame(2, 2, 0, 0, 0)
	b := video.NewSolidFrame(2, 2, 200, 200, 200)

	r, _, _ := crossfade(a, b, 0.25).RGB(0, 0)
	assert.Equal(t, uint8(50), r)
	r, _, _ = crossfade(a, b, 0.75).RGB(0, 0)
	assert.Equal(t, uint8(150), r)
}
