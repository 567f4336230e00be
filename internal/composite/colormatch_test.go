package composite

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recastvideo/recast/internal/video"
)

// noisyFrame fills a frame with values drawn around a mean so the
// channel statistics are well defined.
func noisyFrame(w, h int, mean, spread float64, seed int64) *video.Frame {
	rng := rand.New(rand.NewSource(seed))
	f := video.NewFrame(w, h)
	for i := range f.Pix {
		v := mean + spread*(rng.Float64()*2-1)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		f.Pix[i] = uint8(v)
	}
	return f
}

func meanPix(f *video.Frame) float64 {
	var sum float64
	for _, v := range f.Pix {
		sum += float64(v)
	}
	return sum / float64(len(f.Pix))
}

func TestMatchColorShiftsMean(t *testing.T) {
	synth := noisyFrame(32, 32, 180, 30, 1)
	ref := noisyFrame(32, 32, 80, 30, 2)

	out := MatchColor(synth, ref, nil)
	require.Equal(t, synth.Width, out.Width)

	// the matched image's brightness moves to the reference's
	assert.InDelta(t, meanPix(ref), meanPix(out), 10)
	// the input is not mutated
	assert.InDelta(t, 180, meanPix(synth), 10)
}

func TestMatchColorConstantImagePassesThrough(t *testing.T) {
	synth := video.NewSolidFrame(16, 16, 90, 140, 190)
	ref := noisyFrame(16, 16, 60, 40, 3)

	out := MatchColor(synth, ref, nil)
	// a constant-colour synth has no variance to rescale
	assert.Equal(t, synth.Pix, out.Pix)
}

func TestMatchColorIdempotentOnMatchedInput(t *testing.T) {
	synth := noisyFrame(32, 32, 120, 35, 4)
	ref := synth.Clone()

	out := MatchColor(synth, ref, nil)
	// matching an image against itself changes nothing beyond rounding
	for i := range synth.Pix {
		assert.InDelta(t, float64(synth.Pix[i]), float64(out.Pix[i]), 2, "pixel %d", i)
	}
}

func TestMatchColorMaskRestrictsRegion(t *testing.T) {
	synth := noisyFrame(32, 32, 200, 25, 5)
	ref := noisyFrame(32, 32, 60, 25, 6)
	mask := centerMask(32, 32, 8)

	out := MatchColor(synth, ref, mask)

	// region statistics drive the rescale; region pixels move toward the
	// reference brightness
	var regionSum, n float64
	for y := 8; y < 24; y++ {
		for x := 8; x < 24; x++ {
			r, g, b := out.RGB(x, y)
			regionSum += float64(r) + float64(g) + float64(b)
			n += 3
		}
	}
	assert.InDelta(t, 60, regionSum/n, 15)
}

func TestMatchColorEmptyMaskRegion(t *testing.T) {
	synth := noisyFrame(16, 16, 150, 20, 7)
	ref := noisyFrame(16, 16, 50, 20, 8)
	empty := video.NewMask(16, 16)

	out := MatchColor(synth, ref, empty)
	assert.Equal(t, synth.Pix, out.Pix)
}
