package footlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recastvideo/recast/internal/video"
)

func testConfig() Config {
	return Config{
		VelocityThreshold: 2.0,
		MinContactLength:  3,
		ExtendFrames:      1,
		WarpBlend:         1.0,
	}
}

// poseAt builds a full keypoint set with both ankles at fixed positions.
func poseAt(lx, ly, rx, ry float64) video.Keypoints {
	pose := make(video.Keypoints, video.NumJoints)
	for i := range pose {
		pose[i] = video.Keypoint{X: 50, Y: 20, Confidence: 0.9}
	}
	pose[video.JointLeftAnkle] = video.Keypoint{X: lx, Y: ly, Confidence: 0.9}
	pose[video.JointRightAnkle] = video.Keypoint{X: rx, Y: ry, Confidence: 0.9}
	return pose
}

func TestDetectContactsRun(t *testing.T) {
	l := New(testConfig())
	// left ankle: moving, then planted for 4 frames, then moving
	xs := []float64{0, 10, 20, 20.5, 20.6, 20.7, 35, 50}
	poses := make([]video.Keypoints, len(xs))
	for i, x := range xs {
		poses[i] = poseAt(x, 60, 100+float64(i)*10, 60)
	}

	left, right := l.DetectContacts(poses)
	require.Len(t, left, len(xs))

	// planted frames 3..5 plus one frame of extension on each side
	want := []bool{false, false, true, true, true, true, true, false}
	assert.Equal(t, want, left)

	// right ankle moves 10 px per frame, never plants
	for i, c := range right {
		assert.False(t, c, "right frame %d", i)
	}
}

func TestDetectContactsShortRunDiscarded(t *testing.T) {
	l := New(testConfig())
	// a single low-velocity frame is noise, not a contact
	xs := []float64{0, 15, 15.5, 30, 45, 60}
	poses := make([]video.Keypoints, len(xs))
	for i, x := range xs {
		poses[i] = poseAt(x, 60, 200, 60)
	}

	left, _ := l.DetectContacts(poses)
	for i, c := range left {
		assert.False(t, c, "frame %d", i)
	}
}

func TestDetectContactsMissingKeypoints(t *testing.T) {
	l := New(testConfig())
	poses := []video.Keypoints{nil, poseAt(10, 60, 10, 60), nil, poseAt(10, 60, 10, 60)}

	left, right := l.DetectContacts(poses)
	for i := range poses {
		assert.False(t, left[i], "left frame %d", i)
		assert.False(t, right[i], "right frame %d", i)
	}
}

func TestLockLengthMismatchPassesThrough(t *testing.T) {
	l := New(testConfig())
	frames := []*video.Frame{video.NewFrame(8, 8)}
	out := l.Lock(frames, nil, nil, nil)
	assert.Equal(t, frames, out)
}

func TestLockNoContactsClonesFrames(t *testing.T) {
	l := New(testConfig())
	frames := []*video.Frame{
		video.NewSolidFrame(8, 8, 10, 10, 10),
		video.NewSolidFrame(8, 8, 20, 20, 20),
	}
	poses := []video.Keypoints{poseAt(1, 1, 6, 6), poseAt(3, 3, 4, 4)}
	left := []bool{false, false}
	right := []bool{false, false}

	out := l.Lock(frames, poses, left, right)
	require.Len(t, out, 2)
	assert.Equal(t, frames[0].Pix, out[0].Pix)
	assert.Equal(t, frames[1].Pix, out[1].Pix)
	assert.NotSame(t, frames[0], out[0])
}

func TestLockSingleContactTranslates(t *testing.T) {
	l := New(testConfig())
	f0 := video.NewFrame(32, 32)
	f0.SetRGB(10, 20, 255, 0, 0)
	f1 := video.NewFrame(32, 32)
	f1.SetRGB(12, 20, 255, 0, 0) // the planted foot slid 2 px right

	// left ankle at (10,20) then (12,20); marked in contact both frames
	poses := []video.Keypoints{poseAt(10, 20, 200, 200), poseAt(12, 20, 210, 200)}
	left := []bool{true, true}
	right := []bool{false, false}

	out := l.Lock([]*video.Frame{f0, f1}, poses, left, right)
	require.Len(t, out, 2)

	// with full blend the slide is pulled back onto the previous position
	r, _, _ := out[1].RGB(10, 20)
	assert.Equal(t, uint8(255), r)
}

func TestLockCorrectionsCompound(t *testing.T) {
	l := New(testConfig())
	// ankle drifts 1 px right each frame while "planted"
	frames := make([]*video.Frame, 4)
	poses := make([]video.Keypoints, 4)
	for i := range frames {
		frames[i] = video.NewFrame(32, 32)
		frames[i].SetRGB(10+i, 20, 255, 0, 0)
		poses[i] = poseAt(float64(10+i), 20, 200, 200)
	}
	contact := []bool{true, true, true, true}
	none := []bool{false, false, false, false}

	out := l.Lock(frames, poses, contact, none)
	// every corrected frame keeps the foot at the first frame's position
	for i := 1; i < 4; i++ {
		r, _, _ := out[i].RGB(10, 20)
		assert.Equal(t, uint8(255), r, "frame %d", i)
	}
}

func TestLockPartialBlend(t *testing.T) {
	cfg := testConfig()
	cfg.WarpBlend = 0.5
	l := New(cfg)

	f0 := video.NewSolidFrame(16, 16, 0, 0, 0)
	f1 := video.NewSolidFrame(16, 16, 0, 0, 0)
	f1.SetRGB(8, 8, 200, 200, 200)

	poses := []video.Keypoints{poseAt(6, 8, 100, 100), poseAt(8, 8, 100, 100)}
	left := []bool{true, true}
	right := []bool{false, false}

	out := l.Lock([]*video.Frame{f0, f1}, poses, left, right)
	// half the correction: the bright pixel is split between old and new spots
	r1, _, _ := out[1].RGB(6, 8)
	r2, _, _ := out[1].RGB(8, 8)
	assert.InDelta(t, 100, float64(r1), 2)
	assert.InDelta(t, 100, float64(r2), 2)
}
