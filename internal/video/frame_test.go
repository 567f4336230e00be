package video

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameGetSet(t *testing.T) {
	f := NewFrame(4, 3)
	f.SetRGB(2, 1, 10, 20, 30)

	r, g, b := f.RGB(2, 1)
	assert.Equal(t, uint8(10), r)
	assert.Equal(t, uint8(20), g)
	assert.Equal(t, uint8(30), b)

	// out-of-range writes are dropped
	f.SetRGB(-1, 0, 1, 1, 1)
	f.SetRGB(4, 0, 1, 1, 1)
	r, _, _ = f.RGB(0, 0)
	assert.Equal(t, uint8(0), r)
}

func TestFrameBorderClamp(t *testing.T) {
	f := NewFrame(4, 3)
	f.SetRGB(0, 0, 100, 0, 0)
	f.SetRGB(3, 2, 0, 200, 0)

	r, _, _ := f.RGB(-5, -5)
	assert.Equal(t, uint8(100), r)
	_, g, _ := f.RGB(10, 10)
	assert.Equal(t, uint8(200), g)
}

func TestCloneIsDeep(t *testing.T) {
	f := NewSolidFrame(2, 2, 5, 5, 5)
	c := f.Clone()
	c.SetRGB(0, 0, 99, 99, 99)

	r, _, _ := f.RGB(0, 0)
	assert.Equal(t, uint8(5), r)
}

func TestSameSize(t *testing.T) {
	f := NewFrame(4, 3)
	assert.True(t, f.SameSize(NewFrame(4, 3)))
	assert.False(t, f.SameSize(NewFrame(3, 4)))
	assert.False(t, f.SameSize(nil))
}

func TestImageRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 7, G: 8, B: 9, A: 255})

	f := FrameFromImage(img)
	require.Equal(t, 3, f.Width)
	require.Equal(t, 2, f.Height)
	r, g, b := f.RGB(1, 1)
	assert.Equal(t, uint8(7), r)
	assert.Equal(t, uint8(8), g)
	assert.Equal(t, uint8(9), b)

	back := f.ToImage()
	assert.Equal(t, color.RGBA{R: 7, G: 8, B: 9, A: 255}, back.RGBAAt(1, 1))
}

func TestMaskGetSet(t *testing.T) {
	m := NewMask(4, 4)
	m.Set(1, 2, 255)
	assert.Equal(t, uint8(255), m.At(1, 2))
	m.Set(-1, 0, 9)
	assert.Equal(t, uint8(0), m.At(0, 0))
}

func TestMaskClamp(t *testing.T) {
	m := NewMask(2, 2)
	m.Set(0, 0, 50)
	assert.Equal(t, uint8(50), m.At(-1, -1))
	m.Set(1, 1, 60)
	assert.Equal(t, uint8(60), m.At(5, 5))
}

func TestValidateFrameSizes(t *testing.T) {
	assert.NoError(t, ValidateFrameSizes(nil))
	assert.NoError(t, ValidateFrameSizes([]*Frame{NewFrame(2, 2), NewFrame(2, 2)}))
	assert.Error(t, ValidateFrameSizes([]*Frame{NewFrame(2, 2), NewFrame(3, 2)}))
	assert.Error(t, ValidateFrameSizes([]*Frame{NewFrame(2, 2), nil}))
}

func TestKeypointsAnkle(t *testing.T) {
	pose := make(Keypoints, NumJoints)
	pose[JointLeftAnkle] = Keypoint{X: 12, Y: 34, Confidence: 0.9}

	x, y, ok := pose.Ankle(JointLeftAnkle)
	require.True(t, ok)
	assert.Equal(t, 12.0, x)
	assert.Equal(t, 34.0, y)

	var missing Keypoints
	_, _, ok = missing.Ankle(JointLeftAnkle)
	assert.False(t, ok)
}
