// Package video defines the core buffer and geometry types shared by every
// stage of the compositing pipeline: frames, masks, pose keypoints and 2D
// motion transforms.
package video

import (
	"fmt"
	"image"
	"image/color"
)

// Frame is a fixed-size 8-bit RGB pixel buffer for one timestamp.
// Pixels are stored row-major, three bytes per pixel. A Frame is owned by
// the pipeline stage currently processing it; stages produce new buffers
// rather than mutating frames from an earlier stage in place.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8 // len == 3*Width*Height
}

// NewFrame allocates a zeroed (black) frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 3*width*height),
	}
}

// NewSolidFrame allocates a frame filled with a single colour.
func NewSolidFrame(width, height int, r, g, b uint8) *Frame {
	f := NewFrame(width, height)
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
	}
	return f
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint8, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// RGB returns the pixel at (x, y). Coordinates outside the frame are
// clamped to the nearest edge, matching border-replicate sampling.
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	x = clampInt(x, 0, f.Width-1)
	y = clampInt(y, 0, f.Height-1)
	i := 3 * (y*f.Width + x)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB writes the pixel at (x, y). Out-of-range coordinates are ignored.
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	i := 3 * (y*f.Width + x)
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
}

// SameSize reports whether o has the same dimensions as f.
func (f *Frame) SameSize(o *Frame) bool {
	return o != nil && f.Width == o.Width && f.Height == o.Height
}

// ToImage converts the frame to a stdlib image.RGBA, for encoding.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGB(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// FrameFromImage converts any stdlib image into a Frame.
func FrameFromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(bounds.Dx(), bounds.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			f.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return f
}

// Mask is a single-channel buffer with values in [0, 255] where 255 marks
// the detected subject. Masks come from the external detector and are
// read-only to the pipeline.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8 // len == Width*Height
}

// NewMask allocates a zeroed (all background) mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the mask value at (x, y), clamped border-replicate.
func (m *Mask) At(x, y int) uint8 {
	x = clampInt(x, 0, m.Width-1)
	y = clampInt(y, 0, m.Height-1)
	return m.Pix[y*m.Width+x]
}

// Set writes the mask value at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// ValidateFrameSizes checks that all frames in a sequence share the
// dimensions of the first. Mixed sizes are a setup error, not a per-frame
// recoverable condition.
func ValidateFrameSizes(frames []*Frame) error {
	if len(frames) == 0 {
		return nil
	}
	w, h := frames[0].Width, frames[0].Height
	for i, f := range frames {
		if f == nil {
			return fmt.Errorf("frame %d is nil", i)
		}
		if f.Width != w || f.Height != h {
			return fmt.Errorf("frame %d is %dx%d, want %dx%d", i, f.Width, f.Height, w, h)
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
