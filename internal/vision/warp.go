package vision

import (
	"math"

	"github.com/recastvideo/recast/internal/monitoring"
	"github.com/recastvideo/recast/internal/video"
)

// bilinearRGB samples a frame at a fractional coordinate with
// border-replicate clamping.
func bilinearRGB(f *video.Frame, x, y float64) (uint8, uint8, uint8) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	r00, g00, b00 := f.RGB(x0, y0)
	r10, g10, b10 := f.RGB(x0+1, y0)
	r01, g01, b01 := f.RGB(x0, y0+1)
	r11, g11, b11 := f.RGB(x0+1, y0+1)

	lerp2 := func(v00, v10, v01, v11 uint8) uint8 {
		top := float64(v00) + fx*(float64(v10)-float64(v00))
		bot := float64(v01) + fx*(float64(v11)-float64(v01))
		v := top + fy*(bot-top)
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v + 0.5)
	}
	return lerp2(r00, r10, r01, r11), lerp2(g00, g10, g01, g11), lerp2(b00, b10, b01, b11)
}

// WarpAffine moves the frame content by t: output pixel (x, y) samples
// the source at t⁻¹(x, y), bilinear, border replicated. A singular
// transform falls back to a copy of the input.
func (pureEngine) WarpAffine(f *video.Frame, t video.Transform) *video.Frame {
	inv, err := t.Inverse()
	if err != nil {
		monitoring.Logf("warp: %v, passing frame through", err)
		return f.Clone()
	}
	out := video.NewFrame(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		fy := float64(y)
		for x := 0; x < f.Width; x++ {
			sx, sy := inv.Apply(float64(x), fy)
			r, g, b := bilinearRGB(f, sx, sy)
			out.SetRGB(x, y, r, g, b)
		}
	}
	return out
}

// WarpWithFlow warps src forward through a flow field: output pixel
// (x, y) samples src at (x-dx, y-dy), so content displaced by the flow
// lands where the flow says it moved to. A zero field is an exact copy.
func (pureEngine) WarpWithFlow(src *video.Frame, flow *FlowField) *video.Frame {
	out := video.NewFrame(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			dx, dy := flow.At(x, y)
			r, g, b := bilinearRGB(src, float64(x)-dx, float64(y)-dy)
			out.SetRGB(x, y, r, g, b)
		}
	}
	return out
}
