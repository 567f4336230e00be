package vision

import (
	"github.com/recastvideo/recast/internal/video"
)

// Dilate grows the >0 region of a mask with a square kernel of the given
// size, repeated iterations times.
func (pureEngine) Dilate(m *video.Mask, kernel, iterations int) *video.Mask {
	if kernel < 1 {
		kernel = 1
	}
	half := kernel / 2
	cur := m.Clone()
	for it := 0; it < iterations; it++ {
		next := video.NewMask(m.Width, m.Height)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				var maxV uint8
				for dy := -half; dy <= half; dy++ {
					for dx := -half; dx <= half; dx++ {
						if v := cur.At(x+dx, y+dy); v > maxV {
							maxV = v
						}
					}
				}
				next.Set(x, y, maxV)
			}
		}
		cur = next
	}
	return cur
}

// FeatherAlpha converts the mask to a float alpha plane in [0, 1] and
// Gaussian-blurs it so composite seams fade over the kernel width.
func (pureEngine) FeatherAlpha(m *video.Mask, kernel int) []float64 {
	alpha := make([]float64, m.Width*m.Height)
	for i, v := range m.Pix {
		alpha[i] = float64(v) / 255.0
	}
	return blurPlane(alpha, m.Width, m.Height, kernel)
}

// Inpaint fills every pixel where the mask is >0 from the surrounding
// known pixels. Unknown pixels are filled inward layer by layer, each
// taking the average of its already-known 8-neighbours, then the filled
// region is relaxed for radius passes to smooth the result.
func (pureEngine) Inpaint(f *video.Frame, m *video.Mask, radius int) *video.Frame {
	out := f.Clone()
	w, h := f.Width, f.Height

	unknown := make([]bool, w*h)
	remaining := 0
	for i, v := range m.Pix {
		if v > 0 {
			unknown[i] = true
			remaining++
		}
	}
	if remaining == 0 {
		return out
	}
	// Degenerate case: nothing known to fill from.
	if remaining == w*h {
		return out
	}

	// neighbourAvg averages the 8-neighbours of (x, y) that are not in the
	// skip set.
	neighbourAvg := func(x, y int, skip []bool) (float64, float64, float64, int) {
		var r, g, b float64
		count := 0
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if skip[ny*w+nx] {
					continue
				}
				pr, pg, pb := out.RGB(nx, ny)
				r += float64(pr)
				g += float64(pg)
				b += float64(pb)
				count++
			}
		}
		return r, g, b, count
	}

	// Fill inward: each pass resolves unknown pixels that touch a known one.
	for remaining > 0 {
		filledThisPass := 0
		toFill := make([]int, 0, remaining)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if !unknown[i] {
					continue
				}
				r, g, b, count := neighbourAvg(x, y, unknown)
				if count == 0 {
					continue
				}
				out.SetRGB(x, y, clamp8(r/float64(count)), clamp8(g/float64(count)), clamp8(b/float64(count)))
				toFill = append(toFill, i)
				filledThisPass++
			}
		}
		for _, i := range toFill {
			unknown[i] = false
		}
		remaining -= filledThisPass
		if filledThisPass == 0 {
			break
		}
	}

	// Relaxation over the filled region smooths diffusion artefacts.
	filled := make([]bool, w*h)
	for i, v := range m.Pix {
		filled[i] = v > 0
	}
	none := make([]bool, w*h)
	for pass := 0; pass < radius; pass++ {
		next := out.Clone()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !filled[y*w+x] {
					continue
				}
				r, g, b, count := neighbourAvg(x, y, none)
				if count == 0 {
					continue
				}
				next.SetRGB(x, y, clamp8(r/float64(count)), clamp8(g/float64(count)), clamp8(b/float64(count)))
			}
		}
		out = next
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
