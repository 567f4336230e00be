package vision

import (
	"math"

	"github.com/recastvideo/recast/internal/video"
)

// Gray is a float64 luma plane. Values are in [0, 255]; sampling outside
// the plane replicates the border.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGray allocates a zeroed luma plane.
func NewGray(width, height int) *Gray {
	return &Gray{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the luma at (x, y), border-replicate clamped.
func (g *Gray) At(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= g.Width {
		x = g.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.Height {
		y = g.Height - 1
	}
	return g.Pix[y*g.Width+x]
}

// Bilinear samples the plane at a fractional coordinate.
func (g *Gray) Bilinear(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)
	v00 := g.At(x0, y0)
	v10 := g.At(x0+1, y0)
	v01 := g.At(x0, y0+1)
	v11 := g.At(x0+1, y0+1)
	top := v00 + fx*(v10-v00)
	bot := v01 + fx*(v11-v01)
	return top + fy*(bot-top)
}

// Grayscale converts an RGB frame using the ITU-R BT.601 luma weights.
func (pureEngine) Grayscale(f *video.Frame) *Gray {
	g := NewGray(f.Width, f.Height)
	for i := 0; i < f.Width*f.Height; i++ {
		r := float64(f.Pix[3*i])
		gr := float64(f.Pix[3*i+1])
		b := float64(f.Pix[3*i+2])
		g.Pix[i] = 0.299*r + 0.587*gr + 0.114*b
	}
	return g
}

// gaussianKernel1D builds a normalised 1D Gaussian kernel for the given
// odd size, with sigma derived from the size the same way OpenCV does.
func gaussianKernel1D(size int) []float64 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// blurPlane applies a separable Gaussian blur of the given odd kernel
// size to an arbitrary float plane, border replicated.
func blurPlane(pix []float64, width, height, kernel int) []float64 {
	k := gaussianKernel1D(kernel)
	half := len(k) / 2
	tmp := make([]float64, len(pix))
	out := make([]float64, len(pix))

	at := func(p []float64, x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= width {
			x = width - 1
		}
		if y < 0 {
			y = 0
		} else if y >= height {
			y = height - 1
		}
		return p[y*width+x]
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for i, w := range k {
				sum += w * at(pix, x+i-half, y)
			}
			tmp[y*width+x] = sum
		}
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for i, w := range k {
				sum += w * at(tmp, x, y+i-half)
			}
			out[y*width+x] = sum
		}
	}
	return out
}

// Blur returns a Gaussian-blurred copy of the plane.
func (g *Gray) Blur(kernel int) *Gray {
	return &Gray{Width: g.Width, Height: g.Height, Pix: blurPlane(g.Pix, g.Width, g.Height, kernel)}
}

// Downsample halves the plane's resolution with a 2x2 box average,
// used to build flow pyramids.
func (g *Gray) Downsample() *Gray {
	w := g.Width / 2
	h := g.Height / 2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := g.At(2*x, 2*y) + g.At(2*x+1, 2*y) + g.At(2*x, 2*y+1) + g.At(2*x+1, 2*y+1)
			out.Pix[y*w+x] = sum / 4
		}
	}
	return out
}

// gradients returns the central-difference x and y derivatives.
func (g *Gray) gradients() (gx, gy *Gray) {
	gx = NewGray(g.Width, g.Height)
	gy = NewGray(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			gx.Pix[y*g.Width+x] = (g.At(x+1, y) - g.At(x-1, y)) / 2
			gy.Pix[y*g.Width+x] = (g.At(x, y+1) - g.At(x, y-1)) / 2
		}
	}
	return gx, gy
}
