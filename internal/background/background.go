// Package background reconstructs a subject-free background from a video:
// either one static plate by temporal aggregation, or a per-frame clean
// background sequence by inpainting and temporal averaging.
package background

import (
	"fmt"

	"github.com/recastvideo/recast/internal/video"
	"github.com/recastvideo/recast/internal/vision"
)

// subjectThreshold splits mask values into subject (>=) and background (<).
const subjectThreshold = 128

// Config holds background-builder tuning parameters.
type Config struct {
	SampleRate       int     // use every Nth frame for the static plate
	MinCoverage      float64 // fraction of samples required before a pixel counts as resolved
	InpaintRadius    int     // relaxation passes for plate hole filling
	DilateKernel     int     // mask dilation kernel for the per-frame variant
	DilateIterations int     // mask dilation iterations for the per-frame variant
	SmoothRadius     int     // temporal window radius for the per-frame variant
}

// DefaultConfig returns the default background-builder configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:       5,
		MinCoverage:      0.3,
		InpaintRadius:    10,
		DilateKernel:     5,
		DilateIterations: 2,
		SmoothRadius:     1,
	}
}

// Builder reconstructs clean backgrounds.
type Builder struct {
	cfg    Config
	engine vision.Engine
}

// New creates a Builder with the default vision engine.
func New(cfg Config) *Builder {
	return NewWithEngine(cfg, vision.Default())
}

// NewWithEngine creates a Builder with a caller-supplied vision engine.
func NewWithEngine(cfg Config, engine vision.Engine) *Builder {
	if cfg.SampleRate <= 0 {
		cfg = DefaultConfig()
	}
	return &Builder{cfg: cfg, engine: engine}
}

// BuildPlate reconstructs one static background plate. Every Nth frame is
// sampled; each pixel accumulates colour only from frames where the mask
// marks it background, and the accumulated mean becomes the plate value.
// Pixels with background evidence in fewer than the minimum fraction of
// samples are unresolved and filled by inpainting from resolved ones.
func (b *Builder) BuildPlate(frames []*video.Frame, masks []*video.Mask) (*video.Frame, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("background: no frames")
	}
	if len(masks) != len(frames) {
		return nil, fmt.Errorf("background: %d frames but %d masks", len(frames), len(masks))
	}

	w, h := frames[0].Width, frames[0].Height
	accum := make([]float64, 3*w*h)
	weight := make([]float64, w*h)

	sampleCount := 0
	for i := 0; i < len(frames); i += b.cfg.SampleRate {
		f, m := frames[i], masks[i]
		sampleCount++
		for p := 0; p < w*h; p++ {
			if m.Pix[p] >= subjectThreshold {
				continue
			}
			accum[3*p] += float64(f.Pix[3*p])
			accum[3*p+1] += float64(f.Pix[3*p+1])
			accum[3*p+2] += float64(f.Pix[3*p+2])
			weight[p]++
		}
	}

	plate := video.NewFrame(w, h)
	unresolved := video.NewMask(w, h)
	minSamples := b.cfg.MinCoverage * float64(sampleCount)
	for p := 0; p < w*h; p++ {
		div := weight[p]
		if div < 1 {
			div = 1
		}
		plate.Pix[3*p] = clamp8(accum[3*p] / div)
		plate.Pix[3*p+1] = clamp8(accum[3*p+1] / div)
		plate.Pix[3*p+2] = clamp8(accum[3*p+2] / div)
		if weight[p] < minSamples {
			unresolved.Pix[p] = 255
		}
	}

	return b.engine.Inpaint(plate, unresolved, b.cfg.InpaintRadius), nil
}

// BuildPerFrame reconstructs a clean background for every frame: the
// subject mask is dilated to kill the halo, the dilated region inpainted,
// and a sliding-window temporal average over background pixels suppresses
// flicker. Subject-region pixels keep each frame's inpainted estimate.
func (b *Builder) BuildPerFrame(frames []*video.Frame, masks []*video.Mask) ([]*video.Frame, error) {
	if len(masks) != len(frames) {
		return nil, fmt.Errorf("background: %d frames but %d masks", len(frames), len(masks))
	}

	inpainted := make([]*video.Frame, len(frames))
	dilated := make([]*video.Mask, len(frames))
	for i, f := range frames {
		dilated[i] = b.engine.Dilate(masks[i], b.cfg.DilateKernel, b.cfg.DilateIterations)
		inpainted[i] = b.engine.Inpaint(f, dilated[i], 3)
	}

	out := make([]*video.Frame, len(frames))
	for i := range inpainted {
		out[i] = b.temporalAverage(inpainted, dilated, i)
	}
	return out, nil
}

// temporalAverage blends background pixels across the window centred on
// frame i, weighting every contributing frame equally and only counting
// frames where the pixel is background.
func (b *Builder) temporalAverage(frames []*video.Frame, masks []*video.Mask, i int) *video.Frame {
	start := i - b.cfg.SmoothRadius
	if start < 0 {
		start = 0
	}
	end := i + b.cfg.SmoothRadius + 1
	if end > len(frames) {
		end = len(frames)
	}

	f := frames[i]
	w, h := f.Width, f.Height
	out := f.Clone()
	for p := 0; p < w*h; p++ {
		if masks[i].Pix[p] >= subjectThreshold {
			continue // subject region keeps this frame's inpainted value
		}
		var r, g, bl, count float64
		for j := start; j < end; j++ {
			if masks[j].Pix[p] >= subjectThreshold {
				continue
			}
			r += float64(frames[j].Pix[3*p])
			g += float64(frames[j].Pix[3*p+1])
			bl += float64(frames[j].Pix[3*p+2])
			count++
		}
		if count == 0 {
			continue
		}
		out.Pix[3*p] = clamp8(r / count)
		out.Pix[3*p+1] = clamp8(g / count)
		out.Pix[3*p+2] = clamp8(bl / count)
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
