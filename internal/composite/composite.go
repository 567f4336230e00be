// Package composite blends synthesized foregrounds into video frames with
// temporal coherence: mask feathering, flow-guided consistency against the
// previous frame, colour matching against the original, and a rolling
// denoise buffer over recent outputs.
package composite

import (
	"github.com/recastvideo/recast/internal/video"
	"github.com/recastvideo/recast/internal/vision"
)

// Config holds compositor tuning parameters.
type Config struct {
	FeatherKernel    int     // Gaussian kernel for mask edge feathering
	ConsistencyBlend float64 // weight of the current synthesized frame vs the flow-warped previous one
	DenoiseWindow    int     // rolling output buffer size for temporal denoising
}

// DefaultConfig returns the default compositor configuration.
func DefaultConfig() Config {
	return Config{
		FeatherKernel:    31,
		ConsistencyBlend: 0.7,
		DenoiseWindow:    3,
	}
}

// Compositor performs the per-frame blend.
type Compositor struct {
	cfg    Config
	engine vision.Engine
}

// New creates a Compositor with the default vision engine.
func New(cfg Config) *Compositor {
	return NewWithEngine(cfg, vision.Default())
}

// NewWithEngine creates a Compositor with a caller-supplied vision engine.
func NewWithEngine(cfg Config, engine vision.Engine) *Compositor {
	if cfg.FeatherKernel <= 0 {
		cfg = DefaultConfig()
	}
	return &Compositor{cfg: cfg, engine: engine}
}

// State is the segment-scoped temporal state of the compositor. Each
// segment owns exactly one State, created fresh at segment start, so
// consistency blending never couples across segment boundaries.
type State struct {
	prevOriginal *video.Frame
	prevSynth    *video.Frame
	denoise      []*video.Frame
}

// NewState returns empty temporal state for the start of a segment.
func NewState() *State {
	return &State{}
}

// Reset clears all temporal state, as at a segment boundary.
func (st *State) Reset() {
	st.prevOriginal = nil
	st.prevSynth = nil
	st.denoise = st.denoise[:0]
}

// Input is everything the compositor needs for one frame. Synthesized
// and Mask are nil when detection or synthesis failed for the frame;
// Background is the optional reconstructed plate.
type Input struct {
	Original    *video.Frame
	Synthesized *video.Frame
	Mask        *video.Mask
	Background  *video.Frame
}

// ComposeFrame produces the output frame for one timestamp and advances
// the temporal state.
//
// When detection yielded nothing the original frame passes through
// unchanged and the previous-synthesized state is cleared, so consistency
// blending resumes cleanly once detection recovers. Otherwise the
// synthesized image is blended with the flow-warped previous synthesized
// image, colour-matched against the original, alpha-composited over the
// background (plate if supplied, else the original), and finally denoised
// across the rolling output buffer.
func (c *Compositor) ComposeFrame(st *State, in Input) *video.Frame {
	if in.Synthesized == nil || in.Mask == nil {
		st.prevOriginal = in.Original
		st.prevSynth = nil
		return in.Original.Clone()
	}

	synth := in.Synthesized
	if st.prevSynth != nil && st.prevOriginal != nil {
		synth = c.consistencyBlend(st, in.Original, synth)
	}
	synth = MatchColor(synth, in.Original, in.Mask)

	base := in.Original
	if in.Background != nil {
		base = in.Background
	}
	out := c.alphaComposite(synth, base, in.Mask)

	st.prevOriginal = in.Original
	st.prevSynth = synth
	return c.denoise(st, out)
}

// consistencyBlend warps the previous synthesized image forward through
// the dense flow between the two original frames and mixes it under the
// current synthesized image. This is what suppresses frame-to-frame
// flicker and identity drift in the generated subject.
func (c *Compositor) consistencyBlend(st *State, original, synth *video.Frame) *video.Frame {
	prevGray := c.engine.Grayscale(st.prevOriginal)
	currGray := c.engine.Grayscale(original)
	flow := c.engine.DenseFlow(prevGray, currGray)
	warpedPrev := c.engine.WarpWithFlow(st.prevSynth, flow)

	w := c.cfg.ConsistencyBlend
	out := video.NewFrame(synth.Width, synth.Height)
	for i := range out.Pix {
		out.Pix[i] = clamp8(w*float64(synth.Pix[i]) + (1-w)*float64(warpedPrev.Pix[i]))
	}
	return out
}

// alphaComposite feathers the mask into a soft alpha plane and blends
// synth over base.
func (c *Compositor) alphaComposite(synth, base *video.Frame, mask *video.Mask) *video.Frame {
	alpha := c.engine.FeatherAlpha(mask, c.cfg.FeatherKernel)
	out := video.NewFrame(base.Width, base.Height)
	for p := 0; p < base.Width*base.Height; p++ {
		a := alpha[p]
		for ch := 0; ch < 3; ch++ {
			i := 3*p + ch
			out.Pix[i] = clamp8(a*float64(synth.Pix[i]) + (1-a)*float64(base.Pix[i]))
		}
	}
	return out
}

// denoise pushes the frame into the rolling output buffer and, once the
// buffer is full, emits a linearly-increasing-weight average with the
// most weight on the newest frame.
func (c *Compositor) denoise(st *State, frame *video.Frame) *video.Frame {
	st.denoise = append(st.denoise, frame)
	if len(st.denoise) > c.cfg.DenoiseWindow {
		st.denoise = st.denoise[1:]
	}
	if len(st.denoise) < c.cfg.DenoiseWindow {
		return frame
	}

	var totalW float64
	for i := range st.denoise {
		totalW += float64(i + 1)
	}
	out := video.NewFrame(frame.Width, frame.Height)
	acc := make([]float64, len(frame.Pix))
	for i, f := range st.denoise {
		w := float64(i+1) / totalW
		for p := range f.Pix {
			acc[p] += w * float64(f.Pix[p])
		}
	}
	for p := range acc {
		out.Pix[p] = clamp8(acc[p])
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
