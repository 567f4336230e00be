// Package segment plans the timeline partition of a video so synthesis
// state can be reset at natural low-motion boundaries.
package segment

import (
	"fmt"
)

// Kind labels a segment's role in the timeline.
type Kind string

const (
	KindApproach Kind = "approach"
	KindHold     Kind = "hold"
	KindExit     Kind = "exit"
	KindGeneric  Kind = "generic"
)

// Segment is one planned processing span. Start is inclusive, End
// exclusive. Adjacent segments may overlap by up to the configured
// overlap width.
type Segment struct {
	ID    int  `json:"id"`
	Start int  `json:"start_frame"`
	End   int  `json:"end_frame"`
	Kind  Kind `json:"kind"`
}

// Len returns the number of frames the segment spans.
func (s Segment) Len() int { return s.End - s.Start }

// Config holds segmenter tuning parameters.
type Config struct {
	NumSegments   int // how many segments to plan
	OverlapFrames int // widening applied to each interior boundary
	SmoothWindow  int // moving-average window for the motion signal
}

// DefaultConfig returns the default segmenter configuration.
func DefaultConfig() Config {
	return Config{
		NumSegments:   3,
		OverlapFrames: 5,
		SmoothWindow:  15,
	}
}

// Planner partitions a frame range into overlapping segments.
type Planner struct {
	cfg Config
}

// NewPlanner creates a Planner, substituting defaults for zero values.
func NewPlanner(cfg Config) *Planner {
	def := DefaultConfig()
	if cfg.NumSegments <= 0 {
		cfg.NumSegments = def.NumSegments
	}
	if cfg.OverlapFrames < 0 {
		cfg.OverlapFrames = def.OverlapFrames
	}
	if cfg.SmoothWindow <= 0 {
		cfg.SmoothWindow = def.SmoothWindow
	}
	return &Planner{cfg: cfg}
}

// Plan partitions [0, totalFrames) into the configured number of
// segments. With a motion signal, interior boundaries shift to the local
// motion minimum near each uniform boundary so cuts land at natural
// low-motion moments; without one the partition is uniform. Every
// interior boundary is then widened by the overlap width on both sides.
func (p *Planner) Plan(totalFrames int, motion []float64) ([]Segment, error) {
	if totalFrames < p.cfg.NumSegments {
		return nil, fmt.Errorf("plan: %d frames cannot form %d segments", totalFrames, p.cfg.NumSegments)
	}

	boundaries := p.uniformBoundaries(totalFrames)
	if len(motion) >= totalFrames && p.cfg.NumSegments > 1 {
		boundaries = p.motionBoundaries(totalFrames, motion)
	}

	segments := make([]Segment, p.cfg.NumSegments)
	for i := 0; i < p.cfg.NumSegments; i++ {
		start := boundaries[i]
		end := boundaries[i+1]
		if i > 0 {
			start = maxInt(0, start-p.cfg.OverlapFrames)
		}
		if i < p.cfg.NumSegments-1 {
			end = minInt(totalFrames, end+p.cfg.OverlapFrames)
		}
		segments[i] = Segment{ID: i, Start: start, End: end, Kind: p.kind(i)}
	}
	return segments, nil
}

// uniformBoundaries divides the range into equal parts; the final
// boundary absorbs the remainder.
func (p *Planner) uniformBoundaries(totalFrames int) []int {
	segLen := totalFrames / p.cfg.NumSegments
	boundaries := make([]int, p.cfg.NumSegments+1)
	for i := 1; i < p.cfg.NumSegments; i++ {
		boundaries[i] = i * segLen
	}
	boundaries[p.cfg.NumSegments] = totalFrames
	return boundaries
}

// motionBoundaries searches a window of ±segLen/4 around each uniform
// boundary for the minimum of the smoothed motion signal and cuts there.
func (p *Planner) motionBoundaries(totalFrames int, motion []float64) []int {
	smoothed := MovingAverage(motion, p.cfg.SmoothWindow)
	segLen := totalFrames / p.cfg.NumSegments
	window := segLen / 4

	boundaries := make([]int, p.cfg.NumSegments+1)
	boundaries[p.cfg.NumSegments] = totalFrames
	prev := 0
	for i := 1; i < p.cfg.NumSegments; i++ {
		uniform := i * segLen
		lo := maxInt(prev+1, uniform-window)
		hi := minInt(totalFrames-1, uniform+window)
		cut := uniform
		if lo < hi {
			best := smoothed[lo]
			cut = lo
			for j := lo + 1; j <= hi; j++ {
				if smoothed[j] < best {
					best = smoothed[j]
					cut = j
				}
			}
		}
		boundaries[i] = cut
		prev = cut
	}
	return boundaries
}

func (p *Planner) kind(i int) Kind {
	if p.cfg.NumSegments != 3 {
		return KindGeneric
	}
	switch i {
	case 0:
		return KindApproach
	case 1:
		return KindHold
	default:
		return KindExit
	}
}

// MovingAverage smooths a signal with a symmetric window, clamped at the
// edges. Signals shorter than the window are returned unchanged.
func MovingAverage(signal []float64, window int) []float64 {
	if len(signal) < window || window < 2 {
		return signal
	}
	half := window / 2
	out := make([]float64, len(signal))
	for i := range signal {
		start := maxInt(0, i-half)
		end := minInt(len(signal), i+half+1)
		var sum float64
		for _, v := range signal[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
