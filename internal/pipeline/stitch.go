package pipeline

import (
	"github.com/recastvideo/recast/internal/segment"
	"github.com/recastvideo/recast/internal/video"
)

// BlendPolicy selects how frames in the overlap zone between adjacent
// segments are reconciled.
type BlendPolicy string

const (
	// BlendLinearCrossfade fades linearly from the earlier segment's
	// frames to the later segment's across the overlap zone.
	BlendLinearCrossfade BlendPolicy = "crossfade"
	// BlendLaterWins takes the later segment's frame everywhere the
	// segments overlap.
	BlendLaterWins BlendPolicy = "later-wins"
)

// segmentResult pairs a planned segment with its processed frames.
type segmentResult struct {
	seg    segment.Segment
	frames []*video.Frame
}

// stitch assembles per-segment outputs into one full-length sequence,
// reconciling overlap zones with the given policy. Segments are laid down
// in order; where a later segment overlaps what an earlier one already
// wrote, the policy decides the blend.
func stitch(results []segmentResult, totalFrames int, policy BlendPolicy) []*video.Frame {
	out := make([]*video.Frame, totalFrames)
	written := make([]bool, totalFrames)

	for _, res := range results {
		overlapStart := res.seg.Start
		overlapEnd := res.seg.Start // exclusive; grown below
		if policy == BlendLinearCrossfade {
			for idx := res.seg.Start; idx < res.seg.End && idx < totalFrames && written[idx]; idx++ {
				overlapEnd = idx + 1
			}
		}
		overlapLen := overlapEnd - overlapStart

		for i, f := range res.frames {
			idx := res.seg.Start + i
			if idx >= totalFrames {
				break
			}
			switch {
			case !written[idx]:
				out[idx] = f
			case policy == BlendLinearCrossfade && idx < overlapEnd:
				// Weight ramps toward the later segment deeper into the overlap.
				w := float64(idx-overlapStart+1) / float64(overlapLen+1)
				out[idx] = crossfade(out[idx], f, w)
			default:
				out[idx] = f
			}
			written[idx] = true
		}
	}
	return out
}

// crossfade blends later over earlier with weight w on the later frame.
func crossfade(earlier, later *video.Frame, w float64) *video.Frame {
	out := video.NewFrame(earlier.Width, earlier.Height)
	for i := range out.Pix {
		v := (1-w)*float64(earlier.Pix[i]) + w*float64(later.Pix[i])
		if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v + 0.5)
	}
	return out
}
