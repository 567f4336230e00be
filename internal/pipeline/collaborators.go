package pipeline

import (
	"image"

	"github.com/recastvideo/recast/internal/video"
)

// ControlImages are the auxiliary images that guide the external
// synthesizer: a rendered pose skeleton and optional depth and edge maps.
type ControlImages struct {
	Pose  *video.Frame
	Depth *video.Frame
	Edges *video.Frame
}

// Detector is the external person detector / pose estimator. Methods
// receive the frame index alongside the frame so precomputed per-frame
// results can be served from files. Any method may report "not found"
// by returning a nil result with a nil error; the pipeline treats
// absence as a valid, recoverable state. An error return is also
// treated as absence for that frame (logged, never fatal).
type Detector interface {
	// Detect returns the subject mask and an optional bounding region.
	Detect(idx int, f *video.Frame) (*video.Mask, *image.Rectangle, error)
	// Pose returns the subject's keypoints, nil if detection failed.
	Pose(idx int, f *video.Frame) (video.Keypoints, error)
	// Depth returns a depth control image, nil if unavailable.
	Depth(idx int, f *video.Frame) (*video.Frame, error)
	// Edges returns an edge control image, nil if unavailable.
	Edges(idx int, f *video.Frame) (*video.Frame, error)
}

// Synthesizer is the external generative model producing the replacement
// foreground. It must be deterministic for a fixed seed and fixed control
// images, otherwise consistency blending across frames is meaningless.
type Synthesizer interface {
	Synthesize(idx int, ctl ControlImages, seed int64) (*video.Frame, error)
}
