// Package vision provides the low-level vision-math primitives the
// compositing pipeline is built on: grayscale conversion, feature
// detection, sparse and dense optical flow, robust partial-affine fitting,
// affine warping, dilation, feathering and inpainting.
//
// The primitives are exposed behind the Engine interface so an
// accelerated implementation can be substituted; the package default is a
// pure-Go engine with no cgo dependencies.
package vision

import (
	"github.com/recastvideo/recast/internal/video"
)

// Point is a 2D pixel-space coordinate.
type Point struct {
	X float64
	Y float64
}

// FlowField is a dense per-pixel displacement field from a previous frame
// to a current frame: pixel (x, y) in the previous frame is estimated to
// have moved by (DX[i], DY[i]) where i = y*Width + x.
type FlowField struct {
	Width  int
	Height int
	DX     []float64
	DY     []float64
}

// NewFlowField allocates a zero (no motion) flow field.
func NewFlowField(width, height int) *FlowField {
	return &FlowField{
		Width:  width,
		Height: height,
		DX:     make([]float64, width*height),
		DY:     make([]float64, width*height),
	}
}

// At returns the displacement at (x, y), border-replicate clamped.
func (f *FlowField) At(x, y int) (dx, dy float64) {
	if x < 0 {
		x = 0
	} else if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.Height {
		y = f.Height - 1
	}
	i := y*f.Width + x
	return f.DX[i], f.DY[i]
}

// Engine is the vision-math contract consumed by the pipeline stages.
// All methods are synchronous and side-effect free.
type Engine interface {
	// Grayscale converts an RGB frame to a float luma plane.
	Grayscale(f *video.Frame) *Gray

	// GoodFeatures detects up to maxCorners trackable corner points with
	// the given quality fraction and minimum pairwise pixel distance.
	GoodFeatures(g *Gray, maxCorners int, quality float64, minDistance int) []Point

	// TrackFeatures tracks points from prev into curr with pyramidal
	// Lucas-Kanade flow. status[i] is false where the track failed.
	TrackFeatures(prev, curr *Gray, pts []Point) (tracked []Point, status []bool)

	// EstimatePartialAffine fits a similarity transform (rotation,
	// uniform scale, translation) from src points to dst points by least
	// squares with one outlier-trim pass. It fails on fewer than two
	// correspondences or a degenerate fit.
	EstimatePartialAffine(src, dst []Point) (video.Transform, error)

	// WarpAffine warps a frame through the given transform with
	// border-replicate sampling. The transform maps output coordinates
	// to source coordinates' inverse; that is, the frame content is moved
	// by t, matching the usual forward-warp convention.
	WarpAffine(f *video.Frame, t video.Transform) *video.Frame

	// DenseFlow estimates per-pixel displacement from prev to curr.
	DenseFlow(prev, curr *Gray) *FlowField

	// WarpWithFlow warps src forward through a flow field so that the
	// result aligns with the frame the flow was computed against.
	WarpWithFlow(src *video.Frame, flow *FlowField) *video.Frame

	// Dilate grows the >0 region of a mask with a square kernel.
	Dilate(m *video.Mask, kernel, iterations int) *video.Mask

	// FeatherAlpha converts a mask to a float alpha plane in [0, 1] and
	// softens its edges with a Gaussian blur of the given odd kernel size.
	FeatherAlpha(m *video.Mask, kernel int) []float64

	// Inpaint fills the >0 region of the mask from surrounding pixels.
	Inpaint(f *video.Frame, m *video.Mask, radius int) *video.Frame
}

// Default returns the package's pure-Go engine.
func Default() Engine {
	return pureEngine{}
}

// pureEngine is the cgo-free reference implementation of Engine.
type pureEngine struct{}
