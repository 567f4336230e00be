// Package stabilize extracts per-frame camera motion from a video,
// removes it for processing, and restores it afterwards.
//
// Camera motion is modelled as a sequence of frame-to-frame similarity
// transforms estimated from tracked corner features. The cumulative
// trajectory is smoothed with a symmetric moving average so the
// stabilized sequence keeps the intentional pan while dropping
// high-frequency shake.
package stabilize

import (
	"fmt"

	"github.com/recastvideo/recast/internal/monitoring"
	"github.com/recastvideo/recast/internal/video"
	"github.com/recastvideo/recast/internal/vision"
)

// Config holds stabilizer tuning parameters.
type Config struct {
	SmoothingRadius int     // frames averaged on each side of the smoothing window
	MaxCorners      int     // feature budget per frame pair
	Quality         float64 // Shi-Tomasi quality fraction
	MinDistance     int     // minimum pixel distance between features
	MinTrackPoints  int     // correspondences required for a non-identity fit
}

// DefaultConfig returns the default stabilizer configuration.
func DefaultConfig() Config {
	return Config{
		SmoothingRadius: 30,
		MaxCorners:      200,
		Quality:         0.01,
		MinDistance:     30,
		MinTrackPoints:  10,
	}
}

// Stabilizer extracts, smooths and reapplies camera motion.
type Stabilizer struct {
	cfg    Config
	engine vision.Engine
}

// New creates a Stabilizer with the default vision engine.
func New(cfg Config) *Stabilizer {
	return NewWithEngine(cfg, vision.Default())
}

// NewWithEngine creates a Stabilizer with a caller-supplied vision engine.
func NewWithEngine(cfg Config, engine vision.Engine) *Stabilizer {
	if cfg.SmoothingRadius <= 0 {
		cfg = DefaultConfig()
	}
	return &Stabilizer{cfg: cfg, engine: engine}
}

// Stabilize removes camera shake from the frame sequence and returns the
// stabilized frames together with the raw (unsmoothed) trajectory needed
// to restore the original motion later.
//
// Sequences shorter than two frames pass through unmodified with an
// identity trajectory. Frame pairs where tracking fails record an
// identity transform rather than failing the run.
func (s *Stabilizer) Stabilize(frames []*video.Frame) ([]*video.Frame, video.Trajectory, error) {
	if err := video.ValidateFrameSizes(frames); err != nil {
		return nil, nil, fmt.Errorf("stabilize: %w", err)
	}
	if len(frames) < 2 {
		trajectory := make(video.Trajectory, len(frames))
		for i := range trajectory {
			trajectory[i] = video.Identity()
		}
		return frames, trajectory, nil
	}

	trajectory := s.extractTransforms(frames)

	cumulative := trajectory.Cumulative()
	smoothed := cumulative.Smooth(s.cfg.SmoothingRadius)

	// Recover frame-to-frame transforms between consecutive smoothed poses.
	smoothedSteps := make(video.Trajectory, len(smoothed))
	smoothedSteps[0] = video.Identity()
	for i := 1; i < len(smoothed); i++ {
		inv, err := smoothed[i-1].Inverse()
		if err != nil {
			monitoring.Logf("stabilize: smoothed pose %d singular: %v", i-1, err)
			smoothedSteps[i] = video.Identity()
			continue
		}
		smoothedSteps[i] = inv.Mul(smoothed[i])
	}

	stabilized := make([]*video.Frame, len(frames))
	acc := video.Identity()
	for i, f := range frames {
		acc = acc.Mul(smoothedSteps[i])
		inv, err := acc.Inverse()
		if err != nil {
			monitoring.Logf("stabilize: cumulative pose %d singular: %v", i, err)
			stabilized[i] = f.Clone()
			continue
		}
		stabilized[i] = s.engine.WarpAffine(f, inv)
	}
	return stabilized, trajectory, nil
}

// Reapply warps each processed (stabilized-space) frame forward by the
// raw per-frame transform, restoring the original camera motion.
func (s *Stabilizer) Reapply(frames []*video.Frame, trajectory video.Trajectory) ([]*video.Frame, error) {
	if len(frames) != len(trajectory) {
		return nil, fmt.Errorf("reapply: %d frames but %d transforms", len(frames), len(trajectory))
	}
	if len(frames) < 2 {
		return frames, nil
	}
	out := make([]*video.Frame, len(frames))
	for i, f := range frames {
		out[i] = s.engine.WarpAffine(f, trajectory[i])
	}
	return out, nil
}

// extractTransforms estimates the frame-to-frame motion transform for
// each consecutive pair. The first entry is always identity.
func (s *Stabilizer) extractTransforms(frames []*video.Frame) video.Trajectory {
	trajectory := make(video.Trajectory, len(frames))
	trajectory[0] = video.Identity()

	prevGray := s.engine.Grayscale(frames[0])
	for i := 1; i < len(frames); i++ {
		currGray := s.engine.Grayscale(frames[i])
		trajectory[i] = s.pairTransform(prevGray, currGray, i)
		prevGray = currGray
	}
	return trajectory
}

// pairTransform fits a similarity transform between one frame pair,
// falling back to identity whenever tracking or fitting degrades.
func (s *Stabilizer) pairTransform(prevGray, currGray *vision.Gray, frameIdx int) video.Transform {
	pts := s.engine.GoodFeatures(prevGray, s.cfg.MaxCorners, s.cfg.Quality, s.cfg.MinDistance)
	if len(pts) == 0 {
		monitoring.Logf("stabilize: frame %d: no trackable features, using identity", frameIdx)
		return video.Identity()
	}

	tracked, status := s.engine.TrackFeatures(prevGray, currGray, pts)
	src := make([]vision.Point, 0, len(pts))
	dst := make([]vision.Point, 0, len(pts))
	for j, ok := range status {
		if ok {
			src = append(src, pts[j])
			dst = append(dst, tracked[j])
		}
	}
	if len(src) < s.cfg.MinTrackPoints {
		monitoring.Logf("stabilize: frame %d: only %d reliable tracks (<%d), using identity",
			frameIdx, len(src), s.cfg.MinTrackPoints)
		return video.Identity()
	}

	t, err := s.engine.EstimatePartialAffine(src, dst)
	if err != nil {
		monitoring.Logf("stabilize: frame %d: %v, using identity", frameIdx, err)
		return video.Identity()
	}
	return t
}
