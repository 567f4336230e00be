// Package config loads pipeline tuning parameters from JSON. Fields are
// pointer-typed so a partial config file only overrides what it names;
// everything else keeps the compiled-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/recastvideo/recast/internal/fsutil"
	"github.com/recastvideo/recast/internal/pipeline"
)

// maxConfigFileSize bounds config reads for safety.
const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig is the JSON schema for pipeline tuning overrides.
type TuningConfig struct {
	// Run toggles
	Stabilize            *bool  `json:"stabilize,omitempty"`
	FootLock             *bool  `json:"foot_lock,omitempty"`
	BuildBackgroundPlate *bool  `json:"build_background_plate,omitempty"`
	Seed                 *int64 `json:"seed,omitempty"`

	// Stabilizer params
	SmoothingRadius *int     `json:"smoothing_radius,omitempty"`
	MaxCorners      *int     `json:"max_corners,omitempty"`
	FeatureQuality  *float64 `json:"feature_quality,omitempty"`
	MinDistance     *int     `json:"min_distance,omitempty"`
	MinTrackPoints  *int     `json:"min_track_points,omitempty"`

	// Segmenter params
	NumSegments        *int `json:"num_segments,omitempty"`
	OverlapFrames      *int `json:"overlap_frames,omitempty"`
	MotionSmoothWindow *int `json:"motion_smooth_window,omitempty"`

	// Foot locker params
	VelocityThreshold *float64 `json:"velocity_threshold,omitempty"`
	MinContactLength  *int     `json:"min_contact_length,omitempty"`
	WarpBlend         *float64 `json:"warp_blend,omitempty"`

	// Background params
	BackgroundSampleRate *int     `json:"background_sample_rate,omitempty"`
	MinCoverage          *float64 `json:"min_coverage,omitempty"`

	// Compositor params
	FeatherKernel    *int     `json:"feather_kernel,omitempty"`
	ConsistencyBlend *float64 `json:"consistency_blend,omitempty"`
	DenoiseWindow    *int     `json:"denoise_window,omitempty"`
	BlendPolicy      *string  `json:"blend_policy,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// have a .json extension and the file must be under the size limit.
// Fields omitted from the file stay nil, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	return LoadTuningConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTuningConfigFS is LoadTuningConfig against an explicit filesystem.
func LoadTuningConfigFS(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values outside their usable ranges.
func (c *TuningConfig) Validate() error {
	checkPositive := func(name string, v *int) error {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
		return nil
	}
	checkFraction := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be in [0,1], got %g", name, *v)
		}
		return nil
	}

	for _, err := range []error{
		checkPositive("smoothing_radius", c.SmoothingRadius),
		checkPositive("max_corners", c.MaxCorners),
		checkPositive("min_distance", c.MinDistance),
		checkPositive("min_track_points", c.MinTrackPoints),
		checkPositive("num_segments", c.NumSegments),
		checkPositive("motion_smooth_window", c.MotionSmoothWindow),
		checkPositive("min_contact_length", c.MinContactLength),
		checkPositive("background_sample_rate", c.BackgroundSampleRate),
		checkPositive("feather_kernel", c.FeatherKernel),
		checkPositive("denoise_window", c.DenoiseWindow),
		checkFraction("feature_quality", c.FeatureQuality),
		checkFraction("warp_blend", c.WarpBlend),
		checkFraction("min_coverage", c.MinCoverage),
		checkFraction("consistency_blend", c.ConsistencyBlend),
	} {
		if err != nil {
			return err
		}
	}

	if c.OverlapFrames != nil && *c.OverlapFrames < 0 {
		return fmt.Errorf("overlap_frames must be non-negative, got %d", *c.OverlapFrames)
	}
	if c.VelocityThreshold != nil && *c.VelocityThreshold <= 0 {
		return fmt.Errorf("velocity_threshold must be positive, got %g", *c.VelocityThreshold)
	}
	if c.BlendPolicy != nil {
		switch pipeline.BlendPolicy(*c.BlendPolicy) {
		case pipeline.BlendLinearCrossfade, pipeline.BlendLaterWins:
		default:
			return fmt.Errorf("blend_policy must be %q or %q, got %q",
				pipeline.BlendLinearCrossfade, pipeline.BlendLaterWins, *c.BlendPolicy)
		}
	}
	return nil
}

// Apply overlays the non-nil fields onto a base pipeline configuration.
func (c *TuningConfig) Apply(base pipeline.Config) pipeline.Config {
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}

	setBool(&base.Stabilize, c.Stabilize)
	setBool(&base.FootLock, c.FootLock)
	setBool(&base.BuildBackgroundPlate, c.BuildBackgroundPlate)
	if c.Seed != nil {
		base.Seed = *c.Seed
	}

	setInt(&base.Stabilizer.SmoothingRadius, c.SmoothingRadius)
	setInt(&base.Stabilizer.MaxCorners, c.MaxCorners)
	setFloat(&base.Stabilizer.Quality, c.FeatureQuality)
	setInt(&base.Stabilizer.MinDistance, c.MinDistance)
	setInt(&base.Stabilizer.MinTrackPoints, c.MinTrackPoints)

	setInt(&base.Segmenter.NumSegments, c.NumSegments)
	setInt(&base.Segmenter.OverlapFrames, c.OverlapFrames)
	setInt(&base.Segmenter.SmoothWindow, c.MotionSmoothWindow)

	setFloat(&base.Locker.VelocityThreshold, c.VelocityThreshold)
	setInt(&base.Locker.MinContactLength, c.MinContactLength)
	setFloat(&base.Locker.WarpBlend, c.WarpBlend)

	setInt(&base.Background.SampleRate, c.BackgroundSampleRate)
	setFloat(&base.Background.MinCoverage, c.MinCoverage)

	setInt(&base.Compositor.FeatherKernel, c.FeatherKernel)
	setFloat(&base.Compositor.ConsistencyBlend, c.ConsistencyBlend)
	setInt(&base.Compositor.DenoiseWindow, c.DenoiseWindow)
	if c.BlendPolicy != nil {
		base.BlendPolicy = pipeline.BlendPolicy(*c.BlendPolicy)
	}
	return base
}
