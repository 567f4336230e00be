package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recastvideo/recast/internal/fsutil"
	"github.com/recastvideo/recast/internal/pipeline"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfigFile(t, "tuning.json", `{
		"stabilize": false,
		"num_segments": 5,
		"warp_blend": 0.5,
		"blend_policy": "later-wins"
	}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Stabilize)
	assert.False(t, *cfg.Stabilize)
	require.NotNil(t, cfg.NumSegments)
	assert.Equal(t, 5, *cfg.NumSegments)
	require.NotNil(t, cfg.WarpBlend)
	assert.Equal(t, 0.5, *cfg.WarpBlend)

	// omitted fields stay nil
	assert.Nil(t, cfg.FootLock)
	assert.Nil(t, cfg.FeatherKernel)
}

func TestLoadTuningConfigFSMemory(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("tuning.json", []byte(`{"seed": 7}`), 0o644))

	cfg, err := LoadTuningConfigFS(fsys, "tuning.json")
	require.NoError(t, err)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(7), *cfg.Seed)
}

func TestLoadTuningConfigRejectsNonJSONExtension(t *testing.T) {
	path := writeConfigFile(t, "tuning.yaml", `{}`)
	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json extension")
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestLoadTuningConfigBadJSON(t *testing.T) {
	path := writeConfigFile(t, "broken.json", `{"num_segments": `)
	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestValidate(t *testing.T) {
	intp := func(v int) *int { return &v }
	floatp := func(v float64) *float64 { return &v }
	strp := func(v string) *string { return &v }

	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr string
	}{
		{name: "empty is valid"},
		{name: "negative segments", cfg: TuningConfig{NumSegments: intp(-1)}, wantErr: "num_segments"},
		{name: "zero kernel", cfg: TuningConfig{FeatherKernel: intp(0)}, wantErr: "feather_kernel"},
		{name: "blend above one", cfg: TuningConfig{ConsistencyBlend: floatp(1.5)}, wantErr: "consistency_blend"},
		{name: "negative overlap", cfg: TuningConfig{OverlapFrames: intp(-2)}, wantErr: "overlap_frames"},
		{name: "zero overlap ok", cfg: TuningConfig{OverlapFrames: intp(0)}},
		{name: "zero velocity", cfg: TuningConfig{VelocityThreshold: floatp(0)}, wantErr: "velocity_threshold"},
		{name: "unknown policy", cfg: TuningConfig{BlendPolicy: strp("average")}, wantErr: "blend_policy"},
		{name: "crossfade policy ok", cfg: TuningConfig{BlendPolicy: strp(string(pipeline.BlendLinearCrossfade))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyOverlaysOnlyNamedFields(t *testing.T) {
	stab := false
	segs := 7
	blend := 0.9
	policy := string(pipeline.BlendLaterWins)
	cfg := TuningConfig{
		Stabilize:        &stab,
		NumSegments:      &segs,
		ConsistencyBlend: &blend,
		BlendPolicy:      &policy,
	}

	base := pipeline.DefaultConfig()
	applied := cfg.Apply(base)

	assert.False(t, applied.Stabilize)
	assert.Equal(t, 7, applied.Segmenter.NumSegments)
	assert.Equal(t, 0.9, applied.Compositor.ConsistencyBlend)
	assert.Equal(t, pipeline.BlendLaterWins, applied.BlendPolicy)

	// untouched fields keep the defaults
	assert.Equal(t, base.FootLock, applied.FootLock)
	assert.Equal(t, base.Stabilizer.SmoothingRadius, applied.Stabilizer.SmoothingRadius)
	assert.Equal(t, base.Compositor.FeatherKernel, applied.Compositor.FeatherKernel)
}

func TestApplySeed(t *testing.T) {
	seed := int64(42)
	applied := (&TuningConfig{Seed: &seed}).Apply(pipeline.DefaultConfig())
	assert.Equal(t, int64(42), applied.Seed)
}
