package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recastvideo/recast/internal/video"
)

func testConfig() Config {
	return Config{
		FeatherKernel:    5,
		ConsistencyBlend: 0.7,
		DenoiseWindow:    3,
	}
}

// centerMask marks a square region in the middle of a w x h mask.
func centerMask(w, h, inset int) *video.Mask {
	m := video.NewMask(w, h)
	for y := inset; y < h-inset; y++ {
		for x := inset; x < w-inset; x++ {
			m.Set(x, y, 255)
		}
	}
	return m
}

func TestComposePassThroughWithoutSynthesis(t *testing.T) {
	c := New(testConfig())
	st := NewState()
	orig := video.NewSolidFrame(16, 16, 40, 50, 60)

	out := c.ComposeFrame(st, Input{Original: orig})
	assert.Equal(t, orig.Pix, out.Pix)
	assert.NotSame(t, orig, out)
}

func TestComposeBlendsSubjectRegion(t *testing.T) {
	c := New(testConfig())
	st := NewState()
	orig := video.NewSolidFrame(32, 32, 20, 20, 20)
	synth := video.NewSolidFrame(32, 32, 20, 20, 20)
	// the synthesized subject differs only inside the mask
	mask := centerMask(32, 32, 10)
	for y := 10; y < 22; y++ {
		for x := 10; x < 22; x++ {
			synth.SetRGB(x, y, 200, 200, 200)
		}
	}

	out := c.ComposeFrame(st, Input{Original: orig, Synthesized: synth, Mask: mask})

	// mask center carries the synthesized subject
	r, _, _ := out.RGB(16, 16)
	assert.Greater(t, r, uint8(150))
	// far outside the feathered mask the original survives
	r, _, _ = out.RGB(2, 2)
	assert.Equal(t, uint8(20), r)
}

func TestComposeUsesBackgroundPlate(t *testing.T) {
	c := New(testConfig())
	st := NewState()
	orig := video.NewSolidFrame(24, 24, 20, 20, 20)
	plate := video.NewSolidFrame(24, 24, 90, 90, 90)
	synth := orig.Clone()
	mask := centerMask(24, 24, 9)

	out := c.ComposeFrame(st, Input{Original: orig, Synthesized: synth, Mask: mask, Background: plate})

	// outside the subject the plate shows through instead of the original
	r, _, _ := out.RGB(1, 1)
	assert.Equal(t, uint8(90), r)
}

func TestComposeTemporalConsistencyDampsFlicker(t *testing.T) {
	cfg := testConfig()
	cfg.DenoiseWindow = 1 // isolate the consistency blend
	c := New(cfg)
	st := NewState()

	orig := video.NewSolidFrame(32, 32, 128, 128, 128)
	mask := centerMask(32, 32, 4)

	first := c.ComposeFrame(st, Input{Original: orig, Synthesized: video.NewSolidFrame(32, 32, 100, 100, 100), Mask: mask})
	r, _, _ := first.RGB(16, 16)
	assert.InDelta(t, 100, float64(r), 3)

	// an abrupt jump in the synthesized subject is pulled back toward
	// the previous output
	second := c.ComposeFrame(st, Input{Original: orig.Clone(), Synthesized: video.NewSolidFrame(32, 32, 200, 200, 200), Mask: mask})
	r, _, _ = second.RGB(16, 16)
	assert.Greater(t, float64(r), 150.0)
	assert.Less(t, float64(r), 185.0)
}

func TestComposeStateClearsAfterMiss(t *testing.T) {
	c := New(testConfig())
	st := NewState()
	orig := video.NewSolidFrame(16, 16, 50, 50, 50)
	mask := centerMask(16, 16, 4)

	c.ComposeFrame(st, Input{Original: orig, Synthesized: orig.Clone(), Mask: mask})
	require.NotNil(t, st.prevSynth)

	c.ComposeFrame(st, Input{Original: orig.Clone()})
	assert.Nil(t, st.prevSynth)
}

func TestStateReset(t *testing.T) {
	c := New(testConfig())
	st := NewState()
	orig := video.NewSolidFrame(16, 16, 50, 50, 50)
	mask := centerMask(16, 16, 4)
	c.ComposeFrame(st, Input{Original: orig, Synthesized: orig.Clone(), Mask: mask})

	st.Reset()
	assert.Nil(t, st.prevOriginal)
	assert.Nil(t, st.prevSynth)
	assert.Empty(t, st.denoise)
}

func TestDenoiseRollingAverage(t *testing.T) {
	c := New(testConfig())
	st := NewState()

	frames := []uint8{60, 120, 180}
	var last *video.Frame
	for _, v := range frames {
		last = c.denoise(st, video.NewSolidFrame(8, 8, v, v, v))
	}
	// weights 1/6, 2/6, 3/6 over 60, 120, 180
	r, _, _ := last.RGB(4, 4)
	assert.Equal(t, uint8(140), r)
}

func TestDenoiseBelowWindowPassesThrough(t *testing.T) {
	c := New(testConfig())
	st := NewState()
	f := video.NewSolidFrame(8, 8, 77, 77, 77)
	out := c.denoise(st, f)
	assert.Same(t, f, out)
}
