package composite

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/recastvideo/recast/internal/video"
)

// colorMatchMinStd is the variance floor below which a channel is left
// untouched; rescaling a near-constant channel would only amplify noise.
const colorMatchMinStd = 1e-3

// subjectThreshold splits mask values into subject (>=) and background (<).
const subjectThreshold = 128

// MatchColor rescales the synthesized image's per-channel statistics in
// CIELAB space to match the reference. When a mask is supplied, both the
// source and reference statistics are restricted to the subject region.
// Channels with an empty region or near-zero variance on either side are
// skipped, so an already-matched or constant-colour image passes through
// unchanged up to rounding.
func MatchColor(synth, reference *video.Frame, mask *video.Mask) *video.Frame {
	w, h := synth.Width, synth.Height
	srcLab := toLab(synth)
	refLab := toLab(reference)

	inRegion := func(p int) bool {
		if mask == nil {
			return true
		}
		return mask.Pix[p] >= subjectThreshold
	}

	// Per-channel statistics over the region.
	var srcSamples, refSamples [3][]float64
	for p := 0; p < w*h; p++ {
		if !inRegion(p) {
			continue
		}
		for ch := 0; ch < 3; ch++ {
			srcSamples[ch] = append(srcSamples[ch], srcLab[3*p+ch])
			refSamples[ch] = append(refSamples[ch], refLab[3*p+ch])
		}
	}

	type scale struct {
		apply          bool
		srcMean, gain  float64
		refMean        float64
	}
	var scales [3]scale
	for ch := 0; ch < 3; ch++ {
		if len(srcSamples[ch]) == 0 {
			continue
		}
		srcMean, srcStd := stat.MeanStdDev(srcSamples[ch], nil)
		refMean, refStd := stat.MeanStdDev(refSamples[ch], nil)
		if math.IsNaN(srcStd) || math.IsNaN(refStd) || srcStd < colorMatchMinStd || refStd < colorMatchMinStd {
			continue
		}
		scales[ch] = scale{apply: true, srcMean: srcMean, gain: refStd / srcStd, refMean: refMean}
	}
	if !scales[0].apply && !scales[1].apply && !scales[2].apply {
		return synth.Clone()
	}

	out := make([]float64, len(srcLab))
	copy(out, srcLab)
	for p := 0; p < w*h; p++ {
		for ch := 0; ch < 3; ch++ {
			s := scales[ch]
			if !s.apply {
				continue
			}
			out[3*p+ch] = (srcLab[3*p+ch]-s.srcMean)*s.gain + s.refMean
		}
	}
	return fromLab(out, w, h)
}

// sRGB <-> CIELAB (D65) conversion.

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func linearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.0
	whiteZ = 1.08883
)

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

func labFInv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

// toLab converts a frame to an interleaved L*a*b* float buffer.
func toLab(f *video.Frame) []float64 {
	out := make([]float64, len(f.Pix))
	for p := 0; p < f.Width*f.Height; p++ {
		r := srgbToLinear(float64(f.Pix[3*p]) / 255)
		g := srgbToLinear(float64(f.Pix[3*p+1]) / 255)
		b := srgbToLinear(float64(f.Pix[3*p+2]) / 255)

		x := 0.4124564*r + 0.3575761*g + 0.1804375*b
		y := 0.2126729*r + 0.7151522*g + 0.0721750*b
		z := 0.0193339*r + 0.1191920*g + 0.9503041*b

		fx := labF(x / whiteX)
		fy := labF(y / whiteY)
		fz := labF(z / whiteZ)

		out[3*p] = 116*fy - 16
		out[3*p+1] = 500 * (fx - fy)
		out[3*p+2] = 200 * (fy - fz)
	}
	return out
}

// fromLab converts an interleaved L*a*b* buffer back to an RGB frame,
// clipping out-of-gamut values.
func fromLab(lab []float64, width, height int) *video.Frame {
	f := video.NewFrame(width, height)
	for p := 0; p < width*height; p++ {
		l := lab[3*p]
		a := lab[3*p+1]
		bb := lab[3*p+2]

		fy := (l + 16) / 116
		fx := fy + a/500
		fz := fy - bb/200

		x := whiteX * labFInv(fx)
		y := whiteY * labFInv(fy)
		z := whiteZ * labFInv(fz)

		r := 3.2404542*x - 1.5371385*y - 0.4985314*z
		g := -0.9692660*x + 1.8760108*y + 0.0415560*z
		bl := 0.0556434*x - 0.2040259*y + 1.0572252*z

		f.Pix[3*p] = clamp8(linearToSRGB(clamp01(r)) * 255)
		f.Pix[3*p+1] = clamp8(linearToSRGB(clamp01(g)) * 255)
		f.Pix[3*p+2] = clamp8(linearToSRGB(clamp01(bl)) * 255)
	}
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
