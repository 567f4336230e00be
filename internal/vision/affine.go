package vision

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/recastvideo/recast/internal/video"
)

// affineTrimFactor rejects correspondences whose fit residual exceeds
// this multiple of the median residual before the final refit.
const affineTrimFactor = 3.0

// EstimatePartialAffine fits the similarity transform
//
//	x' = a*x - b*y + tx
//	y' = b*x + a*y + ty
//
// minimising squared error over the correspondences, with a single
// median-residual trim pass to shed gross outliers.
func (e pureEngine) EstimatePartialAffine(src, dst []Point) (video.Transform, error) {
	if len(src) != len(dst) {
		return video.Identity(), fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < 2 {
		return video.Identity(), fmt.Errorf("need at least 2 correspondences, got %d", len(src))
	}

	t, err := fitSimilarity(src, dst)
	if err != nil {
		return video.Identity(), err
	}
	if len(src) < 4 {
		return t, nil
	}

	// Trim outliers against the first fit and refit on the survivors.
	residuals := make([]float64, len(src))
	for i := range src {
		px, py := t.Apply(src[i].X, src[i].Y)
		residuals[i] = math.Hypot(px-dst[i].X, py-dst[i].Y)
	}
	sorted := append([]float64(nil), residuals...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if median <= 0 {
		return t, nil
	}

	keepSrc := make([]Point, 0, len(src))
	keepDst := make([]Point, 0, len(dst))
	for i := range src {
		if residuals[i] <= affineTrimFactor*median {
			keepSrc = append(keepSrc, src[i])
			keepDst = append(keepDst, dst[i])
		}
	}
	if len(keepSrc) < 2 || len(keepSrc) == len(src) {
		return t, nil
	}
	refit, err := fitSimilarity(keepSrc, keepDst)
	if err != nil {
		return t, nil // keep the untrimmed fit rather than fail
	}
	return refit, nil
}

// fitSimilarity solves the least-squares similarity fit with gonum. The
// design matrix stacks two rows per correspondence over the parameter
// vector [a b tx ty].
func fitSimilarity(src, dst []Point) (video.Transform, error) {
	n := len(src)
	a := mat.NewDense(2*n, 4, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := range src {
		a.SetRow(2*i, []float64{src[i].X, -src[i].Y, 1, 0})
		a.SetRow(2*i+1, []float64{src[i].Y, src[i].X, 0, 1})
		b.SetVec(2*i, dst[i].X)
		b.SetVec(2*i+1, dst[i].Y)
	}

	var params mat.VecDense
	if err := params.SolveVec(a, b); err != nil {
		return video.Identity(), fmt.Errorf("degenerate affine fit: %w", err)
	}
	pa, pb := params.AtVec(0), params.AtVec(1)
	if math.IsNaN(pa) || math.IsNaN(pb) || math.Hypot(pa, pb) < 1e-9 {
		return video.Identity(), fmt.Errorf("degenerate affine fit: zero scale")
	}
	return video.Similarity(pa, pb, params.AtVec(2), params.AtVec(3)), nil
}
