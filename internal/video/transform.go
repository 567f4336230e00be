package video

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Transform is a 3x3 homogeneous 2D affine matrix, row-major, mapping one
// frame's pixel coordinates into another frame's. The bottom row of a valid
// transform is always [0 0 1].
type Transform [9]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translation returns a pure-translation transform.
func Translation(dx, dy float64) Transform {
	return Transform{1, 0, dx, 0, 1, dy, 0, 0, 1}
}

// Similarity returns a rotation+uniform-scale+translation transform from
// the linear parameters a, b and the translation tx, ty:
//
//	x' = a*x - b*y + tx
//	y' = b*x + a*y + ty
func Similarity(a, b, tx, ty float64) Transform {
	return Transform{a, -b, tx, b, a, ty, 0, 0, 1}
}

func (t Transform) dense() *mat.Dense {
	buf := make([]float64, 9)
	copy(buf, t[:])
	return mat.NewDense(3, 3, buf)
}

func fromDense(d *mat.Dense) Transform {
	var t Transform
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			t[3*r+c] = d.At(r, c)
		}
	}
	return t
}

// Mul returns the matrix product t * o.
func (t Transform) Mul(o Transform) Transform {
	var out mat.Dense
	out.Mul(t.dense(), o.dense())
	return fromDense(&out)
}

// Inverse returns the matrix inverse. Degenerate transforms (zero or
// near-zero determinant) report an error so callers can fall back to
// identity rather than produce NaN pixels.
func (t Transform) Inverse() (Transform, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.dense()); err != nil {
		return Identity(), fmt.Errorf("singular transform: %w", err)
	}
	return fromDense(&inv), nil
}

// Apply maps the point (x, y) through the transform.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t[0]*x + t[1]*y + t[2], t[3]*x + t[4]*y + t[5]
}

// TranslationMagnitude returns the length of the translation component,
// used as a per-frame scalar motion signal.
func (t Transform) TranslationMagnitude() float64 {
	return math.Hypot(t[2], t[5])
}

// IsIdentity reports whether the transform equals identity within tol.
func (t Transform) IsIdentity(tol float64) bool {
	id := Identity()
	for i := range t {
		if math.Abs(t[i]-id[i]) > tol {
			return false
		}
	}
	return true
}

// Trajectory is the sequence of per-frame Motion Transforms for a video.
// trajectory[0] is always identity; trajectory[i] maps frame i's pixel
// coordinates into frame i-1's.
type Trajectory []Transform

// Cumulative returns the running matrix product of the trajectory in
// display order: Cumulative()[i] maps frame i into frame 0's coordinates.
func (tr Trajectory) Cumulative() Trajectory {
	out := make(Trajectory, len(tr))
	acc := Identity()
	for i, t := range tr {
		acc = acc.Mul(t)
		out[i] = acc
	}
	return out
}

// Smooth applies a symmetric moving average of the given radius to each
// matrix element. The input is expected to be a cumulative trajectory;
// averaging element-wise damps high-frequency shake while tracking the
// intentional camera path.
func (tr Trajectory) Smooth(radius int) Trajectory {
	out := make(Trajectory, len(tr))
	for i := range tr {
		start := i - radius
		if start < 0 {
			start = 0
		}
		end := i + radius + 1
		if end > len(tr) {
			end = len(tr)
		}
		var sum Transform
		for _, t := range tr[start:end] {
			for k := range sum {
				sum[k] += t[k]
			}
		}
		n := float64(end - start)
		for k := range sum {
			sum[k] /= n
		}
		out[i] = sum
	}
	return out
}

// MotionSignal returns per-frame translation magnitudes, a scalar motion
// series consumed by the motion-guided segmenter and the run report.
func (tr Trajectory) MotionSignal() []float64 {
	out := make([]float64, len(tr))
	for i, t := range tr {
		out[i] = t.TranslationMagnitude()
	}
	return out
}

// SaveTrajectory writes a trajectory to a JSON file so the reapply step
// can run in a separate invocation from stabilization.
func SaveTrajectory(tr Trajectory, path string) error {
	data, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshaling trajectory: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0644); err != nil {
		return fmt.Errorf("writing trajectory file: %w", err)
	}
	return nil
}

// LoadTrajectory reads a trajectory previously written by SaveTrajectory.
func LoadTrajectory(path string) (Trajectory, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading trajectory file: %w", err)
	}
	var tr Trajectory
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parsing trajectory file: %w", err)
	}
	return tr, nil
}
