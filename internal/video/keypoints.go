package video

import "math"

// Standard joint indices in the COCO keypoint layout.
const (
	JointLeftAnkle  = 15
	JointRightAnkle = 16

	// NumJoints is the fixed length of a full keypoint set.
	NumJoints = 17
)

// Keypoint is one detected joint position with its detection confidence.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Keypoints is the ordered joint set for one frame in the standard layout.
// A nil Keypoints means pose detection failed for the frame; callers must
// treat that as a valid, recoverable state.
type Keypoints []Keypoint

// Ankle returns the ankle position for the given joint index and whether
// the keypoint set actually contains it.
func (k Keypoints) Ankle(joint int) (x, y float64, ok bool) {
	if k == nil || joint >= len(k) {
		return 0, 0, false
	}
	return k[joint].X, k[joint].Y, true
}

// Dist returns the Euclidean distance between two keypoints.
func Dist(a, b Keypoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
