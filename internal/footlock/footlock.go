// Package footlock detects ground-contact intervals from ankle keypoints
// and removes residual foot slide with small per-frame warps.
package footlock

import (
	"github.com/recastvideo/recast/internal/monitoring"
	"github.com/recastvideo/recast/internal/video"
	"github.com/recastvideo/recast/internal/vision"
)

// Config holds foot-locking tuning parameters.
type Config struct {
	VelocityThreshold float64 // px/frame below which an ankle counts as planted
	MinContactLength  int     // contact runs shorter than this are noise
	ExtendFrames      int     // boundary extension applied to accepted runs
	WarpBlend         float64 // fraction of the corrective warp applied
}

// DefaultConfig returns the default foot-locking configuration.
func DefaultConfig() Config {
	return Config{
		VelocityThreshold: 2.0,
		MinContactLength:  3,
		ExtendFrames:      1,
		WarpBlend:         0.7,
	}
}

// Locker detects and corrects foot slide.
type Locker struct {
	cfg    Config
	engine vision.Engine
}

// New creates a Locker with the default vision engine.
func New(cfg Config) *Locker {
	return NewWithEngine(cfg, vision.Default())
}

// NewWithEngine creates a Locker with a caller-supplied vision engine.
func NewWithEngine(cfg Config, engine vision.Engine) *Locker {
	if cfg.VelocityThreshold <= 0 {
		cfg = DefaultConfig()
	}
	return &Locker{cfg: cfg, engine: engine}
}

// DetectContacts derives per-foot boolean contact series from the pose
// sequence. A frame is a contact candidate when the ankle moved less than
// the velocity threshold since the previous frame; candidate runs shorter
// than the minimum length are discarded, and surviving runs are extended
// by one frame on each boundary to avoid flicker at transitions. Frames
// where either of a consecutive keypoint pair is missing are skipped.
func (l *Locker) DetectContacts(poses []video.Keypoints) (left, right []bool) {
	left = l.detectFoot(poses, video.JointLeftAnkle)
	right = l.detectFoot(poses, video.JointRightAnkle)
	return left, right
}

func (l *Locker) detectFoot(poses []video.Keypoints, joint int) []bool {
	contacts := make([]bool, len(poses))
	for i := 1; i < len(poses); i++ {
		cx, cy, ok := poses[i].Ankle(joint)
		if !ok {
			continue
		}
		px, py, ok := poses[i-1].Ankle(joint)
		if !ok {
			continue
		}
		v := video.Dist(video.Keypoint{X: cx, Y: cy}, video.Keypoint{X: px, Y: py})
		if v < l.cfg.VelocityThreshold {
			contacts[i] = true
		}
	}
	return l.filterRuns(contacts)
}

// filterRuns drops runs shorter than the minimum contact length and
// extends qualifying runs by the configured margin on each side.
func (l *Locker) filterRuns(contacts []bool) []bool {
	out := make([]bool, len(contacts))
	i := 0
	for i < len(contacts) {
		if !contacts[i] {
			i++
			continue
		}
		runStart := i
		for i < len(contacts) && contacts[i] {
			i++
		}
		runEnd := i // exclusive
		if runEnd-runStart < l.cfg.MinContactLength {
			continue
		}
		start := runStart - l.cfg.ExtendFrames
		if start < 0 {
			start = 0
		}
		end := runEnd + l.cfg.ExtendFrames
		if end > len(contacts) {
			end = len(contacts)
		}
		for j := start; j < end; j++ {
			out[j] = true
		}
	}
	return out
}

// footState tracks where each ankle landed in the previous output frame,
// so consecutive corrections compound instead of re-deriving from raw
// input every frame.
type footState struct {
	x, y  float64
	valid bool
}

// Lock applies per-frame corrective warps wherever a foot is in contact.
// Each correction maps the current raw ankle position onto the ankle's
// position in the previous output frame, warped across the whole frame
// and blended with the original at the configured fraction. Frames
// without contacts, without usable keypoints, or with a failed fit pass
// through unmodified.
func (l *Locker) Lock(frames []*video.Frame, poses []video.Keypoints, left, right []bool) []*video.Frame {
	if len(poses) != len(frames) || len(left) != len(frames) || len(right) != len(frames) {
		monitoring.Logf("footlock: sequence length mismatch (%d frames, %d poses), passing through",
			len(frames), len(poses))
		return frames
	}
	out := make([]*video.Frame, len(frames))
	var prevLeft, prevRight footState

	for i, f := range frames {
		if i == 0 {
			out[i] = f.Clone()
			prevLeft = rawFootState(poses, i, video.JointLeftAnkle)
			prevRight = rawFootState(poses, i, video.JointRightAnkle)
			continue
		}

		src, dst := l.correspondences(poses, i, left, right, prevLeft, prevRight)
		if len(src) == 0 {
			out[i] = f.Clone()
			prevLeft = rawFootState(poses, i, video.JointLeftAnkle)
			prevRight = rawFootState(poses, i, video.JointRightAnkle)
			continue
		}

		t, ok := l.fit(src, dst, i)
		if !ok {
			out[i] = f.Clone()
			prevLeft = rawFootState(poses, i, video.JointLeftAnkle)
			prevRight = rawFootState(poses, i, video.JointRightAnkle)
			continue
		}

		warped := l.engine.WarpAffine(f, t)
		out[i] = blendFrames(warped, f, l.cfg.WarpBlend)

		prevLeft = l.outputFootState(poses, i, video.JointLeftAnkle, t)
		prevRight = l.outputFootState(poses, i, video.JointRightAnkle, t)
	}
	return out
}

// correspondences collects (current raw ankle) -> (previous output
// ankle) point pairs for each foot currently in contact.
func (l *Locker) correspondences(poses []video.Keypoints, i int, left, right []bool, prevLeft, prevRight footState) (src, dst []vision.Point) {
	if left[i] && prevLeft.valid {
		if x, y, ok := poses[i].Ankle(video.JointLeftAnkle); ok {
			src = append(src, vision.Point{X: x, Y: y})
			dst = append(dst, vision.Point{X: prevLeft.x, Y: prevLeft.y})
		}
	}
	if right[i] && prevRight.valid {
		if x, y, ok := poses[i].Ankle(video.JointRightAnkle); ok {
			src = append(src, vision.Point{X: x, Y: y})
			dst = append(dst, vision.Point{X: prevRight.x, Y: prevRight.y})
		}
	}
	return src, dst
}

// fit derives the corrective transform: a pure translation from one
// correspondence, a partial affine from two.
func (l *Locker) fit(src, dst []vision.Point, frameIdx int) (video.Transform, bool) {
	if len(src) == 1 {
		return video.Translation(dst[0].X-src[0].X, dst[0].Y-src[0].Y), true
	}
	t, err := l.engine.EstimatePartialAffine(src, dst)
	if err != nil {
		monitoring.Logf("footlock: frame %d: %v, passing through", frameIdx, err)
		return video.Identity(), false
	}
	return t, true
}

// rawFootState reads the ankle straight from the detected keypoints.
func rawFootState(poses []video.Keypoints, i, joint int) footState {
	x, y, ok := poses[i].Ankle(joint)
	return footState{x: x, y: y, valid: ok}
}

// outputFootState is where the ankle sits in the emitted frame: the
// corrective warp applied at the blend fraction, the raw position at the
// remainder.
func (l *Locker) outputFootState(poses []video.Keypoints, i, joint int, t video.Transform) footState {
	x, y, ok := poses[i].Ankle(joint)
	if !ok {
		return footState{}
	}
	wx, wy := t.Apply(x, y)
	b := l.cfg.WarpBlend
	return footState{x: b*wx + (1-b)*x, y: b*wy + (1-b)*y, valid: true}
}

// blendFrames returns warped*w + original*(1-w) per channel.
func blendFrames(warped, original *video.Frame, w float64) *video.Frame {
	out := video.NewFrame(original.Width, original.Height)
	for i := range out.Pix {
		v := w*float64(warped.Pix[i]) + (1-w)*float64(original.Pix[i])
		if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v + 0.5)
	}
	return out
}
