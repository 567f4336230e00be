// Package pipeline orchestrates the full subject-replacement flow:
// stabilization, timeline planning, per-segment detection, synthesis and
// compositing, foot locking, segment stitching, and motion restoration.
package pipeline

import (
	"context"
	"fmt"

	"github.com/recastvideo/recast/internal/background"
	"github.com/recastvideo/recast/internal/composite"
	"github.com/recastvideo/recast/internal/footlock"
	"github.com/recastvideo/recast/internal/monitoring"
	"github.com/recastvideo/recast/internal/segment"
	"github.com/recastvideo/recast/internal/stabilize"
	"github.com/recastvideo/recast/internal/timeutil"
	"github.com/recastvideo/recast/internal/video"
)

// Config holds the full pipeline configuration. Stage configs embed the
// stage packages' own tuning structs.
type Config struct {
	Stabilize            bool   // remove camera motion before processing and restore it after
	BuildBackgroundPlate bool   // reconstruct a static plate and composite against it
	FootLock             bool   // run foot-contact locking per segment
	Seed                 int64  // synthesizer seed, fixed for the whole run
	Source               string // source label recorded on the run

	BlendPolicy BlendPolicy

	Stabilizer stabilize.Config
	Segmenter  segment.Config
	Locker     footlock.Config
	Background background.Config
	Compositor composite.Config
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Stabilize:   true,
		FootLock:    true,
		BlendPolicy: BlendLinearCrossfade,
		Stabilizer:  stabilize.DefaultConfig(),
		Segmenter:   segment.DefaultConfig(),
		Locker:      footlock.DefaultConfig(),
		Background:  background.DefaultConfig(),
		Compositor:  composite.DefaultConfig(),
	}
}

// Pipeline drives a full processing run.
type Pipeline struct {
	cfg     Config
	stab    *stabilize.Stabilizer
	planner *segment.Planner
	locker  *footlock.Locker
	bg      *background.Builder
	comp    *composite.Compositor
	store   RunStore
	clock   timeutil.Clock
}

// New assembles a Pipeline from the configuration.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		stab:    stabilize.New(cfg.Stabilizer),
		planner: segment.NewPlanner(cfg.Segmenter),
		locker:  footlock.New(cfg.Locker),
		bg:      background.New(cfg.Background),
		comp:    composite.New(cfg.Compositor),
		clock:   timeutil.RealClock{},
	}
}

// SetStore attaches a run-record store. Without one, records live only in
// memory for the duration of the run.
func (p *Pipeline) SetStore(store RunStore) { p.store = store }

// detection caches one frame's detector results so the background builder
// and the segment loop never invoke the detector twice for a frame.
type detection struct {
	done  bool
	mask  *video.Mask
	pose  video.Keypoints
	depth *video.Frame
	edges *video.Frame
}

// Process runs the whole pipeline over the frame sequence and returns the
// output frames in order, together with the run record.
//
// Per-frame detection or synthesis failures degrade to pass-through and
// are only visible in logs and the record's DegradedFrames count. Only
// setup failures and context cancellation abort the run.
func (p *Pipeline) Process(ctx context.Context, frames []*video.Frame, det Detector, synth Synthesizer) ([]*video.Frame, *RunRecord, error) {
	rec := newRunRecord(p.cfg.Source, len(frames))

	if len(frames) == 0 {
		return nil, rec, fmt.Errorf("process: no frames")
	}
	if err := video.ValidateFrameSizes(frames); err != nil {
		return nil, rec, fmt.Errorf("process: %w", err)
	}
	if det == nil || synth == nil {
		return nil, rec, fmt.Errorf("process: detector and synthesizer are required")
	}
	if p.store != nil {
		if err := p.store.InsertRun(rec); err != nil {
			return nil, rec, fmt.Errorf("process: recording run: %w", err)
		}
	}

	out, err := p.run(ctx, frames, det, synth, rec)
	if err != nil {
		rec.finish(RunFailed, err.Error())
		p.updateStore(rec)
		return nil, rec, err
	}
	rec.finish(RunCompleted, "")
	p.updateStore(rec)
	return out, rec, nil
}

func (p *Pipeline) run(ctx context.Context, frames []*video.Frame, det Detector, synth Synthesizer, rec *RunRecord) ([]*video.Frame, error) {
	working := frames
	var trajectory video.Trajectory
	var motion []float64

	if p.cfg.Stabilize {
		sw := startStopwatch(p.clock)
		stabilized, traj, err := p.stab.Stabilize(frames)
		if err != nil {
			return nil, err
		}
		working = stabilized
		trajectory = traj
		motion = traj.MotionSignal()
		rec.Motion = motion
		rec.Timings.Stabilize = sw.seconds()
	}

	sw := startStopwatch(p.clock)
	segments, err := p.planner.Plan(len(working), motion)
	if err != nil {
		return nil, err
	}
	rec.Segments = segments
	rec.Timings.Plan = sw.seconds()

	if p.cfg.FootLock {
		rec.LeftContacts = make([]bool, len(working))
		rec.RightContacts = make([]bool, len(working))
	}

	detCache := make([]detection, len(working))

	var plate *video.Frame
	if p.cfg.BuildBackgroundPlate {
		sw = startStopwatch(p.clock)
		plate = p.buildPlate(working, detCache, det)
		rec.Timings.Background = sw.seconds()
	}

	sw = startStopwatch(p.clock)
	results := make([]segmentResult, 0, len(segments))
	for _, seg := range segments {
		segFrames, err := p.processSegment(ctx, seg, working, detCache, det, synth, plate, rec)
		if err != nil {
			return nil, err
		}
		results = append(results, segmentResult{seg: seg, frames: segFrames})
	}
	rec.Timings.Segments = sw.seconds()

	sw = startStopwatch(p.clock)
	out := stitch(results, len(working), p.cfg.BlendPolicy)
	rec.Timings.Stitch = sw.seconds()

	if p.cfg.Stabilize {
		sw = startStopwatch(p.clock)
		out, err = p.stab.Reapply(out, trajectory)
		if err != nil {
			return nil, err
		}
		rec.Timings.Reapply = sw.seconds()
	}
	return out, nil
}

// processSegment runs detection, synthesis, compositing and foot locking
// over one segment with fresh temporal state.
func (p *Pipeline) processSegment(ctx context.Context, seg segment.Segment, frames []*video.Frame, detCache []detection, det Detector, synth Synthesizer, plate *video.Frame, rec *RunRecord) ([]*video.Frame, error) {
	state := composite.NewState()
	out := make([]*video.Frame, 0, seg.Len())
	poses := make([]video.Keypoints, 0, seg.Len())

	for idx := seg.Start; idx < seg.End; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("segment %d frame %d: %w", seg.ID, idx, err)
		}
		d := p.detect(detCache, det, frames[idx], idx)
		poses = append(poses, d.pose)

		in := composite.Input{Original: frames[idx], Background: plate}
		if d.mask != nil {
			if synthFrame := p.synthesize(synth, d, frames[idx], idx); synthFrame != nil {
				in.Synthesized = synthFrame
				in.Mask = d.mask
			}
		}
		if in.Synthesized == nil {
			rec.DegradedFrames++
		}
		out = append(out, p.comp.ComposeFrame(state, in))
	}

	if p.cfg.FootLock {
		left, right := p.locker.DetectContacts(poses)
		// Overlapping segments merge by OR: a frame is a contact if any
		// segment that covers it saw one.
		for i := range left {
			if left[i] {
				rec.LeftContacts[seg.Start+i] = true
			}
			if right[i] {
				rec.RightContacts[seg.Start+i] = true
			}
		}
		out = p.locker.Lock(out, poses, left, right)
	}
	return out, nil
}

// detect runs the external detector for a frame once, caching the result.
// Errors are absorbed as "not found" per the recoverable-failure policy.
func (p *Pipeline) detect(cache []detection, det Detector, frame *video.Frame, idx int) detection {
	if cache[idx].done {
		return cache[idx]
	}
	d := detection{done: true}

	mask, _, err := det.Detect(idx, frame)
	if err != nil {
		monitoring.Logf("pipeline: frame %d: detect: %v, treating as not found", idx, err)
	} else {
		d.mask = mask
	}

	pose, err := det.Pose(idx, frame)
	if err != nil {
		monitoring.Logf("pipeline: frame %d: pose: %v, treating as not found", idx, err)
	} else {
		d.pose = pose
	}

	// Depth and edge maps are optional control signals; absence is normal.
	if depth, err := det.Depth(idx, frame); err == nil {
		d.depth = depth
	}
	if edges, err := det.Edges(idx, frame); err == nil {
		d.edges = edges
	}

	cache[idx] = d
	return d
}

// synthesize invokes the external synthesizer with control images derived
// from the detection. A nil return means the frame degrades to
// pass-through.
func (p *Pipeline) synthesize(synth Synthesizer, d detection, frame *video.Frame, idx int) *video.Frame {
	ctl := ControlImages{Depth: d.depth, Edges: d.edges}
	if d.pose != nil {
		ctl.Pose = RenderPoseImage(d.pose, frame.Width, frame.Height)
	}
	out, err := synth.Synthesize(idx, ctl, p.cfg.Seed)
	if err != nil {
		monitoring.Logf("pipeline: frame %d: synthesize: %v, passing original through", idx, err)
		return nil
	}
	if out != nil && !out.SameSize(frame) {
		monitoring.Logf("pipeline: frame %d: synthesized %dx%d does not match %dx%d, passing original through",
			idx, out.Width, out.Height, frame.Width, frame.Height)
		return nil
	}
	return out
}

// buildPlate detects masks on the builder's sample stride and constructs
// the static background plate. Failures degrade to no plate rather than
// aborting the run.
func (p *Pipeline) buildPlate(frames []*video.Frame, detCache []detection, det Detector) *video.Frame {
	masks := make([]*video.Mask, len(frames))
	stride := p.cfg.Background.SampleRate
	if stride <= 0 {
		stride = background.DefaultConfig().SampleRate
	}
	w, h := frames[0].Width, frames[0].Height
	empty := video.NewMask(w, h)
	for i := range frames {
		if i%stride == 0 {
			if d := p.detect(detCache, det, frames[i], i); d.mask != nil {
				masks[i] = d.mask
				continue
			}
		}
		masks[i] = empty
	}
	plate, err := p.bg.BuildPlate(frames, masks)
	if err != nil {
		monitoring.Logf("pipeline: background plate: %v, compositing against originals", err)
		return nil
	}
	return plate
}

func (p *Pipeline) updateStore(rec *RunRecord) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateRun(rec); err != nil {
		monitoring.Logf("pipeline: updating run %s: %v", rec.RunID, err)
	}
}
