// Command recast runs the subject-replacement pipeline over a frame
// sequence. Inputs and precomputed detector/synthesizer outputs come
// from directories of numbered files; see internal/videoio for the
// naming conventions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/recastvideo/recast/internal/config"
	"github.com/recastvideo/recast/internal/monitor"
	"github.com/recastvideo/recast/internal/pipeline"
	"github.com/recastvideo/recast/internal/segment"
	"github.com/recastvideo/recast/internal/stabilize"
	"github.com/recastvideo/recast/internal/store"
	"github.com/recastvideo/recast/internal/version"
	"github.com/recastvideo/recast/internal/video"
	"github.com/recastvideo/recast/internal/videoio"
)

var (
	mode       = flag.String("mode", "process", "Mode: process, stabilize or plan")
	input      = flag.String("input", "", "Input: PNG frame directory or .rcvs raw stream")
	output     = flag.String("output", "", "Output: PNG frame directory or .rcvs raw stream")
	maskDir    = flag.String("masks", "", "Directory of subject mask PNGs (mask_%06d.png)")
	poseDir    = flag.String("poses", "", "Directory of pose JSON files (pose_%06d.json)")
	depthDir   = flag.String("depth", "", "Optional directory of depth control PNGs")
	edgeDir    = flag.String("edges", "", "Optional directory of edge control PNGs")
	synthDir   = flag.String("synth", "", "Directory of pre-rendered replacement PNGs (synth_%06d.png)")
	configPath = flag.String("config", "", "Optional tuning config JSON")
	dbPath     = flag.String("db", "", "Optional SQLite database for run records")
	reportPath = flag.String("report", "", "Optional HTML diagnostics report path")
	trajPath   = flag.String("trajectory", "", "Trajectory JSON path (written by stabilize, read by plan)")
	seed       = flag.Int64("seed", 0, "Synthesizer seed")
	source     = flag.String("source", "", "Source label recorded on the run (defaults to -input)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("recast %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *input == "" {
		log.Fatal("-input is required")
	}

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		tuning, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = tuning.Apply(cfg)
	}
	cfg.Seed = *seed
	cfg.Source = *source
	if cfg.Source == "" {
		cfg.Source = *input
	}

	frames, err := readFrames(*input)
	if err != nil {
		log.Fatalf("reading input: %v", err)
	}
	log.Printf("loaded %d frames from %s", len(frames), *input)

	switch *mode {
	case "process":
		runProcess(cfg, frames)
	case "stabilize":
		runStabilize(cfg, frames)
	case "plan":
		runPlan(cfg, frames)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func runProcess(cfg pipeline.Config, frames []*video.Frame) {
	if *output == "" {
		log.Fatal("-output is required in process mode")
	}
	if *synthDir == "" {
		log.Fatal("-synth is required in process mode")
	}

	det := &videoio.FileDetector{
		MaskDir:  *maskDir,
		PoseDir:  *poseDir,
		DepthDir: *depthDir,
		EdgeDir:  *edgeDir,
	}
	synth := &videoio.FileSynthesizer{Dir: *synthDir}

	p := pipeline.New(cfg)
	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("opening database: %v", err)
		}
		defer s.Close()
		p.SetStore(s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, rec, err := p.Process(ctx, frames, det, synth)
	if err != nil {
		log.Fatalf("run %s failed: %v", rec.RunID, err)
	}
	log.Printf("run %s completed: %d frames, %d degraded", rec.RunID, rec.TotalFrames, rec.DegradedFrames)

	if err := writeFrames(*output, out); err != nil {
		log.Fatalf("writing output: %v", err)
	}

	if *reportPath != "" {
		report := monitor.RunReport{
			Run:           rec,
			Motion:        rec.Motion,
			Segments:      rec.Segments,
			LeftContacts:  rec.LeftContacts,
			RightContacts: rec.RightContacts,
		}
		if err := monitor.WriteHTML(report, *reportPath); err != nil {
			log.Fatalf("writing report: %v", err)
		}
		log.Printf("wrote report to %s", *reportPath)
	}
}

func runStabilize(cfg pipeline.Config, frames []*video.Frame) {
	if *output == "" {
		log.Fatal("-output is required in stabilize mode")
	}

	stab := stabilize.New(cfg.Stabilizer)
	out, traj, err := stab.Stabilize(frames)
	if err != nil {
		log.Fatalf("stabilizing: %v", err)
	}
	if err := writeFrames(*output, out); err != nil {
		log.Fatalf("writing output: %v", err)
	}
	if *trajPath != "" {
		if err := video.SaveTrajectory(traj, *trajPath); err != nil {
			log.Fatalf("saving trajectory: %v", err)
		}
		log.Printf("wrote trajectory to %s", *trajPath)
	}
}

func runPlan(cfg pipeline.Config, frames []*video.Frame) {
	var motion []float64
	if *trajPath != "" {
		traj, err := video.LoadTrajectory(*trajPath)
		if err != nil {
			log.Fatalf("loading trajectory: %v", err)
		}
		motion = traj.MotionSignal()
	} else {
		stab := stabilize.New(cfg.Stabilizer)
		_, traj, err := stab.Stabilize(frames)
		if err != nil {
			log.Fatalf("stabilizing: %v", err)
		}
		motion = traj.MotionSignal()
	}

	planner := segment.NewPlanner(cfg.Segmenter)
	segments, err := planner.Plan(len(frames), motion)
	if err != nil {
		log.Fatalf("planning: %v", err)
	}
	for _, seg := range segments {
		log.Printf("segment %d: frames [%d, %d) kind=%s", seg.ID, seg.Start, seg.End, seg.Kind)
	}
}

func readFrames(path string) ([]*video.Frame, error) {
	var src videoio.FrameSource
	var err error
	if strings.HasSuffix(path, ".rcvs") {
		src, err = videoio.OpenRawStream(path)
	} else {
		src, err = videoio.OpenImageDir(path)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return videoio.ReadAll(src)
}

func writeFrames(path string, frames []*video.Frame) error {
	var sink videoio.FrameSink
	var err error
	if strings.HasSuffix(path, ".rcvs") {
		sink, err = videoio.CreateRawStream(path)
	} else {
		sink, err = videoio.CreateImageDir(path)
	}
	if err != nil {
		return err
	}
	return videoio.WriteAll(sink, frames)
}
