// Command trajectory-plot renders a saved camera trajectory as PNG
// charts: per-frame translation, the cumulative path, and the motion
// magnitude signal.
package main

import (
	"flag"
	"image/color"
	"log"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/recastvideo/recast/internal/video"
)

var (
	input  = flag.String("input", "", "Trajectory JSON file written by recast -mode stabilize")
	outDir = flag.String("out", ".", "Directory for the output PNGs")
)

func main() {
	flag.Parse()

	if *input == "" {
		log.Fatal("-input is required")
	}

	traj, err := video.LoadTrajectory(*input)
	if err != nil {
		log.Fatalf("loading trajectory: %v", err)
	}
	if len(traj) == 0 {
		log.Fatal("trajectory is empty")
	}

	if err := plotTranslation(traj, filepath.Join(*outDir, "translation.png")); err != nil {
		log.Fatalf("translation plot: %v", err)
	}
	if err := plotPath(traj, filepath.Join(*outDir, "path.png")); err != nil {
		log.Fatalf("path plot: %v", err)
	}
	if err := plotMotion(traj, filepath.Join(*outDir, "motion.png")); err != nil {
		log.Fatalf("motion plot: %v", err)
	}
	log.Printf("wrote 3 plots for %d frames to %s", len(traj), *outDir)
}

// plotTranslation draws the per-frame tx and ty components.
func plotTranslation(traj video.Trajectory, path string) error {
	p := plot.New()
	p.Title.Text = "Per-frame translation"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Pixels"

	tx := make(plotter.XYs, len(traj))
	ty := make(plotter.XYs, len(traj))
	for i, t := range traj {
		tx[i] = plotter.XY{X: float64(i), Y: t[2]}
		ty[i] = plotter.XY{X: float64(i), Y: t[5]}
	}

	txLine, err := plotter.NewLine(tx)
	if err != nil {
		return err
	}
	txLine.Width = vg.Points(1)
	txLine.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	p.Add(txLine)
	p.Legend.Add("tx", txLine)

	tyLine, err := plotter.NewLine(ty)
	if err != nil {
		return err
	}
	tyLine.Width = vg.Points(1)
	tyLine.Color = color.RGBA{R: 60, G: 60, B: 220, A: 255}
	p.Add(tyLine)
	p.Legend.Add("ty", tyLine)

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// plotPath draws the cumulative camera path in the image plane.
func plotPath(traj video.Trajectory, path string) error {
	p := plot.New()
	p.Title.Text = "Cumulative camera path"
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	cumulative := traj.Cumulative()
	pts := make(plotter.XYs, len(cumulative))
	for i, t := range cumulative {
		pts[i] = plotter.XY{X: t[2], Y: t[5]}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// plotMotion draws the motion magnitude signal used for segment planning.
func plotMotion(traj video.Trajectory, path string) error {
	p := plot.New()
	p.Title.Text = "Motion magnitude"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Pixels"

	motion := traj.MotionSignal()
	pts := make(plotter.XYs, len(motion))
	for i, v := range motion {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
