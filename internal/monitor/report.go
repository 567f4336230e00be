// Package monitor renders HTML diagnostic reports for processing runs.
package monitor

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/recastvideo/recast/internal/pipeline"
	"github.com/recastvideo/recast/internal/segment"
)

// RunReport bundles everything the report page visualizes. Motion holds
// one per-frame camera motion magnitude; LeftContacts and RightContacts
// are the per-frame foot contact flags and may be nil when foot locking
// was disabled.
type RunReport struct {
	Run           *pipeline.RunRecord
	Motion        []float64
	Segments      []segment.Segment
	LeftContacts  []bool
	RightContacts []bool
}

// WriteHTML renders the report to path as a standalone HTML page.
func WriteHTML(report RunReport, path string) error {
	if report.Run == nil {
		return fmt.Errorf("run record is required")
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Run %s", report.Run.RunID)
	page.AddCharts(motionChart(report))
	if report.LeftContacts != nil || report.RightContacts != nil {
		page.AddCharts(contactChart(report))
	}
	page.AddCharts(timingsChart(report.Run))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// motionChart plots the per-frame motion signal with one mark line per
// segment boundary.
func motionChart(report RunReport) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Camera motion per frame",
			Subtitle: fmt.Sprintf("run=%s status=%s", report.Run.RunID, report.Run.Status),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "motion (px)"}),
	)

	x := make([]string, len(report.Motion))
	y := make([]opts.LineData, len(report.Motion))
	for i, v := range report.Motion {
		x[i] = strconv.Itoa(i)
		y[i] = opts.LineData{Value: v}
	}

	var marks []opts.MarkLineNameXAxisItem
	for _, seg := range report.Segments {
		marks = append(marks, opts.MarkLineNameXAxisItem{
			Name:  string(seg.Kind),
			XAxis: seg.Start,
		})
	}

	line.SetXAxis(x).AddSeries("motion", y,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithMarkLineNameXAxisItemOpts(marks...),
	)
	return line
}

// contactChart shows the detected foot contact intervals as step lines,
// left foot on value 1 and right foot on value 2 so both are readable
// on one axis.
func contactChart(report RunReport) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "280px"}),
		charts.WithTitleOpts(opts.Title{Title: "Foot contacts"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 3}),
	)

	n := len(report.LeftContacts)
	if len(report.RightContacts) > n {
		n = len(report.RightContacts)
	}
	x := make([]string, n)
	left := make([]opts.LineData, n)
	right := make([]opts.LineData, n)
	for i := 0; i < n; i++ {
		x[i] = strconv.Itoa(i)
		left[i] = opts.LineData{Value: contactLevel(report.LeftContacts, i, 1)}
		right[i] = opts.LineData{Value: contactLevel(report.RightContacts, i, 2)}
	}

	line.SetXAxis(x)
	line.AddSeries("left", left, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))
	line.AddSeries("right", right, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))
	return line
}

func contactLevel(contacts []bool, i, level int) int {
	if i < len(contacts) && contacts[i] {
		return level
	}
	return 0
}

// timingsChart shows where the run spent its time.
func timingsChart(rec *pipeline.RunRecord) *charts.Bar {
	x := []string{"stabilize", "plan", "background", "segments", "stitch", "reapply"}
	y := []opts.BarData{
		{Value: rec.Timings.Stabilize},
		{Value: rec.Timings.Plan},
		{Value: rec.Timings.Background},
		{Value: rec.Timings.Segments},
		{Value: rec.Timings.Stitch},
		{Value: rec.Timings.Reapply},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Stage timings (s)",
			Subtitle: fmt.Sprintf("total_frames=%d degraded=%d", rec.TotalFrames, rec.DegradedFrames),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("seconds", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
