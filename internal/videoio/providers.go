package videoio

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/recastvideo/recast/internal/pipeline"
	"github.com/recastvideo/recast/internal/video"
)

// FileDetector serves precomputed detector outputs from disk. Masks are
// PNG files named mask_%06d.png, poses are JSON files named
// pose_%06d.json holding an array of {x, y, confidence} joints, and the
// optional depth and edge directories hold depth_%06d.png and
// edges_%06d.png. A missing file means "not found" for that frame.
type FileDetector struct {
	MaskDir  string
	PoseDir  string
	DepthDir string
	EdgeDir  string
}

var _ pipeline.Detector = (*FileDetector)(nil)

func (d *FileDetector) Detect(idx int, _ *video.Frame) (*video.Mask, *image.Rectangle, error) {
	if d.MaskDir == "" {
		return nil, nil, nil
	}
	path := filepath.Join(d.MaskDir, fmt.Sprintf("mask_%06d.png", idx))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, nil
	}
	mask, err := LoadMaskPNG(path)
	if err != nil {
		return nil, nil, err
	}
	return mask, maskBounds(mask), nil
}

func (d *FileDetector) Pose(idx int, _ *video.Frame) (video.Keypoints, error) {
	if d.PoseDir == "" {
		return nil, nil
	}
	path := filepath.Join(d.PoseDir, fmt.Sprintf("pose_%06d.json", idx))
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pose video.Keypoints
	if err := json.Unmarshal(buf, &pose); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pose, nil
}

func (d *FileDetector) Depth(idx int, _ *video.Frame) (*video.Frame, error) {
	return loadOptionalPNG(d.DepthDir, "depth", idx)
}

func (d *FileDetector) Edges(idx int, _ *video.Frame) (*video.Frame, error) {
	return loadOptionalPNG(d.EdgeDir, "edges", idx)
}

func loadOptionalPNG(dir, prefix string, idx int) (*video.Frame, error) {
	if dir == "" {
		return nil, nil
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%06d.png", prefix, idx))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadPNG(path)
}

// maskBounds computes the tight bounding box of nonzero mask pixels,
// nil when the mask is empty.
func maskBounds(m *video.Mask) *image.Rectangle {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return nil
	}
	r := image.Rect(minX, minY, maxX+1, maxY+1)
	return &r
}

// FileSynthesizer serves pre-rendered replacement frames from a
// directory of synth_%06d.png files. A missing file degrades that frame
// to pass-through in the pipeline.
type FileSynthesizer struct {
	Dir string
}

var _ pipeline.Synthesizer = (*FileSynthesizer)(nil)

func (s *FileSynthesizer) Synthesize(idx int, _ pipeline.ControlImages, _ int64) (*video.Frame, error) {
	path := filepath.Join(s.Dir, fmt.Sprintf("synth_%06d.png", idx))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadPNG(path)
}
