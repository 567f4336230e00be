package videoio

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/recastvideo/recast/internal/video"
)

// ImageDirSource reads a directory of PNG frames in lexical filename
// order. Zero-padded names (frame_000001.png) keep lexical and numeric
// order identical.
type ImageDirSource struct {
	paths []string
	next  int
}

// OpenImageDir lists the PNG files under dir and prepares them for
// sequential reading.
func OpenImageDir(dir string) (*ImageDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PNG frames found in %s", dir)
	}
	sort.Strings(paths)
	return &ImageDirSource{paths: paths}, nil
}

// Len returns the number of frames in the sequence.
func (s *ImageDirSource) Len() int { return len(s.paths) }

func (s *ImageDirSource) Next() (*video.Frame, error) {
	if s.next >= len(s.paths) {
		return nil, nil
	}
	path := s.paths[s.next]
	s.next++
	return LoadPNG(path)
}

func (s *ImageDirSource) Close() error { return nil }

// ImageDirSink writes frames as zero-padded PNG files under dir,
// creating the directory if needed.
type ImageDirSink struct {
	dir  string
	next int
}

// CreateImageDir prepares a sink writing frame_%06d.png files.
func CreateImageDir(dir string) (*ImageDirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &ImageDirSink{dir: dir}, nil
}

func (s *ImageDirSink) Write(f *video.Frame) error {
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.png", s.next))
	s.next++
	return SavePNG(path, f)
}

func (s *ImageDirSink) Close() error { return nil }

// LoadPNG decodes one PNG file into a Frame.
func LoadPNG(path string) (*video.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	img, err := png.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return video.FrameFromImage(img), nil
}

// SavePNG encodes a Frame to one PNG file.
func SavePNG(path string, f *video.Frame) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(fh, f.ToImage()); err != nil {
		fh.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return fh.Close()
}

// LoadMaskPNG decodes a PNG into a single-channel mask using the red
// channel. Mask PNGs are conventionally grayscale so any channel works.
func LoadMaskPNG(path string) (*video.Mask, error) {
	f, err := LoadPNG(path)
	if err != nil {
		return nil, err
	}
	m := video.NewMask(f.Width, f.Height)
	for i := 0; i < f.Width*f.Height; i++ {
		m.Pix[i] = f.Pix[i*3]
	}
	return m, nil
}
