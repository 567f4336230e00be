package videoio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/recastvideo/recast/internal/video"
)

// Raw stream layout: a 16-byte header (magic, version, width, height)
// followed by frames of width*height*3 bytes of packed RGB. Frame count
// is implicit in the stream length so the writer can stream without
// seeking back.
const (
	rawMagic   = 0x52435653 // "RCVS"
	rawVersion = 1
)

type rawHeader struct {
	Magic   uint32
	Version uint32
	Width   uint32
	Height  uint32
}

// RawStreamReader reads frames from an RGB24 stream.
type RawStreamReader struct {
	r      *bufio.Reader
	closer io.Closer
	width  int
	height int
}

// OpenRawStream opens a raw stream file and validates its header.
func OpenRawStream(path string) (*RawStreamReader, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := NewRawStreamReader(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = fh
	return r, nil
}

// NewRawStreamReader reads the header from r and prepares frame reads.
func NewRawStreamReader(r io.Reader) (*RawStreamReader, error) {
	br := bufio.NewReader(r)
	var h rawHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading stream header: %w", err)
	}
	if h.Magic != rawMagic {
		return nil, fmt.Errorf("bad stream magic 0x%08x", h.Magic)
	}
	if h.Version != rawVersion {
		return nil, fmt.Errorf("unsupported stream version %d", h.Version)
	}
	if h.Width == 0 || h.Height == 0 || h.Width > 1<<15 || h.Height > 1<<15 {
		return nil, fmt.Errorf("implausible frame size %dx%d", h.Width, h.Height)
	}
	return &RawStreamReader{r: br, width: int(h.Width), height: int(h.Height)}, nil
}

// Size returns the per-frame dimensions declared in the header.
func (r *RawStreamReader) Size() (width, height int) { return r.width, r.height }

func (r *RawStreamReader) Next() (*video.Frame, error) {
	f := video.NewFrame(r.width, r.height)
	_, err := io.ReadFull(r.r, f.Pix)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("truncated frame in stream")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *RawStreamReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// RawStreamWriter writes frames to an RGB24 stream. The header is
// emitted lazily on the first frame so the size does not need to be
// known up front.
type RawStreamWriter struct {
	w      *bufio.Writer
	closer io.Closer
	width  int
	height int
	wrote  bool
}

// CreateRawStream creates a raw stream file.
func CreateRawStream(path string) (*RawStreamWriter, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &RawStreamWriter{w: bufio.NewWriter(fh), closer: fh}, nil
}

// NewRawStreamWriter writes frames to w.
func NewRawStreamWriter(w io.Writer) *RawStreamWriter {
	return &RawStreamWriter{w: bufio.NewWriter(w)}
}

func (w *RawStreamWriter) Write(f *video.Frame) error {
	if !w.wrote {
		h := rawHeader{Magic: rawMagic, Version: rawVersion, Width: uint32(f.Width), Height: uint32(f.Height)}
		if err := binary.Write(w.w, binary.LittleEndian, &h); err != nil {
			return fmt.Errorf("writing stream header: %w", err)
		}
		w.width, w.height = f.Width, f.Height
		w.wrote = true
	}
	if f.Width != w.width || f.Height != w.height {
		return fmt.Errorf("frame size %dx%d does not match stream size %dx%d",
			f.Width, f.Height, w.width, w.height)
	}
	_, err := w.w.Write(f.Pix)
	return err
}

func (w *RawStreamWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
