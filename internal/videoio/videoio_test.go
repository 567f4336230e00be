package videoio

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recastvideo/recast/internal/video"
)

func gradientFrame(w, h int, offset uint8) *video.Frame {
	f := video.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.SetRGB(x, y, uint8(x)+offset, uint8(y)+offset, offset)
		}
	}
	return f
}

func TestImageDirRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	want := []*video.Frame{
		gradientFrame(16, 12, 0),
		gradientFrame(16, 12, 40),
		gradientFrame(16, 12, 80),
	}

	sink, err := CreateImageDir(dir)
	require.NoError(t, err)
	require.NoError(t, WriteAll(sink, want))

	src, err := OpenImageDir(dir)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 3, src.Len())

	got, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].Pix, got[i].Pix, "frame %d", i)
	}
}

func TestOpenImageDirEmpty(t *testing.T) {
	_, err := OpenImageDir(t.TempDir())
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")

	require.NoError(t, SavePNG(path, gradientFrame(8, 6, 0)))
	// overwriting an existing file closes cleanly and succeeds
	want := gradientFrame(8, 6, 50)
	require.NoError(t, SavePNG(path, want))

	got, err := LoadPNG(path)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestSavePNGBadPath(t *testing.T) {
	err := SavePNG(filepath.Join(t.TempDir(), "missing", "frame.png"), gradientFrame(4, 4, 0))
	assert.Error(t, err)
}

func TestRawStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := []*video.Frame{
		gradientFrame(8, 6, 0),
		gradientFrame(8, 6, 100),
	}

	w := NewRawStreamWriter(&buf)
	require.NoError(t, WriteAll(w, want))

	r, err := NewRawStreamReader(&buf)
	require.NoError(t, err)
	width, height := r.Size()
	assert.Equal(t, 8, width)
	assert.Equal(t, 6, height)

	got, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].Pix, got[i].Pix, "frame %d", i)
	}
}

func TestRawStreamRejectsSizeChange(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawStreamWriter(&buf)
	require.NoError(t, w.Write(gradientFrame(8, 6, 0)))
	assert.Error(t, w.Write(gradientFrame(4, 4, 0)))
}

func TestRawStreamBadMagic(t *testing.T) {
	_, err := NewRawStreamReader(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}))
	assert.Error(t, err)
}

func TestRawStreamTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewRawStreamWriter(&buf)
	require.NoError(t, w.Write(gradientFrame(8, 6, 0)))
	require.NoError(t, w.Close())

	data := buf.Bytes()
	r, err := NewRawStreamReader(bytes.NewReader(data[:len(data)-5]))
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
}

func TestLoadMaskPNG(t *testing.T) {
	dir := t.TempDir()
	f := video.NewFrame(4, 4)
	f.SetRGB(1, 1, 255, 255, 255)
	f.SetRGB(2, 2, 200, 0, 0)
	path := filepath.Join(dir, "mask.png")
	require.NoError(t, SavePNG(path, f))

	m, err := LoadMaskPNG(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), m.At(1, 1))
	assert.Equal(t, uint8(200), m.At(2, 2))
	assert.Equal(t, uint8(0), m.At(0, 0))
}
