// Package videoio reads and writes frame sequences. Two container
// formats are supported: numbered PNG image directories, and a simple
// raw RGB24 stream with a fixed header for piping between tools.
package videoio

import (
	"fmt"

	"github.com/recastvideo/recast/internal/video"
)

// FrameSource yields frames in presentation order. Next returns nil,
// nil after the last frame.
type FrameSource interface {
	Next() (*video.Frame, error)
	Close() error
}

// FrameSink consumes frames in presentation order.
type FrameSink interface {
	Write(f *video.Frame) error
	Close() error
}

// ReadAll drains a source into memory and validates that all frames
// share one size.
func ReadAll(src FrameSource) ([]*video.Frame, error) {
	var frames []*video.Frame
	for {
		f, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", len(frames), err)
		}
		if f == nil {
			break
		}
		frames = append(frames, f)
	}
	if err := video.ValidateFrameSizes(frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// WriteAll writes all frames to the sink and closes it.
func WriteAll(sink FrameSink, frames []*video.Frame) error {
	for i, f := range frames {
		if err := sink.Write(f); err != nil {
			sink.Close()
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}
	return sink.Close()
}
