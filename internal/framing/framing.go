// Package framing slices an audio buffer into fixed length overlapping frames.
package framing

import (
	"fmt"
	"iter"
	"math"

	"github.com/farcloser/brontes/internal/types"
)

// SampleCount converts a millisecond duration to a sample count at the given rate.
func SampleCount(ms float64, sampleRate int) int {
	return int(math.Round(ms * float64(sampleRate) / 1000))
}

// Segmenter produces frames over a buffer. It holds no iteration state: every call to Frames
// starts from the first sample.
type Segmenter struct {
	buffer   *types.AudioBuffer
	frameLen int
	hop      int
	padLast  bool
}

// New validates lengths against the buffer. Lengths are in samples.
func New(buffer *types.AudioBuffer, frameLen, hop int, padLast bool) (*Segmenter, error) {
	if frameLen <= 0 || hop <= 0 {
		return nil, fmt.Errorf("%w: frame length %d and hop %d must be positive", types.ErrConfig, frameLen, hop)
	}

	if hop >= frameLen {
		return nil, fmt.Errorf("%w: hop %d must be shorter than frame length %d", types.ErrConfig, hop, frameLen)
	}

	if frameLen > buffer.Len() {
		return nil, fmt.Errorf(
			"%w: frame length %d exceeds buffer length %d",
			types.ErrConfig,
			frameLen,
			buffer.Len(),
		)
	}

	return &Segmenter{
		buffer:   buffer,
		frameLen: frameLen,
		hop:      hop,
		padLast:  padLast,
	}, nil
}

// FrameLen returns the frame length in samples.
func (s *Segmenter) FrameLen() int {
	return s.frameLen
}

// Count returns the number of frames Frames yields.
func (s *Segmenter) Count() int {
	span := s.buffer.Len() - s.frameLen
	count := span/s.hop + 1

	if s.padLast && span%s.hop != 0 {
		count++
	}

	return count
}

// Frames returns the frame sequence. Full frames are views into the buffer; the padded tail
// frame, if any, is a zero-padded copy whose Length and EndTime only cover real samples.
func (s *Segmenter) Frames() iter.Seq[types.Frame] {
	return func(yield func(types.Frame) bool) {
		samples := s.buffer.Samples
		rate := float64(s.buffer.SampleRate)
		count := s.Count()

		for index := range count {
			start := index * s.hop
			end := min(start+s.frameLen, len(samples))

			view := samples[start:end]
			if len(view) < s.frameLen {
				padded := make([]float64, s.frameLen)
				copy(padded, view)
				view = padded
			}

			frame := types.Frame{
				Index:   index,
				Start:   start,
				Length:  end - start,
				Time:    float64(start) / rate,
				EndTime: float64(end) / rate,
				Samples: view,
			}

			if !yield(frame) {
				return
			}
		}
	}
}
