//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/brontes/internal/integration/binary"
)

var errNoAudio = errors.New("no audio stream")

// Result contains the parts of the ffprobe output brontes looks at.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one stream of the container.
type Stream struct {
	Index            int    `json:"index"`
	CodecName        string `json:"codec_name"`                    // pcm_s24le
	CodecType        string `json:"codec_type"`                    // audio
	SampleRate       string `json:"sample_rate,omitempty"`         // 48000
	Channels         int    `json:"channels,omitempty"`            // 1
	Duration         string `json:"duration,omitempty"`            // 3600.000000
	SampleFmt        string `json:"sample_fmt,omitempty"`          // s32
	BitsPerSample    int    `json:"bits_per_sample,omitempty"`     // set by WAV/AIFF containers
	BitsPerRawSample string `json:"bits_per_raw_sample,omitempty"` // set by FLAC
}

// Format is the container level information.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"` // wav, flac, "mov,mp4,m4a,3gp,3g2,mj2"
	Duration   string `json:"duration,omitempty"`
}

// Audio returns the audio stream at the given audio stream index (0 is the first audio stream).
func (r *Result) Audio(index int) (*Stream, error) {
	seen := 0

	for i := range r.Streams {
		if r.Streams[i].CodecType != "audio" {
			continue
		}

		if seen == index {
			return &r.Streams[i], nil
		}

		seen++
	}

	return nil, fmt.Errorf("%w: index %d (%d audio streams)", errNoAudio, index, seen)
}

// Rate returns the stream sample rate, 0 when unknown.
func (s *Stream) Rate() int {
	rate, _ := strconv.Atoi(s.SampleRate)

	return rate
}

// BitDepth returns the bit depth reported by the container, or the codec, 0 for lossy codecs.
func (s *Stream) BitDepth() int {
	if s.BitsPerSample > 0 {
		return s.BitsPerSample
	}

	depth, _ := strconv.Atoi(s.BitsPerRawSample)

	return depth
}

// Seconds returns the stream duration, 0 when unknown.
func (s *Stream) Seconds() float64 {
	seconds, _ := strconv.ParseFloat(s.Duration, 64)

	return seconds
}

// Parse decodes ffprobe JSON output.
func Parse(output []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}

// Probe runs ffprobe on the given file path and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, filePath string) (*Result, error) {
	slog.Debug("ffprobe.Probe", "file path", filePath)

	ffprobePath, found := binary.Available(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input for probing media files
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	return Parse(output)
}
