package ffmpeg

import "time"

const (
	name = "ffmpeg"
	// Field recordings can run for hours.
	timeout = 10 * time.Minute
	// Decoded samples are always signed 32 bits little endian.
	sampleFormat = "s32le"
	codec        = "pcm_s32le"
)
