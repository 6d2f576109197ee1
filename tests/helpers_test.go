package tests_test

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"

	"github.com/farcloser/brontes/internal/types"
	"github.com/farcloser/brontes/internal/wavfile"
)

const fixtureRate = 48000

// burst is a low frequency rumble segment, in seconds.
type burst struct {
	start, end float64
}

// thunderWAV writes a 24-bit mono WAV of the given duration with a rumble (80 and 200 Hz, about
// -10 dB RMS) in every burst, silence elsewhere. It returns the file path.
func thunderWAV(data test.Data, name string, duration float64, bursts ...burst) string {
	samples := make([]float64, int(duration*fixtureRate))

	for _, b := range bursts {
		for i := int(b.start * fixtureRate); i < int(b.end*fixtureRate) && i < len(samples); i++ {
			t := float64(i) / fixtureRate
			samples[i] = 0.3*math.Sin(2*math.Pi*80*t) + 0.3*math.Sin(2*math.Pi*200*t)
		}
	}

	path := data.Temp().Path(name)

	err := wavfile.Write(path, &types.AudioBuffer{Samples: samples, SampleRate: fixtureRate, Channels: 1}, types.Depth24)
	if err != nil {
		panic(fmt.Sprintf("writing fixture %s: %v", path, err))
	}

	return path
}

// writeText saves content under name in the test temp directory and returns the path.
func writeText(data test.Data, name, content string) string {
	path := data.Temp().Path(name)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(fmt.Sprintf("writing %s: %v", path, err))
	}

	return path
}

// expectContains returns a comparator verifying the output contains a substring.
func expectContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectNotContains returns a comparator verifying the output does not contain a substring.
func expectNotContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("unexpected substring %q found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectFileLines returns a comparator verifying that a file exists with the given number of lines.
func expectFileLines(path string, lines int) test.Comparator {
	return func(_ string, testing tig.T) {
		testing.Helper()

		content, err := os.ReadFile(path) //nolint:gosec // test temp file
		if err != nil {
			testing.Log(fmt.Sprintf("reading %s: %v", path, err))
			testing.Fail()

			return
		}

		if got := strings.Count(string(content), "\n"); got != lines {
			testing.Log(fmt.Sprintf("expected %d lines in %s, got %d:\n%s", lines, path, got, content))
			testing.Fail()
		}
	}
}

// expectNoFile returns a comparator verifying that a file was not written.
func expectNoFile(path string) test.Comparator {
	return func(_ string, testing tig.T) {
		testing.Helper()

		if _, err := os.Stat(path); err == nil {
			testing.Log(fmt.Sprintf("unexpected file %s", path))
			testing.Fail()
		}
	}
}

// expectFileContains returns a comparator verifying that a file contains a substring.
func expectFileContains(path, substr string) test.Comparator {
	return func(_ string, testing tig.T) {
		testing.Helper()

		content, err := os.ReadFile(path) //nolint:gosec // test temp file
		if err != nil || !strings.Contains(string(content), substr) {
			testing.Log(fmt.Sprintf("expected %q in %s (%v):\n%s", substr, path, err, content))
			testing.Fail()
		}
	}
}
