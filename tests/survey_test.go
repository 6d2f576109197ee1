package tests_test

import (
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/brontes/tests/testutils"
)

func TestSurveyCLI(t *testing.T) {
	testCase := testutils.SetupSurvey()

	testCase.SubTests = []*test.Case{
		{
			Description: "survey of a missing folder fails",
			Command:     test.Command("survey", "/nonexistent/folder"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "survey writes one record per recording and digests it",
			Setup: func(data test.Data, _ test.Helpers) {
				data.Labels().Set("folder", data.Temp().Dir("recordings"))
				data.Labels().Set("report", data.Temp().Path("survey.jsonl"))

				thunderWAV(data, "recordings/a.wav", 4, burst{0.5, 0.9}, burst{2, 2.6})
				thunderWAV(data, "recordings/b.wav", 2)
				writeText(data, "recordings/a.wav.flashes", "# flash log\n0.1\n1.5\n")
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("survey", "--workers", "2", "--output", data.Labels().Get("report"), data.Labels().Get("folder"))
			},
			Expected: func(data test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("Recordings:       2"),
						expectContains("With thunder:     1"),
						expectContains("Thunder events:   2"),
						expectContains("Closest strike:"),
						expectFileLines(data.Labels().Get("report"), 2),
					),
				}
			},
		},
		{
			Description: "digest lists the events of a class",
			Setup: func(data test.Data, _ test.Helpers) {
				data.Labels().Set("report", writeText(data, "survey.jsonl",
					`{"file":"a.wav","analysis":{"summary":{"duration_s":60,"event_count":1,"closest_m":686},`+
						`"events":[{"id":1,"start_time_s":4,"duration_s":1,"peak_energy_db":-12,`+
						`"distance":{"distance_m":686,"class":"very_close"}}]}}`+"\n"+
						`{"file":"b.wav","error":"load failed"}`+"\n"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("digest", "--class", "very_close", data.Labels().Get("report"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("Failed:           1"),
						expectContains("very_close: 1"),
						expectContains("very_close: 1 events"),
						expectContains("a.wav #1 at 4.00s"),
					),
				}
			},
		},
	}

	testCase.Run(t)
}
