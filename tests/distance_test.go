package tests_test

import (
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/brontes/tests/testutils"
)

func TestDistanceCLI(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "distance without delay fails",
			Command:     test.Command("distance"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "three seconds at 20 °C is close",
			Command:     test.Command("distance", "3"),
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("1030"),
						expectContains("close"),
					),
				}
			},
		},
		{
			Description: "several delays are classified",
			Command:     test.Command("distance", "0.5", "20", "60"),
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("very_close"),
						expectContains("moderate"),
						expectContains("distant"),
					),
				}
			},
		},
		{
			Description: "negative delay fails",
			Command:     test.Command("distance", "--", "-1"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
	}

	testCase.Run(t)
}
