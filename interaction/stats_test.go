package interaction

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestStatsString(t *testing.T) {
	out := Stats{Cycles: 12, Published: 9, Failed: 3, LastStage: StageBoundary, LastError: errors.New("no points")}.String()
	for _, s := range []string{"CYCLES", "PUBLISHED", "12", "9", "3", "boundary", "no points"} {
		test.That(t, out, test.ShouldContainSubstring, s)
	}

	out = Stats{LastStage: StageIdle}.String()
	test.That(t, out, test.ShouldContainSubstring, "idle")
}
