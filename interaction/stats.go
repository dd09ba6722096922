package interaction

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// String prints the counters as a table.
func (s Stats) String() string {
	lastErr := ""
	if s.LastError != nil {
		lastErr = s.LastError.Error()
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Cycles", "Published", "Failed", "Last stage", "Last error"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%d", s.Cycles),
		fmt.Sprintf("%d", s.Published),
		fmt.Sprintf("%d", s.Failed),
		s.LastStage.String(),
		lastErr,
	})
	return t.Render()
}
