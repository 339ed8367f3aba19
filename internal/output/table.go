package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders snapshots as an ASCII or Markdown table.
type TableFormatter struct {
	Markdown bool
}

// FormatSnapshot renders one row per bucket plus a global-lock footer.
func (f *TableFormatter) FormatSnapshot(s Snapshot) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Bucket", "Remaining", "Limit", "Resets In", "Queued", "Draining"})

	for _, b := range s.Buckets {
		t.AppendRow(table.Row{
			b.Key,
			b.Remaining,
			b.Limit,
			untilLabel(b.ResetAt, s.TakenAt),
			b.Queued,
			b.Draining,
		})
	}

	global := "global: open"
	if s.Global.Active && s.Global.ResetAt.After(s.TakenAt) {
		global = "global: locked for " + untilLabel(s.Global.ResetAt, s.TakenAt)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d buckets", len(s.Buckets)), "", "", global, "", ""})

	if f.Markdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}

func untilLabel(at, now time.Time) string {
	if at.IsZero() || !at.After(now) {
		return "-"
	}
	return at.Sub(now).Round(time.Millisecond).String()
}
