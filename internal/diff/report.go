package diff

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes the report as tables for human review.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "reconciled feed ids %d..%d: %d upstream records, %d pages scanned\n",
		r.From+1, r.To, r.Upstream, r.PagesScanned)

	if r.Clean() {
		fmt.Fprintln(w, "local store matches upstream")
		return
	}

	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "\nmissing locally (%d):\n", len(r.Missing))
		tw := newTable(w, "FEED ID", "TITLE", "UPSTREAM HASH")
		for _, d := range r.Missing {
			tw.AppendRow(table.Row{d.FeedID, d.Title, d.UpstreamHash})
		}
		tw.Render()
	}

	if len(r.Mismatched) > 0 {
		fmt.Fprintf(w, "\nhash mismatches (%d):\n", len(r.Mismatched))
		tw := newTable(w, "FEED ID", "TITLE", "LOCAL HASH", "UPSTREAM HASH")
		for _, d := range r.Mismatched {
			tw.AppendRow(table.Row{d.FeedID, d.Title, d.LocalHash, d.UpstreamHash})
		}
		tw.Render()
	}
}

func newTable(w io.Writer, headers ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw
}
