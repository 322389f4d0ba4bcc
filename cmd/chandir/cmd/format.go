package cmd

import (
	"fmt"
	"os"
	"strconv"

	"chandir/services/directory"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// formatCount renders a count the way the static page does.
func formatCount(v *int64) string {
	if v == nil {
		return "—"
	}
	n := *v
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return strconv.FormatInt(n, 10)
}

func formatSubs(r directory.Record) string {
	if r.HiddenSubs {
		return "Hidden"
	}
	return formatCount(r.Subs)
}
