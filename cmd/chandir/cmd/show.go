package cmd

import (
	"fmt"
	"slices"
	"strings"

	"chandir/lib/util/serviceutil"
	"chandir/services/directory"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	showPath   string
	showSearch string
	showSort   string
	showAsc    bool
	showDesc   bool
)

func init() {
	showCmd.Flags().StringVarP(&showPath, "file", "f", "", "the directory to show, defaults to the configured output")
	showCmd.Flags().StringVarP(&showSearch, "search", "s", "", "only show channels whose title or handle contains this")
	showCmd.Flags().StringVar(&showSort, "sort", "subs", "sort by one of: name, subs, videos, views")
	showCmd.Flags().BoolVar(&showAsc, "asc", false, "sort ascending")
	showCmd.Flags().BoolVar(&showDesc, "desc", false, "sort descending")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints a written directory as a table.",
	Run: func(cmd *cobra.Command, args []string) {
		path := showPath
		if path == "" {
			config, err := LoadConfig(configPath)
			if err != nil {
				serviceutil.Fatal("failed to load config", err)
			}
			path = config.Output
		}

		doc, err := directory.ReadFile(path)
		if err != nil {
			serviceutil.Fatal("failed to read directory", err)
		}

		// names sort ascending by default, counts descending
		desc := showSort != "name"
		if showAsc {
			desc = false
		}
		if showDesc {
			desc = true
		}

		records := filterRecords(doc.Channels, showSearch)
		err = sortRecords(records, showSort, desc)
		if err != nil {
			serviceutil.Fatal("invalid sort", err)
		}

		t := newTable()
		t.SetTitle("Last update: %s", doc.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
		t.AppendHeader(table.Row{"Channel", "Handle", "Subscribers", "Videos", "Views"})
		for _, r := range records {
			title := r.Title
			if r.Verified {
				title += " ✓"
			}
			handle := ""
			if r.Handle != nil {
				handle = *r.Handle
			}
			t.AppendRow(table.Row{title, handle, formatSubs(r), formatCount(r.Videos), formatCount(r.Views)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
		})
		t.AppendFooter(table.Row{fmt.Sprintf("%d of %d channels", len(records), len(doc.Channels))})
		t.Render()
	},
}

// filterRecords keeps the records whose title or handle contains the query,
// ignoring case.
func filterRecords(records []directory.Record, query string) []directory.Record {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]directory.Record, 0, len(records))
	for _, r := range records {
		handle := ""
		if r.Handle != nil {
			handle = *r.Handle
		}
		if strings.Contains(strings.ToLower(r.Title), query) ||
			strings.Contains(strings.ToLower(handle), query) {
			out = append(out, r)
		}
	}
	return out
}

func countOf(r directory.Record, key string) int64 {
	var v *int64
	switch key {
	case "subs":
		v = r.Subs
	case "videos":
		v = r.Videos
	case "views":
		v = r.Views
	}
	// unknown counts sort as zero
	if v == nil {
		return 0
	}
	return *v
}

func sortRecords(records []directory.Record, key string, desc bool) error {
	var compare func(a, b directory.Record) int
	switch key {
	case "name":
		compare = func(a, b directory.Record) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case "subs", "videos", "views":
		compare = func(a, b directory.Record) int {
			va, vb := countOf(a, key), countOf(b, key)
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		}
	default:
		return fmt.Errorf("unknown sort key %q", key)
	}

	slices.SortStableFunc(records, func(a, b directory.Record) int {
		if desc {
			return -compare(a, b)
		}
		return compare(a, b)
	})
	return nil
}
