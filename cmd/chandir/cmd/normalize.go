package cmd

import (
	"chandir/lib/channelref"
	"chandir/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var normalizeChannels string

func init() {
	normalizeCmd.Flags().StringVar(&normalizeChannels, "channels", "", "the channel list to read, overrides the config")
	rootCmd.AddCommand(normalizeCmd)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Prints the canonical form of every channel in the list, without fetching anything.",
	Run: func(cmd *cobra.Command, args []string) {
		path := normalizeChannels
		if path == "" {
			config, err := LoadConfig(configPath)
			if err != nil {
				serviceutil.Fatal("failed to load config", err)
			}
			path = config.Channels
		}

		raws, err := channelref.ReadFile(path)
		if err != nil {
			serviceutil.Fatal("failed to read channel list", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Canonical", "Kind"})
		refs := channelref.Dedupe(raws)
		for i, canonical := range refs {
			t.AppendRow(table.Row{i + 1, canonical, channelref.Classify(canonical)})
		}
		t.SetCaption("%d entries, %d duplicate or empty", len(raws), len(raws)-len(refs))
		t.Render()
	},
}
