package cmd

import (
	"context"
	"log/slog"
	"time"

	"chandir/lib/channelref"
	"chandir/lib/fetch"
	"chandir/lib/pagecache"
	"chandir/lib/restyutil"
	"chandir/lib/telemetry"
	"chandir/lib/util/serviceutil"
	"chandir/services/directory"

	"github.com/spf13/cobra"
)

var (
	fetchOutput    string
	fetchChannels  string
	fetchDumpHttp  string
	fetchNoCache   bool
	fetchPerfStats bool
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "where to write the directory, overrides the config")
	fetchCmd.Flags().StringVar(&fetchChannels, "channels", "", "the channel list to read, overrides the config")
	fetchCmd.Flags().StringVar(&fetchDumpHttp, "dump-http", "", "write every http exchange to this directory")
	fetchCmd.Flags().BoolVar(&fetchNoCache, "no-cache", false, "ignore the page cache even if one is configured")
	fetchCmd.Flags().BoolVar(&fetchPerfStats, "perf-stats", false, "record process stats while running")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Scrapes every configured channel and rewrites the directory.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := LoadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		if fetchOutput != "" {
			config.Output = fetchOutput
		}
		if fetchChannels != "" {
			config.Channels = fetchChannels
		}

		tel, err := telemetry.SetupFromEnv(ctx, "chandir")
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer tel.Shutdown(context.Background())
		if fetchPerfStats {
			telemetry.InstrumentPerfStats(ctx, 30*time.Second)
		}

		raws, err := channelref.ReadFile(config.Channels)
		if err != nil {
			serviceutil.Fatal("failed to read channel list", err)
		}

		builder, cleanup, err := newBuilder(config)
		if err != nil {
			serviceutil.Fatal("failed to setup sources", err)
		}
		defer cleanup()

		doc, err := builder.Build(ctx, raws)
		if err != nil {
			cleanup()
			tel.Shutdown(context.Background())
			serviceutil.Fatal("run interrupted, directory left untouched", err)
		}

		err = directory.WriteFile(config.Output, doc)
		if err != nil {
			serviceutil.Fatal("failed to write directory", err)
		}
		slog.Info("wrote directory", "channels", len(doc.Channels), "path", config.Output)
	},
}

func newBuilder(config Config) (directory.Builder, func(), error) {
	cleanup := func() {}

	opts := config.fetchOptions()
	if fetchDumpHttp != "" {
		dump, err := restyutil.NewFilesystemOutput(fetchDumpHttp)
		if err != nil {
			return directory.Builder{}, cleanup, err
		}
		opts.Dump = dump
	}

	var fetcher fetch.Fetcher = fetch.NewClient(opts)
	var bypass fetch.Fetcher
	if config.wantsBypass() {
		bypassOpts := opts
		bypassOpts.CloudflareBypass = true
		bypassOpts.TracerName = "chandir/http/cloudflare"
		bypass = fetch.NewClient(bypassOpts)
	}

	if config.Cache.Dir != "" && !fetchNoCache {
		cache, err := pagecache.Open(config.Cache.Dir, time.Duration(config.Cache.TtlMinutes)*time.Minute)
		if err != nil {
			return directory.Builder{}, cleanup, err
		}
		cleanup = func() {
			err := cache.Close()
			if err != nil {
				slog.Warn("failed to close page cache", "err", err)
			}
		}
		fetcher = pagecache.Cached{Cache: cache, Next: fetcher}
		if bypass != nil {
			bypass = pagecache.Cached{Cache: cache, Next: bypass}
		}
		slog.Debug("page cache enabled", "dir", config.Cache.Dir, "ttl_minutes", config.Cache.TtlMinutes)
	}

	sources, err := config.Descriptors(bypass)
	if err != nil {
		cleanup()
		return directory.Builder{}, func() {}, err
	}

	return directory.Builder{
		Reconciler: directory.Reconciler{
			Sources:      sources,
			Fetcher:      fetcher,
			Plausibility: config.plausibility(),
		},
		Pacer: directory.Pacer{
			Base:   time.Duration(config.Pacing.BaseMs) * time.Millisecond,
			Jitter: time.Duration(config.Pacing.JitterMs) * time.Millisecond,
		},
	}, cleanup, nil
}
