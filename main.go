package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"timeglass/internal/app"
	"timeglass/internal/config"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "timeglass",
		Short:         "Foreground activity time tracker",
		Long:          "Timeglass samples the foreground window, segments the samples into events and serves reports over a local HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCommand())
	root.AddCommand(collectCommand())
	root.AddCommand(summaryCommand())
	root.AddCommand(overviewCommand())
	return root
}

func serveCommand() *cobra.Command {
	var noCollect bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker and HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var opts []app.Option
			if noCollect {
				opts = append(opts, app.WithoutCollector())
			}

			application, err := app.NewApp(cfg, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Start(ctx)
		},
	}

	cmd.Flags().BoolVar(&noCollect, "no-collect", false, "serve reports without sampling")
	return cmd
}

func collectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run the sampling loop without the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			application, err := app.NewApp(cfg, app.WithoutAPI())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Start(ctx)
		},
	}
}

func summaryCommand() *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the day's tracked time",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now()
			if dateFlag != "" {
				parsed, err := time.ParseInLocation("2006-01-02", dateFlag, time.Local)
				if err != nil {
					return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dateFlag)
				}
				date = parsed
			}

			application, err := queryApp()
			if err != nil {
				return err
			}
			defer application.Shutdown()

			summary, err := application.Aggregator().Summary(cmd.Context(), date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  active %s  idle %s\n",
				summary.Date, formatSeconds(summary.ActiveSeconds), formatSeconds(summary.IdleSeconds))
			for _, event := range summary.Events {
				fmt.Fprintf(out, "  %s  %s  %s\n",
					event.StartTime.Format("15:04:05"),
					formatSeconds(event.Seconds),
					eventLabel(event.ProcessName, event.WindowTitle, event.IsIdle))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "day to report (YYYY-MM-DD, default today)")
	return cmd
}

func overviewCommand() *cobra.Command {
	var startFlag, endFlag string

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Print grouped totals and project time for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(startFlag, endFlag)
			if err != nil {
				return err
			}

			application, err := queryApp()
			if err != nil {
				return err
			}
			defer application.Shutdown()

			overview, err := application.Aggregator().Overview(cmd.Context(), start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s .. %s  active %s  idle %s\n",
				overview.Start, overview.End,
				formatSeconds(overview.ActiveSeconds), formatSeconds(overview.IdleSeconds))
			for _, entry := range overview.Entries {
				fmt.Fprintf(out, "  %s  %s\n",
					formatSeconds(entry.Seconds),
					eventLabel(entry.ProcessName, entry.WindowTitle, entry.IsIdle))
			}
			if len(overview.ProjectTotals) > 0 {
				fmt.Fprintln(out, "Projects:")
				for _, total := range overview.ProjectTotals {
					fmt.Fprintf(out, "  %s  %s\n", formatSeconds(total.Seconds), total.ProjectName)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "range start (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&endFlag, "end", "", "range end (YYYY-MM-DD, default start)")
	return cmd
}

// queryApp builds a query-only app instance for report commands
func queryApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.NewApp(cfg, app.WithoutCollector())
}

func parseRange(startFlag, endFlag string) (time.Time, time.Time, error) {
	start := time.Now()
	if startFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", startFlag, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", startFlag)
		}
		start = parsed
	}

	end := start
	if endFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", endFlag, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", endFlag)
		}
		end = parsed
	}
	return start, end, nil
}

// formatSeconds renders whole seconds as HH:MM:SS
func formatSeconds(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func eventLabel(process, window *string, idle bool) string {
	if idle {
		return "idle"
	}
	label := "unknown"
	if process != nil {
		label = *process
	}
	if window != nil {
		label += "  " + *window
	}
	return label
}
