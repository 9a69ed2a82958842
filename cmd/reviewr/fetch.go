package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robby/reviewr/internal/fetch"
	"github.com/robby/reviewr/internal/report"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	xlsxFlag    string
	metricsFlag string
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <subject>",
		Short: "Fetch activity for subject and print a summary",
		Long: `fetch runs the same concurrent fetch as review without the interactive
browser. Ctrl-C cancels the running fetch.`,
		Args: cobra.ExactArgs(1),
		RunE: runFetch,
	}
	cmd.Flags().IntVarP(&daysFlag, "days", "d", 0, "Lookback window in days (default from config, 30)")
	cmd.Flags().StringVar(&xlsxFlag, "xlsx", "", "Write an Excel report to this file")
	cmd.Flags().StringVar(&metricsFlag, "metrics-file", "", "Write fetch metrics in Prometheus text format to this file")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	orch := fetch.New(fetch.WithLogger(e.logger), fetch.WithMetrics(fetch.NewMetrics(reg)))

	subject, days := args[0], e.days()
	session, err := orch.Start(ctx, e.registry, subject, days)
	if err != nil {
		return err
	}

	bar := newSpinner(os.Stderr, fmt.Sprintf("Fetching %d platforms", len(session.Platforms)), e.logger)
	done := 0
	var failures []fetch.Completed
	result, finished := session.Collect(func(ev fetch.Event) {
		switch ev := ev.(type) {
		case fetch.Started:
			bar.describe("Fetching " + ev.PlatformID)
		case fetch.Completed:
			done++
			if !ev.Success {
				failures = append(failures, ev)
			}
			bar.describe(fmt.Sprintf("%d/%d platforms done", done, len(session.Platforms)))
		}
		bar.step()
	})
	bar.finish()
	fmt.Fprintln(os.Stderr)

	if metricsFlag != "" {
		if err := prometheus.WriteToTextfile(metricsFlag, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if !finished {
		return fmt.Errorf("fetch cancelled")
	}

	for _, h := range session.Platforms {
		if d, ok := result.Results[h.ID]; ok {
			fmt.Printf("%s %-10s %s\n", h.Icon, h.Name, report.Describe(d))
		}
	}
	for _, f := range failures {
		fmt.Printf("%s %-10s %s\n", f.Status().Icon(), f.PlatformID, f.Status())
	}
	stats := report.Compute(result.Results)
	fmt.Printf("\n%d items from %d of %d platforms\n", stats.Total, result.Successful, result.Total)

	if xlsxFlag != "" {
		err := report.NewExcelExporter(xlsxFlag).Export(report.Export{
			Subject:   subject,
			Days:      days,
			Generated: time.Now(),
			Platforms: session.Platforms,
			Results:   result.Results,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", xlsxFlag)
	}
	return nil
}

// progress is the part of *progressbar.ProgressBar the fetch command drives.
type progress interface {
	Add(num int) error
	Describe(description string)
	Finish() error
}

// spinner renders fetch progress. Render failures are logged at debug level;
// they never abort the fetch.
type spinner struct {
	bar    progress
	logger *slog.Logger
}

func newSpinner(w io.Writer, description string, logger *slog.Logger) *spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	s := &spinner{bar: bar, logger: logger}
	s.check("render", bar.RenderBlank())
	return s
}

func (s *spinner) describe(description string) { s.bar.Describe(description) }

func (s *spinner) step() { s.check("add", s.bar.Add(1)) }

func (s *spinner) finish() { s.check("finish", s.bar.Finish()) }

func (s *spinner) check(op string, err error) {
	if err != nil {
		s.logger.Debug("progress output failed", "op", op, "error", err)
	}
}
