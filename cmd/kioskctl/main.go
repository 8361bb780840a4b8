package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/analytics"
	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/service"
	"github.com/noah-isme/exit-kiosk/internal/timebucket"
	"github.com/noah-isme/exit-kiosk/pkg/config"
)

type options struct {
	backendURL string
	password   string
	timeout    time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
	}
	opts := &options{
		backendURL: cfg.Backend.BaseURL,
		password:   os.Getenv("KIOSK_PASSWORD"),
		timeout:    cfg.Backend.Timeout,
	}

	root := &cobra.Command{
		Use:           "kioskctl",
		Short:         "Query the exit registration backend from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.backendURL, "backend", opts.backendURL, "backend base URL")
	root.PersistentFlags().StringVar(&opts.password, "password", opts.password, "staff password (defaults to $KIOSK_PASSWORD)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per request timeout")

	root.AddCommand(newSearchCmd(opts), newStatsCmd(opts, cfg), newExportCmd(opts, cfg))
	return root
}

func (o *options) session(ctx context.Context) (*backend.Session, error) {
	if strings.TrimSpace(o.backendURL) == "" {
		return nil, fmt.Errorf("--backend is required")
	}
	s := backend.New(o.backendURL, o.timeout).NewSession()
	if o.password != "" {
		if err := s.Login(ctx, o.password); err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}
	return s, nil
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search [terms...]",
		Short: "List students matching every term",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			students, err := s.Roster(cmd.Context())
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			matches := filter.Roster(students, query)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNOMBRE\tGRUPO\tDNI")
			for _, st := range matches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.ID, st.Name, st.Group, st.DNI)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d de %d alumnos\n", len(matches), len(students))
			return nil
		},
	}
}

func newStatsCmd(opts *options, cfg *config.Config) *cobra.Command {
	var criteria filter.HistoryCriteria
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the history counters and trend histograms",
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := classifierFor(cfg)
			if err != nil {
				return err
			}
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := s.History(cmd.Context())
			if err != nil {
				return err
			}
			rows = filter.History(rows, criteria)
			sum := analytics.New(classifier).Summarize(rows, time.Now().In(cfg.Location()))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hoy: %d  Semana: %d  Mes: %d  Total: %d\n", sum.Today, sum.Week, sum.Month, sum.Total)
			if !sum.ChartsVisible {
				return nil
			}
			printHistogram(out, "Por día", sum.Days)
			printHistogram(out, "Por sesión", sum.Sessions)
			return nil
		},
	}
	cmd.Flags().StringVar(&criteria.Term, "term", "", "free text filter")
	cmd.Flags().StringVar(&criteria.Motive, "motive", "", "motive filter")
	cmd.Flags().StringVar(&criteria.From, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&criteria.To, "to", "", "last day (YYYY-MM-DD)")
	return cmd
}

func newExportCmd(opts *options, cfg *config.Config) *cobra.Command {
	var (
		format string
		term   string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the exit history as CSV or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := s.History(cmd.Context())
			if err != nil {
				return err
			}
			history := service.NewHistoryService(nil, nil, nil, service.HistoryConfig{Location: cfg.Location()}, zap.NewNop())
			payload, filename, count, err := history.Render(rows, term, strings.ToLower(format))
			if err != nil {
				return err
			}
			if out == "" {
				out = filename
			}
			if err := os.WriteFile(out, payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d registros exportados a %s\n", count, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", service.FormatCSV, "csv or pdf")
	cmd.Flags().StringVar(&term, "term", "", "only rows whose name, group or DNI contain this text")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (defaults to the generated name)")
	return cmd
}

func classifierFor(cfg *config.Config) (*timebucket.Classifier, error) {
	if len(cfg.Analysis.SessionBuckets) == 0 {
		return timebucket.Default(), nil
	}
	sessions, err := timebucket.Parse(cfg.Analysis.SessionBuckets)
	if err != nil {
		return nil, err
	}
	return timebucket.New(sessions)
}

func printHistogram(out io.Writer, title string, h analytics.Histogram) {
	fmt.Fprintln(out, title)
	for _, bar := range analytics.BarChart(h) {
		fmt.Fprintf(out, "  %-12s %4d %s\n", bar.Label, bar.Value, strings.Repeat("#", int(bar.Height/5)))
	}
}
