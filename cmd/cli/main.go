package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"wargabantuin/internal/app"
	"wargabantuin/internal/config"
	"wargabantuin/internal/integrations/geolocation"
	"wargabantuin/internal/report"
	"wargabantuin/internal/session"
	"wargabantuin/internal/usecase"
)

type options struct {
	envFile string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "wargabantuin",
		Short: "Chat with the wargabantuin agriculture advisory backend",
		Long: `Interactive advisory chat. Plain lines are sent to the chatbot; the
following commands are also understood:

  /saya            report on the location nearest to MY_LAT/MY_LON
  /cari <lokasi>   report on the location nearest to a place name
  /fokus <lokasi>  move the map focus once typing settles
  /keluar          quit`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file merged into the environment")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newReportCmd(opts))
	return root
}

func setup(ctx context.Context, opts *options) (*app.Stack, *slog.Logger, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, nil, err
	}
	stack, err := app.Build(ctx, cfg, geolocation.FromEnv(cfg.MyLat, cfg.MyLon), prometheus.DefaultRegisterer, logger)
	if err != nil {
		return nil, nil, err
	}
	return stack, logger, nil
}

func runChat(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	stack, logger, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	cfg := stack.Config

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	p := newPrinter(out)
	s, err := session.New(stack.Orchestrator,
		session.WithTypingInterval(cfg.TypingInterval),
		session.WithScrollTracker(session.NewScrollTracker(cfg.ScrollSlack)),
		session.WithRecorder(stack.Metrics),
		session.WithLogger(logger),
		session.WithListener(p.onChange),
		session.WithSearchPreview(stack.Geocoder, cfg.Debounce),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintln(out, "Ketik pertanyaan, /cari <lokasi>, /saya, atau /keluar.")
	lines := bufio.NewScanner(in)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		cmdName, arg, _ := strings.Cut(line, " ")

		switch cmdName {
		case "/keluar":
			return nil
		case "/saya":
			err = s.FindMe(ctx)
		case "/cari":
			err = s.SearchLocation(ctx, arg)
		case "/fokus":
			s.TypeSearch(arg)
			continue
		default:
			err = s.Submit(ctx, line)
		}
		if err != nil {
			if usecase.CodeOf(err) == usecase.ErrorInputRejected {
				continue
			}
			return err
		}
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	return lines.Err()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newReportCmd(opts *options) *cobra.Command {
	var (
		draft  report.Draft
		settle time.Duration
	)
	cmd := &cobra.Command{
		Use:   "lapor",
		Short: "Submit a citizen report (laporan)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			stack, logger, err := setup(ctx, opts)
			if err != nil {
				return err
			}

			form, err := report.NewForm(stack.Backend, stack.Geocoder,
				report.WithQuietPeriod(stack.Config.Debounce), report.WithLogger(logger))
			if err != nil {
				return err
			}
			defer form.Close()

			form.SetLokasi(draft.Lokasi)
			form.Edit(func(d *report.Draft) {
				d.Kategori = draft.Kategori
				d.Deskripsi = draft.Deskripsi
				d.Waktu = draft.Waktu
				d.Kontak = draft.Kontak
				d.Setuju = draft.Setuju
			})
			// Give the debounced lookup a chance to settle like a form would.
			select {
			case <-time.After(settle):
			case <-ctx.Done():
				return ctx.Err()
			}
			form.Close()
			if status, _ := form.Status(); status != "" {
				fmt.Fprintln(out, status)
			}

			sub, err := form.Submit(ctx)
			status, extra := form.Status()
			fmt.Fprintln(out, status)
			if err != nil {
				return err
			}
			if extra != "" {
				fmt.Fprintln(out, extra)
			}
			fmt.Fprintf(out, "Titik laporan: %.6f, %.6f. Total laporan: %d\n", sub.Report.Lat, sub.Report.Lon, len(sub.Reports))
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Lokasi, "lokasi", "", "location name")
	cmd.Flags().StringVar(&draft.Kategori, "kategori", "", "report category")
	cmd.Flags().StringVar(&draft.Deskripsi, "deskripsi", "", "what happened")
	cmd.Flags().StringVar(&draft.Waktu, "waktu", "", "when it happened (defaults to now)")
	cmd.Flags().StringVar(&draft.Kontak, "kontak", "", "contact")
	cmd.Flags().BoolVar(&draft.Setuju, "setuju", false, "consent to publishing the report")
	cmd.Flags().DurationVar(&settle, "settle", time.Second, "time to wait for the location lookup")
	return cmd
}
