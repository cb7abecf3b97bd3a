package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logship/internal/cliconfig"
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/logship"
)

const longHelp = `Keep application logs in an encrypted local store and ship the important
ones to your inbox or a webhook.

Highlights:
  - Entries are sealed per column; a damaged store is rebuilt, never fatal.
  - Only entries at or above --min-severity are delivered, once per --interval.
  - Configure via file ($HOME/.logship/config.toml), LOGSHIP_* env, or flags.`

var exampleUsage = strings.TrimSpace(`
  logship serve --smtp-host smtp.example.com --from alerts@example.com --to ops@example.com --subject "[app] logs"
  logship serve --transport webhook --webhook-url https://logs.example.com/ingest --subject "[app] logs" --once
  logship write --severity SEVERE "payment gateway unreachable"
  logship read --severity INFO --sent
  logship mark-sent --severity WARNING
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the resolved configuration between cobra hooks.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig()}
	c.log, _ = cliconfig.NewLogger(c.cfg.LogLevel)

	root := &cobra.Command{
		Use:               "logship",
		Short:             "Encrypted local log store with scheduled delivery",
		Long:              longHelp,
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.logship/config.toml)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn, error")
	pf.StringVar(&c.cfg.StorePath, "store", c.cfg.StorePath, "encrypted store file")
	pf.IntVar(&c.cfg.MaxStoreBytes, "max-store-bytes", c.cfg.MaxStoreBytes, "store size that triggers a reset")

	root.AddCommand(c.serveCmd(), c.writeCmd(), c.readCmd(), c.markSentCmd())

	if err := root.Execute(); err != nil {
		c.log.Error().Err(err).Msg("logship")
		os.Exit(1)
	}
}

// load resolves configuration: defaults < file < env < explicitly set flags.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	logger, err := cliconfig.NewLogger(c.cfg.LogLevel)
	if err != nil {
		return err
	}
	c.log = logger

	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.log.Debug().Interface("config", c.cfg.Masked()).Msg("configuration")
	return nil
}

// open builds a Logship instance from the resolved configuration.
func (c *cli) open(opts ...logship.Option) (*logship.Logship, logship.Config, error) {
	libCfg, err := c.cfg.Library()
	if err != nil {
		return nil, libCfg, err
	}
	opts = append([]logship.Option{
		logship.WithLogger(log.NewZerologAdapterWithLogger(c.log)),
	}, opts...)
	ls, err := logship.New(libCfg, opts...)
	if err != nil {
		return nil, libCfg, fmt.Errorf("create logship: %w", err)
	}
	return ls, libCfg, nil
}

func (c *cli) serveCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the store and deliver entries until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			ls, libCfg, err := c.open(
				logship.WithRegisterer(reg),
				logship.WithEventHandler(&eventLogger{log: c.log}),
			)
			if err != nil {
				return err
			}
			defer func() {
				if err := ls.Close(); err != nil {
					c.log.Error().Err(err).Msg("close logship")
				}
			}()

			c.log.Info().
				Interface("config", c.cfg.Masked()).
				Str("transport", string(libCfg.Delivery.Kind())).
				Msg("configuration")

			if once {
				return ls.DeliverUnsent(ctx)
			}

			if c.cfg.MetricsAddr != "" {
				srv := serveMetrics(c.cfg.MetricsAddr, reg, c.log)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if err := ls.Start(ctx); err != nil {
				return fmt.Errorf("start logship: %w", err)
			}

			<-ctx.Done()
			c.log.Info().Msg("received signal, stopping...")
			if err := ls.Stop(); err != nil && !errors.Is(err, logship.ErrNotRunning) {
				return fmt.Errorf("stop logship: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&once, "once", false, "deliver unsent entries once and exit")
	f.DurationVar(&c.cfg.PollInterval, "poll", c.cfg.PollInterval, "filesystem event poll interval")
	f.StringVar(&c.cfg.Transport, "transport", c.cfg.Transport, "delivery transport: smtp or webhook")
	f.StringVar(&c.cfg.SMTPHost, "smtp-host", c.cfg.SMTPHost, "SMTP relay host")
	f.IntVar(&c.cfg.SMTPPort, "smtp-port", c.cfg.SMTPPort, "SMTP relay port (default 587 with TLS, 25 without)")
	f.StringVar(&c.cfg.SMTPUsername, "smtp-username", c.cfg.SMTPUsername, "SMTP username")
	f.StringVar(&c.cfg.SMTPPassword, "smtp-password", c.cfg.SMTPPassword, "SMTP password")
	f.BoolVar(&c.cfg.SMTPTLS, "smtp-tls", c.cfg.SMTPTLS, "require TLS and authenticate")
	f.StringVar(&c.cfg.From, "from", c.cfg.From, "sender address")
	f.StringVar(&c.cfg.To, "to", c.cfg.To, "comma-separated recipients")
	f.StringVar(&c.cfg.Subject, "subject", c.cfg.Subject, "message subject")
	f.StringVar(&c.cfg.WebhookURL, "webhook-url", c.cfg.WebhookURL, "webhook endpoint")
	f.StringVar(&c.cfg.WebhookToken, "webhook-token", c.cfg.WebhookToken, "webhook bearer token")
	f.BoolVar(&c.cfg.WebhookCompress, "webhook-compress", c.cfg.WebhookCompress, "zstd-compress webhook bodies")
	f.StringVar(&c.cfg.MinSeverity, "min-severity", c.cfg.MinSeverity, "lowest severity delivered")
	f.DurationVar(&c.cfg.Interval, "interval", c.cfg.Interval, "delivery interval (minimum 15s)")
	f.DurationVar(&c.cfg.Timeout, "timeout", c.cfg.Timeout, "per-delivery timeout")
	f.StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address")
	return cmd
}

func (c *cli) writeCmd() *cobra.Command {
	severity := logship.SeverityInfo

	cmd := &cobra.Command{
		Use:   "write <message...>",
		Short: "Append an entry to the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, _, err := c.open()
			if err != nil {
				return err
			}
			defer ls.Close()

			msg := strings.Join(args, " ")
			if !ls.Writer().WriteEntry(cmd.Context(), severity, "logship.(cli)", msg) {
				return errors.New("entry was not stored, see log output")
			}
			return nil
		},
	}
	cmd.Flags().Var(&severity, "severity", "entry severity (FINEST..SEVERE or a number)")
	return cmd
}

func (c *cli) readCmd() *cobra.Command {
	var sent bool
	severity := logship.SeverityFinest

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print stored entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ls, _, err := c.open()
			if err != nil {
				return err
			}
			defer ls.Close()

			out := cmd.OutOrStdout()
			for block := range ls.Blocks(cmd.Context(), severity, sent) {
				if _, err := fmt.Fprint(out, block); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Var(&severity, "severity", "lowest severity printed")
	cmd.Flags().BoolVar(&sent, "sent", false, "print delivered entries instead of pending ones")
	return cmd
}

func (c *cli) markSentCmd() *cobra.Command {
	severity := logship.DefaultMinSeverity

	cmd := &cobra.Command{
		Use:   "mark-sent",
		Short: "Flag pending entries as delivered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ls, _, err := c.open()
			if err != nil {
				return err
			}
			defer ls.Close()

			n, err := ls.MarkSent(cmd.Context(), severity)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d entries sent\n", n)
			return nil
		},
	}
	cmd.Flags().Var(&severity, "severity", "lowest severity marked")
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

// eventLogger logs lifecycle and delivery events.
type eventLogger struct {
	log zerolog.Logger
}

func (e *eventLogger) OnStateChange(ev logship.StateChangeEvent) {
	e.log.Debug().
		Stringer("from", ev.Previous).
		Stringer("to", ev.Current).
		Str("reason", ev.Reason).
		Msg("state change")
}

func (e *eventLogger) OnSendSuccess(ev logship.SendSuccessEvent) {
	e.log.Info().
		Int64("marked", ev.EntriesMarked).
		Int("bytes", ev.BytesSent).
		Dur("duration", ev.Duration).
		Msg("batch delivered")
}

func (e *eventLogger) OnSendError(ev logship.SendErrorEvent) {
	e.log.Warn().
		Err(ev.Error).
		Int("bytes", ev.BytesDropped).
		Msg("batch dropped")
}
