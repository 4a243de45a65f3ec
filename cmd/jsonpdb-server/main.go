package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"jsonpdb/internal/server"
	"jsonpdb/internal/shared"
	"jsonpdb/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer exitwithstatus.Handler()

	if err := newRootCommand(viper.New()).Execute(); err != nil {
		exitwithstatus.Message("Error: %s\n", err)
	}
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jsonpdb-server",
		Short:         "Serve the JSONP key/value store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfigFile(v); err != nil {
				return err
			}
			cfg, err := shared.LoadServerConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	d := shared.DefaultServerConfig()
	flags := cmd.Flags()
	flags.StringP("config", "c", "", "YAML config file")
	flags.String("listen", d.Listen, "HTTP listen address")
	flags.String("metrics-listen", d.MetricsListen, "Prometheus listen address (empty disables)")
	flags.String("path-prefix", d.PathPrefix, "URL prefix the store is mounted under, e.g. /jsonp_db/")
	flags.String("store", d.Store, "backend URL: mem://, sqlite://<path> or leveldb://<path>")
	flags.String("max-body", d.MaxBody, "largest accepted request body (e.g. 2MiB)")
	flags.Int("max-key-length", d.MaxKeyLength, "longest key in characters (0 = unlimited)")
	flags.Int("max-value-length", d.MaxValueLength, "longest value in characters (0 = unlimited)")
	flags.Int("max-table-size", d.MaxTableSize, "most keys stored (0 = unlimited)")
	flags.Bool("require-modification-key", d.RequireModificationKey, "guard updates with a per-key modification key")
	flags.String("modification-key-secret", d.ModificationKeySecret, "secret the modification keys are derived from")
	flags.String("log-file", d.LogFile, "log file path")
	flags.String("log-level", d.LogLevel, "log level (debug|info|warn|error)")
	flags.String("log-size", d.LogSize, "rotate the log after this size")
	flags.Int("log-count", d.LogCount, "rotated log files kept")
	flags.Bool("log-console", d.LogConsole, "also log to the console")

	bindFlags(v, flags)
	shared.SetDefaults(v)

	cmd.AddCommand(newConfigCommand())
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix("JSONPDB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			panic(err)
		}
	})
}

func readConfigFile(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	return nil
}

func serve(ctx context.Context, cfg shared.ServerConfig) error {
	logConfig, err := cfg.LoggerConfiguration()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logConfig.Directory, 0700); err != nil {
		return fmt.Errorf("create log dir %s: %w", logConfig.Directory, err)
	}
	if err := logger.Initialise(logConfig); err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	log.Info("starting…")
	defer log.Info("shutting down…")

	maxBody, err := cfg.MaxBodyBytes()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Store, cfg.MaxTableSize)
	if err != nil {
		log.Criticalf("open store %s: %s", cfg.Store, err)
		return err
	}
	defer store.Close()

	n, err := store.Count()
	if err != nil {
		return err
	}
	log.Infof("%d keys found in %s", n, cfg.Store)
	log.Debugf("config: %+v", cfg.Redacted())

	metrics := server.NewMetrics(store)
	api := &server.API{
		Logic: &server.Logic{
			Store: store,
			Limits: server.Limits{
				MaxKeyLength:   cfg.MaxKeyLength,
				MaxValueLength: cfg.MaxValueLength,
			},
			RequireModificationKey: cfg.RequireModificationKey,
			Secret:                 []byte(cfg.ModificationKeySecret),
			Log:                    logger.New("logic"),
		},
		MaxBody: maxBody,
		Metrics: metrics,
		Log:     logger.New("http"),
	}

	servers := []*http.Server{{
		Addr:              cfg.Listen,
		Handler:           api.Routes(cfg.PathPrefix),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}}
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		log.Infof("listening on %s", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Info("signal received")
	case err = <-errCh:
		log.Criticalf("%s", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Errorf("shutdown %s: %s", srv.Addr, serr)
		}
	}
	return err
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	var out string
	gen := &cobra.Command{
		Use:   "gen",
		Short: "Write a YAML config with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := yaml.Marshal(shared.DefaultServerConfig())
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0700); err != nil {
					return err
				}
			}
			return os.WriteFile(out, b, 0600)
		},
	}
	gen.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.AddCommand(gen)
	return cmd
}
