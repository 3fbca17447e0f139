package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/docql/pkg/log"
	"github.com/cuemby/docql/pkg/metrics"
	"github.com/cuemby/docql/pkg/server"
	"github.com/cuemby/docql/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// configError marks a failure in flags/config resolution, exit code 2,
// distinct from a runtime failure starting or running the server
// (exit code 3).
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if _, ok := err.(*configError); ok {
			os.Exit(2)
		}
		os.Exit(3)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docql",
	Short: "docql - a networked document database query engine",
	Long: `docql is a document database with a composable, chainable query
language in the style of ReQL: build a query as a tree of terms, send
it over the wire, and stream the results back a batch at a time.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"docql version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &configError{err}
	})

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docql server",
	Long: `Start a docql server: open (or create) a bolt-backed data
directory, listen for query connections, and expose a metrics/health
endpoint for operators.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("data-dir", envOr("DATA_DIR", "./docql-data"), "Data directory for the bolt store")
	serveCmd.Flags().String("listen-proto", "tcp", "Listener protocol: tcp or unix")
	serveCmd.Flags().String("listen-addr", envOr("LISTEN_ADDR", "127.0.0.1:28015"), "Address (or socket path, for unix) to listen on for queries")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics, /health, /ready, /live on")
	serveCmd.Flags().String("config", "", "Optional YAML file overriding the flags above")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// serveConfig is the set of knobs runServe needs, populated from
// flags and then overridden field-by-field by an optional --config
// YAML file, the way the teacher's apply.go decodes a manifest.
type serveConfig struct {
	DataDir     string `yaml:"dataDir"`
	ListenProto string `yaml:"listenProto"`
	ListenAddr  string `yaml:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

func loadServeConfig(cmd *cobra.Command) (serveConfig, error) {
	cfg := serveConfig{}
	cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	cfg.ListenProto, _ = cmd.Flags().GetString("listen-proto")
	cfg.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return &configError{err}
	}

	if cfg.ListenProto != "tcp" && cfg.ListenProto != "unix" {
		return &configError{fmt.Errorf("listen proto must be tcp or unix, got %q", cfg.ListenProto)}
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", cfg.DataDir, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Error(fmt.Sprintf("close store: %v", cerr))
		}
	}()

	srv, err := server.NewServer(store)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	metricsCollector := metrics.NewCollector(store)
	metricsCollector.Start()
	defer metricsCollector.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("storage", true, "ready")
	metrics.RegisterComponent("server", false, "starting")

	go func() {
		http.Handle("/metrics", metrics.Handler())
		http.Handle("/health", metrics.HealthHandler())
		http.Handle("/ready", metrics.ReadyHandler())
		http.Handle("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Error(fmt.Sprintf("metrics server error: %v", err))
		}
	}()
	log.Info(fmt.Sprintf("metrics endpoint: http://%s/metrics", cfg.MetricsAddr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.ListenProto, cfg.ListenAddr); err != nil {
			errCh <- err
		}
	}()
	metrics.RegisterComponent("server", true, "ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		srv.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	srv.Stop()
	log.Info("shutdown complete")
	return nil
}
