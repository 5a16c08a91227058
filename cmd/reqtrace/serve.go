package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/G1D0/reqtrace/internal/config"
	"github.com/G1D0/reqtrace/internal/middleware"
	"github.com/G1D0/reqtrace/internal/observe"
	"github.com/G1D0/reqtrace/internal/server"
	"github.com/G1D0/reqtrace/internal/traceid"
	"github.com/G1D0/reqtrace/internal/tracelog"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server; request lines go to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			logger, err := observe.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("process logger: %w", err)
			}

			handler, err := newHandler(cfg, os.Stdout, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Addr:         cfg.Listen,
				Handler:      handler,
				DrainTimeout: cfg.DrainTimeout,
				Logger:       logger,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	return cmd
}

// newHandler wires the traced demo routes and, when enabled, the metrics
// endpoint. The metrics endpoint itself is not traced.
func newHandler(cfg *config.Config, out io.Writer, logger *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	gen, err := traceid.Default(traceid.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("trace id generator: %w", err)
	}

	level, err := tracelog.ParseLevel(cfg.Trace.Level)
	if err != nil {
		return nil, err
	}
	color, _ := tracelog.ParseColorMode(cfg.Trace.Color)
	factory := tracelog.NewFactory(out, tracelog.Options{Level: level, Color: color})

	opts := []middleware.Option{
		middleware.WithSeparator(cfg.Trace.Separator),
		middleware.WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, middleware.WithObserver(observe.NewMetrics(reg)))
	}
	binder := middleware.NewBinder(gen, factory, opts...)

	traced := middleware.Chain(
		middleware.Recover(logger),
		middleware.Trace(binder, middleware.WithResponseHeader(cfg.Trace.ResponseHeader)),
	)

	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(traced))
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/echo/{msg}", handleEcho).Methods(http.MethodGet)

	root := http.NewServeMux()
	if cfg.Metrics.Enabled {
		root.Handle(cfg.Metrics.Path, observe.Handler(reg))
	}
	root.Handle("/", router)
	return root, nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.LoggerFrom(r.Context()).Debug("health check")
	body := []byte(`{"status":"ok"}`)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.Write(body)
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	msg := mux.Vars(r)["msg"]
	log := middleware.LoggerFrom(r.Context())
	log.Verbose("echoing " + msg)
	if _, err := io.WriteString(w, msg); err != nil {
		log.Warn(err)
	}
}
