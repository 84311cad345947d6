package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"selfrep/internal/storage"
	"selfrep/pkg/selfrep"
)

type globalOptions struct {
	storeKind    string
	dbPath       string
	logLevel     string
	metricsAddr  string
	artifactsDir string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "selfrepctl",
		Short:         "Evolve self-replicating controllers in classic control scapes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	root.PersistentFlags().StringVar(&opts.dbPath, "db-path", "selfrep.db", "sqlite database path")
	root.PersistentFlags().StringVar(&opts.logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	root.PersistentFlags().StringVar(&opts.artifactsDir, "artifacts-dir", "runs", "run artifact directory (empty disables artifacts)")

	root.AddCommand(
		newRunCmd(opts),
		newChampionsCmd(opts),
		newGenerationsCmd(opts),
		newReplayCmd(opts),
		newRunsCmd(opts),
		newExportCmd(opts),
		newScapesCmd(),
	)
	return root
}

// session is one command's client plus its optional metrics endpoint.
type session struct {
	client *selfrep.Client
	server *http.Server
	log    *logrus.Logger
}

func openSession(ctx context.Context, opts *globalOptions) (*session, error) {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)

	var reg *prometheus.Registry
	if opts.metricsAddr != "" {
		reg = prometheus.NewRegistry()
	}
	clientOpts := selfrep.Options{
		StoreKind:    opts.storeKind,
		DBPath:       opts.dbPath,
		Logger:       logger,
		ArtifactsDir: opts.artifactsDir,
	}
	if reg != nil {
		clientOpts.Registerer = reg
	}
	client, err := selfrep.New(clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	s := &session{client: client, log: logger}
	if reg != nil {
		listener, err := net.Listen("tcp", opts.metricsAddr)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
		logger.WithField("addr", listener.Addr().String()).Info("serving metrics")
	}
	return s, nil
}

func (s *session) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	return s.client.Close()
}
