package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Theruz/8aAscents/internal/fakebackend"
)

type serveFlags struct {
	addr     string
	email    string
	password string
	metrics  bool
	delay    time.Duration
}

func newServeMockCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run an in-memory backend for offline development",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveMock(ctx, f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&f.email, "user", "demo@ascents.ch", "Email of the seeded user")
	cmd.Flags().StringVar(&f.password, "user-password", "demo", "Password of the seeded user")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "Serve Prometheus metrics on /metrics")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "Delay every response")
	return cmd
}

func mockRouter(f *serveFlags) http.Handler {
	backend := fakebackend.New(
		fakebackend.WithUser(f.email, f.password),
		fakebackend.WithProfile(fakebackend.Profile{ID: 1, FirstName: "Demo", LastName: "User", BirthDate: "1990-01-01", Main: true}),
		fakebackend.WithDelay(f.delay),
	)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if f.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Mount("/", backend)
	return r
}

func serveMock(ctx context.Context, f *serveFlags) error {
	srv := &http.Server{
		Addr:              f.addr,
		Handler:           mockRouter(f),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", f.addr).Str("user", f.email).Bool("metrics", f.metrics).Msg("mock backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("mock backend shutting down")
	return srv.Shutdown(shutdownCtx)
}
