package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vinosuggest-engine/internal/app"
	"vinosuggest-engine/internal/config"
	"vinosuggest-engine/internal/events"
	"vinosuggest-engine/internal/httpapi"
	"vinosuggest-engine/internal/logging"
	"vinosuggest-engine/internal/scheduler"
)

// EnvShutdownToken lets a launcher choose the /shutdown token.
const EnvShutdownToken = "VINO_SHUTDOWN_TOKEN"

const statsInterval = time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			appOpts := opts.appOptions(false)
			appOpts.LogLevel = ""
			if opts.verbose {
				appOpts.LogLevel = "debug"
			}
			a, err := app.Bootstrap(ctx, appOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(a.Config.App.Port))
			}
			return serve(ctx, a, addr, cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:<app.port>)")
	return cmd
}

func serve(ctx context.Context, a *app.App, addr string, cmd *cobra.Command) error {
	log := logging.With("engine")

	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(a.Config)

	d := httpapi.Deps{
		App:         a,
		Hub:         events.NewHub(),
		CfgVal:      &cfgVal,
		UserCfgPath: a.CfgPath,
		LoadCfg: func() (config.Config, error) {
			return app.LoadConfig(a.CfgPath, a.Config.App.DataDir)
		},
		Limiter: httpapi.NewClientLimiter(a.Config.RateLimit.RequestsPerSecond, a.Config.RateLimit.Burst),
	}

	token := os.Getenv(EnvShutdownToken)
	if token == "" {
		var err error
		if token, err = randomToken(16); err != nil {
			return err
		}
	}

	// SSE handlers hang off baseCtx so Shutdown does not wait on them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	mux := httpapi.NewMux(d)
	srv := &http.Server{
		Handler:           httpapi.Handler(mux, d),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).
		Str("store", a.Config.StorePath()).
		Int("wines", a.Engine.Len()).
		Msg("engine listening")
	fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\nshutdown token: %s\n", ln.Addr(), token)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Every(gctx, statsInterval, "store-stats", a.RefreshStats)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	log.Info().Msg("engine stopped")
	return err
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownHandler(token *string, srv *http.Server) http.HandlerFunc {
	log := logging.With("engine")
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpapi.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}

		// local-only guard
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if ip := net.ParseIP(host); (ip == nil || !ip.IsLoopback()) && host != "localhost" {
			httpapi.WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(*token)) != 1 {
			httpapi.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		// respond first, then shut down asynchronously
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))
		log.Info().Str("request_id", httpapi.RequestIDFrom(r.Context())).Msg("shutdown requested")

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}
