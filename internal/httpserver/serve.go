package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/teta/internal/logutil"
)

type (
	Timeouts struct {
		Read     time.Duration
		Write    time.Duration
		Idle     time.Duration
		Shutdown time.Duration
	}
)

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:     time.Minute,
		Write:    time.Minute,
		Idle:     time.Minute * 5,
		Shutdown: time.Second * 30,
	}
}

// Serve runs handler on bind until ctx is cancelled, then shuts the server
// down gracefully.
func Serve(ctx context.Context, bind string, handler http.Handler, timeouts Timeouts) error {
	server := http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       timeouts.Read,
		WriteTimeout:      timeouts.Write,
		ReadHeaderTimeout: timeouts.Read,
		IdleTimeout:       timeouts.Idle,
	}
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, timeouts.Shutdown, err, done)
	<-done
	return <-err
}

func serveInBackground(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	defer close(done)
	// cancelled only when ListenAndServe returns
	serverCtx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Warn().Err(err).Msg("Shutdown did not finish cleanly")
		}
		log.Info().Msg("Shutdown completed")
	}
}
