package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const landingPage = `<!doctype html><html><body style="font-family:sans-serif">
<p>%s</p><p>You can close this tab and return to the terminal.</p></body></html>`

// awaitLanding serves the frontend callback and login routes on addr and
// returns the request URI of the first hit on either.
func awaitLanding(ctx context.Context, addr string, logger *slog.Logger) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	landed := make(chan string, 1)
	mux := http.NewServeMux()
	handle := func(msg string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			select {
			case landed <- r.URL.RequestURI():
			default:
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, landingPage, msg)
		}
	}
	mux.HandleFunc("GET /auth/callback", handle("Signed in."))
	mux.HandleFunc("GET /login", handle("Sign-in did not complete."))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback listener failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case uri := <-landed:
		return uri, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
