// Package endpoints serves the admin HTTP surface shared by the scale binaries: health, the
// stats registry and whatever handlers the binary mounts next to them.
package endpoints

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/ngageoint/scale/common/stats"
)

// How long Serve waits for in-flight requests once its context is done.
const ShutdownTimeout = 5 * time.Second

// NewServer creates a server listening on addr that accepts at most maxConns connections at
// once, zero meaning no limit. handlers are mounted by path prefix, e.g. "/status".
func NewServer(addr string, maxConns int, stat stats.StatsReceiver, handlers map[string]http.Handler) *Server {
	s := &Server{
		Addr:     addr,
		MaxConns: maxConns,
		Stats:    stat,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", healthHandler)
	s.mux.HandleFunc("/admin/metrics.json", s.statsHandler)
	for path, h := range handlers {
		s.mux.Handle(path, h)
		if !strings.HasSuffix(path, "/") {
			s.mux.Handle(path+"/", h)
		}
		s.paths = append(s.paths, path)
	}
	sort.Strings(s.paths)
	s.mux.HandleFunc("/", s.helpHandler)
	return s
}

type Server struct {
	Addr     string
	MaxConns int
	Stats    stats.StatsReceiver

	mux   *http.ServeMux
	paths []string
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve listens on Addr and serves until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if s.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.MaxConns)
	}
	srv := &http.Server{Handler: s.mux}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Serving http & stats on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) helpHandler(w http.ResponseWriter, r *http.Request) {
	paths := append([]string{"/health", "/admin/metrics.json"}, s.paths...)
	http.Error(w, fmt.Sprintf("Common paths: '%s'", strings.Join(paths, "', '")), http.StatusNotImplemented)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	const contentTypeHdr = "Content-Type"
	const contentTypeVal = "application/json; charset=utf-8"
	w.Header().Set(contentTypeHdr, contentTypeVal)

	pretty := r.URL.Query().Get("pretty") == "true"
	str := s.Stats.Render(pretty)
	if _, err := io.Copy(w, bytes.NewBuffer(str)); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
}

type StatScope string

func MakeStatsReceiver(scope StatScope) stats.StatsReceiver {
	return stats.DefaultStatsReceiver().Scope(string(scope)).Precision(time.Millisecond)
}
