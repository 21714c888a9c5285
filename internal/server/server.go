// Package server serves stage assets over HTTP so viewers on other machines
// can load stages through fetch.HTTPFetcher.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/fetch"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/stage"
)

// AssetPrefix is the route prefix assets are served under. A viewer's
// remote URL is the server address followed by this prefix.
const AssetPrefix = "/assets"

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

// Server serves the assets of a fetcher and the stage catalog.
type Server struct {
	src  fetch.Fetcher
	base string
	ext  string
	log  *zap.Logger
}

// New returns a server reading from src. base and ext locate stage files the
// same way the viewer's loader does; empty values mean the defaults.
func New(src fetch.Fetcher, base, ext string) *Server {
	if base == "" {
		base = stage.DefaultBase
	}
	if ext == "" {
		ext = stage.DefaultExt
	}
	return &Server{src: src, base: base, ext: ext, log: logger.Named("server")}
}

// Handler returns the routed handler with recovery, request ids and access
// logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/stages", s.handleStages).Methods(http.MethodGet)
	r.HandleFunc("/stages/{id}", s.handleStage).Methods(http.MethodGet)
	r.HandleFunc(AssetPrefix+"/{path:.+}", s.handleAsset).Methods(http.MethodGet, http.MethodHead)

	var h http.Handler = r
	h = requestID(h)
	h = handlers.CORS(handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead}))(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(s.log)))(h)
	h = handlers.LoggingHandler(zap.NewStdLog(s.log).Writer(), h)
	return h
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// StageInfo describes one catalog stage and where its files live.
type StageInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Alternate bool   `json:"alternate"`
	Stage     string `json:"stage"`
	Manifest  string `json:"manifest,omitempty"`
	Scenery   string `json:"scenery"`
}

// GroupInfo is one catalog group.
type GroupInfo struct {
	Name   string      `json:"name"`
	Stages []StageInfo `json:"stages"`
}

func (s *Server) info(d stage.Desc) StageInfo {
	si := StageInfo{
		ID:        d.ID,
		Name:      d.Name,
		Group:     d.Group,
		Alternate: d.Alternate,
		Stage:     d.StagePath(s.base, s.ext),
		Scenery:   d.SceneryPath(s.base, s.ext),
	}
	if !d.Alternate {
		si.Manifest = d.ManifestPath(s.base)
	}
	return si
}

func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	var out []GroupInfo
	for _, g := range stage.Catalog() {
		gi := GroupInfo{Name: g.Name}
		for _, d := range g.Stages {
			gi.Stages = append(gi.Stages, s.info(d))
		}
		out = append(out, gi)
	}
	s.writeJSON(w, out)
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	d, ok := stage.Find(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown stage", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.info(d))
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	data, err := s.src.Fetch(r.Context(), path)
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("fetch failed", zap.String("path", path), zap.Error(err))
		http.Error(w, "fetch failed", http.StatusBadGateway)
		return
	}

	contentType := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("writing response", zap.Error(err))
	}
}
