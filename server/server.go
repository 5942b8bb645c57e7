// Package server exposes a running session over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"go-practice/debug"
	"go-practice/match"
	"go-practice/reference"
	"go-practice/trainer"
)

// Controller is the part of a session the API drives.
type Controller interface {
	Snapshot() trainer.Snapshot
	SetMode(m match.Mode) error
	SelectTrack(track int) error
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type TrackRequest struct {
	Track *int `json:"track"`
}

type ReferenceResponse struct {
	Name       string           `json:"name"`
	Resolution int              `json:"resolution"`
	Track      int              `json:"track"`
	Label      string           `json:"label"`
	Position   int              `json:"position"`
	Notes      []reference.Note `json:"notes"`
}

type Server struct {
	ctl    Controller
	router *mux.Router
}

func New(ctl Controller) *Server {
	s := &Server{ctl: ctl, router: mux.NewRouter().StrictSlash(true)}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/reference", s.handleReference).Methods(http.MethodGet)
	api.HandleFunc("/mode", s.handleMode).Methods(http.MethodPost)
	api.HandleFunc("/track", s.handleTrack).Methods(http.MethodPost)
	return s
}

// Handler returns the router wrapped with permissive CORS for local front ends.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	debug.Log("http", "listening on %s", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Log("http", "encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func commandStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusAccepted
	case errors.Is(err, trainer.ErrBusy), errors.Is(err, trainer.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Snapshot())
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	snap := s.ctl.Snapshot()
	seq := snap.Sequence()
	if seq == nil {
		writeError(w, http.StatusNotFound, "no reference loaded")
		return
	}

	resp := ReferenceResponse{
		Name:       seq.Name,
		Resolution: seq.Resolution,
		Track:      snap.Cursor.Track,
		Position:   snap.Cursor.Position,
		Notes:      snap.Notes,
	}
	if t, ok := seq.Track(snap.Cursor.Track); ok {
		resp.Label = t.Label()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body: "+err.Error())
		return
	}
	mode, err := match.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.ctl.SetMode(mode)
	if status := commandStatus(err); status != http.StatusAccepted {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, ModeRequest{Mode: mode.String()})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body: "+err.Error())
		return
	}
	if req.Track == nil {
		writeError(w, http.StatusBadRequest, "track is required")
		return
	}

	// The snapshot can trail a queued load. The session checks the index
	// again when it applies the command and reports a failure in
	// Snapshot.Error, so a 202 only means the change was queued.
	snap := s.ctl.Snapshot()
	if snap.Sequence() == nil {
		writeError(w, http.StatusConflict, "no reference loaded")
		return
	}
	if *req.Track < 0 || *req.Track >= len(snap.Tracks) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("track %d out of range (0-%d)", *req.Track, len(snap.Tracks)-1))
		return
	}

	err := s.ctl.SelectTrack(*req.Track)
	if status := commandStatus(err); status != http.StatusAccepted {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, req)
}
