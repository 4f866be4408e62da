package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// stubServer is a minimal stand-in for the checkout backend.
type stubServer struct {
	latency  time.Duration
	failures atomic.Int32 // remaining preference requests to fail with 502
	srv      *http.Server
	url      string
}

func startStub(latency time.Duration, failFirst int) (*stubServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s := &stubServer{latency: latency, url: "http://" + ln.Addr().String()}
	s.failures.Store(int32(failFirst))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/mp/create_preference/", s.preference)
	r.Post("/mp/create_donation_preference/", s.preference)
	r.Post("/transfer/reserve/", s.reserve)

	s.srv = &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go s.srv.Serve(ln)
	return s, nil
}

func (s *stubServer) Close() error {
	return s.srv.Close()
}

func (s *stubServer) preference(w http.ResponseWriter, r *http.Request) {
	time.Sleep(s.latency)
	if s.failures.Add(-1) >= 0 {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "stub: upstream unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preference_id": "stub-" + uuid.NewString()})
}

func (s *stubServer) reserve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChosenNumbers []int `json:"chosen_numbers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "JSON inválido"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"reserved_until": time.Now().Add(12 * time.Hour).UTC().Format(time.RFC3339),
		"count":          len(body.ChosenNumbers),
		"redirect_url":   "/pago/exito/?kind=transfer",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
