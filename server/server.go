// Package server wires the platform webhooks, the developer console and a
// health check into one HTTP handler.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/max36895/umbot/bot"
	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/console"
)

const maxBodySize = 1 << 20 // 1MB

// Webhook is a platform adapter that can both parse inbound payloads and
// render outbound ones.
type Webhook interface {
	bus.RequestAdapter
	bus.ResponseAdapter
}

type Server struct {
	app      *bot.App
	webhooks map[string]Webhook
}

func New(app *bot.App) *Server {
	return &Server{app: app, webhooks: make(map[string]Webhook)}
}

// Register mounts a platform webhook. The adapter is also registered on the
// dispatcher, so registration happens in exactly one place.
func (s *Server) Register(w Webhook) {
	s.webhooks[w.Platform()] = w
	s.app.RegisterAdapter(w)
}

// Handler returns the HTTP mux: POST /webhook/{platform}, GET /health,
// and the console WebSocket at /console.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/{platform}", s.handleWebhook)
	mux.Handle("/console", console.Handler(s.app))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("platform")
	wh, ok := s.webhooks[name]
	if !ok {
		http.Error(w, `{"error":"unknown platform"}`, http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, `{"error":"body read failed"}`, http.StatusBadRequest)
		return
	}

	req, err := wh.Parse(body)
	if err != nil {
		// The platform still gets a well-formed textual reply: users see
		// "didn't understand", operators see the log line.
		slog.Error("webhook parse failed", "platform", name, "err", err)
		s.respond(w, wh, nil, s.app.FallbackResult())
		return
	}

	res, err := s.app.Dispatch(r.Context(), req)
	if err != nil {
		// Configuration faults only; nothing user-specific to say.
		slog.Error("dispatch failed", "platform", name, "err", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	s.respond(w, wh, req, res)
}

func (s *Server) respond(w http.ResponseWriter, wh Webhook, req *bus.IncomingRequest, res *bus.OutgoingResult) {
	w.Header().Set("Content-Type", "application/json")
	out, err := wh.Render(req, res)
	if err != nil {
		slog.Error("response render failed", "platform", wh.Platform(), "err", err)
		out, _ = json.Marshal(map[string]string{"text": res.Text})
	}
	w.Write(out)
}
