package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dashforge-backend/internal/datasource"
	"dashforge-backend/internal/storage"
)

type adminHandler struct {
	registry *datasource.Registry
	pipeline *pipeline
	repo     *storage.Repository
	sched    *scheduler
}

func (h *adminHandler) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.sched.listJobs())
	})
	r.Get("/kinds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"kinds": h.registry.SupportedKinds()})
	})
	r.Post("/datasources/test", h.handleTestDataSource)
	r.Get("/rules/{id}/history", h.handleGetHistory)
	r.Delete("/rules/{id}/history", h.handleClearHistory)
	r.Delete("/history", func(w http.ResponseWriter, r *http.Request) {
		h.pipeline.engine.ClearAllHistory()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/channels/{id}/test", h.handleTestChannel)
	return r
}

func (h *adminHandler) handleTestDataSource(w http.ResponseWriter, r *http.Request) {
	var cfg datasource.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.registry.Test(r.Context(), cfg.Kind, cfg))
}

func (h *adminHandler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hist, ok := h.pipeline.engine.History(id)
	if !ok {
		writeError(w, http.StatusNotFound, "rule never evaluated")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *adminHandler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.pipeline.engine.ClearHistory(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *adminHandler) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.repo.GetChannel(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	channel, err := channelFromRecord(rec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok := h.pipeline.dispatcher.TestChannel(r.Context(), channel)
	writeJSON(w, http.StatusOK, map[string]any{"ok": ok})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}
