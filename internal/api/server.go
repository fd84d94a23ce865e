package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nitinshakthi/energy-tracker/internal/tracker"
)

// Server exposes the tracker over HTTP. Authentication arrives as an API key
// header; the resolved user is the principal for every operation.
type Server struct {
	tracker *tracker.Tracker
}

func NewServer(tr *tracker.Tracker) *Server {
	return &Server{
		tracker: tr,
	}
}

type ctxKey int

const userKey ctxKey = 0

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for the web frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/homes", s.handleListHomes)
		r.Post("/homes", s.handleCreateHome)
		r.Get("/homes/{id}", s.handleGetHome)
		r.Put("/homes/{id}", s.handleUpdateHome)
		r.Delete("/homes/{id}", s.handleDeleteHome)
		r.Post("/homes/{id}/rooms", s.handleAddRoom)
		r.Post("/homes/{homeId}/rooms/{roomId}/devices", s.handleAddDevice)

		r.Post("/readings", s.handleCreateReading)
		r.Post("/readings/batch", s.handleCreateBatch)
		r.Get("/readings/latest/{homeId}", s.handleLatestReadings)

		r.Get("/analytics/dashboard/{homeId}", s.handleDashboard)
		r.Get("/analytics/heatmap/{homeId}", s.handleHeatmap)
		r.Get("/analytics/device/{homeId}/{deviceId}", s.handleDeviceAnalytics)

		r.Get("/alerts/{homeId}", s.handleUnreadAlerts)
		r.Put("/alerts/{id}/read", s.handleAcknowledgeAlert)
	})

	return r
}

// requireUser resolves the API key to a principal and stores it in the
// request context. Token mechanics live with the caller; this only looks the
// key up.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		user, err := s.tracker.Authenticate(r.Context(), key)
		if err != nil {
			if tracker.KindOf(err) == tracker.KindUnavailable {
				respondError(w, http.StatusServiceUnavailable, "store unavailable")
				return
			}
			respondError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func principal(r *http.Request) *tracker.User {
	return r.Context().Value(userKey).(*tracker.User)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": "1.0.0",
	})
}

func (s *Server) handleListHomes(w http.ResponseWriter, r *http.Request) {
	homes, err := s.tracker.ListHomes(r.Context(), principal(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, homes)
}

func (s *Server) handleCreateHome(w http.ResponseWriter, r *http.Request) {
	var in tracker.HomeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	home, err := s.tracker.CreateHome(r.Context(), principal(r), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, home)
}

func (s *Server) handleGetHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.tracker.GetHome(r.Context(), chi.URLParam(r, "id"), principal(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, home)
}

func (s *Server) handleUpdateHome(w http.ResponseWriter, r *http.Request) {
	var in tracker.HomeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	home, err := s.tracker.UpdateHome(r.Context(), chi.URLParam(r, "id"), principal(r), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, home)
}

func (s *Server) handleDeleteHome(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.tracker.DeleteHome(r.Context(), id, principal(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

func (s *Server) handleAddRoom(w http.ResponseWriter, r *http.Request) {
	var in tracker.RoomInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	home, err := s.tracker.AddRoom(r.Context(), chi.URLParam(r, "id"), principal(r), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, home)
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var in tracker.DeviceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	home, err := s.tracker.AddDevice(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "roomId"), principal(r), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, home)
}

type readingRequest struct {
	HomeID string `json:"homeId"`
	tracker.ReadingPayload
}

func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reading, err := s.tracker.IngestReading(r.Context(), req.HomeID, principal(r), req.ReadingPayload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reading)
}

type batchRequest struct {
	HomeID   string                   `json:"homeId"`
	Readings []tracker.ReadingPayload `json:"readings"`
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	readings, err := s.tracker.IngestBatch(r.Context(), req.HomeID, principal(r), req.Readings)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, readings)
}

func (s *Server) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.tracker.LatestReadings(r.Context(), chi.URLParam(r, "homeId"), principal(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, readings)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")

	snap, err := s.tracker.Dashboard(r.Context(), chi.URLParam(r, "homeId"), principal(r), period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")

	buckets, err := s.tracker.Heatmap(r.Context(), chi.URLParam(r, "homeId"), principal(r), month)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleDeviceAnalytics(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondFieldError(w, "days", "days must be a non-negative integer")
			return
		}
		days = n
	}

	series, err := s.tracker.DeviceAnalytics(r.Context(), chi.URLParam(r, "homeId"), principal(r), chi.URLParam(r, "deviceId"), days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleUnreadAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondFieldError(w, "limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	alerts, err := s.tracker.UnreadAlerts(r.Context(), chi.URLParam(r, "homeId"), principal(r), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.tracker.AcknowledgeAlert(r.Context(), id, principal(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "acknowledged", "id": id})
}

// respondServiceError maps the service taxonomy onto status codes:
// InvalidInput 400, Forbidden 403, Unavailable 503.
func respondServiceError(w http.ResponseWriter, err error) {
	var serr *tracker.Error
	if !errors.As(err, &serr) {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch serr.Kind {
	case tracker.KindInvalidInput:
		if serr.Field != "" {
			respondFieldError(w, serr.Field, serr.Message)
			return
		}
		respondError(w, http.StatusBadRequest, serr.Message)
	case tracker.KindForbidden:
		respondError(w, http.StatusForbidden, serr.Message)
	case tracker.KindUnavailable:
		respondError(w, http.StatusServiceUnavailable, serr.Message)
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondFieldError(w http.ResponseWriter, field, message string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{"error": message, "field": field})
}
