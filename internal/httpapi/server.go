package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/domain"
	"github.com/KaioHerculano/livesync/internal/httpapi/middleware"
	"github.com/KaioHerculano/livesync/internal/repo"
	"github.com/KaioHerculano/livesync/internal/scheduler"
)

// Server exposes the collaborator surface around the polling core: watch
// target registration, delivery-log reads and the manual check trigger.
type Server struct {
	Logger  *zap.Logger
	Targets repo.TargetStore
	Records repo.NotificationStore
	Poller  *scheduler.Poller
	Keys    middleware.Keys
	RPM     int
	Burst   int
}

func NewServer(l *zap.Logger, ts repo.TargetStore, rs repo.NotificationStore, p *scheduler.Poller, keys middleware.Keys, rpm, burst int) *Server {
	return &Server{Logger: l, Targets: ts, Records: rs, Poller: p, Keys: keys, RPM: rpm, Burst: burst}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.RPM, s.Burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAny(s.Keys))

		r.Get("/targets", s.handleListTargets)
		r.Post("/targets", s.handleAddTarget)
		r.Get("/targets/{id}/notifications", s.handleListNotifications)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.Keys))
			r.Delete("/targets/{id}", s.handleDeleteTarget)
			r.Post("/checks/run", s.handleRunChecks)
		})
	})

	return r
}

type addPayload struct {
	Name       string `json:"name"`
	UserID     string `json:"user_id"`
	Platform   string `json:"platform"`
	ChannelID  string `json:"channel_id"`
	WebhookURL string `json:"webhook_url"`
	Active     *bool  `json:"active"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	platform := domain.Platform(strings.ToUpper(strings.TrimSpace(p.Platform)))
	if !platform.Valid() {
		writeError(w, http.StatusBadRequest, "platform must be TIKTOK or YOUTUBE")
		return
	}
	if strings.TrimSpace(p.ChannelID) == "" || strings.TrimSpace(p.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id and channel_id are required")
		return
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}
	t := &domain.WatchTarget{
		Name:       p.Name,
		UserID:     p.UserID,
		Platform:   platform,
		ChannelID:  strings.TrimSpace(p.ChannelID),
		WebhookURL: strings.TrimSpace(p.WebhookURL),
		Active:     active,
		LastStatus: domain.StatusUnknown,
	}
	if err := s.Targets.Add(r.Context(), t); err != nil {
		if errors.Is(err, repo.ErrDuplicateTarget) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.Logger.Warn("add_target_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add target")
		return
	}

	s.Logger.Info("target_added",
		zap.String("target_id", string(t.ID)),
		zap.String("platform", string(t.Platform)),
		zap.String("channel_id", t.ChannelID),
	)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Targets.List(r.Context(), false)
	if err != nil {
		s.Logger.Warn("list_targets_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	if err := s.Targets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "target not found")
			return
		}
		s.Logger.Warn("delete_target_error", zap.String("target_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunChecks forces one synchronous evaluation pass over every active
// target, through the same code path as the scheduled loop.
func (s *Server) handleRunChecks(w http.ResponseWriter, r *http.Request) {
	if err := s.Poller.RunOnce(r.Context()); err != nil {
		s.Logger.Warn("manual_pass_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pass completed"})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	if _, err := s.Targets.Get(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "target not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup error")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.Records.ListByTarget(r.Context(), id, limit)
	if err != nil {
		s.Logger.Warn("list_notifications_error", zap.String("target_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
