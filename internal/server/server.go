// Package server exposes the small HTTP surface the quest dashboard consumes
// plus the Neynar webhook that feeds Farcaster mentions into the router
// without polling.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"openquest/internal/platform"
	"openquest/internal/quest"
)

// QuestReader is the read-only quest access the API needs.
type QuestReader interface {
	ListActive(ctx context.Context) ([]quest.Quest, error)
}

// Caster posts casts back to Farcaster for webhook replies.
type Caster interface {
	PostCast(ctx context.Context, text, parent string) error
}

// Server is the HTTP API.
type Server struct {
	quests  QuestReader
	handler platform.Handler
	caster  Caster
	seen    *platform.SeenSet
	logger  *zap.Logger
	mux     *chi.Mux
}

// New builds the API server. caster may be nil when Farcaster is disabled;
// webhook mentions are then processed but not answered.
func New(quests QuestReader, handler platform.Handler, caster Caster, logger *zap.Logger) *Server {
	s := &Server{
		quests:  quests,
		handler: handler,
		caster:  caster,
		seen:    platform.NewSeenSet(),
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/quests", s.handleQuests)
	r.Get("/api/stats", s.handleStats)
	r.Post("/webhooks/farcaster", s.handleFarcasterWebhook)

	s.mux = r
	return s
}

// UseSeenSet replaces the webhook dedupe state, letting the Farcaster poller
// and the webhook route share one processed-cast set.
func (s *Server) UseSeenSet(seen *platform.SeenSet) {
	if seen != nil {
		s.seen = seen
	}
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http api listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := s.quests.ListActive(r.Context())
	if err != nil {
		s.logger.Error("quest listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if quests == nil {
		quests = []quest.Quest{}
	}
	writeJSON(w, http.StatusOK, quests)
}

// PlatformStats is the dashboard stats payload.
type PlatformStats struct {
	QuestsDeployed     int `json:"questsDeployed"`
	TotalParticipants  int `json:"totalParticipants"`
	RewardsDistributed int `json:"rewardsDistributed"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	quests, err := s.quests.ListActive(r.Context())
	if err != nil {
		s.logger.Error("stats computation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stats := PlatformStats{QuestsDeployed: len(quests)}
	for _, q := range quests {
		stats.TotalParticipants += q.CompletedCount
		stats.RewardsDistributed += q.CompletedCount
	}
	writeJSON(w, http.StatusOK, stats)
}

// farcasterWebhook is the Neynar cast.created event shape, reduced to the
// fields the bot consumes.
type farcasterWebhook struct {
	Data struct {
		Type string `json:"type"`
		Cast *struct {
			Hash   string `json:"hash"`
			Text   string `json:"text"`
			Author struct {
				FID      int64  `json:"fid"`
				Username string `json:"username"`
			} `json:"author"`
		} `json:"cast"`
	} `json:"data"`
}

func (s *Server) handleFarcasterWebhook(w http.ResponseWriter, r *http.Request) {
	var event farcasterWebhook
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	// Non-cast events are acknowledged and dropped.
	if event.Data.Type != "cast" || event.Data.Cast == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	cast := event.Data.Cast

	// Neynar retries webhooks on slow or failed responses; a retried cast
	// must not reach the router twice.
	if s.seen.MarkSeen(cast.Hash) {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	message := platform.StripMentions(cast.Text)
	if message == "" {
		message = "help"
	}
	senderID := fmt.Sprintf("%d", cast.Author.FID)

	s.logger.Info("farcaster webhook mention",
		zap.String("from", cast.Author.Username),
		zap.String("cast", cast.Hash))

	reply := s.handler(r.Context(), message, senderID, "farcaster", cast.Author.Username)

	if s.caster != nil {
		text := fmt.Sprintf("@%s %s", cast.Author.Username, reply)
		if err := s.caster.PostCast(r.Context(), text, cast.Hash); err != nil {
			s.logger.Error("webhook reply failed",
				zap.String("cast", cast.Hash), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "reply failed")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
