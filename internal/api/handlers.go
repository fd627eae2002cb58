package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/earlyshift/earlyshift/internal/detector"
	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

// Response size caps. Queries can ask for less but never more.
const (
	defaultLimit   = 20
	maxLimit       = 100
	defaultHours   = 48
	maxVideosHours = 24 * 7
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMovers computes week-over-week growth for every tracked universe,
// with no threshold applied, and returns the top entries by growth percent.
func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now().UTC()

	// The baseline lookup needs rows older than the window, so load the
	// full retained history rather than just the window itself.
	snaps, err := s.store.SnapshotsSince(r.Context(), time.Time{})
	if err != nil {
		logger.Error("Failed to load snapshots for movers: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load snapshots")
		return
	}
	names, err := s.store.DisplayNames(r.Context())
	if err != nil {
		logger.Error("Failed to load display names for movers: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load display names")
		return
	}

	events, entityErrs := detector.ComputeGrowth(snaps, names, now, s.window)
	if len(entityErrs) > 0 {
		logger.Debug("Movers computation skipped %d universes", len(entityErrs))
	}
	if len(events) > limit {
		events = events[:limit]
	}

	movers := make([]mover, 0, len(events))
	for _, event := range events {
		movers = append(movers, mover{
			GrowthEvent: event,
			State:       s.stateFor(r.Context(), event, now),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"movers":       movers,
		"generated_at": now,
	})
}

// mover is a growth event annotated with the universe's alert-cycle state.
type mover struct {
	models.GrowthEvent
	State models.SpikeState `json:"state"`
}

// stateFor derives the alert-cycle state from the mover's growth figure and
// the most recent ledger entry inside the cooldown window. Ledger read
// failures degrade to a no-recent-spike state rather than failing the request.
func (s *Server) stateFor(ctx context.Context, event models.GrowthEvent, now time.Time) models.SpikeState {
	var lastSpikeAt time.Time
	last, err := s.store.LastSpikeSince(ctx, event.EntityID, now.Add(-s.cooldown))
	switch {
	case err == nil:
		lastSpikeAt = last.DetectedAt
	case !errors.Is(err, storage.ErrNotFound):
		logger.Warn("Failed to read spike ledger for universe %d: %v", event.EntityID, err)
	}
	return detector.DeriveState(event.GrowthPercent, s.threshold, lastSpikeAt, now, s.cooldown)
}

// handleSpikes returns the most recent entries from the spike ledger.
func (s *Server) handleSpikes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	spikes, err := s.store.RecentSpikes(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to load recent spikes: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load spikes")
		return
	}
	if spikes == nil {
		spikes = []*models.SpikeCandidate{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"spikes": spikes})
}

// handleVideos returns the creator videos published inside the requested
// trailing window.
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", defaultHours, maxVideosHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	since := s.now().UTC().Add(-time.Duration(hours) * time.Hour)
	videos, err := s.store.VideosPublishedSince(r.Context(), since)
	if err != nil {
		logger.Error("Failed to load videos: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load videos")
		return
	}
	if videos == nil {
		videos = []*models.VideoRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"videos": videos,
		"since":  since,
	})
}

// queryInt reads a positive integer query parameter, applying a default
// when absent and an upper bound in all cases.
func queryInt(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	if v > max {
		v = max
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
