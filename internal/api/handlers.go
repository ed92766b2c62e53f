// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/correlatus/internal/dashboard"
	"github.com/tomtom215/correlatus/internal/game"
	"github.com/tomtom215/correlatus/internal/logging"
	"github.com/tomtom215/correlatus/internal/models"
	ws "github.com/tomtom215/correlatus/internal/websocket"
)

// Store is the persistence surface the handlers need. *database.DB
// satisfies it; tests substitute a fake.
type Store interface {
	CreateTeam(ctx context.Context, name string) (*models.Team, error)
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	FindTeamByName(ctx context.Context, name string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	SetTeamActive(ctx context.Context, teamID string, active bool) error
	InsertRound(ctx context.Context, teamID string, seq int, item1, item2 *models.ItemLabel) (*models.Round, error)
	InsertAnswer(ctx context.Context, teamID string, roundID int64, item models.ItemLabel, response bool) (*models.Answer, error)
	CountAnswersForRound(ctx context.Context, roundID int64) (int, error)
	ExportTeamHistoryCSV(ctx context.Context, w io.Writer, teamID string) error
}

// Handler holds the collaborators behind the HTTP surface.
type Handler struct {
	store     Store
	registry  *game.Registry
	dashboard *dashboard.Service
	hub       *ws.Hub
	upgrader  websocket.Upgrader
}

// NewHandler builds the handler set. allowedOrigins gates the WebSocket
// upgrade the same way CORS gates the REST endpoints.
func NewHandler(store Store, registry *game.Registry, svc *dashboard.Service, hub *ws.Hub, allowedOrigins []string) *Handler {
	h := &Handler{
		store:     store,
		registry:  registry,
		dashboard: svc,
		hub:       hub,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Health reports service liveness plus dashboard cache occupancy and the
// connected observer count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":    "ok",
		"mode":      h.registry.Mode(),
		"observers": h.hub.ClientCount(),
		"caches":    h.dashboard.CacheSizes(),
	})
}

type createTeamRequest struct {
	Name string `json:"name"`
}

// CreateTeam persists a new team and registers its live session.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 64 {
		rw.BadRequest("team name must be 1-64 characters")
		return
	}

	existing, err := h.store.FindTeamByName(r.Context(), req.Name)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to check team name")
		return
	}
	if existing != nil {
		rw.Conflict(fmt.Sprintf("team %q already exists", req.Name))
		return
	}

	team, err := h.store.CreateTeam(r.Context(), req.Name)
	if err != nil {
		logging.Error().Err(err).Str("name", req.Name).Msg("team creation failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to create team")
		return
	}

	h.registry.AddTeam(team.ID, team.Name)
	h.dashboard.PublishTeamStatus(true)
	rw.Created(team)
}

// ListTeams returns all persisted teams sorted by name.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	teams, err := h.store.ListTeams(r.Context())
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to list teams")
		return
	}
	rw.Success(teams)
}

// GetTeam returns one team by ID.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	team, err := h.store.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to load team")
		return
	}
	if team == nil {
		rw.NotFound("team not found")
		return
	}
	rw.Success(team)
}

// GetTeamAggregate returns the memoized statistics aggregate for one team.
// The path parameter may be a team ID or a team name; live sessions win
// over persisted storage when resolving names.
func (h *Handler) GetTeamAggregate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	param := chi.URLParam(r, "teamID")

	teamID := param
	team, err := h.store.GetTeam(r.Context(), param)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to load team")
		return
	}
	if team == nil {
		resolved, ok := h.dashboard.ResolveTeamID(r.Context(), param)
		if !ok {
			rw.NotFound("team not found")
			return
		}
		teamID = resolved
	}

	rw.Success(h.dashboard.TeamAggregate(teamID))
}

// ExportTeamHistory streams the team's round/answer history as CSV.
func (h *Handler) ExportTeamHistory(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		NewResponseWriter(w, r).Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to load team")
		return
	}
	if team == nil {
		NewResponseWriter(w, r).NotFound("team not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", team.Name+"-history.csv"))
	if err := h.store.ExportTeamHistoryCSV(r.Context(), w, teamID); err != nil {
		// Headers are already sent; all we can do is log.
		logging.Error().Err(err).Str("team_id", teamID).Msg("history export failed")
	}
}

type joinRequest struct {
	PlayerID string `json:"player_id"`
}

// JoinTeam connects a player to a team's live session. Teams loaded from
// storage are registered on first join.
func (h *Handler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	teamID := chi.URLParam(r, "teamID")

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		rw.BadRequest("player_id is required")
		return
	}

	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to load team")
		return
	}
	if team == nil {
		rw.NotFound("team not found")
		return
	}
	h.registry.AddTeam(team.ID, team.Name)

	count := h.registry.PlayerJoined(teamID, req.PlayerID)
	if count < 0 {
		rw.Conflict("team already has two players")
		return
	}

	h.dashboard.PublishTeamStatus(true)
	rw.Success(map[string]interface{}{
		"team_id":           teamID,
		"players_connected": count,
	})
}

// LeaveTeam disconnects a player from a team's live session.
func (h *Handler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	teamID := chi.URLParam(r, "teamID")

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		rw.BadRequest("player_id is required")
		return
	}

	count := h.registry.PlayerLeft(teamID, req.PlayerID)
	h.dashboard.PublishTeamStatus(true)
	rw.Success(map[string]interface{}{
		"team_id":           teamID,
		"players_connected": count,
	})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetTeamActive toggles a team's active flag in storage and the live
// registry. Deactivated teams keep their history but stop counting toward
// the active-teams counter.
func (h *Handler) SetTeamActive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	teamID := chi.URLParam(r, "teamID")

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		rw.BadRequest("active is required")
		return
	}

	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to load team")
		return
	}
	if team == nil {
		rw.NotFound("team not found")
		return
	}

	if err := h.store.SetTeamActive(r.Context(), teamID, *req.Active); err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to update team")
		return
	}
	h.registry.SetActive(teamID, *req.Active)

	h.dashboard.PublishTeamStatus(true)
	rw.Success(map[string]interface{}{"team_id": teamID, "active": *req.Active})
}

type createRoundRequest struct {
	Seq         int     `json:"seq"`
	ItemPlayer1 *string `json:"item_player1"`
	ItemPlayer2 *string `json:"item_player2"`
}

// CreateRound records a new posed round. Item assignments are optional and
// validated against the four known labels when present.
func (h *Handler) CreateRound(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	teamID := chi.URLParam(r, "teamID")

	var req createRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	item1, ok := parseOptionalItem(req.ItemPlayer1)
	if !ok {
		rw.BadRequest("item_player1 must be one of A, B, X, Y")
		return
	}
	item2, ok := parseOptionalItem(req.ItemPlayer2)
	if !ok {
		rw.BadRequest("item_player2 must be one of A, B, X, Y")
		return
	}

	round, err := h.store.InsertRound(r.Context(), teamID, req.Seq, item1, item2)
	if err != nil {
		logging.Error().Err(err).Str("team_id", teamID).Msg("round insert failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to create round")
		return
	}

	h.dashboard.InvalidateTeam(teamID)
	h.hub.QueueBroadcast(ws.MessageTypeRoundCreated, map[string]interface{}{
		"team_id":  teamID,
		"round_id": round.ID,
		"seq":      round.Seq,
	})
	h.dashboard.PublishTeamStatus(false)
	rw.Created(round)
}

type submitAnswerRequest struct {
	RoundID  int64  `json:"round_id"`
	Item     string `json:"item"`
	Response bool   `json:"response"`
}

// SubmitAnswer records one player's response, invalidates the team's cached
// statistics and triggers both publish paths.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	teamID := chi.URLParam(r, "teamID")

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if req.RoundID <= 0 {
		rw.BadRequest("round_id is required")
		return
	}
	item := models.ItemLabel(req.Item)
	if models.ItemIndex(item) < 0 {
		rw.BadRequest("item must be one of A, B, X, Y")
		return
	}

	existing, err := h.store.CountAnswersForRound(r.Context(), req.RoundID)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to check round")
		return
	}
	if existing >= 2 {
		rw.Conflict("round already has two answers")
		return
	}

	answer, err := h.store.InsertAnswer(r.Context(), teamID, req.RoundID, item, req.Response)
	if err != nil {
		logging.Error().Err(err).Str("team_id", teamID).Int64("round_id", req.RoundID).Msg("answer insert failed")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "failed to record answer")
		return
	}

	h.dashboard.InvalidateTeam(teamID)
	h.hub.QueueBroadcast(ws.MessageTypeAnswerRecorded, map[string]interface{}{
		"team_id":  teamID,
		"round_id": req.RoundID,
		"complete": existing+1 == 2,
	})
	h.dashboard.PublishTeamStatus(false)
	h.dashboard.PublishFull("", "")
	rw.Created(answer)
}

// GetMode reports the current game mode.
func (h *Handler) GetMode(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{"mode": h.registry.Mode()})
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

// SetMode switches the game mode. A mode change cannot be attributed to any
// one team, so it clears every dashboard cache and forces fresh publishes.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	mode := models.GameMode(req.Mode)
	if !mode.Valid() {
		rw.BadRequest("mode must be classic or new")
		return
	}

	changed := h.registry.SetMode(mode)
	if changed {
		h.dashboard.ClearAllCaches()
		h.hub.QueueBroadcast(ws.MessageTypeModeChanged, map[string]interface{}{"mode": mode})
		h.dashboard.PublishTeamStatus(true)
		h.dashboard.PublishFull("", "")
	}
	rw.Success(map[string]interface{}{"mode": mode, "changed": changed})
}

// ServeWebSocket upgrades the connection and registers the client with the
// hub. The hub's OnConnect callback pushes the newcomer an immediate
// targeted full update once registration has been processed.
func (h *Handler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

func parseOptionalItem(s *string) (*models.ItemLabel, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	item := models.ItemLabel(*s)
	if models.ItemIndex(item) < 0 {
		return nil, false
	}
	return &item, true
}
