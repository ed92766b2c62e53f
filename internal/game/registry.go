// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package game tracks live team sessions: which teams are in play, how
// many player slots are connected, and the global game-mode flag. The
// registry is the in-memory source of truth consulted before persisted
// storage when resolving team names.
package game

import (
	"sort"
	"sync"

	"github.com/tomtom215/correlatus/internal/models"
)

// PlayerSlots is the fixed team size.
const PlayerSlots = 2

type session struct {
	teamID  string
	name    string
	players map[string]struct{}
	active  bool
}

// Registry holds live session state. All methods are safe for concurrent
// use; readers receive point-in-time snapshots, never live references.
type Registry struct {
	mu       sync.RWMutex
	mode     models.GameMode
	sessions map[string]*session
}

// NewRegistry creates an empty registry starting in the given mode.
func NewRegistry(mode models.GameMode) *Registry {
	if !mode.Valid() {
		mode = models.ModeClassic
	}
	return &Registry{
		mode:     mode,
		sessions: make(map[string]*session),
	}
}

// Mode returns the current game mode.
func (r *Registry) Mode() models.GameMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// SetMode switches the game mode. It reports whether the mode actually
// changed; callers use that to decide whether a global cache clear is due.
func (r *Registry) SetMode(mode models.GameMode) bool {
	if !mode.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == mode {
		return false
	}
	r.mode = mode
	return true
}

// AddTeam registers a live session for a team. Idempotent: re-adding an
// existing team keeps its connected players.
func (r *Registry) AddTeam(teamID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[teamID]; ok {
		return
	}
	r.sessions[teamID] = &session{
		teamID:  teamID,
		name:    name,
		players: make(map[string]struct{}, PlayerSlots),
		active:  true,
	}
}

// RemoveTeam drops a team's live session entirely.
func (r *Registry) RemoveTeam(teamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, teamID)
}

// PlayerJoined records a player connection for the team. It returns the
// team's connected-player count, or -1 if the team has no live session or
// both slots are already taken.
func (r *Registry) PlayerJoined(teamID, playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[teamID]
	if !ok {
		return -1
	}
	if _, present := s.players[playerID]; !present && len(s.players) >= PlayerSlots {
		return -1
	}
	s.players[playerID] = struct{}{}
	return len(s.players)
}

// PlayerLeft records a player disconnect and returns the remaining
// connected count, or -1 if the team has no live session.
func (r *Registry) PlayerLeft(teamID, playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[teamID]
	if !ok {
		return -1
	}
	delete(s.players, playerID)
	return len(s.players)
}

// SetActive flips a team's active flag without touching its connections.
func (r *Registry) SetActive(teamID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[teamID]; ok {
		s.active = active
	}
}

// Lookup resolves a team name to its identifier among live sessions.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.name == name {
			return s.teamID, true
		}
	}
	return "", false
}

// Snapshot returns a point-in-time view of every live session, sorted by
// team name for stable dashboard ordering.
func (r *Registry) Snapshot() []models.TeamSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TeamSnapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, models.TeamSnapshot{
			TeamID:           s.teamID,
			Name:             s.name,
			PlayersConnected: len(s.players),
			Active:           s.active,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveTeams counts live sessions with both player slots filled.
func (r *Registry) ActiveTeams() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int
	for _, s := range r.sessions {
		if s.active && len(s.players) == PlayerSlots {
			n++
		}
	}
	return n
}

// ReadyPlayers counts connected players across all live sessions.
func (r *Registry) ReadyPlayers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int
	for _, s := range r.sessions {
		n += len(s.players)
	}
	return n
}

// StatusOf derives the lifecycle tag for a snapshot: a team with open
// player slots is waiting for its pair; a full, active team is active;
// anything else is inactive.
func StatusOf(snap models.TeamSnapshot) models.TeamStatus {
	switch {
	case snap.PlayersConnected < PlayerSlots && snap.Active:
		return models.StatusWaitingPair
	case snap.PlayersConnected == PlayerSlots && snap.Active:
		return models.StatusActive
	default:
		return models.StatusInactive
	}
}
