// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package dashboard implements the caching and throttling layer between
// game-state mutations and the live dashboard: memoized statistical
// recomputation per team, selective invalidation at token boundaries, and
// two independently throttled publish paths.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/correlatus/internal/cache"
	"github.com/tomtom215/correlatus/internal/logging"
	"github.com/tomtom215/correlatus/internal/metrics"
	"github.com/tomtom215/correlatus/internal/models"
	"github.com/tomtom215/correlatus/internal/stats"
)

// Config holds the dashboard tunables. Zero values are replaced with the
// defaults below in NewService.
type Config struct {
	// TeamStatusWindow throttles the short team-status publish.
	TeamStatusWindow time.Duration

	// FullUpdateWindow throttles the long full publish.
	FullUpdateWindow time.Duration

	// CacheSize bounds each memoized function's LRU cache.
	CacheSize int

	// MinStatsSig is the per-pair repeat count below which a team's
	// statistics are flagged as not yet significant.
	MinStatsSig int
}

const (
	defaultTeamStatusWindow = 750 * time.Millisecond
	defaultFullUpdateWindow = 2 * time.Second
	defaultCacheSize        = 256
	defaultMinStatsSig      = 5
)

func (c Config) withDefaults() Config {
	if c.TeamStatusWindow <= 0 {
		c.TeamStatusWindow = defaultTeamStatusWindow
	}
	if c.FullUpdateWindow <= 0 {
		c.FullUpdateWindow = defaultFullUpdateWindow
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.MinStatsSig <= 0 {
		c.MinStatsSig = defaultMinStatsSig
	}
	return c
}

type hashPair struct {
	A string
	B string
}

type teamHistory struct {
	rounds  []models.Round
	answers []models.Answer
}

// Service owns the memoized recompute functions, the two throttle windows
// and the per-subscriber streaming preferences.
//
// The single mu guards only bookkeeping: throttle timestamps, cached
// payloads and the preference map. The expensive work (data-source pulls,
// statistical recomputation, transport sends) always runs outside it so a
// slow rebuild never blocks unrelated cache reads.
type Service struct {
	source    DataSource
	registry  Registry
	transport Transport
	cfg       Config

	breaker *gobreaker.CircuitBreaker[teamHistory]
	now     func() time.Time

	hashes      *cache.Memo[hashPair]
	correlation *cache.Memo[stats.CorrelationResult]
	success     *cache.Memo[stats.SuccessResult]
	aggregate   *cache.Memo[models.TeamAggregate]

	mu           sync.Mutex
	teamLast     time.Time
	teamPayload  *models.TeamStatusPayload
	fullLast     time.Time
	fullPayload  *models.FullUpdatePayload
	streamingOff map[string]bool
}

// NewService wires the dashboard layer to its collaborators.
func NewService(source DataSource, registry Registry, transport Transport, cfg Config) *Service {
	s := &Service{
		source:    source,
		registry:  registry,
		transport: transport,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		breaker: gobreaker.NewCircuitBreaker[teamHistory](gobreaker.Settings{
			Name:    "dashboard-datasource",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		streamingOff: make(map[string]bool),
	}

	s.hashes = cache.NewMemo("team_hashes", s.cfg.CacheSize, func(args ...any) hashPair {
		defer metrics.ObserveRecompute("team_hashes", s.now())
		h := s.pullHistory(args[0].(string))
		a, b := stats.HistoryDigests(h.rounds, h.answers)
		return hashPair{A: a, B: b}
	})
	s.correlation = cache.NewMemo("correlation", s.cfg.CacheSize, func(args ...any) stats.CorrelationResult {
		defer metrics.ObserveRecompute("correlation", s.now())
		h := s.pullHistory(args[0].(string))
		return stats.ComputeCorrelation(h.rounds, h.answers)
	})
	s.success = cache.NewMemo("success", s.cfg.CacheSize, func(args ...any) stats.SuccessResult {
		defer metrics.ObserveRecompute("success", s.now())
		h := s.pullHistory(args[0].(string))
		return stats.ComputeSuccess(h.rounds, h.answers)
	})
	s.aggregate = cache.NewMemo("aggregate", s.cfg.CacheSize, func(args ...any) models.TeamAggregate {
		defer metrics.ObserveRecompute("aggregate", s.now())
		return s.buildAggregate(args[0].(string), models.GameMode(args[1].(string)))
	})
	return s
}

// pullHistory fetches a team's full ordered history. Data-source failures
// degrade to an empty history rather than propagating: the statistical
// functions then produce their neutral zeroed results.
func (s *Service) pullHistory(teamID string) teamHistory {
	h, err := s.breaker.Execute(func() (teamHistory, error) {
		ctx := context.Background()
		rounds, err := s.source.ListRounds(ctx, teamID)
		if err != nil {
			return teamHistory{}, err
		}
		answers, err := s.source.ListAnswers(ctx, teamID)
		if err != nil {
			return teamHistory{}, err
		}
		return teamHistory{rounds: rounds, answers: answers}, nil
	})
	if err != nil {
		logging.Warn().Err(err).Str("team_id", teamID).Msg("history pull failed, serving neutral statistics")
		return teamHistory{}
	}
	return h
}

// ResolveTeamID resolves a team name, checking live sessions before
// persisted storage.
func (s *Service) ResolveTeamID(ctx context.Context, name string) (string, bool) {
	if id, ok := s.registry.Lookup(name); ok {
		return id, true
	}
	team, err := s.source.FindTeamByName(ctx, name)
	if err != nil || team == nil {
		return "", false
	}
	return team.ID, true
}

// SetStreamingPreference gates whether a subscriber receives the full team
// list or only the cheap counters on each publish.
func (s *Service) SetStreamingPreference(subscriberID string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		delete(s.streamingOff, subscriberID)
	} else {
		s.streamingOff[subscriberID] = true
	}
}

// RemoveSubscriber drops a disconnected subscriber's preference state.
func (s *Service) RemoveSubscriber(subscriberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streamingOff, subscriberID)
}

// PublishTeamStatus rebuilds the per-team aggregates and pushes them to
// every subscriber, throttled by the short window. force bypasses the
// window entirely. The connected-observer count is refreshed on every
// call, throttled or not, because it is cheap and its staleness is
// user-visible.
func (s *Service) PublishTeamStatus(force bool) {
	if s.transport.ClientCount() == 0 {
		metrics.PublishTotal.WithLabelValues("team_status", "skipped").Inc()
		return
	}

	s.mu.Lock()
	now := s.now()
	if !force && s.teamPayload != nil && now.Sub(s.teamLast) < s.cfg.TeamStatusWindow {
		payload := *s.teamPayload
		s.mu.Unlock()

		payload.ObserverCount = s.transport.ClientCount()
		s.deliverTeamStatus(payload)
		metrics.PublishTotal.WithLabelValues("team_status", "throttled").Inc()
		return
	}
	s.mu.Unlock()

	payload := s.buildTeamStatusPayload()

	s.mu.Lock()
	cached := payload
	s.teamPayload = &cached
	s.teamLast = s.now()
	s.mu.Unlock()

	s.deliverTeamStatus(payload)
	metrics.PublishTotal.WithLabelValues("team_status", "fresh").Inc()
}

// PublishFull rebuilds the aggregates plus the expensive global answer
// count, throttled by the long window. A non-empty target delivers to that
// one subscriber; otherwise the payload is broadcast to everyone except
// the optional exclude.
func (s *Service) PublishFull(target, exclude string) {
	if s.transport.ClientCount() == 0 {
		metrics.PublishTotal.WithLabelValues("full", "skipped").Inc()
		return
	}

	s.mu.Lock()
	now := s.now()
	if s.fullPayload != nil && now.Sub(s.fullLast) < s.cfg.FullUpdateWindow {
		payload := *s.fullPayload
		s.mu.Unlock()

		payload.ObserverCount = s.transport.ClientCount()
		s.deliverFull(payload, target, exclude)
		metrics.PublishTotal.WithLabelValues("full", "throttled").Inc()
		return
	}
	s.mu.Unlock()

	payload := models.FullUpdatePayload{TeamStatusPayload: s.buildTeamStatusPayload()}
	if total, err := s.source.CountAllAnswers(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("global answer count failed, reporting zero")
	} else {
		payload.TotalAnswers = total
	}

	s.mu.Lock()
	cached := payload
	s.fullPayload = &cached
	s.fullLast = s.now()
	s.mu.Unlock()

	s.deliverFull(payload, target, exclude)
	metrics.PublishTotal.WithLabelValues("full", "fresh").Inc()
}

// buildTeamStatusPayload assembles aggregates for every live team. Runs
// entirely outside the bookkeeping lock.
func (s *Service) buildTeamStatusPayload() models.TeamStatusPayload {
	snaps := s.registry.Snapshot()
	mode := s.registry.Mode()

	teams := make([]models.TeamAggregate, 0, len(snaps))
	for _, snap := range snaps {
		agg := s.aggregate.Call(snap.TeamID, string(mode))
		overlayLiveState(&agg, snap)
		teams = append(teams, agg)
	}

	return models.TeamStatusPayload{
		Teams:         teams,
		ObserverCount: s.transport.ClientCount(),
		ActiveTeams:   s.registry.ActiveTeams(),
		ReadyPlayers:  s.registry.ReadyPlayers(),
		GeneratedAt:   s.now().UTC(),
	}
}

// deliverTeamStatus pushes the payload to every subscriber, honoring the
// per-subscriber streaming preference: opted-out subscribers receive the
// counters without the team list.
func (s *Service) deliverTeamStatus(payload models.TeamStatusPayload) {
	counters := payload
	counters.Teams = nil

	for _, id := range s.transport.SubscriberIDs() {
		s.mu.Lock()
		off := s.streamingOff[id]
		s.mu.Unlock()

		p := payload
		if off {
			p = counters
		}
		if !s.transport.SendTo(id, Message{Type: MessageTypeTeamStatus, Data: p}) {
			logging.Debug().Str("subscriber_id", id).Msg("team status push failed")
		}
	}
}

func (s *Service) deliverFull(payload models.FullUpdatePayload, target, exclude string) {
	msg := Message{Type: MessageTypeFullUpdate, Data: payload}
	if target != "" {
		if !s.transport.SendTo(target, msg) {
			logging.Debug().Str("subscriber_id", target).Msg("full update push failed")
		}
		return
	}
	for _, id := range s.transport.SubscriberIDs() {
		if id == exclude {
			continue
		}
		if !s.transport.SendTo(id, msg) {
			logging.Debug().Str("subscriber_id", id).Msg("full update push failed")
		}
	}
}

// TeamAggregate returns the memoized aggregate for one team under the
// current game mode, overlaid with live session state when the team has a
// live session. Serves the on-demand detail endpoint; shares the cache
// with the publish paths.
func (s *Service) TeamAggregate(teamID string) models.TeamAggregate {
	agg := s.aggregate.Call(teamID, string(s.registry.Mode()))
	for _, snap := range s.registry.Snapshot() {
		if snap.TeamID == teamID {
			overlayLiveState(&agg, snap)
			break
		}
	}
	return agg
}

// InvalidateTeam drops every cached statistic for one team and, when a
// cached publish payload actually contains that team, drops the payload so
// the next publish recomputes. Payloads for unrelated teams survive.
func (s *Service) InvalidateTeam(teamID string) {
	removed := s.hashes.InvalidateTeam(teamID)
	removed += s.correlation.InvalidateTeam(teamID)
	removed += s.success.InvalidateTeam(teamID)
	removed += s.aggregate.InvalidateTeam(teamID)

	s.mu.Lock()
	if s.teamPayload.ContainsTeam(teamID) {
		s.teamPayload = nil
	}
	if s.fullPayload != nil && s.fullPayload.ContainsTeam(teamID) {
		s.fullPayload = nil
	}
	s.mu.Unlock()

	logging.Debug().Str("team_id", teamID).Int("entries_removed", removed).Msg("team caches invalidated")
}

// ClearAllCaches empties every memoized function and forces both throttle
// windows stale, guaranteeing the next publish recomputes from scratch.
// Used after mutations too broad to attribute to one team, such as a
// game-mode toggle.
func (s *Service) ClearAllCaches() {
	s.hashes.Clear()
	s.correlation.Clear()
	s.success.Clear()
	s.aggregate.Clear()

	s.mu.Lock()
	s.teamLast = time.Time{}
	s.teamPayload = nil
	s.fullLast = time.Time{}
	s.fullPayload = nil
	s.mu.Unlock()

	logging.Debug().Msg("all dashboard caches cleared")
}

// CacheSizes reports the current entry count of every memoized function,
// keyed by function name. Exposed for the health endpoint.
func (s *Service) CacheSizes() map[string]int {
	return map[string]int{
		"team_hashes": s.hashes.Len(),
		"correlation": s.correlation.Len(),
		"success":     s.success.Len(),
		"aggregate":   s.aggregate.Len(),
	}
}
