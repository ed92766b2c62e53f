// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package models

import "time"

// MatrixCell is one cell of a 4x4 pair matrix. For the correlation matrix
// Sum is the signed agreement sum (+1 equal responses, -1 differing); for
// the success matrix Sum is the success count. Count is the number of
// completed rounds observed for the ordered pair.
type MatrixCell struct {
	Sum   int `json:"sum"`
	Count int `json:"count"`
}

// StatValue is a scalar statistic with propagated uncertainty. StdDev is
// nil when the underlying computation had a zero-denominator cell and the
// uncertainty is therefore unknown; it is never Inf or NaN.
type StatValue struct {
	Value  float64  `json:"value"`
	StdDev *float64 `json:"std_dev"`
}

// Names of the scalar statistics reported per team. Both modes report a
// trace/rate statistic, a CHSH statistic, a cross-term and a balance.
const (
	StatTraceAverage = "trace_average"
	StatCHSH         = "chsh"
	StatCrossTerm    = "cross_term"
	StatBalance      = "balance"
	StatSuccessRate  = "success_rate"
)

// PrimaryView identifies which matrix/stat family the dashboard should
// render as primary for the current game mode.
const (
	ViewCorrelation = "correlation"
	ViewSuccess     = "success"
)

// TeamAggregate is the denormalized per-team record pushed to dashboard
// subscribers. It always carries both statistic families so a detail view
// can show both; PrimaryView selects the one driven by the mode flag.
// Aggregates are built atomically from a fresh pull of rounds and answers,
// never partially updated.
type TeamAggregate struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`

	// HashA and HashB are two independent content hashes of the team's
	// full round/answer history, used as a cheap consistency fingerprint
	// between observers.
	HashA string `json:"hash_a"`
	HashB string `json:"hash_b"`

	Labels            [4]ItemLabel         `json:"labels"`
	CorrelationMatrix [4][4]MatrixCell     `json:"correlation_matrix"`
	SuccessMatrix     [4][4]MatrixCell     `json:"success_matrix"`
	ClassicStats      map[string]StatValue `json:"classic_stats"`
	SuccessStats      map[string]StatValue `json:"success_stats"`

	Mode        GameMode `json:"mode"`
	PrimaryView string   `json:"primary_view"`

	// MinStatsSig reports whether every valid item-pair combination for
	// the current mode has reached the configured repeat threshold.
	MinStatsSig bool `json:"min_stats_sig"`

	Status           TeamStatus `json:"status"`
	PlayersConnected int        `json:"players_connected"`
}

// TeamStatusPayload is the payload of the short-window team-status publish.
type TeamStatusPayload struct {
	Teams         []TeamAggregate `json:"teams,omitempty"`
	ObserverCount int             `json:"observer_count"`
	ActiveTeams   int             `json:"active_teams"`
	ReadyPlayers  int             `json:"ready_players"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// ContainsTeam reports whether the payload carries an aggregate for the
// given team identifier. Used by selective invalidation to decide whether
// a cached payload must be dropped.
func (p *TeamStatusPayload) ContainsTeam(teamID string) bool {
	if p == nil {
		return false
	}
	for i := range p.Teams {
		if p.Teams[i].TeamID == teamID {
			return true
		}
	}
	return false
}

// FullUpdatePayload is the payload of the long-window full publish. It
// extends the team-status payload with the expensive global answer count.
type FullUpdatePayload struct {
	TeamStatusPayload
	TotalAnswers int64 `json:"total_answers"`
}
