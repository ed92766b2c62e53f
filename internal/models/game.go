// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package models defines the shared domain types for Correlatus: teams,
// rounds, answers, and the denormalized per-team aggregate pushed to
// dashboard subscribers.
package models

import "time"

// ItemLabel is one of the four fixed question variants assignable to a player.
type ItemLabel string

// The four item labels. A and B are "color" items, X and Y are "shape" items;
// the CHSH statistics treat {A,B}x{X,Y} as the cross-category pairs.
const (
	ItemA ItemLabel = "A"
	ItemB ItemLabel = "B"
	ItemX ItemLabel = "X"
	ItemY ItemLabel = "Y"
)

// AllItems is the canonical label ordering used for matrix axes.
var AllItems = [4]ItemLabel{ItemA, ItemB, ItemX, ItemY}

// ItemIndex returns the matrix axis index for a label, or -1 if the label
// is not one of the four known items.
func ItemIndex(item ItemLabel) int {
	for i, l := range AllItems {
		if l == item {
			return i
		}
	}
	return -1
}

// Team is a persisted two-player team.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Round is one posed pair of item assignments to the two players of a team.
// Item assignments are nullable: a round may be created before items are
// drawn. A round is complete once exactly two answers reference it.
type Round struct {
	ID          int64      `json:"id"`
	TeamID      string     `json:"team_id"`
	Seq         int        `json:"seq"`
	ItemPlayer1 *ItemLabel `json:"item_player1"`
	ItemPlayer2 *ItemLabel `json:"item_player2"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Answer is one player's response to one round. Answers are not tagged with
// a player slot; the pairing rule in the stats package attributes them.
type Answer struct {
	ID        int64     `json:"id"`
	TeamID    string    `json:"team_id"`
	RoundID   int64     `json:"round_id"`
	Item      ItemLabel `json:"item"`
	Response  bool      `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// GameMode selects which statistics family the dashboard surfaces as primary.
type GameMode string

const (
	// ModeClassic surfaces the correlation matrix and physics-style
	// (CHSH) statistics.
	ModeClassic GameMode = "classic"

	// ModeNew surfaces the success matrix and simplified win-rate
	// statistics.
	ModeNew GameMode = "new"
)

// Valid reports whether m is a recognized game mode.
func (m GameMode) Valid() bool {
	return m == ModeClassic || m == ModeNew
}

// TeamStatus is the lifecycle tag attached to a team aggregate.
type TeamStatus string

const (
	StatusWaitingPair TeamStatus = "waiting_pair"
	StatusActive      TeamStatus = "active"
	StatusInactive    TeamStatus = "inactive"
)

// TeamSnapshot is a read-only view of a live team session, taken at call
// time. The dashboard consumes snapshots instead of reaching into the live
// registry so that aggregate building has no hidden mutable dependency.
type TeamSnapshot struct {
	TeamID           string `json:"team_id"`
	Name             string `json:"name"`
	PlayersConnected int    `json:"players_connected"`
	Active           bool   `json:"active"`
}
