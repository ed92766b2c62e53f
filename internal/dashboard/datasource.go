// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package dashboard

import (
	"context"

	"github.com/tomtom215/correlatus/internal/models"
)

// DataSource is the persisted-storage collaborator. Implementations must
// return rounds ordered ascending by creation and answers ascending by
// timestamp; the statistical functions depend on that ordering.
type DataSource interface {
	ListRounds(ctx context.Context, teamID string) ([]models.Round, error)
	ListAnswers(ctx context.Context, teamID string) ([]models.Answer, error)
	FindTeamByName(ctx context.Context, name string) (*models.Team, error)
	CountAllAnswers(ctx context.Context) (int64, error)
}

// Registry is the live-session collaborator. Snapshots are taken at call
// time so aggregate building never holds a reference into mutable state.
type Registry interface {
	Snapshot() []models.TeamSnapshot
	ActiveTeams() int
	ReadyPlayers() int
	Mode() models.GameMode
	Lookup(name string) (string, bool)
}

// Transport delivers payloads to dashboard subscribers. SendTo reports
// delivery failure per subscriber so a disconnect mid-publish never aborts
// delivery to the rest.
type Transport interface {
	SubscriberIDs() []string
	SendTo(subscriberID string, message Message) bool
	ClientCount() int
}

// Message mirrors the transport's wire envelope without importing it, so
// the dashboard can be tested against a fake transport.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Message types emitted by the publish paths.
const (
	MessageTypeTeamStatus = "team_status"
	MessageTypeFullUpdate = "full_update"
)
