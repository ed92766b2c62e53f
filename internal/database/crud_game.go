// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/correlatus/internal/metrics"
	"github.com/tomtom215/correlatus/internal/models"
)

// CreateTeam inserts a new team and returns it with its generated ID.
func (db *DB) CreateTeam(ctx context.Context, name string) (*models.Team, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	team := &models.Team{
		ID:        uuid.NewString(),
		Name:      name,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO teams (id, name, active, created_at) VALUES (?, ?, ?, ?)`,
		team.ID, team.Name, team.Active, team.CreatedAt)
	metrics.ObserveDBQuery("insert", "teams", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create team %q: %w", name, err)
	}
	return team, nil
}

// FindTeamByName returns the team with the given name, or nil if none exists.
func (db *DB) FindTeamByName(ctx context.Context, name string) (*models.Team, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM teams WHERE name = ?`, name)

	var team models.Team
	err := row.Scan(&team.ID, &team.Name, &team.Active, &team.CreatedAt)
	metrics.ObserveDBQuery("select", "teams", start, ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up team %q: %w", name, err)
	}
	return &team, nil
}

// GetTeam returns the team with the given ID, or nil if none exists.
func (db *DB) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM teams WHERE id = ?`, teamID)

	var team models.Team
	err := row.Scan(&team.ID, &team.Name, &team.Active, &team.CreatedAt)
	metrics.ObserveDBQuery("select", "teams", start, ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}
	return &team, nil
}

// ListTeams returns all teams ordered by name.
func (db *DB) ListTeams(ctx context.Context) ([]models.Team, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, active, created_at FROM teams ORDER BY name`)
	metrics.ObserveDBQuery("select", "teams", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer closeQuietly(rows)

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// SetTeamActive flips a team's persisted active flag.
func (db *DB) SetTeamActive(ctx context.Context, teamID string, active bool) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE teams SET active = ? WHERE id = ?`, active, teamID)
	metrics.ObserveDBQuery("update", "teams", start, err)
	if err != nil {
		return fmt.Errorf("failed to update team %s: %w", teamID, err)
	}
	return nil
}

// InsertRound creates a round for a team. Item assignments may be nil when
// the round is created before items are drawn.
func (db *DB) InsertRound(ctx context.Context, teamID string, seq int, item1, item2 *models.ItemLabel) (*models.Round, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	round := &models.Round{
		TeamID:      teamID,
		Seq:         seq,
		ItemPlayer1: item1,
		ItemPlayer2: item2,
	}

	start := time.Now()
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO rounds (team_id, seq, item_player1, item_player2)
		 VALUES (?, ?, ?, ?) RETURNING id, created_at`,
		teamID, seq, labelOrNil(item1), labelOrNil(item2)).
		Scan(&round.ID, &round.CreatedAt)
	metrics.ObserveDBQuery("insert", "rounds", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert round for team %s: %w", teamID, err)
	}

	metrics.RoundsCreated.Inc()
	return round, nil
}

// InsertAnswer records one player's response to a round.
func (db *DB) InsertAnswer(ctx context.Context, teamID string, roundID int64, item models.ItemLabel, response bool) (*models.Answer, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	answer := &models.Answer{
		TeamID:   teamID,
		RoundID:  roundID,
		Item:     item,
		Response: response,
	}

	start := time.Now()
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO answers (team_id, round_id, item, response)
		 VALUES (?, ?, ?, ?) RETURNING id, created_at`,
		teamID, roundID, string(item), response).
		Scan(&answer.ID, &answer.CreatedAt)
	metrics.ObserveDBQuery("insert", "answers", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert answer for round %d: %w", roundID, err)
	}

	metrics.AnswersReceived.Inc()
	return answer, nil
}

// ListRounds returns a team's rounds ascending by creation time.
func (db *DB) ListRounds(ctx context.Context, teamID string) ([]models.Round, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, team_id, seq, item_player1, item_player2, created_at
		 FROM rounds WHERE team_id = ? ORDER BY created_at, id`, teamID)
	metrics.ObserveDBQuery("select", "rounds", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds for team %s: %w", teamID, err)
	}
	defer closeQuietly(rows)

	var rounds []models.Round
	for rows.Next() {
		var (
			r      models.Round
			i1, i2 sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TeamID, &r.Seq, &i1, &i2, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		r.ItemPlayer1 = labelFromNull(i1)
		r.ItemPlayer2 = labelFromNull(i2)
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// ListAnswers returns a team's answers ascending by timestamp.
func (db *DB) ListAnswers(ctx context.Context, teamID string) ([]models.Answer, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, team_id, round_id, item, response, created_at
		 FROM answers WHERE team_id = ? ORDER BY created_at, id`, teamID)
	metrics.ObserveDBQuery("select", "answers", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers for team %s: %w", teamID, err)
	}
	defer closeQuietly(rows)

	var answers []models.Answer
	for rows.Next() {
		var (
			a    models.Answer
			item string
		)
		if err := rows.Scan(&a.ID, &a.TeamID, &a.RoundID, &item, &a.Response, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		a.Item = models.ItemLabel(item)
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// CountAnswersForRound returns the number of answers recorded for a round.
func (db *DB) CountAnswersForRound(ctx context.Context, roundID int64) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM answers WHERE round_id = ?`, roundID).Scan(&count)
	metrics.ObserveDBQuery("select", "answers", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count answers for round %d: %w", roundID, err)
	}
	return count, nil
}

// CountAllAnswers returns the global answer count across all teams.
func (db *DB) CountAllAnswers(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&count)
	metrics.ObserveDBQuery("select", "answers", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

func labelOrNil(item *models.ItemLabel) interface{} {
	if item == nil {
		return nil
	}
	return string(*item)
}

func labelFromNull(v sql.NullString) *models.ItemLabel {
	if !v.Valid {
		return nil
	}
	l := models.ItemLabel(v.String)
	return &l
}

// ignoreNoRows keeps sql.ErrNoRows out of the error metrics; a missing row
// is an expected outcome, not a query failure.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
