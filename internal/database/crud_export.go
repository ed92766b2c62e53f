// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package database

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportTeamHistoryCSV streams a team's joined round/answer history as CSV.
// One row per answer, ordered by round creation then answer timestamp, so
// the export reads as the team's chronological play history.
func (db *DB) ExportTeamHistoryCSV(ctx context.Context, w io.Writer, teamID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT r.id, r.seq, r.item_player1, r.item_player2,
		        a.id, a.item, a.response, a.created_at
		 FROM rounds r
		 JOIN answers a ON a.round_id = r.id
		 WHERE r.team_id = ?
		 ORDER BY r.created_at, r.id, a.created_at, a.id`, teamID)
	if err != nil {
		return fmt.Errorf("failed to query history for team %s: %w", teamID, err)
	}
	defer closeQuietly(rows)

	cw := csv.NewWriter(w)
	header := []string{"round_id", "seq", "item_player1", "item_player2", "answer_id", "item", "response", "answered_at"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for rows.Next() {
		var (
			roundID, answerID int64
			seq               int
			i1, i2            *string
			item              string
			response          bool
			answeredAt        time.Time
		)
		if err := rows.Scan(&roundID, &seq, &i1, &i2, &answerID, &item, &response, &answeredAt); err != nil {
			return fmt.Errorf("failed to scan history row: %w", err)
		}

		record := []string{
			strconv.FormatInt(roundID, 10),
			strconv.Itoa(seq),
			derefOrEmpty(i1),
			derefOrEmpty(i2),
			strconv.FormatInt(answerID, 10),
			item,
			strconv.FormatBool(response),
			answeredAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("history export interrupted: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
