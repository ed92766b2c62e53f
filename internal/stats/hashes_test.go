// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import (
	"testing"

	"github.com/tomtom215/correlatus/internal/models"
)

func TestHistoryDigests_DeterministicAndDistinct(t *testing.T) {
	var b historyBuilder
	b.addRound(models.ItemA, models.ItemX, true, false)
	b.addRound(models.ItemB, models.ItemY, false, false)

	a1, b1 := HistoryDigests(b.rounds, b.answers)
	a2, b2 := HistoryDigests(b.rounds, b.answers)

	if a1 != a2 || b1 != b2 {
		t.Errorf("Expected deterministic digests, got (%s,%s) then (%s,%s)", a1, b1, a2, b2)
	}
	if len(a1) != 8 || len(b1) != 8 {
		t.Errorf("Expected 8-char digests, got %q and %q", a1, b1)
	}
	if a1 == b1 {
		t.Error("Expected the two digest algorithms to produce different prefixes")
	}
}

func TestHistoryDigests_ChangeWithHistory(t *testing.T) {
	var b historyBuilder
	b.addRound(models.ItemA, models.ItemX, true, true)
	a1, _ := HistoryDigests(b.rounds, b.answers)

	b.addRound(models.ItemB, models.ItemY, true, false)
	a2, _ := HistoryDigests(b.rounds, b.answers)

	if a1 == a2 {
		t.Error("Expected digest to change when history grows")
	}
}

func TestHistoryDigests_NilItemsAsNone(t *testing.T) {
	itemA := models.ItemA
	withNil := []models.Round{{ID: 1, TeamID: "T", ItemPlayer1: &itemA, ItemPlayer2: nil}}
	withBoth := []models.Round{{ID: 1, TeamID: "T", ItemPlayer1: &itemA, ItemPlayer2: &itemA}}

	a1, _ := HistoryDigests(withNil, nil)
	a2, _ := HistoryDigests(withBoth, nil)
	if a1 == a2 {
		t.Error("Expected a missing item assignment to hash differently from an assigned item")
	}
}
