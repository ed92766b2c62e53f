// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/correlatus/internal/models"
)

// historyBuilder accumulates completed rounds for test fixtures.
type historyBuilder struct {
	nextID  int64
	rounds  []models.Round
	answers []models.Answer
}

func (b *historyBuilder) addRound(i1, i2 models.ItemLabel, r1, r2 bool) {
	b.nextID++
	id := b.nextID
	b.rounds = append(b.rounds, models.Round{
		ID:          id,
		TeamID:      "T",
		Seq:         int(id),
		ItemPlayer1: &i1,
		ItemPlayer2: &i2,
		CreatedAt:   time.Unix(id, 0),
	})
	b.answers = append(b.answers,
		models.Answer{ID: 2*id - 1, TeamID: "T", RoundID: id, Item: i1, Response: r1},
		models.Answer{ID: 2 * id, TeamID: "T", RoundID: id, Item: i2, Response: r2},
	)
}

func TestComputeCorrelation_EndToEndScenario(t *testing.T) {
	var b historyBuilder
	b.addRound(models.ItemA, models.ItemX, true, true)
	b.addRound(models.ItemA, models.ItemY, true, false)
	b.addRound(models.ItemB, models.ItemX, true, true)
	b.addRound(models.ItemB, models.ItemY, true, true)

	res := ComputeCorrelation(b.rounds, b.answers)

	expect := map[[2]models.ItemLabel]models.MatrixCell{
		{models.ItemA, models.ItemX}: {Sum: 1, Count: 1},
		{models.ItemA, models.ItemY}: {Sum: -1, Count: 1},
		{models.ItemB, models.ItemX}: {Sum: 1, Count: 1},
		{models.ItemB, models.ItemY}: {Sum: 1, Count: 1},
	}
	for pair, want := range expect {
		got := res.Matrix[models.ItemIndex(pair[0])][models.ItemIndex(pair[1])]
		if got != want {
			t.Errorf("Cell (%s,%s) = %+v, want %+v", pair[0], pair[1], got, want)
		}
	}

	// No same-item rounds, so the balance tallies stay empty.
	if len(res.ResponsesByItem) != 0 {
		t.Errorf("Expected no same-item tallies, got %v", res.ResponsesByItem)
	}
	if res.AvgBalance != 0 {
		t.Errorf("Expected avg balance 0, got %v", res.AvgBalance)
	}

	stats := ClassicScalars(res)
	chsh := stats[models.StatCHSH]
	if chsh.Value != 0 {
		t.Errorf("Expected CHSH 0, got %v", chsh.Value)
	}
	// The reverse-direction cells have no observations, so the
	// uncertainty is unknown.
	if chsh.StdDev != nil {
		t.Errorf("Expected unknown CHSH uncertainty, got %v", *chsh.StdDev)
	}
}

func TestComputeCorrelation_LabelSwapSymmetry(t *testing.T) {
	var fwd, rev historyBuilder
	fwd.addRound(models.ItemA, models.ItemB, true, true)
	rev.addRound(models.ItemB, models.ItemA, true, true)

	resFwd := ComputeCorrelation(fwd.rounds, fwd.answers)
	resRev := ComputeCorrelation(rev.rounds, rev.answers)

	ia, ib := models.ItemIndex(models.ItemA), models.ItemIndex(models.ItemB)
	if resFwd.Matrix[ia][ib] != resRev.Matrix[ib][ia] {
		t.Errorf("Expected swapped input to populate swapped cell identically: (A,B)=%+v (B,A)=%+v",
			resFwd.Matrix[ia][ib], resRev.Matrix[ib][ia])
	}
	if resFwd.Matrix[ib][ia].Count != 0 {
		t.Errorf("Expected (B,A) empty in forward input, got %+v", resFwd.Matrix[ib][ia])
	}
}

func TestComputeCorrelation_SameItemBalance(t *testing.T) {
	var b historyBuilder
	// Three same-item A rounds: 4 true, 2 false out of 6 responses.
	b.addRound(models.ItemA, models.ItemA, true, true)
	b.addRound(models.ItemA, models.ItemA, true, false)
	b.addRound(models.ItemA, models.ItemA, true, false)

	res := ComputeCorrelation(b.rounds, b.answers)

	tally := res.ResponsesByItem[models.ItemA]
	if tally.True != 4 || tally.False != 2 {
		t.Errorf("Expected 4 true / 2 false, got %+v", tally)
	}

	// balance = 1 - |4-2|/6 = 2/3
	want := 1 - 2.0/6.0
	if math.Abs(res.BalanceByItem[models.ItemA]-want) > 1e-12 {
		t.Errorf("Expected balance %v, got %v", want, res.BalanceByItem[models.ItemA])
	}
	if math.Abs(res.AvgBalance-want) > 1e-12 {
		t.Errorf("Expected avg balance %v, got %v", want, res.AvgBalance)
	}
}

func TestComputeCorrelation_SkipsIncompleteAndCorruptRounds(t *testing.T) {
	var b historyBuilder
	b.addRound(models.ItemA, models.ItemX, true, true)

	// Incomplete round: only one answer.
	itemB := models.ItemB
	itemY := models.ItemY
	b.rounds = append(b.rounds, models.Round{ID: 100, TeamID: "T", ItemPlayer1: &itemB, ItemPlayer2: &itemY})
	b.answers = append(b.answers, models.Answer{ID: 200, TeamID: "T", RoundID: 100, Item: itemB, Response: true})

	// Corrupt round: answers reference items the round never assigned.
	b.rounds = append(b.rounds, models.Round{ID: 101, TeamID: "T", ItemPlayer1: &itemB, ItemPlayer2: &itemY})
	b.answers = append(b.answers,
		models.Answer{ID: 201, TeamID: "T", RoundID: 101, Item: models.ItemA, Response: true},
		models.Answer{ID: 202, TeamID: "T", RoundID: 101, Item: models.ItemX, Response: true},
	)

	// Round with a missing item assignment.
	b.rounds = append(b.rounds, models.Round{ID: 102, TeamID: "T", ItemPlayer1: &itemB, ItemPlayer2: nil})

	res := ComputeCorrelation(b.rounds, b.answers)

	var total int
	for i := range res.Matrix {
		for j := range res.Matrix[i] {
			total += res.Matrix[i][j].Count
		}
	}
	if total != 1 {
		t.Errorf("Expected exactly 1 usable round, got %d", total)
	}
}

func TestComputeCorrelation_CrossedAnswerOrder(t *testing.T) {
	// Answers arrive in the opposite order of the item assignments; the
	// pairing rule must attribute them by item, not by position.
	i1, i2 := models.ItemA, models.ItemX
	rounds := []models.Round{{ID: 1, TeamID: "T", ItemPlayer1: &i1, ItemPlayer2: &i2}}
	answers := []models.Answer{
		{ID: 1, TeamID: "T", RoundID: 1, Item: i2, Response: false},
		{ID: 2, TeamID: "T", RoundID: 1, Item: i1, Response: true},
	}

	res := ComputeCorrelation(rounds, answers)
	cell := res.Matrix[models.ItemIndex(i1)][models.ItemIndex(i2)]
	if cell.Sum != -1 || cell.Count != 1 {
		t.Errorf("Expected differing responses to contribute -1 at (A,X), got %+v", cell)
	}
}
