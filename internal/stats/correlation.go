// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import (
	"math"

	"github.com/tomtom215/correlatus/internal/models"
)

// ResponseTally counts boolean responses for one item.
type ResponseTally struct {
	True  int `json:"true"`
	False int `json:"false"`
}

// Total returns the number of tallied responses.
func (t ResponseTally) Total() int {
	return t.True + t.False
}

// CorrelationResult holds the classic-mode correlation matrix plus the
// same-item balance tallies derived from it.
type CorrelationResult struct {
	Labels [4]models.ItemLabel
	Matrix [4][4]models.MatrixCell

	// ResponsesByItem tallies individual responses only for rounds where
	// both players were assigned the same item. The success metrics tally
	// all rounds instead; the asymmetry feeds different balance
	// definitions per mode.
	ResponsesByItem map[models.ItemLabel]ResponseTally
	BalanceByItem   map[models.ItemLabel]float64
	AvgBalance      float64
}

// ComputeCorrelation builds the 4x4 correlation matrix from a team's
// ordered history. Each completed round contributes +1 to the ordered
// pair's signed sum when the two responses agree, -1 when they differ,
// and always increments the pair's count.
func ComputeCorrelation(rounds []models.Round, answers []models.Answer) CorrelationResult {
	res := CorrelationResult{
		Labels:          models.AllItems,
		ResponsesByItem: make(map[models.ItemLabel]ResponseTally, 4),
		BalanceByItem:   make(map[models.ItemLabel]float64, 4),
	}

	for _, pr := range PairRounds(rounds, answers) {
		i, j := models.ItemIndex(pr.Item1), models.ItemIndex(pr.Item2)
		if i < 0 || j < 0 {
			continue
		}
		cell := &res.Matrix[i][j]
		if pr.Response1 == pr.Response2 {
			cell.Sum++
		} else {
			cell.Sum--
		}
		cell.Count++

		if pr.Item1 == pr.Item2 {
			tally := res.ResponsesByItem[pr.Item1]
			for _, resp := range [2]bool{pr.Response1, pr.Response2} {
				if resp {
					tally.True++
				} else {
					tally.False++
				}
			}
			res.ResponsesByItem[pr.Item1] = tally
		}
	}

	var sum float64
	var n int
	for item, tally := range res.ResponsesByItem {
		total := tally.Total()
		if total == 0 {
			continue
		}
		balance := 1 - math.Abs(float64(tally.True-tally.False))/float64(total)
		res.BalanceByItem[item] = balance
		sum += balance
		n++
	}
	if n > 0 {
		res.AvgBalance = sum / float64(n)
	}
	return res
}
