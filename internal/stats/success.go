// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import "github.com/tomtom215/correlatus/internal/models"

// IsSuccess applies the CHSH win condition to one completed round. When
// the unordered pair of assigned items is exactly {B, Y} the players win
// by answering differently; for every other item pair they win by
// answering the same.
func IsSuccess(item1, item2 models.ItemLabel, resp1, resp2 bool) bool {
	if (item1 == models.ItemB && item2 == models.ItemY) ||
		(item1 == models.ItemY && item2 == models.ItemB) {
		return resp1 != resp2
	}
	return resp1 == resp2
}

// SuccessResult holds the success-mode matrix plus the win-rate scalars
// derived directly from round counts.
type SuccessResult struct {
	Labels [4]models.ItemLabel
	Matrix [4][4]models.MatrixCell

	// ResponsesByItem tallies every player's individual response keyed by
	// that player's own assigned item, across all completed rounds.
	ResponsesByItem map[models.ItemLabel]ResponseTally

	// OverallRate is successes/total; NormalizedScore is
	// (successes-failures)/total. Both are 0 with no completed rounds.
	OverallRate     float64
	NormalizedScore float64
}

// ComputeSuccess builds the 4x4 success matrix from a team's ordered
// history using the same pairing rule as the correlation matrix. Each
// cell's Sum is the success count for the ordered item pair.
func ComputeSuccess(rounds []models.Round, answers []models.Answer) SuccessResult {
	res := SuccessResult{
		Labels:          models.AllItems,
		ResponsesByItem: make(map[models.ItemLabel]ResponseTally, 4),
	}

	var successes, total int
	for _, pr := range PairRounds(rounds, answers) {
		i, j := models.ItemIndex(pr.Item1), models.ItemIndex(pr.Item2)
		if i < 0 || j < 0 {
			continue
		}
		cell := &res.Matrix[i][j]
		cell.Count++
		total++
		if IsSuccess(pr.Item1, pr.Item2, pr.Response1, pr.Response2) {
			cell.Sum++
			successes++
		}

		tallyResponse(res.ResponsesByItem, pr.Item1, pr.Response1)
		tallyResponse(res.ResponsesByItem, pr.Item2, pr.Response2)
	}

	if total > 0 {
		res.OverallRate = float64(successes) / float64(total)
		res.NormalizedScore = float64(2*successes-total) / float64(total)
	}
	return res
}

func tallyResponse(m map[models.ItemLabel]ResponseTally, item models.ItemLabel, resp bool) {
	tally := m[item]
	if resp {
		tally.True++
	} else {
		tally.False++
	}
	m[item] = tally
}
