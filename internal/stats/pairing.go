// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import "github.com/tomtom215/correlatus/internal/models"

// PairedRound is a completed round with its two answers attributed to
// player slots.
type PairedRound struct {
	Item1     models.ItemLabel
	Item2     models.ItemLabel
	Response1 bool
	Response2 bool
}

// PairRounds applies the answer-pairing rule to a team's ordered history.
//
// A round contributes only if it has both item assignments and exactly two
// answers. If both players were assigned the same item, the two answers
// are attributed arbitrarily (attribution cannot change any equality-based
// outcome). If the items differ, each answer is matched to the player
// whose assigned item equals the answer's item; a round whose answers
// cannot be matched that way is data corruption and is skipped silently.
//
// Incomplete rounds (fewer than two answers) are expected transient state,
// not errors: the second player simply has not answered yet.
func PairRounds(rounds []models.Round, answers []models.Answer) []PairedRound {
	byRound := make(map[int64][]models.Answer, len(rounds))
	for _, a := range answers {
		byRound[a.RoundID] = append(byRound[a.RoundID], a)
	}

	paired := make([]PairedRound, 0, len(rounds))
	for _, r := range rounds {
		if r.ItemPlayer1 == nil || r.ItemPlayer2 == nil {
			continue
		}
		ans := byRound[r.ID]
		if len(ans) != 2 {
			continue
		}

		item1, item2 := *r.ItemPlayer1, *r.ItemPlayer2

		if item1 == item2 {
			if ans[0].Item != item1 || ans[1].Item != item2 {
				continue
			}
			paired = append(paired, PairedRound{
				Item1:     item1,
				Item2:     item2,
				Response1: ans[0].Response,
				Response2: ans[1].Response,
			})
			continue
		}

		var resp1, resp2 bool
		switch {
		case ans[0].Item == item1 && ans[1].Item == item2:
			resp1, resp2 = ans[0].Response, ans[1].Response
		case ans[0].Item == item2 && ans[1].Item == item1:
			resp1, resp2 = ans[1].Response, ans[0].Response
		default:
			// Neither assignment matches: no usable pairing.
			continue
		}
		paired = append(paired, PairedRound{
			Item1:     item1,
			Item2:     item2,
			Response1: resp1,
			Response2: resp2,
		})
	}
	return paired
}
