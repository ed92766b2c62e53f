// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package dashboard

import (
	"github.com/tomtom215/correlatus/internal/game"
	"github.com/tomtom215/correlatus/internal/models"
	"github.com/tomtom215/correlatus/internal/stats"
)

// buildAggregate assembles the denormalized record for one team. Both
// statistic families are always computed so a detail view can show both;
// the mode flag only selects which one is primary. The record is built
// atomically from one invalidation generation of the underlying caches,
// never patched in place.
//
// Live fields (name, status, player count) are deliberately absent here:
// they change without data invalidation, so the builder's caller overlays
// them from a fresh registry snapshot on every publish.
func (s *Service) buildAggregate(teamID string, mode models.GameMode) models.TeamAggregate {
	hashes := s.hashes.Call(teamID)
	corr := s.correlation.Call(teamID)
	succ := s.success.Call(teamID)

	primary := models.ViewCorrelation
	if mode == models.ModeNew {
		primary = models.ViewSuccess
	}

	return models.TeamAggregate{
		TeamID:            teamID,
		HashA:             hashes.A,
		HashB:             hashes.B,
		Labels:            models.AllItems,
		CorrelationMatrix: corr.Matrix,
		SuccessMatrix:     succ.Matrix,
		ClassicStats:      stats.ClassicScalars(corr),
		SuccessStats:      stats.SuccessScalars(succ),
		Mode:              mode,
		PrimaryView:       primary,
		MinStatsSig:       minStatsSig(corr.Matrix, mode, s.cfg.MinStatsSig),
	}
}

// overlayLiveState fills the aggregate's connection-derived fields from a
// point-in-time registry snapshot.
func overlayLiveState(agg *models.TeamAggregate, snap models.TeamSnapshot) {
	agg.TeamName = snap.Name
	agg.Status = game.StatusOf(snap)
	agg.PlayersConnected = snap.PlayersConnected
}

// minStatsSig reports whether every valid item-pair combination for the
// mode has reached the repeat threshold. Classic mode requires all 16
// ordered cells; new mode only the four cross-category pairs, counting
// both directions together.
func minStatsSig(m [4][4]models.MatrixCell, mode models.GameMode, threshold int) bool {
	if mode == models.ModeNew {
		for _, p := range [4][2]int{{0, 2}, {0, 3}, {1, 2}, {1, 3}} {
			if m[p[0]][p[1]].Count+m[p[1]][p[0]].Count < threshold {
				return false
			}
		}
		return true
	}

	for i := range m {
		for j := range m[i] {
			if m[i][j].Count < threshold {
				return false
			}
		}
	}
	return true
}
