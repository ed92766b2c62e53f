// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import (
	"crypto/sha1" //nolint:gosec // consistency fingerprint, not security
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tomtom215/correlatus/internal/models"
)

// digestLen is the hex-prefix length of each history digest.
const digestLen = 8

// HistoryDigests computes two independent content hashes of a team's full
// round/answer history. Two observers holding the same history always see
// the same pair; two different algorithms guard against a single-hash
// collision coincidence being mistaken for "data matches".
func HistoryDigests(rounds []models.Round, answers []models.Answer) (string, string) {
	parts := make([]string, 0, 2*len(rounds)+len(answers))
	for _, r := range rounds {
		parts = append(parts,
			"P1:"+itemOrNone(r.ItemPlayer1),
			"P2:"+itemOrNone(r.ItemPlayer2),
		)
	}
	for _, a := range answers {
		parts = append(parts, "A:"+string(a.Item)+":"+strconv.FormatBool(a.Response))
	}
	history := strings.Join(parts, "|")

	sumA := sha256.Sum256([]byte(history))
	sumB := sha1.Sum([]byte(history)) //nolint:gosec // consistency fingerprint, not security
	return hex.EncodeToString(sumA[:])[:digestLen], hex.EncodeToString(sumB[:])[:digestLen]
}

func itemOrNone(item *models.ItemLabel) string {
	if item == nil {
		return "None"
	}
	return string(*item)
}
