// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package stats

import (
	"math"

	"github.com/tomtom215/correlatus/internal/models"
)

// crossPairs are the four ordered cross-category pairs entering the CHSH
// combination, with their sign coefficients. The (B,Y) pair enters
// negatively.
var crossPairs = [4]struct {
	i, j  int
	coeff float64
}{
	{0, 2, 1},  // (A,X)
	{0, 3, 1},  // (A,Y)
	{1, 2, 1},  // (B,X)
	{1, 3, -1}, // (B,Y)
}

// ClassicScalars derives the physics-style statistics from a correlation
// result: the sign-normalized trace average, the CHSH value, the
// count-weighted cross-term and the same-item balance. Standard errors
// propagate through every combination; any contributing zero-count cell
// makes the statistic's uncertainty unknown.
func ClassicScalars(c CorrelationResult) map[string]models.StatValue {
	trace := MeanOf(
		cellRatio(c.Matrix[0][0]),
		cellRatio(c.Matrix[1][1]),
		cellRatio(c.Matrix[2][2]),
		cellRatio(c.Matrix[3][3]),
	).Abs()

	return map[string]models.StatValue{
		models.StatTraceAverage: trace.AsStat(),
		models.StatCHSH:         chshValue(c.Matrix).AsStat(),
		models.StatCrossTerm:    crossTerm(c.Matrix).AsStat(),
		models.StatBalance:      sameItemBalance(c.ResponsesByItem).AsStat(),
	}
}

// chshValue combines the off-diagonal correlation cells in both directions:
// S = (c[A][X] + c[A][Y] + c[B][X] - c[B][Y] + c[X][A] + c[X][B] + c[Y][A] - c[Y][B]) / 2.
func chshValue(m [4][4]models.MatrixCell) Measurement {
	sum := Exact(0)
	for _, p := range crossPairs {
		sum = sum.Add(cellRatio(m[p.i][p.j]).Scale(p.coeff))
		sum = sum.Add(cellRatio(m[p.j][p.i]).Scale(p.coeff))
	}
	return sum.Scale(0.5)
}

// crossTerm is the observation-weighted signed mean of the four cross-pair
// correlations, each pair's two directions merged into one cell before
// taking the ratio. Pairs with no observations carry zero weight and drop
// out of both the value and the uncertainty.
func crossTerm(m [4][4]models.MatrixCell) Measurement {
	var total int
	for _, p := range crossPairs {
		total += m[p.i][p.j].Count + m[p.j][p.i].Count
	}
	if total == 0 {
		return Unknown(0)
	}

	sum := Exact(0)
	for _, p := range crossPairs {
		merged := models.MatrixCell{
			Sum:   m[p.i][p.j].Sum + m[p.j][p.i].Sum,
			Count: m[p.i][p.j].Count + m[p.j][p.i].Count,
		}
		w := float64(merged.Count) / float64(total)
		sum = sum.Add(cellRatio(merged).Scale(p.coeff * w))
	}
	return sum
}

// sameItemBalance maps each item's true-fraction p to a balance score
// 1 - |2p - 1| with the simplified proportion error 1/sqrt(n), then
// averages across items that have data.
func sameItemBalance(responses map[models.ItemLabel]ResponseTally) Measurement {
	var balances []Measurement
	for _, item := range models.AllItems {
		tally := responses[item]
		n := tally.Total()
		if n == 0 {
			continue
		}
		p := NewMeasurement(float64(tally.True)/float64(n), 1/math.Sqrt(float64(n)))
		deviation := p.Scale(2).Add(Exact(-1)).Abs()
		balances = append(balances, Exact(1).Add(deviation.Scale(-1)))
	}
	if len(balances) == 0 {
		return Unknown(0)
	}
	return MeanOf(balances...).Abs()
}

// SuccessScalars derives the simplified win-rate statistics from a success
// result: the overall rate with binomial error, the normalized score with
// a conservative 2/sqrt(n) error, the unweighted cross-pair mean rate and
// the min-based response balance.
func SuccessScalars(s SuccessResult) map[string]models.StatValue {
	var total int
	for i := range s.Matrix {
		for j := range s.Matrix[i] {
			total += s.Matrix[i][j].Count
		}
	}

	rate := Unknown(0)
	score := Unknown(0)
	if total > 0 {
		n := float64(total)
		rate = NewMeasurement(s.OverallRate, math.Sqrt(s.OverallRate*(1-s.OverallRate)/n))
		score = NewMeasurement(s.NormalizedScore, 2/math.Sqrt(n))
	}

	return map[string]models.StatValue{
		models.StatSuccessRate: rate.AsStat(),
		models.StatCHSH:        score.AsStat(),
		models.StatCrossTerm:   crossPairRate(s.Matrix).AsStat(),
		models.StatBalance:     responseBalance(s.ResponsesByItem).AsStat(),
	}
}

// crossPairRate is the unweighted mean success rate over the four
// cross-category pairs, each direction-merged pair carrying its own
// binomial standard error. The errors combine as root-sum-of-squares over 4.
func crossPairRate(m [4][4]models.MatrixCell) Measurement {
	pairRates := make([]Measurement, 0, len(crossPairs))
	for _, p := range crossPairs {
		merged := models.MatrixCell{
			Sum:   m[p.i][p.j].Sum + m[p.j][p.i].Sum,
			Count: m[p.i][p.j].Count + m[p.j][p.i].Count,
		}
		if merged.Count == 0 {
			pairRates = append(pairRates, Unknown(0))
			continue
		}
		n := float64(merged.Count)
		r := float64(merged.Sum) / n
		pairRates = append(pairRates, NewMeasurement(r, math.Sqrt(r*(1-r)/n)))
	}
	return MeanOf(pairRates...)
}

// responseBalance scores each item's response split as 2*min(true,false)/total
// (1.0 = perfect 50/50) and averages across items with data. The reported
// uncertainty is the sample standard deviation of the per-item balances,
// unknown when fewer than two items have data.
func responseBalance(responses map[models.ItemLabel]ResponseTally) Measurement {
	var balances []float64
	for _, item := range models.AllItems {
		tally := responses[item]
		total := tally.Total()
		if total == 0 {
			continue
		}
		lo := tally.True
		if tally.False < lo {
			lo = tally.False
		}
		balances = append(balances, 2*float64(lo)/float64(total))
	}
	if len(balances) == 0 {
		return Unknown(0)
	}

	var sum float64
	for _, b := range balances {
		sum += b
	}
	mean := sum / float64(len(balances))
	if len(balances) < 2 {
		return Unknown(mean)
	}

	var sq float64
	for _, b := range balances {
		sq += (b - mean) * (b - mean)
	}
	sd := math.Sqrt(sq / float64(len(balances)-1))
	return NewMeasurement(mean, sd)
}
