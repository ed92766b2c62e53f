// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package stats implements the pure statistical recompute logic for the
// dashboard: history digests, the correlation and success matrices with
// the exact answer-pairing rule, and the uncertainty-propagated scalar
// statistics for both game modes. Everything here is pure over the
// supplied rounds and answers; data access and caching live in the
// dashboard package.
package stats

import (
	"math"

	"github.com/tomtom215/correlatus/internal/models"
)

// Measurement is an immutable value with a propagated standard error.
// A Measurement with unknown (infinite) uncertainty carries variance
// +Inf; it is reported to callers as an absent standard deviation, never
// as Inf or NaN.
type Measurement struct {
	value    float64
	variance float64
}

// NewMeasurement creates a measurement with the given standard error.
func NewMeasurement(value, stddev float64) Measurement {
	return Measurement{value: value, variance: stddev * stddev}
}

// Exact creates a measurement with zero uncertainty.
func Exact(value float64) Measurement {
	return Measurement{value: value}
}

// Unknown creates a measurement whose uncertainty is infinite.
func Unknown(value float64) Measurement {
	return Measurement{value: value, variance: math.Inf(1)}
}

// Value returns the nominal value.
func (m Measurement) Value() float64 {
	return m.value
}

// StdDev returns the standard error and whether it is finite.
func (m Measurement) StdDev() (float64, bool) {
	if math.IsInf(m.variance, 1) {
		return 0, false
	}
	return math.Sqrt(m.variance), true
}

// Add combines two independent measurements: values add, variances add.
// If either uncertainty is unknown the result's is unknown.
func (m Measurement) Add(o Measurement) Measurement {
	return Measurement{
		value:    m.value + o.value,
		variance: m.variance + o.variance,
	}
}

// Scale multiplies by a finite constant k: the value scales by k, the
// standard error by |k|. Scaling by zero yields an exact zero.
func (m Measurement) Scale(k float64) Measurement {
	if k == 0 {
		return Exact(0)
	}
	return Measurement{
		value:    m.value * k,
		variance: m.variance * k * k,
	}
}

// Abs sign-normalizes the measurement: a negative nominal value has its
// sign flipped while the standard error is left unchanged.
func (m Measurement) Abs() Measurement {
	if m.value < 0 {
		return Measurement{value: -m.value, variance: m.variance}
	}
	return m
}

// MeanOf averages independent measurements: the sum scaled by 1/n. An
// empty input yields an unknown zero.
func MeanOf(ms ...Measurement) Measurement {
	if len(ms) == 0 {
		return Unknown(0)
	}
	sum := Exact(0)
	for _, m := range ms {
		sum = sum.Add(m)
	}
	return sum.Scale(1 / float64(len(ms)))
}

// AsStat converts the measurement to the wire representation: the nominal
// value plus a standard deviation pointer that is nil when the
// uncertainty is unknown.
func (m Measurement) AsStat() models.StatValue {
	sd, ok := m.StdDev()
	if !ok {
		return models.StatValue{Value: m.value, StdDev: nil}
	}
	return models.StatValue{Value: m.value, StdDev: &sd}
}

// cellRatio converts a (numerator, denominator) matrix cell into a
// measurement: the ratio clamped to [-1, 1] with standard error
// 1/sqrt(denominator), or an unknown zero when the denominator is zero.
func cellRatio(cell models.MatrixCell) Measurement {
	if cell.Count == 0 {
		return Unknown(0)
	}
	r := float64(cell.Sum) / float64(cell.Count)
	r = clamp(r, -1, 1)
	return NewMeasurement(r, 1/math.Sqrt(float64(cell.Count)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
