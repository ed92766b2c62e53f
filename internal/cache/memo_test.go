// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package cache

import (
	"sync/atomic"
	"testing"
)

func TestMemo_CacheOrCompute(t *testing.T) {
	var calls atomic.Int64
	memo := NewMemo("test", 8, func(args ...any) int {
		calls.Add(1)
		return len(args[0].(string))
	})

	if got := memo.Call("Team1"); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	if got := memo.Call("Team1"); got != 5 {
		t.Errorf("Expected cached 5, got %d", got)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 underlying call, got %d", calls.Load())
	}

	memo.Call("LongerTeamName")
	if calls.Load() != 2 {
		t.Errorf("Expected 2 underlying calls after new arguments, got %d", calls.Load())
	}
}

func TestMemo_Clear(t *testing.T) {
	var calls atomic.Int64
	memo := NewMemo("test", 8, func(args ...any) string {
		calls.Add(1)
		return args[0].(string)
	})

	memo.Call("Team1")
	memo.Clear()
	memo.Call("Team1")

	if calls.Load() != 2 {
		t.Errorf("Expected recompute after Clear, got %d calls", calls.Load())
	}
	if memo.Len() != 1 {
		t.Errorf("Expected 1 entry after recompute, got %d", memo.Len())
	}
}

func TestMemo_InvalidateTeamSelective(t *testing.T) {
	var calls atomic.Int64
	memo := NewMemo("test", 8, func(args ...any) string {
		calls.Add(1)
		return args[0].(string)
	})

	memo.Call("Team1")
	memo.Call("Team11")

	if removed := memo.InvalidateTeam("Team1"); removed != 1 {
		t.Errorf("Expected 1 entry invalidated, got %d", removed)
	}

	// Team11 stays cached; Team1 recomputes.
	memo.Call("Team11")
	memo.Call("Team1")
	if calls.Load() != 3 {
		t.Errorf("Expected 3 underlying calls, got %d", calls.Load())
	}
}

func TestMemo_DistinctArgumentTypes(t *testing.T) {
	var calls atomic.Int64
	memo := NewMemo("test", 8, func(args ...any) bool {
		calls.Add(1)
		return true
	})

	memo.Call(1)
	memo.Call("1")
	if calls.Load() != 2 {
		t.Errorf("Expected int and string arguments to cache separately, got %d calls", calls.Load())
	}
}
