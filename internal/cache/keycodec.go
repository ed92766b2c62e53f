// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package cache provides the dashboard memoization layer: a bounded,
// mutex-serialized LRU cache with selective per-team invalidation, the
// deterministic cache-key codec, and the Memo wrapper that ties them to a
// recompute function.
package cache

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Repr renders a single argument value in its canonical, round-trippable
// textual form. Strings are quoted so that a team identifier can never be
// confused with a number or with a fragment of a neighboring argument;
// nil renders as the literal "nil".
func Repr(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case fmt.Stringer:
		return strconv.Quote(t.String())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EncodeKey encodes positional arguments into one deterministic key string
// of the form "(repr1, repr2, ...)". Two calls with equal arguments yield
// byte-identical keys.
func EncodeKey(args ...any) string {
	return EncodeKeyNamed(args, nil)
}

// EncodeKeyNamed encodes positional and named arguments. Named arguments
// are sorted by name so that insertion order never affects the key.
func EncodeKeyNamed(args []any, named map[string]any) string {
	parts := make([]string, 0, len(args)+len(named))
	for _, a := range args {
		parts = append(parts, Repr(a))
	}

	if len(named) > 0 {
		names := make([]string, 0, len(named))
		for name := range named {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, name+"="+Repr(named[name]))
		}
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// TeamMatcher recognizes whether a team identifier appears as a complete
// argument token within an encoded key. Token boundaries are the argument
// separators of the codec, so "Team1" never matches keys built for
// "Team11", "MyTeam1" or "Team1_backup".
type TeamMatcher struct {
	teamID string
	re     *regexp.Regexp
}

// NewTeamMatcher builds a matcher for the given team identifier. The
// identifier's canonical representation is escaped, so identifiers
// containing regexp metacharacters are matched literally.
func NewTeamMatcher(teamID string) *TeamMatcher {
	quoted := regexp.QuoteMeta(Repr(teamID))
	// A whole argument token: preceded by "(" or ", ", followed by ",",
	// ")" or end of string, with optional surrounding whitespace.
	re := regexp.MustCompile(`(\(|, )\s*` + quoted + `\s*(,|\)|$)`)
	return &TeamMatcher{teamID: teamID, re: re}
}

// Matches reports whether the key belongs to this matcher's team: either
// the key is the bare identifier itself, or the identifier appears as a
// whole argument token inside the encoded argument list.
func (m *TeamMatcher) Matches(key string) bool {
	if key == m.teamID {
		return true
	}
	return m.re.MatchString(key)
}
