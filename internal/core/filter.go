package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/adamavenir/huddle/internal/types"
)

// ThreadMatcher filters threads by a glob over titles and tags.
type ThreadMatcher struct {
	g glob.Glob
}

// CompileThreadMatcher compiles a case-insensitive glob pattern.
func CompileThreadMatcher(pattern string) (*ThreadMatcher, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &ThreadMatcher{g: g}, nil
}

// Match reports whether the title or any tag matches.
func (m *ThreadMatcher) Match(t types.Thread) bool {
	if m.g.Match(strings.ToLower(t.Title)) {
		return true
	}
	for _, tag := range t.Tags {
		if m.g.Match(strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

// FilterThreads keeps the threads accepted by keep, preserving order.
func FilterThreads(threads []types.Thread, keep func(types.Thread) bool) []types.Thread {
	out := make([]types.Thread, 0, len(threads))
	for _, t := range threads {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// OwnedBy returns the threads created by userID.
func OwnedBy(threads []types.Thread, userID string) []types.Thread {
	return FilterThreads(threads, func(t types.Thread) bool {
		return userID != "" && t.CreatedBy == userID
	})
}

// SearchTerm reports whether term occurs in the title, description or
// creator name, ignoring case.
func SearchTerm(t types.Thread, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), term) ||
		strings.Contains(strings.ToLower(t.Description), term) ||
		strings.Contains(strings.ToLower(t.CreatedByName), term)
}

// TimeRemaining renders the time until expiry as "2h 5m", "5m" or "Expired".
func TimeRemaining(expiresAt, now time.Time) string {
	diff := expiresAt.Sub(now)
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return "Expired"
}
