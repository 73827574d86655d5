package core

import (
	"testing"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

func listingFixture() []types.Thread {
	a := EmptyThread("t1")
	a.Title = "Coffee near Station"
	a.CreatedBy = "u1"
	a.CreatedByName = "ana"
	a.Tags = []string{"Coffee", "morning"}

	b := EmptyThread("t2")
	b.Title = "Board games"
	b.Description = "bring snacks"
	b.CreatedBy = "u2"
	b.CreatedByName = "bo"
	b.Tags = []string{"games"}
	return []types.Thread{a, b}
}

func TestThreadMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{"coffee*", []string{"t1"}},
		{"*GAMES", []string{"t2"}},
		{"morning", []string{"t1"}},
		{"*", []string{"t1", "t2"}},
		{"tea", nil},
	}
	for _, tc := range tests {
		m, err := CompileThreadMatcher(tc.pattern)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.pattern, err)
		}
		got := FilterThreads(listingFixture(), m.Match)
		if len(got) != len(tc.want) {
			t.Fatalf("%q: expected %v, got %d threads", tc.pattern, tc.want, len(got))
		}
		for i := range got {
			if got[i].ID != tc.want[i] {
				t.Fatalf("%q: expected %v at %d, got %s", tc.pattern, tc.want, i, got[i].ID)
			}
		}
	}
}

func TestCompileThreadMatcherInvalid(t *testing.T) {
	if _, err := CompileThreadMatcher("[unclosed"); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}

func TestOwnedBy(t *testing.T) {
	owned := OwnedBy(listingFixture(), "u2")
	if len(owned) != 1 || owned[0].ID != "t2" {
		t.Fatalf("unexpected owned %+v", owned)
	}
	if len(OwnedBy(listingFixture(), "")) != 0 {
		t.Fatalf("signed-out user owns nothing")
	}
}

func TestSearchTerm(t *testing.T) {
	threads := listingFixture()
	if !SearchTerm(threads[1], "SNACK") || !SearchTerm(threads[0], "ana") || !SearchTerm(threads[0], " ") {
		t.Fatalf("expected matches")
	}
	if SearchTerm(threads[0], "snack") {
		t.Fatalf("unexpected match")
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		expires time.Time
		want    string
	}{
		{now.Add(2*time.Hour + 5*time.Minute), "2h 5m"},
		{now.Add(45*time.Minute + 30*time.Second), "45m"},
		{now.Add(30 * time.Second), "Expired"},
		{now.Add(-time.Hour), "Expired"},
	}
	for _, tc := range tests {
		if got := TimeRemaining(tc.expires, now); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
