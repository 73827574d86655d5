package command

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

const maxDisplayLines = 20

var (
	noColor = os.Getenv("NO_COLOR") != ""

	dim    = ansiCode("\x1b[2m")
	bold   = ansiCode("\x1b[1m")
	gray   = ansiCode("\x1b[38;5;240m")
	reset  = ansiCode("\x1b[0m")
	yellow = ansiCode("\x1b[33m")
	red    = ansiCode("\x1b[31m")
	cyan   = ansiCode("\x1b[36m")
)

var userColors = []string{
	ansiCode("\x1b[38;5;111m"),
	ansiCode("\x1b[38;5;157m"),
	ansiCode("\x1b[38;5;216m"),
	ansiCode("\x1b[38;5;36m"),
	ansiCode("\x1b[38;5;183m"),
	ansiCode("\x1b[38;5;230m"),
}

var mentionRe = regexp.MustCompile(`@([A-Za-z0-9_][A-Za-z0-9_.-]*)`)

func ansiCode(code string) string {
	if noColor {
		return ""
	}
	return code
}

func userColor(userID string) string {
	if noColor || userID == "" {
		return ""
	}
	return userColors[hashString(userID)%len(userColors)]
}

func hashString(value string) int {
	hash := 0
	for i := 0; i < len(value); i++ {
		hash = ((hash << 5) - hash) + int(value[i])
	}
	if hash < 0 {
		return -hash
	}
	return hash
}

// FormatThread renders one line of a thread listing from userID's view.
func FormatThread(t types.Thread, userID string, now time.Time) string {
	badge := ""
	switch {
	case t.CreatedBy == userID:
		badge = cyan + " [owner]" + reset
	case t.IsMember(userID):
		badge = dim + " [member]" + reset
	case t.HasPendingRequest(userID):
		badge = yellow + " [pending]" + reset
	case t.RequiresApproval:
		badge = dim + " [approval]" + reset
	}

	remaining := "no expiry"
	if !t.ExpiresAt.IsZero() {
		remaining = core.TimeRemaining(t.ExpiresAt, now)
		if remaining == "Expired" {
			remaining = red + remaining + reset
		}
	}
	created := ""
	if !t.CreatedAt.IsZero() {
		created = ", created " + humanize.RelTime(t.CreatedAt, now, "ago", "from now")
	}

	full := ""
	if core.IsFull(t) && !t.IsMember(userID) {
		full = " " + red + "full" + reset + gray
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s%s  %s%d/%d members%s, %s%s by %s%s",
		dim, t.ID, reset, bold, t.Title, reset, badge,
		gray, len(t.Members), core.Capacity(t), full, remaining, created, t.CreatedByName, reset)
	if len(t.Tags) > 0 {
		line += " " + dim + "#" + strings.Join(t.Tags, " #") + reset
	}
	return line
}

// FormatThreadDetail renders a thread with its description and chat.
func FormatThreadDetail(t types.Thread, userID string, now time.Time) string {
	var b strings.Builder
	b.WriteString(FormatThread(t, userID, now))
	b.WriteString("\n")
	if t.Description != "" {
		fmt.Fprintf(&b, "  %s\n", t.Description)
	}
	if t.Location != "" {
		fmt.Fprintf(&b, "  %sat%s %s\n", dim, reset, t.Location)
	}
	for _, msg := range t.Chat {
		fmt.Fprintf(&b, "  %s\n", FormatMessage(msg))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatMessage formats a chat message for display.
func FormatMessage(msg types.ChatMessage) string {
	stamp := msg.Timestamp
	if ts, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
		stamp = ts.Local().Format(time.Kitchen)
	}
	suffix := ""
	if msg.Failed {
		suffix = " " + red + "(failed)" + reset
	} else if msg.IsTemporary() {
		suffix = " " + dim + "(sending)" + reset
	}

	body := highlightMentions(truncateForDisplay(msg.Message))
	color := userColor(msg.UserID)
	return fmt.Sprintf("%s%s%s %s%s%s: %s%s", dim, stamp, reset, color, msg.User, reset, body, suffix)
}

// FormatRequest renders a pending join request.
func FormatRequest(threadID string, req types.JoinRequest) string {
	return fmt.Sprintf("%s[%s]%s %s%s%s (%s)", dim, threadID, reset, bold, req.Username, reset, req.UserID)
}

func highlightMentions(body string) string {
	if noColor {
		return body
	}
	return mentionRe.ReplaceAllString(body, bold+"$0"+reset)
}

func truncateForDisplay(body string) string {
	lines := strings.Split(body, "\n")
	if len(lines) <= maxDisplayLines {
		return body
	}
	hidden := len(lines) - maxDisplayLines
	return strings.Join(lines[:maxDisplayLines], "\n") + fmt.Sprintf("\n... (%d more lines)", hidden)
}
