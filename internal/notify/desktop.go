package notify

import (
	"strings"

	"github.com/gen2brain/beeep"

	"github.com/adamavenir/huddle/internal/types"
)

const desktopBodyLimit = 100

// DesktopSink raises OS notifications.
type DesktopSink struct {
	title string
	send  func(title, message string) error
}

func NewDesktopSink(title string) *DesktopSink {
	return &DesktopSink{title: title, send: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func (s *DesktopSink) Notify(notice types.Notice) error {
	title := s.title
	if notice.Kind == types.NoticeError {
		title += " · error"
	}
	return s.send(title, truncateNotification(notice.Message, desktopBodyLimit))
}

func truncateNotification(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
