package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/adamavenir/huddle/internal/types"
)

var (
	successColor = lipgloss.Color("10")
	warningColor = lipgloss.Color("11")
	errorColor   = lipgloss.Color("9")
)

// TerminalSink prints notices as single styled lines.
type TerminalSink struct {
	w      io.Writer
	styles map[types.NoticeKind]lipgloss.Style
}

func NewTerminalSink(w io.Writer) *TerminalSink {
	r := lipgloss.NewRenderer(w)
	return &TerminalSink{
		w: w,
		styles: map[types.NoticeKind]lipgloss.Style{
			types.NoticeSuccess: r.NewStyle().Foreground(successColor),
			types.NoticeWarning: r.NewStyle().Foreground(warningColor),
			types.NoticeError:   r.NewStyle().Foreground(errorColor).Bold(true),
		},
	}
}

func (s *TerminalSink) Notify(notice types.Notice) error {
	style, ok := s.styles[notice.Kind]
	if !ok {
		style = s.styles[types.NoticeSuccess]
	}
	_, err := fmt.Fprintln(s.w, style.Render(symbol(notice.Kind)+" "+notice.Message))
	return err
}

func symbol(kind types.NoticeKind) string {
	switch kind {
	case types.NoticeWarning:
		return "!"
	case types.NoticeError:
		return "✗"
	default:
		return "✓"
	}
}
