package command

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adamavenir/huddle/internal/state"
	"github.com/adamavenir/huddle/internal/types"
)

// parseDuration accepts 30m, 2h or 1d.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("invalid duration")
	}
	unit := value[len(value)-1:]
	amountStr := value[:len(value)-1]
	amount, err := strconv.Atoi(amountStr)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("invalid duration format: %s. Use 30m, 2h, or 1d", value)
	}

	switch unit {
	case "m":
		return time.Duration(amount) * time.Minute, nil
	case "h":
		return time.Duration(amount) * time.Hour, nil
	case "d":
		return time.Duration(amount) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration format: %s. Use 30m, 2h, or 1d", value)
	}
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// confirmPrompt prints title and message and reads a y/N answer from in.
func confirmPrompt(in io.Reader, out io.Writer, title, message string) bool {
	fmt.Fprintf(out, "%s%s%s\n%s\n\nContinue? [y/N] ", bold, title, reset, message)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// readSecret reads one line from in, for passwords piped or typed.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func validateMessage(text string) (string, error) {
	body := strings.TrimSpace(text)
	switch {
	case body == "":
		return "", state.ErrEmptyMessage
	case utf8.RuneCountInString(body) > types.MaxMessageLength:
		return "", state.ErrMessageTooLong
	}
	return body, nil
}
