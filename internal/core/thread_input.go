package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

// ErrMissingField is returned when a required thread field is blank.
var ErrMissingField = errors.New("missing required field")

const (
	maxTags         = 10
	DefaultDuration = 60 * time.Minute
)

// ParseTags splits a comma-separated tag list, trimming blanks and keeping at
// most ten tags.
func ParseTags(text string) []string {
	tags := []string{}
	for _, part := range strings.Split(text, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// ValidateNewThread trims the input and checks the required fields.
func ValidateNewThread(input types.NewThreadInput) (types.NewThreadInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Location = strings.TrimSpace(input.Location)
	for _, f := range []struct{ name, value string }{
		{"title", input.Title},
		{"description", input.Description},
		{"location", input.Location},
	} {
		if f.value == "" {
			return input, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if input.Duration <= 0 {
		input.Duration = DefaultDuration
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}
	if len(input.Tags) > maxTags {
		input.Tags = input.Tags[:maxTags]
	}
	return input, nil
}

// ExpiryFor returns the expiration time of a thread created at now.
func ExpiryFor(now time.Time, d time.Duration) time.Time {
	if d <= 0 {
		d = DefaultDuration
	}
	return now.Add(d)
}
