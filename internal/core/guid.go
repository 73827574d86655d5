package core

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adamavenir/huddle/internal/types"
)

// TempMessageID creates the temporary id for an optimistic message.
func TempMessageID(now time.Time) string {
	return types.TempIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// NewCorrelationID returns the id attached to an outgoing send so the
// server's echo can be matched with its temporary message.
func NewCorrelationID() string {
	return uuid.NewString()
}
