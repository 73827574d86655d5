package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

// ISOFormat matches the millisecond ISO-8601 strings the server emits.
const ISOFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in the canonical message timestamp format.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOFormat)
}

type threadField struct {
	keys  []string
	apply func(*types.Thread, any)
}

// threadFields maps server field names onto the canonical thread. Order is
// fixed so that aliased keys resolve deterministically.
var threadFields = []threadField{
	{[]string{"title"}, func(t *types.Thread, v any) { t.Title = coerceString(v) }},
	{[]string{"description"}, func(t *types.Thread, v any) { t.Description = coerceString(v) }},
	{[]string{"createdBy", "creatorId"}, func(t *types.Thread, v any) { t.CreatedBy = coerceString(v) }},
	{[]string{"createdByName", "creator"}, func(t *types.Thread, v any) { t.CreatedByName = coerceString(v) }},
	{[]string{"location"}, func(t *types.Thread, v any) { t.Location = coerceString(v) }},
	{[]string{"tags"}, func(t *types.Thread, v any) { t.Tags = coerceStrings(v) }},
	{[]string{"requiresApproval"}, func(t *types.Thread, v any) {
		b, ok := v.(bool)
		t.RequiresApproval = !ok || b
	}},
	{[]string{"expiresAt"}, func(t *types.Thread, v any) { t.ExpiresAt = coerceTime(v) }},
	{[]string{"members"}, func(t *types.Thread, v any) { t.Members = coerceMembers(v) }},
	{[]string{"memberProfiles"}, func(t *types.Thread, v any) { t.MemberProfiles = coerceProfiles(v) }},
	{[]string{"pendingRequests"}, func(t *types.Thread, v any) { t.PendingRequests = coerceRequests(v) }},
	{[]string{"chat"}, func(t *types.Thread, v any) { t.Chat = coerceChat(v) }},
	{[]string{"createdAt"}, func(t *types.Thread, v any) { t.CreatedAt = coerceTime(v) }},
}

// EmptyThread returns a thread with every collection initialized and the
// documented defaults applied.
func EmptyThread(id string) types.Thread {
	return types.Thread{
		ID:               id,
		Tags:             []string{},
		RequiresApproval: true,
		Members:          []string{},
		MemberProfiles:   []types.MemberProfile{},
		PendingRequests:  []types.JoinRequest{},
		Chat:             []types.ChatMessage{},
		MaxMembers:       types.MaxMembers,
	}
}

// NormalizeThread maps a raw server thread record into the canonical shape.
// It never fails: malformed fields fall back to their defaults.
func NormalizeThread(raw map[string]any) types.Thread {
	t := EmptyThread(coerceString(firstPresent(raw, "id", "_id")))
	return MergeThread(t, raw)
}

// NormalizeCreatedThread normalizes a threadCreated payload. Chat starts
// empty and the creator is the sole profile when none are provided.
func NormalizeCreatedThread(raw map[string]any) types.Thread {
	t := NormalizeThread(raw)
	t.Chat = []types.ChatMessage{}
	if _, ok := raw["memberProfiles"].([]any); !ok {
		t.MemberProfiles = []types.MemberProfile{{UserID: t.CreatedBy, Username: t.CreatedByName}}
	}
	return t
}

// MergeThread shallow-merges the keys present in fields into t. Absent keys
// leave t untouched; present keys are coerced like NormalizeThread does.
func MergeThread(t types.Thread, fields map[string]any) types.Thread {
	out := t.Clone()
	for _, f := range threadFields {
		for _, key := range f.keys {
			if v, ok := fields[key]; ok {
				f.apply(&out, v)
			}
		}
	}
	out.MaxMembers = types.MaxMembers
	return out
}

// NormalizeMessage maps a raw chat message into the canonical shape. A
// missing id becomes a temporary id and the timestamp is always ISO-8601,
// whether the source sent epoch milliseconds or a string.
func NormalizeMessage(raw map[string]any, now time.Time) types.ChatMessage {
	msg := coerceMessage(raw)
	if msg.ID == "" {
		msg.ID = TempMessageID(now)
	}
	msg.Timestamp = isoTimestamp(raw["timestamp"], now)
	return msg
}

func coerceMessage(raw map[string]any) types.ChatMessage {
	return types.ChatMessage{
		ID:        coerceString(firstPresent(raw, "id", "_id")),
		User:      coerceString(firstPresent(raw, "username", "user")),
		UserID:    coerceString(raw["userId"]),
		Message:   coerceString(firstPresent(raw, "message", "content")),
		Timestamp: isoTimestamp(raw["timestamp"], time.Time{}),
		ClientID:  coerceString(raw["clientId"]),
	}
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return ""
	}
}

func coerceStrings(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range list {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func coerceTime(v any) time.Time {
	switch value := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, ISOFormat, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
				return t.UTC()
			}
		}
	case float64:
		return time.UnixMilli(int64(value)).UTC()
	case int64:
		return time.UnixMilli(value).UTC()
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return time.UnixMilli(n).UTC()
		}
	}
	return time.Time{}
}

// isoTimestamp renders v as ISO-8601. Unusable input falls back to now, or
// to the empty string when now is zero.
func isoTimestamp(v any, now time.Time) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	if t := coerceTime(v); !t.IsZero() {
		return FormatISO(t)
	}
	if now.IsZero() {
		return ""
	}
	return FormatISO(now)
}

// memberID extracts a user id from a plain id or an object carrying one.
func memberID(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return coerceString(firstPresent(obj, "userId", "id", "_id"))
	}
	return coerceString(v)
}

func coerceMembers(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			for _, s := range strs {
				out = appendUnique(out, s)
			}
		}
		return out
	}
	for _, item := range list {
		if id := memberID(item); id != "" {
			out = appendUnique(out, id)
		}
	}
	return out
}

func coerceProfiles(v any) []types.MemberProfile {
	out := []types.MemberProfile{}
	list, _ := v.([]any)
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := types.MemberProfile{
			UserID:   coerceString(firstPresent(obj, "userId", "id", "_id")),
			Username: coerceString(obj["username"]),
		}
		if p.UserID == "" {
			continue
		}
		out = upsertProfile(out, p)
	}
	return out
}

func coerceRequests(v any) []types.JoinRequest {
	out := []types.JoinRequest{}
	list, _ := v.([]any)
	for _, item := range list {
		var r types.JoinRequest
		if obj, ok := item.(map[string]any); ok {
			r = types.JoinRequest{
				UserID:      coerceString(firstPresent(obj, "userId", "id", "_id")),
				Username:    coerceString(obj["username"]),
				RequestedAt: isoTimestamp(obj["requestedAt"], time.Time{}),
			}
		} else {
			r.UserID = coerceString(item)
		}
		if r.UserID == "" {
			continue
		}
		if r.Username == "" {
			r.Username = FallbackUsername(r.UserID)
		}
		out = append(out, r)
	}
	return out
}

func coerceChat(v any) []types.ChatMessage {
	out := []types.ChatMessage{}
	list, _ := v.([]any)
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, coerceMessage(obj))
		}
	}
	return out
}

// FallbackUsername derives a display name for requests that only carry an id.
func FallbackUsername(userID string) string {
	if len(userID) > 6 {
		userID = userID[len(userID)-6:]
	}
	return "User_" + userID
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

// upsertProfile keeps the first position of a user id and the latest name.
func upsertProfile(list []types.MemberProfile, p types.MemberProfile) []types.MemberProfile {
	for i := range list {
		if list[i].UserID == p.UserID {
			list[i] = p
			return list
		}
	}
	return append(list, p)
}
