package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestNew(t *testing.T) {
	fixClock(t, time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600)))

	m := New("alice", "lobby", "hi")

	assert.Equal(t, "alice", m.Username)
	assert.Equal(t, "lobby", m.Room)
	assert.Equal(t, "hi", m.Text)
	assert.False(t, m.Admin)
	assert.Equal(t, "2024-05-01T11:30:00Z", m.Timestamp)

	_, err := time.Parse(time.RFC3339, m.Timestamp)
	assert.NoError(t, err)
}

func TestMessageJSONOmitsAdminWhenAbsent(t *testing.T) {
	fixClock(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	regular, err := json.Marshal(New("bob", "lobby", "yo"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"bob","text":"yo","room":"lobby","timestamp":"2024-05-01T12:00:00Z"}`, string(regular))

	var fields map[string]any
	require.NoError(t, json.Unmarshal(regular, &fields))
	_, present := fields["admin"]
	assert.False(t, present, "admin must be omitted, not false or null")

	admin := New("alice", "lobby", "hi")
	admin.Admin = true
	data, err := json.Marshal(admin)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"admin":true`)
}

func TestMessageJSONFieldOrder(t *testing.T) {
	fixClock(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	m := New("a", "r", "t")
	m.Admin = true

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"username":"a","text":"t","room":"r","admin":true,"timestamp":"2024-05-01T12:00:00Z"}`, string(data))
}
