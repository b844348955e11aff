package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("allows fresh keys", func(t *testing.T) {
		l := New(3, time.Minute, 15*time.Minute)
		assert.True(t, l.Allowed("a@example.com|1.2.3.4", now))
	})

	t.Run("locks after threshold failures within window", func(t *testing.T) {
		l := New(3, time.Minute, 15*time.Minute)
		key := "a@example.com|1.2.3.4"

		l.RecordFailure(key, now)
		l.RecordFailure(key, now.Add(time.Second))
		assert.True(t, l.Allowed(key, now.Add(2*time.Second)))

		l.RecordFailure(key, now.Add(2*time.Second))
		assert.False(t, l.Allowed(key, now.Add(3*time.Second)))
	})

	t.Run("unlocks after cooldown", func(t *testing.T) {
		l := New(2, time.Minute, 15*time.Minute)
		key := "a@example.com|1.2.3.4"

		l.RecordFailure(key, now)
		l.RecordFailure(key, now.Add(time.Second))
		assert.False(t, l.Allowed(key, now.Add(time.Minute)))
		assert.True(t, l.Allowed(key, now.Add(16*time.Minute)))
	})

	t.Run("failures outside the window do not count", func(t *testing.T) {
		l := New(2, time.Minute, 15*time.Minute)
		key := "a@example.com|1.2.3.4"

		l.RecordFailure(key, now)
		// Second failure lands after the first has aged out.
		l.RecordFailure(key, now.Add(2*time.Minute))
		assert.True(t, l.Allowed(key, now.Add(2*time.Minute+time.Second)))
	})

	t.Run("reset clears lock", func(t *testing.T) {
		l := New(1, time.Minute, 15*time.Minute)
		key := "a@example.com|1.2.3.4"

		l.RecordFailure(key, now)
		assert.False(t, l.Allowed(key, now.Add(time.Second)))

		l.Reset(key)
		assert.True(t, l.Allowed(key, now.Add(time.Second)))
	})
}
