package redirect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "concierge/pkg/domain-errors"
)

func TestInMemoryMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("stash then consume returns the path once", func(t *testing.T) {
		m := NewInMemoryMemory(time.Minute)
		require.NoError(t, m.Stash(ctx, "device-1", "/reservations/new"))

		got, err := m.ConsumeOrDefault(ctx, "device-1", "/rooms")
		require.NoError(t, err)
		assert.Equal(t, "/reservations/new", got)

		// Second consume sees an empty slot.
		got, err = m.ConsumeOrDefault(ctx, "device-1", "/rooms")
		require.NoError(t, err)
		assert.Equal(t, "/rooms", got)
	})

	t.Run("empty slot yields the fallback", func(t *testing.T) {
		m := NewInMemoryMemory(time.Minute)
		got, err := m.ConsumeOrDefault(ctx, "device-1", "/rooms")
		require.NoError(t, err)
		assert.Equal(t, "/rooms", got)
	})

	t.Run("last write wins", func(t *testing.T) {
		m := NewInMemoryMemory(time.Minute)
		require.NoError(t, m.Stash(ctx, "device-1", "/reservations/new"))
		require.NoError(t, m.Stash(ctx, "device-1", "/account/sessions"))

		got, err := m.ConsumeOrDefault(ctx, "device-1", "/rooms")
		require.NoError(t, err)
		assert.Equal(t, "/account/sessions", got)
	})

	t.Run("slots are per key", func(t *testing.T) {
		m := NewInMemoryMemory(time.Minute)
		require.NoError(t, m.Stash(ctx, "device-1", "/reservations/new"))

		got, err := m.ConsumeOrDefault(ctx, "device-2", "/rooms")
		require.NoError(t, err)
		assert.Equal(t, "/rooms", got)
	})

	t.Run("expired slot yields the fallback", func(t *testing.T) {
		m := NewInMemoryMemory(-time.Second)
		require.NoError(t, m.Stash(ctx, "device-1", "/reservations/new"))

		got, err := m.ConsumeOrDefault(ctx, "device-1", "/rooms")
		require.NoError(t, err)
		assert.Equal(t, "/rooms", got)
	})
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/reservations/new"))
	assert.NoError(t, ValidatePath("/"))

	for _, bad := range []string{"", "https://evil.example.com", "//evil.example.com", "reservations"} {
		err := ValidatePath(bad)
		require.Error(t, err, "path %q", bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}
