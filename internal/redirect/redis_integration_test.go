//go:build integration

package redirect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/redirect"
	"concierge/pkg/testutil/containers"
)

func TestRedisMemory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	m := redirect.NewRedisMemory(rc.Client, time.Minute)

	require.NoError(t, m.Stash(ctx, "device-1", "/reservations/new"))

	got, err := m.ConsumeOrDefault(ctx, "device-1", "/rooms")
	require.NoError(t, err)
	assert.Equal(t, "/reservations/new", got)

	got, err = m.ConsumeOrDefault(ctx, "device-1", "/rooms")
	require.NoError(t, err)
	assert.Equal(t, "/rooms", got)
}
