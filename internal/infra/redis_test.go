package infra

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = NewRedisClient(context.Background(), "")
	require.Error(t, err)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "", false)
	require.Error(t, err)
}
