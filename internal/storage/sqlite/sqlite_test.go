package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
	"github.com/m3rciful/seatwatch/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenCreatesDataDirAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seatwatch.db")
	s, err := Open(path)
	require.NoError(t, err)
	sub := &model.Subscription{UserID: 1, OriginCode: "2000000", DestinationCode: "2004000", Active: true}
	require.NoError(t, s.CreateSubscription(context.Background(), sub))
	require.NoError(t, s.SaveFingerprint(context.Background(), sub.ID, "001:3"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	fp, ok, err := s.Fingerprint(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "001:3", fp)
}
