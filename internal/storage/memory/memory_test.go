package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
	"github.com/m3rciful/seatwatch/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return New() })
}

func TestSearchStateIsCopied(t *testing.T) {
	s := New()
	st := model.NewSearchState(1)
	st.QueueDeletion(3)
	require.NoError(t, s.SaveSearchState(context.Background(), st))

	st.QueueDeletion(4)
	got, err := s.SearchState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got.PendingDeletions)
}
