package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
)

func TestStateStoreUpdateDoesNotMutatePublishedSnapshot(t *testing.T) {
	store := NewStateStore()
	before := store.Snapshot()

	after := store.Update(func(st *chat.State) {
		st.Messages = append(st.Messages, newTurn(chat.RoleUser, "hi"))
		st.IsLoading = true
	})

	assert.Empty(t, before.Messages)
	assert.False(t, before.IsLoading)
	assert.Len(t, after.Messages, 1)
	assert.Equal(t, before.Version+1, after.Version)
}

func TestStateStoreSubscribeKeepsLatest(t *testing.T) {
	store := NewStateStore()
	ctx, cancel := context.WithCancel(context.Background())

	updates := store.Subscribe(ctx)
	for i := 0; i < 5; i++ {
		store.Update(func(st *chat.State) { st.LastError = "x" })
	}

	latest := <-updates
	assert.Equal(t, uint64(5), latest.Version)

	cancel()
	for range updates {
	}
	_, open := <-updates
	require.False(t, open)
}

func TestStateStoreSubscribeStartsWithCurrentState(t *testing.T) {
	store := NewStateStore()
	store.Update(func(st *chat.State) { st.Initialized = true })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := <-store.Subscribe(ctx)
	assert.True(t, first.Initialized)
	assert.Equal(t, uint64(1), first.Version)
}
