package firestore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	firestorestore "github.com/PabloGalante/taskchat/internal/adapters/storage/firestore"
	"github.com/PabloGalante/taskchat/internal/domain"
)

// These tests need the Firestore emulator (FIRESTORE_EMULATOR_HOST).
func newEmulatorStore(t *testing.T) *firestorestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	project := fmt.Sprintf("taskchat-test-%d", time.Now().UnixNano())
	store, err := firestorestore.NewStore(context.Background(), project)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFirestoreStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newEmulatorStore(t)

	first, err := store.Create(ctx, domain.NewTask{Title: "buy milk"})
	require.NoError(t, err)
	second, err := store.Create(ctx, domain.NewTask{Title: "pay rent"})
	require.NoError(t, err)
	assert.Equal(t, first.ID+1, second.ID)

	toggled, err := store.Toggle(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)

	done, err := store.ListByCompletion(ctx, true)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "buy milk", done[0].Title)

	desc := "before the 1st"
	updated, err := store.Update(ctx, second.ID, domain.TaskPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "pay rent", updated.Title)
	assert.Equal(t, desc, updated.Description)

	ok, err := store.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = store.Toggle(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := firestorestore.NewStore(context.Background(), "")
	assert.Error(t, err)
}
