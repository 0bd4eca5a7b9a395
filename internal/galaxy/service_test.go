package galaxy

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PatchLore/midnight-typer/internal/shared/errors"
)

// fakeStore mimics the conditional-update semantics of the Postgres
// repository: ConsumeSlot only succeeds while a free slot exists, and the
// check-and-increment happens under one lock.
type fakeStore struct {
	mu       sync.Mutex
	galaxies map[string]*UserGalaxy
}

func newFakeStore() *fakeStore {
	return &fakeStore{galaxies: make(map[string]*UserGalaxy)}
}

func (f *fakeStore) GetByUser(_ context.Context, userID string) (*UserGalaxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.galaxies[userID]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (f *fakeStore) CreditWords(_ context.Context, userID string, words int) (*UserGalaxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.galaxies[userID]
	if !ok {
		g = &UserGalaxy{UserID: userID}
		f.galaxies[userID] = g
	}
	g.TotalWordsTyped += int64(words)
	g.SlotsUnlocked = int(g.TotalWordsTyped / WordsPerSlot)
	copied := *g
	return &copied, nil
}

func (f *fakeStore) ConsumeSlot(_ context.Context, userID string) (*UserGalaxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.galaxies[userID]
	if !ok || g.SlotsUsed >= g.SlotsUnlocked {
		return nil, nil
	}
	g.SlotsUsed++
	copied := *g
	return &copied, nil
}

func (f *fakeStore) RefundSlot(_ context.Context, userID string) (*UserGalaxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.galaxies[userID]
	if !ok || g.SlotsUsed == 0 {
		return nil, nil
	}
	g.SlotsUsed--
	copied := *g
	return &copied, nil
}

func newTestService(store Store) *Service {
	return NewService(store, slog.Default())
}

func TestRecordWordsTyped(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)
	ctx := context.Background()

	g, err := service.RecordWordsTyped(ctx, "user-1", 400)
	require.NoError(t, err)
	assert.Equal(t, int64(400), g.TotalWordsTyped)
	assert.Equal(t, 0, g.SlotsUnlocked)

	g, err = service.RecordWordsTyped(ctx, "user-1", 700)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), g.TotalWordsTyped)
	assert.Equal(t, 1, g.SlotsUnlocked)
}

func TestRecordWordsTypedRejectsNegative(t *testing.T) {
	service := newTestService(newFakeStore())

	_, err := service.RecordWordsTyped(context.Background(), "user-1", -10)
	assert.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))
}

func TestGetSlotStatusNewUser(t *testing.T) {
	service := newTestService(newFakeStore())

	status, err := service.GetSlotStatus(context.Background(), "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Available)
	assert.Equal(t, WordsPerSlot, status.Needed)
}

func TestGetSlotStatusMath(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)
	ctx := context.Background()

	_, err := service.RecordWordsTyped(ctx, "user-1", 2500)
	require.NoError(t, err)
	require.NoError(t, service.ConsumeSlot(ctx, "user-1"))

	status, err := service.GetSlotStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Available)
	assert.Equal(t, 0, status.Needed)

	// Exhaust the remaining slot; needed now counts toward the next unlock.
	require.NoError(t, service.ConsumeSlot(ctx, "user-1"))

	status, err = service.GetSlotStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Available)
	assert.Equal(t, 500, status.Needed)
}

func TestConsumeSlotWithoutSlots(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)
	ctx := context.Background()

	_, err := service.RecordWordsTyped(ctx, "user-1", 800)
	require.NoError(t, err)

	err = service.ConsumeSlot(ctx, "user-1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeRateLimited, errors.GetType(err))
	assert.Contains(t, err.Error(), "200 more words")
}

func TestConsumeSlotConcurrent(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)
	ctx := context.Background()

	// Exactly one slot available, many racing consumers.
	_, err := service.RecordWordsTyped(ctx, "user-1", 1000)
	require.NoError(t, err)

	const racers = 20
	var wg sync.WaitGroup
	successes := make(chan struct{}, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := service.ConsumeSlot(ctx, "user-1"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1)

	g, err := service.GetGalaxy(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, g.SlotsUsed)
}

func TestRefundSlot(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)
	ctx := context.Background()

	_, err := service.RecordWordsTyped(ctx, "user-1", 1000)
	require.NoError(t, err)
	require.NoError(t, service.ConsumeSlot(ctx, "user-1"))
	require.NoError(t, service.RefundSlot(ctx, "user-1"))

	status, err := service.GetSlotStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Available)
}

func TestGetGalaxyNewUser(t *testing.T) {
	service := newTestService(newFakeStore())

	g, err := service.GetGalaxy(context.Background(), "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, "fresh-user", g.UserID)
	assert.Equal(t, int64(0), g.TotalWordsTyped)
}
