package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/impostor/models"
)

func testRoom(id string) *models.Room {
	return &models.Room{
		ID:      id,
		Status:  models.RoomLobby,
		AdminID: "p1",
		Players: map[string]*models.Player{
			"p1": {ID: "p1", Nickname: "Ana", IsAdmin: true, Status: models.PlayerActive},
		},
		Dictionary: map[string]models.WordEntry{},
		History:    []models.RoundSummary{},
		Config:     models.RoomConfig{ImpostorCount: 1},
	}
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, time.Hour)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

// exerciseStore runs the RoomStore contract against any implementation.
func exerciseStore(t *testing.T, store RoomStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, store.Create(ctx, testRoom("ROOM1")))
	assert.ErrorIs(t, store.Create(ctx, testRoom("ROOM1")), ErrRoomExists)

	room, err := store.Get(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", room.Players["p1"].Nickname)

	// mutating a loaded copy does not touch the stored room
	room.Players["p1"].Nickname = "Changed"
	again, err := store.Get(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Players["p1"].Nickname)

	updated, err := store.Update(ctx, "ROOM1", func(r *models.Room) error {
		r.Players["p2"] = &models.Player{ID: "p2", Nickname: "Bob", Status: models.PlayerActive}
		r.Round = &models.Round{ID: "r1", State: &models.VoteState{Open: true}}
		r.Status = models.RoomInRound
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, updated.Players, 2)

	stored, err := store.Get(ctx, "ROOM1")
	require.NoError(t, err)
	require.NotNil(t, stored.Round)
	assert.Equal(t, models.PhaseVote, stored.Round.Phase())

	boom := errors.New("boom")
	_, err = store.Update(ctx, "ROOM1", func(r *models.Room) error {
		r.Status = models.RoomClosed
		return boom
	})
	assert.ErrorIs(t, err, boom)
	stored, err = store.Get(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, models.RoomInRound, stored.Status, "failed update is not persisted")

	_, err = store.Update(ctx, "NOPE", func(r *models.Room) error { return nil })
	assert.ErrorIs(t, err, ErrRecordNotFound)

	stored.Status = models.RoomLobby
	stored.Round = nil
	require.NoError(t, store.Put(ctx, stored))
	stored, err = store.Get(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Nil(t, stored.Round)

	require.NoError(t, store.Delete(ctx, "ROOM1"))
	_, err = store.Get(ctx, "ROOM1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestRedisStore(t)
	exerciseStore(t, store)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, testRoom("A")))
	require.NoError(t, store.Create(ctx, testRoom("B")))

	now = now.Add(50 * time.Second)
	_, err := store.Update(ctx, "A", func(*models.Room) error { return nil })
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	_, err = store.Get(ctx, "A")
	assert.NoError(t, err, "write refreshed the ttl")
	_, err = store.Get(ctx, "B")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// an expired id can be created again
	require.NoError(t, store.Create(ctx, testRoom("B")))

	now = now.Add(2 * time.Minute)
	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)
	require.NoError(t, store.Create(ctx, testRoom("ROOM1")))
	assert.Equal(t, time.Hour, mr.TTL("room:ROOM1"))

	mr.FastForward(59 * time.Minute)
	_, err := store.Update(ctx, "ROOM1", func(*models.Room) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("room:ROOM1"))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "ROOM1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStores_ConcurrentUpdates(t *testing.T) {
	redisStore, _ := newTestRedisStore(t)
	stores := map[string]RoomStore{
		"memory": NewMemoryStore(time.Hour),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, testRoom("ROOM1")))

			const writers = 4
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Update(ctx, "ROOM1", func(r *models.Room) error {
						r.Players["p1"].Points++
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			room, err := store.Get(ctx, "ROOM1")
			require.NoError(t, err)
			assert.Equal(t, writers, room.Players["p1"].Points)
		})
	}
}
