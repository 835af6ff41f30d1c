package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/impostor/models"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore 进程内房间存储，单机开发和测试用
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &MemoryStore{
		rooms: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// load 读取并在过期时顺手删除；调用方持有锁
func (s *MemoryStore) load(roomID string) (*models.Room, error) {
	entry, ok := s.rooms[roomKey(roomID)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.rooms, roomKey(roomID))
		return nil, ErrRecordNotFound
	}
	return decodeRoom(entry.data)
}

func (s *MemoryStore) save(room *models.Room) error {
	data, err := encodeRoom(room)
	if err != nil {
		return err
	}
	s.rooms[roomKey(room.ID)] = memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, roomID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(roomID)
}

func (s *MemoryStore) Create(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(room.ID); err == nil {
		return ErrRoomExists
	}
	return s.save(room)
}

func (s *MemoryStore) Put(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(room)
}

func (s *MemoryStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := s.load(roomID)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	if err := s.save(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *MemoryStore) Delete(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomKey(roomID))
	return nil
}

// PurgeExpired 清理过期房间，返回清理数量
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purged := 0
	for key, entry := range s.rooms {
		if !now.Before(entry.expiresAt) {
			delete(s.rooms, key)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
