package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wfunc/impostor/models"
)

// DefaultRoomTTL 房间闲置多久后过期
const DefaultRoomTTL = 24 * time.Hour

const roomKeyPrefix = "room:"

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrUpdateConflict = errors.New("room update kept conflicting")
)

// UpdateFunc mutates a freshly loaded room. It may run more than once, so it must not
// have side effects outside the room.
type UpdateFunc func(room *models.Room) error

// RoomStore 房间存储接口；每次写入都会刷新 TTL
type RoomStore interface {
	Get(ctx context.Context, roomID string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Put(ctx context.Context, room *models.Room) error
	// Update serializes writers of one room: load, fn, persist. An error from fn
	// aborts the write and is returned unchanged.
	Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error)
	Delete(ctx context.Context, roomID string) error
	Close() error
}

// Database 历史归档接口
type Database interface {
	ArchiveRound(ctx context.Context, record models.GameRecord) error
	Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error)
	Close() error
}

func roomKey(roomID string) string {
	return roomKeyPrefix + roomID
}

func encodeRoom(room *models.Room) ([]byte, error) {
	return json.Marshal(room)
}

func decodeRoom(data []byte) (*models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}
