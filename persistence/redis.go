package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/models"
)

const redisUpdateRetries = 8

// RedisStore 房间存储的生产实现，依赖 Redis 自带的 key 过期
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 连接 Redis 并校验连通性
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	logger.Log.Infof("connected to redis %s db=%d", addr, db)
	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, roomID string) (*models.Room, error) {
	data, err := s.client.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return decodeRoom(data)
}

func (s *RedisStore) Create(ctx context.Context, room *models.Room) error {
	data, err := encodeRoom(room)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, roomKey(room.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	if !ok {
		return ErrRoomExists
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, room *models.Room) error {
	data, err := encodeRoom(room)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, roomKey(room.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put room %s: %w", room.ID, err)
	}
	return nil
}

// Update 使用 WATCH/MULTI 乐观锁，冲突时重新读取并重试
func (s *RedisStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error) {
	key := roomKey(roomID)
	var updated *models.Room

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		room, err := decodeRoom(data)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		out, err := encodeRoom(room)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = room
		return nil
	}

	for attempt := 0; attempt < redisUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logger.Log.Debugf("room %s update conflict, retry %d", roomID, attempt+1)
			continue
		}
		return nil, err
	}
	return nil, ErrUpdateConflict
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	return s.client.Del(ctx, roomKey(roomID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
