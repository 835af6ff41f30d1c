package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const queryTimeout = 5 * time.Second

// PostgresStore 基于 PostgreSQL 的房间存储，房间整体存为 JSONB
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore 创建 PostgreSQL 连接并执行迁移
func NewPostgresStore(ctx context.Context, host string, port int, user, password, dbname string, ttl time.Duration) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres %s:%d: %w", host, port, err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migrateRooms(db); err != nil {
		db.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &PostgresStore{db: db, ttl: ttl}, nil
}

// migrateRooms 执行内嵌的 SQL 迁移
func migrateRooms(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Log.Info("room store migrations applied")
	return nil
}

func (p *PostgresStore) expiry() time.Time {
	return time.Now().Add(p.ttl)
}

func (p *PostgresStore) Get(ctx context.Context, roomID string) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var data []byte
	query := `SELECT data FROM rooms WHERE room_id = $1 AND expires_at > NOW()`
	err := p.db.QueryRowContext(ctx, query, roomID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(data)
}

// Create 只在房间不存在或已过期时写入
func (p *PostgresStore) Create(ctx context.Context, room *models.Room) error {
	data, err := encodeRoom(room)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO rooms (room_id, data, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (room_id)
        DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at,
            created_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
        WHERE rooms.expires_at <= NOW()
    `
	res, err := p.db.ExecContext(ctx, query, room.ID, data, p.expiry())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomExists
	}
	return nil
}

func (p *PostgresStore) Put(ctx context.Context, room *models.Room) error {
	data, err := encodeRoom(room)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	query := `
        INSERT INTO rooms (room_id, data, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (room_id)
        DO UPDATE SET data = $2, expires_at = $3, updated_at = CURRENT_TIMESTAMP
    `
	_, err = p.db.ExecContext(ctx, query, room.ID, data, p.expiry())
	return err
}

// Update 在事务中用 SELECT ... FOR UPDATE 锁住该房间行
func (p *PostgresStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var data []byte
	query := `SELECT data FROM rooms WHERE room_id = $1 AND expires_at > NOW() FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, roomID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	room, err := decodeRoom(data)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	out, err := encodeRoom(room)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE rooms SET data = $2, expires_at = $3, updated_at = CURRENT_TIMESTAMP WHERE room_id = $1`,
		roomID, out, p.expiry())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return room, nil
}

func (p *PostgresStore) Delete(ctx context.Context, roomID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	return err
}

// PurgeExpired 删除过期房间，由定时器周期调用
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close 关闭数据库连接
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
