package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/impostor/models"
)

// GormPostgreSQL 使用GORM的历史归档实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormRoundRecord{}, &models.GormPlayerScore{}); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// ArchiveRound 保存一局记录并累加玩家积分；同一 round 重复归档会被忽略
func (p *GormPostgreSQL) ArchiveRound(ctx context.Context, record models.GameRecord) error {
	summary := record.Summary
	points := make(datatypes.JSONMap, len(summary.PointsAwarded))
	for id, pts := range summary.PointsAwarded {
		points[id] = pts
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.GormRoundRecord{
			RoomID:        record.RoomID,
			RoundID:       summary.RoundID,
			Winner:        string(summary.Winner),
			SecretWord:    summary.SecretWord,
			AccusedID:     summary.AccusedID,
			GuessSuccess:  summary.ImpostorGuessSuccess,
			ImpostorIDs:   datatypes.NewJSONSlice(summary.ImpostorIDs),
			PointsAwarded: points,
			Players:       datatypes.NewJSONSlice(record.Players),
			FinishedAt:    summary.FinishedAt,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "round_id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		for _, pl := range record.Players {
			won := 0
			if pl.Outcome == models.OutcomeWin {
				won = 1
			}
			score := models.GormPlayerScore{
				RoomID:       record.RoomID,
				PlayerID:     pl.PlayerID,
				Nickname:     pl.Nickname,
				Points:       pl.Points,
				RoundsPlayed: 1,
				RoundsWon:    won,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "room_id"}, {Name: "player_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"nickname":      pl.Nickname,
					"points":        gorm.Expr("player_scores.points + ?", pl.Points),
					"rounds_played": gorm.Expr("player_scores.rounds_played + 1"),
					"rounds_won":    gorm.Expr("player_scores.rounds_won + ?", won),
					"updated_at":    time.Now(),
				}),
			}).Create(&score).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Leaderboard 按积分排序的房间榜单
func (p *GormPostgreSQL) Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error) {
	var rows []models.GormPlayerScore
	err := p.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("points DESC").
		Order("rounds_won DESC").
		Order("nickname").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.LeaderboardEntry{
			PlayerID:     row.PlayerID,
			Nickname:     row.Nickname,
			Points:       row.Points,
			RoundsPlayed: row.RoundsPlayed,
			RoundsWon:    row.RoundsWon,
		})
	}
	return entries, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
