// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// GormRoundRecord 一局结束后的归档记录
type GormRoundRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RoomID        string `gorm:"index;not null"`
	RoundID       string `gorm:"uniqueIndex;not null"`
	Winner        string `gorm:"size:16;not null"`
	SecretWord    string `gorm:"not null"`
	AccusedID     string `gorm:"size:64"`
	GuessSuccess  *bool
	ImpostorIDs   datatypes.JSONSlice[string]     `gorm:"type:jsonb"`
	PointsAwarded datatypes.JSONMap               `gorm:"type:jsonb"`
	Players       datatypes.JSONSlice[PlayerInfo] `gorm:"type:jsonb"`
	FinishedAt    time.Time                       `gorm:"index;not null"`
	CreatedAt     time.Time
}

// GormPlayerScore 房间内玩家的累计积分
type GormPlayerScore struct {
	ID           uint   `gorm:"primaryKey"`
	RoomID       string `gorm:"not null;uniqueIndex:idx_scores_room_player"`
	PlayerID     string `gorm:"not null;uniqueIndex:idx_scores_room_player"`
	Nickname     string `gorm:"not null"`
	Points       int    `gorm:"default:0"`
	RoundsPlayed int    `gorm:"default:0"`
	RoundsWon    int    `gorm:"default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GormRoundRecord) TableName() string { return "round_records" }

func (GormPlayerScore) TableName() string { return "player_scores" }
