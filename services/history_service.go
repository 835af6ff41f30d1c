package services

import (
	"context"
	"sort"

	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/persistence"
	"github.com/wfunc/impostor/utils"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// HistoryService 归档已结束的回合并提供房间榜单
type HistoryService struct {
	db persistence.Database
}

func NewHistoryService(db persistence.Database) *HistoryService {
	return &HistoryService{db: db}
}

// RecordRound 归档一局；room 是结算后的房间
func (s *HistoryService) RecordRound(ctx context.Context, room *models.Room, summary models.RoundSummary) error {
	return s.db.ArchiveRound(ctx, BuildGameRecord(room, summary))
}

// Leaderboard limit<=0 时使用默认值
func (s *HistoryService) Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return s.db.Leaderboard(ctx, roomID, utils.Clamp(limit, 1, MaxLeaderboardLimit))
}

// BuildGameRecord lists every player still in the room with their outcome and points.
func BuildGameRecord(room *models.Room, summary models.RoundSummary) models.GameRecord {
	impostors := make(map[string]bool, len(summary.ImpostorIDs))
	for _, id := range summary.ImpostorIDs {
		impostors[id] = true
	}

	players := make([]models.PlayerInfo, 0, len(room.Players))
	for id, p := range room.Players {
		won := impostors[id] == (summary.Winner == models.WinnerImpostor)
		outcome := models.OutcomeLose
		if won {
			outcome = models.OutcomeWin
		}
		players = append(players, models.PlayerInfo{
			PlayerID: id,
			Nickname: p.Nickname,
			Outcome:  outcome,
			Points:   summary.PointsAwarded[id],
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].PlayerID < players[j].PlayerID })
	return models.GameRecord{RoomID: room.ID, Summary: summary, Players: players}
}
