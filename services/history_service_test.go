package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/impostor/models"
)

func TestBuildGameRecord(t *testing.T) {
	room := &models.Room{
		ID: "sala",
		Players: map[string]*models.Player{
			"c": {ID: "c", Nickname: "carl"},
			"a": {ID: "a", Nickname: "ana"},
			"b": {ID: "b", Nickname: "bob"},
		},
	}
	summary := models.RoundSummary{
		RoundID:       "r1",
		Winner:        models.WinnerImpostor,
		ImpostorIDs:   []string{"b"},
		PointsAwarded: map[string]int{"b": 2},
	}

	record := BuildGameRecord(room, summary)
	assert.Equal(t, "sala", record.RoomID)
	require.Len(t, record.Players, 3)
	assert.Equal(t, "a", record.Players[0].PlayerID)
	assert.Equal(t, models.OutcomeLose, record.Players[0].Outcome)
	assert.Equal(t, models.OutcomeWin, record.Players[1].Outcome)
	assert.Equal(t, 2, record.Players[1].Points)
	assert.Equal(t, 0, record.Players[2].Points)
}

func TestHistoryService_LeaderboardLimit(t *testing.T) {
	db := &MockDatabase{}
	h := NewHistoryService(db)
	ctx := context.Background()

	_, err := h.Leaderboard(ctx, "sala", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLeaderboardLimit, db.limit)

	_, err = h.Leaderboard(ctx, "sala", 5000)
	require.NoError(t, err)
	assert.Equal(t, MaxLeaderboardLimit, db.limit)
}
