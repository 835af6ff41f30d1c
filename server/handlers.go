package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/impostor/logger"
)

// roomRequest 所有房间操作共用；sessionToken 也可以放在 Authorization: Bearer 头里
type roomRequest struct {
	RoomID       string `json:"roomId" binding:"required"`
	SessionToken string `json:"sessionToken"`
}

type createRequest struct {
	RoomID       string `json:"roomId"`
	Nickname     string `json:"nickname" binding:"required"`
	SessionToken string `json:"sessionToken"`
}

type joinRequest struct {
	RoomID       string `json:"roomId" binding:"required"`
	Nickname     string `json:"nickname"`
	SessionToken string `json:"sessionToken"`
}

type wordRequest struct {
	roomRequest
	Word     string `json:"word" binding:"required"`
	Category string `json:"category"`
}

type configRequest struct {
	roomRequest
	ImpostorCount int `json:"impostorCount"`
}

type targetRequest struct {
	roomRequest
	TargetID string `json:"targetId" binding:"required"`
}

type voteRequest struct {
	roomRequest
	TargetID string `json:"targetId" binding:"required"`
	IsRevote *bool  `json:"isRevote"`
}

type guessRequest struct {
	roomRequest
	Success *bool `json:"success" binding:"required"`
}

func sessionToken(c *gin.Context, fromBody string) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return fromBody
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(status, err)})
}

func reply(c *gin.Context, body any, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func (s *GameServer) handleCreate(c *gin.Context) {
	var req createRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Create(ctx, req.RoomID, req.Nickname, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handleJoin(c *gin.Context) {
	var req joinRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Join(ctx, req.RoomID, req.Nickname, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handleLeave(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	err := s.rooms.Leave(ctx, req.RoomID, sessionToken(c, req.SessionToken))
	reply(c, gin.H{"ok": true}, err)
}

func (s *GameServer) handleHeartbeat(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Heartbeat(ctx, req.RoomID, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handlePoll(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Snapshot(ctx, roomID, sessionToken(c, c.Query("sessionToken")))
	reply(c, res, err)
}

func (s *GameServer) handleAddWord(c *gin.Context) {
	var req wordRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.AddWord(ctx, req.RoomID, sessionToken(c, req.SessionToken), req.Word, req.Category)
	reply(c, res, err)
}

func (s *GameServer) handleConfig(c *gin.Context) {
	var req configRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.UpdateConfig(ctx, req.RoomID, sessionToken(c, req.SessionToken), req.ImpostorCount)
	reply(c, res, err)
}

func (s *GameServer) handleKick(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Kick(ctx, req.RoomID, sessionToken(c, req.SessionToken), req.TargetID)
	reply(c, res, err)
}

func (s *GameServer) handleClose(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Close(ctx, req.RoomID, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handleStartRound(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.StartRound(ctx, req.RoomID, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handleOpenVote(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.OpenVoting(ctx, req.RoomID, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handleVote(c *gin.Context) {
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Vote(ctx, req.RoomID, sessionToken(c, req.SessionToken), req.TargetID, req.IsRevote)
	reply(c, res, err)
}

func (s *GameServer) handleContinue(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.Continue(ctx, req.RoomID, sessionToken(c, req.SessionToken))
	reply(c, res, err)
}

func (s *GameServer) handleGuess(c *gin.Context) {
	var req guessRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.rooms.ResolveGuess(ctx, req.RoomID, sessionToken(c, req.SessionToken), *req.Success)
	reply(c, res, err)
}

// handleLeaderboard 公开接口，不需要 session
func (s *GameServer) handleLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = n
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	entries, err := s.rooms.Leaderboard(ctx, c.Param("roomId"), limit)
	reply(c, gin.H{"roomId": c.Param("roomId"), "entries": entries}, err)
}
