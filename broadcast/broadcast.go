package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/network"
	"github.com/wfunc/impostor/room"
	"github.com/wfunc/impostor/session"
	"github.com/wfunc/impostor/view"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	RoomChanged(room *models.Room)
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error
}

// RoomBroadcaster 给房间内每个连接推送各自视角的房间快照
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

// RoomChanged 每个玩家只能看到自己的视角；已被踢出的连接会收到错误并离开频道
func (b *RoomBroadcaster) RoomChanged(r *models.Room) {
	ch, exists := b.roomManager.GetRoom(r.ID)
	if !exists {
		return
	}

	for _, s := range ch.GetSessions() {
		playerID := s.PlayerID()
		if _, member := r.Players[playerID]; !member {
			data, _ := json.Marshal(network.ErrorMessage{Status: 403, Error: "you are no longer in this room"})
			s.Send(network.MsgTypeError, data)
			ch.RemovePlayer(s.ID)
			s.Unbind()
			continue
		}

		data, err := json.Marshal(view.Project(r, playerID))
		if err != nil {
			logger.Log.Errorf("room %s: encode snapshot: %v", r.ID, err)
			return
		}
		if err := s.Send(network.MsgTypeRoomSnapshot, data); err != nil {
			// 发送失败由读循环负责清理连接
			logger.Log.Warnf("room %s: push to session %s: %v", r.ID, s.GetID(), err)
		}
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	ch, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	for _, s := range ch.GetSessions() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("room %s: broadcast to session %s: %v", roomID, s.GetID(), err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error {
	for _, playerID := range playerIDs {
		for _, s := range b.sessionManager.GetByPlayerID(playerID) {
			if err := s.Send(msgID, data); err != nil {
				logger.Log.Warnf("player %s: send to session %s: %v", playerID, s.GetID(), err)
			}
		}
	}
	return nil
}
