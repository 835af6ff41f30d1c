package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/network"
	"github.com/wfunc/impostor/services"
	"github.com/wfunc/impostor/session"
)

var errNotJoined = fmt.Errorf("%w: join a room first", services.ErrBadRequest)

func (s *GameServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}
	s.handleConnection(session.NewSession(uuid.New().String(), wsConn))
}

func (s *GameServer) handleConnection(sess *session.Session) {
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()
	logger.Log.Infof("New connection from %s, session ID: %s", sess.Conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", sess.Conn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.roomManager.Leave(sess)
		s.monitor.DecOnlinePlayers()
		s.disconnect(sess)
		sess.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := sess.Conn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// disconnect marks the player away unless another connection still acts for them.
func (s *GameServer) disconnect(sess *session.Session) {
	roomID, playerID, token := sess.Binding()
	if roomID == "" || len(s.sessionManager.GetByPlayerID(playerID)) > 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.rooms.Leave(ctx, roomID, token); err != nil {
		logger.Log.Debugf("session %s: leave on disconnect: %v", sess.GetID(), err)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := s.dispatch(ctx, sess, packet); err != nil {
		s.sendError(sess, packet.MsgID, err)
	}
}

func (s *GameServer) dispatch(ctx context.Context, sess *session.Session, packet *network.Packet) error {
	sess.Touch()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		if roomID, _, token := sess.Binding(); roomID != "" {
			if _, err := s.rooms.Heartbeat(ctx, roomID, token); err != nil {
				return err
			}
		}
		return sess.Send(network.MsgTypePong, nil)
	case network.MsgTypeCreateRoom, network.MsgTypeJoinRoom:
		return s.handleJoinPacket(ctx, sess, packet)
	}

	roomID, _, token := sess.Binding()
	if roomID == "" {
		return errNotJoined
	}

	// 成功的结果由 broadcaster 推送给房间里的所有连接
	switch packet.MsgID {
	case network.MsgTypeLeaveRoom:
		if err := s.rooms.Leave(ctx, roomID, token); err != nil {
			return err
		}
		s.roomManager.Leave(sess)
		sess.Unbind()
		return nil
	case network.MsgTypeAddWord:
		var req network.AddWordRequest
		if err := decode(packet, &req); err != nil {
			return err
		}
		_, err := s.rooms.AddWord(ctx, roomID, token, req.Word, req.Category)
		return err
	case network.MsgTypeConfig:
		var req network.ConfigRequest
		if err := decode(packet, &req); err != nil {
			return err
		}
		_, err := s.rooms.UpdateConfig(ctx, roomID, token, req.ImpostorCount)
		return err
	case network.MsgTypeStartRound:
		_, err := s.rooms.StartRound(ctx, roomID, token)
		return err
	case network.MsgTypeOpenVote:
		_, err := s.rooms.OpenVoting(ctx, roomID, token)
		return err
	case network.MsgTypeVote:
		var req network.VoteRequest
		if err := decode(packet, &req); err != nil {
			return err
		}
		_, err := s.rooms.Vote(ctx, roomID, token, req.TargetID, req.IsRevote)
		return err
	case network.MsgTypeContinue:
		_, err := s.rooms.Continue(ctx, roomID, token)
		return err
	case network.MsgTypeGuess:
		var req network.GuessRequest
		if err := decode(packet, &req); err != nil {
			return err
		}
		_, err := s.rooms.ResolveGuess(ctx, roomID, token, req.Success)
		return err
	case network.MsgTypeKick:
		var req network.KickRequest
		if err := decode(packet, &req); err != nil {
			return err
		}
		_, err := s.rooms.Kick(ctx, roomID, token, req.TargetID)
		return err
	case network.MsgTypeCloseRoom:
		_, err := s.rooms.Close(ctx, roomID, token)
		return err
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		return fmt.Errorf("%w: unknown message type %d", services.ErrBadRequest, packet.MsgID)
	}
}

func (s *GameServer) handleJoinPacket(ctx context.Context, sess *session.Session, packet *network.Packet) error {
	var req network.CreateRoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}

	var (
		res *services.JoinResult
		err error
	)
	if packet.MsgID == network.MsgTypeCreateRoom {
		res, err = s.rooms.Create(ctx, req.RoomID, req.Nickname, req.SessionToken)
	} else {
		res, err = s.rooms.Join(ctx, req.RoomID, req.Nickname, req.SessionToken)
	}
	if err != nil {
		return err
	}

	sess.Bind(res.RoomID, res.PlayerID, res.SessionToken)
	s.roomManager.Join(res.RoomID, sess)
	logger.Log.Infof("Session %s joined room %s as %s", sess.GetID(), res.RoomID, res.PlayerID)

	joined, _ := json.Marshal(network.JoinedMessage{
		RoomID:       res.RoomID,
		PlayerID:     res.PlayerID,
		SessionToken: res.SessionToken,
		Reconnected:  res.Reconnected,
	})
	if err := sess.Send(network.MsgTypeJoined, joined); err != nil {
		return err
	}
	// 加入前的广播不会到达这个连接，单独补一份快照
	snapshot, err := json.Marshal(res.Room)
	if err != nil {
		return err
	}
	return sess.Send(network.MsgTypeRoomSnapshot, snapshot)
}

func decode(packet *network.Packet, v any) error {
	if err := json.Unmarshal(packet.Data, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", services.ErrBadRequest, err)
	}
	return nil
}

func (s *GameServer) sendError(sess *session.Session, msgID uint16, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger.Log.Errorf("session %s: message %d: %v", sess.GetID(), msgID, err)
	}
	data, _ := json.Marshal(network.ErrorMessage{
		MsgID:  msgID,
		Status: status,
		Error:  publicMessage(status, err),
	})
	if sendErr := sess.Send(network.MsgTypeError, data); sendErr != nil {
		logger.Log.Debugf("session %s: send error: %v", sess.GetID(), sendErr)
	}
}
