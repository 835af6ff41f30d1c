package network

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// 客户端 -> 服务端
const (
	MsgTypeHeartbeat  = 1
	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeCreateRoom = 103
	MsgTypeAddWord    = 201
	MsgTypeStartRound = 202
	MsgTypeOpenVote   = 203
	MsgTypeVote       = 204
	MsgTypeContinue   = 205
	MsgTypeGuess      = 206
	MsgTypeKick       = 207
	MsgTypeCloseRoom  = 208
	MsgTypeConfig     = 209
)

// 服务端 -> 客户端
const (
	MsgTypePong         = 2
	MsgTypeRoomSnapshot = 301
	MsgTypeJoined       = 302
	MsgTypeError        = 399
)

const headerSize = 4

var ErrPacketTooLarge = errors.New("packet payload exceeds 65535 bytes")

type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

// EncodePacket 封包: 2字节消息ID + 2字节数据长度 + 数据
func EncodePacket(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > math.MaxUint16 {
		return nil, ErrPacketTooLarge
	}
	packet := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[headerSize:], data)
	return packet, nil
}

// DecodePacket 解包，数据不足时返回 io.ErrShortBuffer
func DecodePacket(raw []byte) (*Packet, error) {
	if len(raw) < headerSize {
		return nil, io.ErrShortBuffer
	}
	msgID := binary.BigEndian.Uint16(raw[0:2])
	length := binary.BigEndian.Uint16(raw[2:4])
	if len(raw) < headerSize+int(length) {
		return nil, io.ErrShortBuffer
	}
	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   raw[headerSize : headerSize+int(length)],
	}, nil
}

// Payloads. Field names match the HTTP API.

type CreateRoomRequest struct {
	RoomID       string `json:"roomId"`
	Nickname     string `json:"nickname"`
	SessionToken string `json:"sessionToken"`
}

type JoinRoomRequest = CreateRoomRequest

type AddWordRequest struct {
	Word     string `json:"word"`
	Category string `json:"category"`
}

type VoteRequest struct {
	TargetID string `json:"targetId"`
	IsRevote *bool  `json:"isRevote,omitempty"`
}

type GuessRequest struct {
	Success bool `json:"success"`
}

type KickRequest struct {
	TargetID string `json:"targetId"`
}

type ConfigRequest struct {
	ImpostorCount int `json:"impostorCount"`
}

type JoinedMessage struct {
	RoomID       string `json:"roomId"`
	PlayerID     string `json:"playerId"`
	SessionToken string `json:"sessionToken"`
	Reconnected  bool   `json:"reconnected"`
}

type ErrorMessage struct {
	MsgID  uint16 `json:"msgId"`
	Status int    `json:"status"`
	Error  string `json:"error"`
}
