package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/models"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr; ":0" picks a free port, see Addr.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes rcvr's exported methods under its type name.
func (s *Server) Register(rcvr any) error {
	return s.rpc.Register(rcvr)
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start blocks accepting RPC connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LeaderboardSource is satisfied by services.RoomService.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error)
}

// RoomLister is satisfied by room.Manager.
type RoomLister interface {
	RoomIDs() []string
}

// GameService 供运维和其他内部服务查询
type GameService struct {
	leaderboard LeaderboardSource
	rooms       RoomLister
}

func NewGameService(leaderboard LeaderboardSource, rooms RoomLister) *GameService {
	return &GameService{leaderboard: leaderboard, rooms: rooms}
}

type LeaderboardArgs struct {
	RoomID string
	Limit  int
}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

// Leaderboard Limit<=0 时使用默认条数
func (gs *GameService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	entries, err := gs.leaderboard.Leaderboard(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}

type ActiveRoomsArgs struct{}

type ActiveRoomsReply struct {
	RoomIDs []string
}

func (gs *GameService) ActiveRooms(args *ActiveRoomsArgs, reply *ActiveRoomsReply) error {
	reply.RoomIDs = gs.rooms.RoomIDs()
	return nil
}
