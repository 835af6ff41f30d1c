package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wfunc/impostor/game"
	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/persistence"
	"github.com/wfunc/impostor/utils"
	"github.com/wfunc/impostor/view"
)

// Notifier is told about every committed room change.
type Notifier interface {
	RoomChanged(room *models.Room)
}

// Recorder receives game metrics.
type Recorder interface {
	RoomCreated()
	PlayerJoined()
	RoundStarted()
	RoundFinished(winner models.Winner)
	VoteCast(outcome string)
	OperationFailed(op string)
}

// Tracker remembers which rooms are live on this node so the heartbeat sweeper can visit them.
type Tracker interface {
	Track(roomID string)
	Forget(roomID string)
	RoomIDs() []string
}

type nopNotifier struct{}

func (nopNotifier) RoomChanged(*models.Room) {}

type nopRecorder struct{}

func (nopRecorder) RoomCreated()                {}
func (nopRecorder) PlayerJoined()               {}
func (nopRecorder) RoundStarted()               {}
func (nopRecorder) RoundFinished(models.Winner) {}
func (nopRecorder) VoteCast(string)             {}
func (nopRecorder) OperationFailed(string)      {}

type nopTracker struct{}

func (nopTracker) Track(string)      {}
func (nopTracker) Forget(string)     {}
func (nopTracker) RoomIDs() []string { return nil }

// errUnchanged aborts a store update that turned out to be a no-op.
var errUnchanged = errors.New("room unchanged")

// JoinResult is returned to a player entering a room.
type JoinResult struct {
	RoomID       string          `json:"roomId"`
	PlayerID     string          `json:"playerId"`
	SessionToken string          `json:"sessionToken"`
	Reconnected  bool            `json:"reconnected"`
	Room         view.PublicRoom `json:"room"`
}

type WordResult struct {
	Added bool            `json:"added"`
	Room  view.PublicRoom `json:"room"`
}

type VoteResult struct {
	Outcome game.VoteOutcome `json:"outcome"`
	Room    view.PublicRoom  `json:"room"`
}

type ContinueResult struct {
	State   game.ContinueOutcome `json:"state"`
	Summary *models.RoundSummary `json:"summary"`
	Room    view.PublicRoom      `json:"room"`
}

type GuessResult struct {
	Summary *models.RoundSummary `json:"summary"`
	Room    view.PublicRoom      `json:"room"`
}

type KickResult struct {
	RoundCancelled bool                 `json:"roundCancelled"`
	Summary        *models.RoundSummary `json:"summary,omitempty"`
	Vote           game.VoteOutcome     `json:"vote,omitempty"`
	Room           view.PublicRoom      `json:"room"`
}

// RoomService is the single entry point of both transports: it authenticates the
// session, runs one engine operation under the store's per-room serialization,
// then notifies subscribers and archives finished rounds.
type RoomService struct {
	store    persistence.RoomStore
	engine   *game.Engine
	history  *HistoryService
	notifier Notifier
	recorder Recorder
	tracker  Tracker
}

type Option func(*RoomService)

func WithHistory(h *HistoryService) Option {
	return func(s *RoomService) { s.history = h }
}

func WithNotifier(n Notifier) Option {
	return func(s *RoomService) { s.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *RoomService) { s.recorder = r }
}

func WithTracker(t Tracker) Option {
	return func(s *RoomService) { s.tracker = t }
}

func NewRoomService(store persistence.RoomStore, engine *game.Engine, opts ...Option) *RoomService {
	s := &RoomService{
		store:    store,
		engine:   engine,
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		tracker:  nopTracker{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier swaps the notifier once the push transport is up.
func (s *RoomService) SetNotifier(n Notifier) {
	s.notifier = n
}

// mutation is one engine call on an authenticated player's room.
type mutation func(room *models.Room, actor *models.Player) error

// mutate loads the room, authenticates token, runs fn and persists the result.
func (s *RoomService) mutate(ctx context.Context, op, roomID, token string, adminOnly bool, fn mutation) (*models.Room, *models.Player, error) {
	if roomID == "" || token == "" {
		return nil, nil, badRequest("roomId and sessionToken are required")
	}

	var actor *models.Player
	room, err := s.store.Update(ctx, roomID, func(room *models.Room) error {
		if room.Status == models.RoomClosed {
			return ErrRoomClosed
		}
		player, ok := game.FindPlayerBySession(room, token)
		if !ok {
			return ErrInvalidSession
		}
		if adminOnly && !player.IsAdmin {
			return ErrForbidden
		}
		actor = player
		return fn(room, player)
	})
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			err = ErrRoomNotFound
		}
		s.recorder.OperationFailed(op)
		logger.Log.Warnf("room %s: %s failed: %v", roomID, op, err)
		return nil, nil, err
	}

	logger.Log.Infof("room %s: %s by %s", roomID, op, actor.ID)
	s.tracker.Track(roomID)
	s.notifier.RoomChanged(room)
	return room, actor, nil
}

// finish archives a round that just ended.
func (s *RoomService) finish(ctx context.Context, room *models.Room, summary *models.RoundSummary) {
	if summary == nil {
		return
	}
	s.recorder.RoundFinished(summary.Winner)
	logger.Log.Infof("room %s: round %s won by %s", room.ID, summary.RoundID, summary.Winner)
	if s.history == nil {
		return
	}
	if err := s.history.RecordRound(ctx, room, *summary); err != nil {
		logger.Log.Errorf("room %s: archive round %s: %v", room.ID, summary.RoundID, err)
	}
}

// Create makes a new room, or joins the room when roomID names an open one. A closed
// room id is reused for a fresh room.
func (s *RoomService) Create(ctx context.Context, roomID, nickname, token string) (*JoinResult, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, badRequest("nickname is required")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		roomID = utils.NewID()
	}

	existing, err := s.store.Get(ctx, roomID)
	switch {
	case err == nil && existing.Status != models.RoomClosed:
		return s.Join(ctx, roomID, nickname, token)
	case err != nil && !errors.Is(err, persistence.ErrRecordNotFound):
		return nil, err
	}

	room, admin := s.engine.CreateRoom(roomID, nickname)
	if existing != nil {
		err = s.store.Put(ctx, room)
	} else {
		err = s.store.Create(ctx, room)
	}
	if errors.Is(err, persistence.ErrRoomExists) {
		// lost the race, the other room is open
		return s.Join(ctx, roomID, nickname, token)
	}
	if err != nil {
		return nil, err
	}

	s.recorder.RoomCreated()
	s.tracker.Track(roomID)
	logger.Log.Infof("room %s: created by %s", roomID, admin.ID)
	return &JoinResult{
		RoomID:       roomID,
		PlayerID:     admin.ID,
		SessionToken: admin.SessionToken,
		Room:         view.Project(room, admin.ID),
	}, nil
}

// Join reconnects the player holding token, or adds a new player.
func (s *RoomService) Join(ctx context.Context, roomID, nickname, token string) (*JoinResult, error) {
	if roomID == "" {
		return nil, badRequest("roomId is required")
	}
	nickname = strings.TrimSpace(nickname)

	var player *models.Player
	var reconnected bool
	room, err := s.store.Update(ctx, roomID, func(room *models.Room) error {
		if room.Status == models.RoomClosed {
			return ErrRoomClosed
		}
		if existing, ok := game.FindPlayerBySession(room, token); ok {
			s.engine.ReconnectPlayer(existing)
			player, reconnected = existing, true
			return nil
		}
		if nickname == "" {
			return badRequest("nickname is required")
		}
		player, reconnected = s.engine.AddPlayer(room, nickname), false
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			err = ErrRoomNotFound
		}
		s.recorder.OperationFailed("join")
		return nil, err
	}

	if !reconnected {
		s.recorder.PlayerJoined()
	}
	s.tracker.Track(roomID)
	logger.Log.Infof("room %s: %s joined (reconnected=%v)", roomID, player.ID, reconnected)
	s.notifier.RoomChanged(room)
	return &JoinResult{
		RoomID:       roomID,
		PlayerID:     player.ID,
		SessionToken: player.SessionToken,
		Reconnected:  reconnected,
		Room:         view.Project(room, player.ID),
	}, nil
}

func (s *RoomService) Leave(ctx context.Context, roomID, token string) error {
	_, _, err := s.mutate(ctx, "leave", roomID, token, false, func(room *models.Room, actor *models.Player) error {
		outcome, err := s.engine.Disconnect(room, actor)
		if err == nil && outcome != game.OutcomePending {
			logger.Log.Infof("room %s: ballot %s after %s left", room.ID, outcome, actor.ID)
		}
		return err
	})
	return err
}

func (s *RoomService) Heartbeat(ctx context.Context, roomID, token string) (view.PublicRoom, error) {
	room, actor, err := s.mutate(ctx, "heartbeat", roomID, token, false, func(room *models.Room, actor *models.Player) error {
		s.engine.MarkHeartbeat(actor)
		return nil
	})
	if err != nil {
		return view.PublicRoom{}, err
	}
	return view.Project(room, actor.ID), nil
}

// Snapshot is the read-only poll. Closed rooms can still be read.
func (s *RoomService) Snapshot(ctx context.Context, roomID, token string) (view.PublicRoom, error) {
	if roomID == "" || token == "" {
		return view.PublicRoom{}, badRequest("roomId and sessionToken are required")
	}
	room, err := s.store.Get(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return view.PublicRoom{}, ErrRoomNotFound
	}
	if err != nil {
		return view.PublicRoom{}, err
	}
	player, ok := game.FindPlayerBySession(room, token)
	if !ok {
		return view.PublicRoom{}, ErrInvalidSession
	}
	return view.Project(room, player.ID), nil
}

func (s *RoomService) AddWord(ctx context.Context, roomID, token, word, category string) (*WordResult, error) {
	if strings.TrimSpace(word) == "" {
		return nil, badRequest("word is required")
	}
	var added bool
	room, actor, err := s.mutate(ctx, "add_word", roomID, token, false, func(room *models.Room, actor *models.Player) error {
		res, err := s.engine.AddWord(room, actor.ID, word, category)
		added = res.Added
		return err
	})
	if err != nil {
		return nil, err
	}
	return &WordResult{Added: added, Room: view.Project(room, actor.ID)}, nil
}

func (s *RoomService) UpdateConfig(ctx context.Context, roomID, token string, impostorCount int) (view.PublicRoom, error) {
	room, actor, err := s.mutate(ctx, "config", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		s.engine.UpdateConfig(room, impostorCount)
		return nil
	})
	if err != nil {
		return view.PublicRoom{}, err
	}
	return view.Project(room, actor.ID), nil
}

func (s *RoomService) StartRound(ctx context.Context, roomID, token string) (view.PublicRoom, error) {
	room, actor, err := s.mutate(ctx, "start_round", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		_, err := s.engine.StartRound(room)
		return err
	})
	if err != nil {
		return view.PublicRoom{}, err
	}
	s.recorder.RoundStarted()
	return view.Project(room, actor.ID), nil
}

func (s *RoomService) OpenVoting(ctx context.Context, roomID, token string) (view.PublicRoom, error) {
	room, actor, err := s.mutate(ctx, "open_vote", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		return s.engine.OpenVoting(room)
	})
	if err != nil {
		return view.PublicRoom{}, err
	}
	return view.Project(room, actor.ID), nil
}

// Vote casts the caller's ballot. A nil isRevote means "the ballot currently open".
func (s *RoomService) Vote(ctx context.Context, roomID, token, targetID string, isRevote *bool) (*VoteResult, error) {
	if targetID == "" {
		return nil, badRequest("targetId is required")
	}
	var outcome game.VoteOutcome
	room, actor, err := s.mutate(ctx, "vote", roomID, token, false, func(room *models.Room, actor *models.Player) error {
		revote := room.Round != nil && room.Round.Phase() == models.PhaseRevote
		if isRevote != nil {
			revote = *isRevote
		}
		var err error
		outcome, err = s.engine.RegisterVote(room, actor.ID, targetID, revote)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorder.VoteCast(string(outcome))
	return &VoteResult{Outcome: outcome, Room: view.Project(room, actor.ID)}, nil
}

// Continue moves on after an innocent was voted out and settles a survival win at once.
func (s *RoomService) Continue(ctx context.Context, roomID, token string) (*ContinueResult, error) {
	var (
		state   game.ContinueOutcome
		summary *models.RoundSummary
	)
	room, actor, err := s.mutate(ctx, "continue", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		summary = nil
		var err error
		state, err = s.engine.ContinueAfterResult(room)
		if err != nil {
			return err
		}
		if state == game.OutcomeSurvivalWin {
			summary, err = s.engine.FinalizeImpostorWinsBySurvival(room)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, room, summary)
	return &ContinueResult{State: state, Summary: summary, Room: view.Project(room, actor.ID)}, nil
}

// ResolveGuess records whether the accused impostor guessed the secret word.
func (s *RoomService) ResolveGuess(ctx context.Context, roomID, token string, success bool) (*GuessResult, error) {
	var summary *models.RoundSummary
	room, actor, err := s.mutate(ctx, "guess", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		var err error
		summary, err = s.engine.ResolveImpostorGuess(room, success)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, room, summary)
	return &GuessResult{Summary: summary, Room: view.Project(room, actor.ID)}, nil
}

func (s *RoomService) Kick(ctx context.Context, roomID, token, targetID string) (*KickResult, error) {
	if targetID == "" {
		return nil, badRequest("targetId is required")
	}
	var outcome game.KickOutcome
	room, actor, err := s.mutate(ctx, "kick", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		if actor.ID == targetID {
			return badRequest("admins cannot kick themselves")
		}
		var err error
		outcome, err = s.engine.KickPlayer(room, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if outcome.RoundCancelled {
		logger.Log.Infof("room %s: round cancelled, last impostor kicked", roomID)
	}
	s.finish(ctx, room, outcome.Summary)
	return &KickResult{
		RoundCancelled: outcome.RoundCancelled,
		Summary:        outcome.Summary,
		Vote:           outcome.Vote,
		Room:           view.Project(room, actor.ID),
	}, nil
}

func (s *RoomService) Close(ctx context.Context, roomID, token string) (view.PublicRoom, error) {
	room, actor, err := s.mutate(ctx, "close", roomID, token, true, func(room *models.Room, actor *models.Player) error {
		s.engine.CloseRoom(room)
		return nil
	})
	if err != nil {
		return view.PublicRoom{}, err
	}
	s.tracker.Forget(roomID)
	return view.Project(room, actor.ID), nil
}

// SweepHeartbeats disconnects players silent since before cutoff in every tracked room
// and returns how many were disconnected.
func (s *RoomService) SweepHeartbeats(ctx context.Context, cutoff time.Time) int {
	total := 0
	for _, roomID := range s.tracker.RoomIDs() {
		var swept []string
		room, err := s.store.Update(ctx, roomID, func(room *models.Room) error {
			if room.Status == models.RoomClosed {
				return ErrRoomClosed
			}
			var err error
			swept, err = s.engine.SweepDisconnected(room, cutoff)
			if err == nil && len(swept) == 0 {
				return errUnchanged
			}
			return err
		})
		switch {
		case err == nil:
			total += len(swept)
			logger.Log.Infof("room %s: %d players timed out", roomID, len(swept))
			s.notifier.RoomChanged(room)
		case errors.Is(err, persistence.ErrRecordNotFound), errors.Is(err, ErrRoomClosed):
			s.tracker.Forget(roomID)
		case errors.Is(err, errUnchanged):
		default:
			logger.Log.Errorf("room %s: heartbeat sweep: %v", roomID, err)
		}
	}
	return total
}

// Leaderboard returns the archived standings of a room.
func (s *RoomService) Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error) {
	if s.history == nil {
		return []models.LeaderboardEntry{}, nil
	}
	return s.history.Leaderboard(ctx, roomID, limit)
}
