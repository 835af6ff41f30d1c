// room/room.go
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/impostor/session"
)

// Channel 一个房间在本节点上的连接集合；房间状态本身在 RoomStore 中
type Channel struct {
	ID          string
	CreatedAt   time.Time
	Players     map[string]*session.Session // sessionID -> session
	playerMutex sync.RWMutex
}

func NewChannel(id string) *Channel {
	return &Channel{
		ID:        id,
		CreatedAt: time.Now(),
		Players:   make(map[string]*session.Session),
	}
}

// AddPlayer 添加一个连接到房间
func (c *Channel) AddPlayer(s *session.Session) {
	c.playerMutex.Lock()
	defer c.playerMutex.Unlock()
	c.Players[s.ID] = s
}

// RemovePlayer 从房间移除一个连接
func (c *Channel) RemovePlayer(sessionID string) {
	c.playerMutex.Lock()
	defer c.playerMutex.Unlock()
	delete(c.Players, sessionID)
}

// GetPlayer 获取单个连接
func (c *Channel) GetPlayer(sessionID string) (*session.Session, bool) {
	c.playerMutex.RLock()
	defer c.playerMutex.RUnlock()
	s, exists := c.Players[sessionID]
	return s, exists
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (c *Channel) GetSessions() []*session.Session {
	c.playerMutex.RLock()
	defer c.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(c.Players))
	for _, s := range c.Players {
		sessions = append(sessions, s)
	}
	return sessions
}

func (c *Channel) Len() int {
	c.playerMutex.RLock()
	defer c.playerMutex.RUnlock()
	return len(c.Players)
}

// --- 房间管理器 ---

// Manager 管理本节点上所有活跃房间的连接
type Manager struct {
	rooms map[string]*Channel
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Channel),
	}
}

func (m *Manager) getOrCreate(id string) *Channel {
	ch, exists := m.rooms[id]
	if !exists {
		ch = NewChannel(id)
		m.rooms[id] = ch
	}
	return ch
}

// Join 把连接放进房间，连接之前所在的房间会先退出
func (m *Manager) Join(roomID string, s *session.Session) *Channel {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, ch := range m.rooms {
		if ch.ID != roomID {
			ch.RemovePlayer(s.ID)
		}
	}
	ch := m.getOrCreate(roomID)
	ch.AddPlayer(s)
	return ch
}

// Leave 连接断开时调用
func (m *Manager) Leave(s *session.Session) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, ch := range m.rooms {
		ch.RemovePlayer(s.ID)
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Channel, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ch, exists := m.rooms[id]
	return ch, exists
}

// Track 记录活跃房间，心跳清理只遍历这些房间
func (m *Manager) Track(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.getOrCreate(id)
}

// Forget 房间关闭或过期后移除
func (m *Manager) Forget(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, id)
}

func (m *Manager) RoomIDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
