package timer

import (
	"context"
	"time"

	"github.com/wfunc/impostor/logger"
)

// Sweeper marks players whose heartbeat is older than cutoff as disconnected.
type Sweeper interface {
	SweepHeartbeats(ctx context.Context, cutoff time.Time) int
}

// Purger drops expired rooms from stores without native TTL.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// ScheduleHeartbeatSweep 每 interval 检查一次心跳，超过 timeout 未上报的玩家标记为离线
func (m *TimerManager) ScheduleHeartbeatSweep(s Sweeper, timeout, interval time.Duration) int64 {
	return m.AddTimer(interval, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if n := s.SweepHeartbeats(ctx, time.Now().Add(-timeout)); n > 0 {
			logger.Log.Infof("heartbeat sweep: %d players disconnected", n)
		}
	})
}

func (m *TimerManager) SchedulePurge(p Purger, interval time.Duration) int64 {
	return m.AddTimer(interval, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			logger.Log.Warnf("purge expired rooms: %v", err)
			return
		}
		if n > 0 {
			logger.Log.Infof("purged %d expired rooms", n)
		}
	})
}
