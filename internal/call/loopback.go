package call

import (
	"context"
	"sync"
	"time"
)

// Loopback is the demo-mode strategy used when no signaling endpoint is
// configured: after a short simulated connect delay it mirrors the local
// stream back as the remote one, so the call surface stays fully usable
// offline.
type Loopback struct {
	// Delay is the simulated connection delay before the call reports
	// connected.
	Delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

var _ Strategy = (*Loopback)(nil)

func (l *Loopback) Connect(_ context.Context, sess *Session) error {
	delay := l.Delay
	if delay <= 0 {
		delay = 700 * time.Millisecond
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timer = time.AfterFunc(delay, func() {
		sess.SetRemote(sess.Local())
		sess.MarkConnected()
	})
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
	}
	return nil
}
