package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"almacen/pkg/logger"
)

// SettingsChannel is notified by the sys_settings trigger with the changed group.
const SettingsChannel = "settings_changed"

// Invalidator drops cached state.
type Invalidator interface {
	Invalidate()
}

// SettingsListener keeps in-process settings caches fresh across instances:
// a change to sys_settings issues NOTIFY and every listener drops its cache
// instead of waiting for the TTL.
type SettingsListener struct {
	pool    *pgxpool.Pool
	targets []Invalidator

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewSettingsListener creates a listener invalidating targets.
func NewSettingsListener(pool *pgxpool.Pool, targets ...Invalidator) *SettingsListener {
	return &SettingsListener{pool: pool, targets: targets}
}

// Start begins listening in the background.
func (l *SettingsListener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
}

// Stop cancels the listener and waits for it to exit.
func (l *SettingsListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
}

func (l *SettingsListener) listenLoop() {
	defer l.wg.Done()

	for l.ctx.Err() == nil {
		// LISTEN needs a dedicated connection
		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			if l.ctx.Err() == nil {
				logger.Error(l.ctx, "acquire connection for LISTEN", "error", err)
				l.sleep(time.Second)
			}
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+SettingsChannel); err != nil {
			logger.Error(l.ctx, "LISTEN failed", "channel", SettingsChannel, "error", err)
			conn.Release()
			l.sleep(time.Second)
			continue
		}

		// notifications missed while reconnecting are covered by this
		l.invalidate("")
		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *SettingsListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		notification, err := conn.Conn().WaitForNotification(l.ctx)
		if err != nil {
			if l.ctx.Err() == nil {
				logger.Warn(l.ctx, "settings listener connection lost", "error", err)
			}
			return
		}
		l.invalidate(notification.Payload)
	}
}

// invalidate drops every target's cache. group is only logged: settings are
// few and cached per key, so a full flush is cheap.
func (l *SettingsListener) invalidate(group string) {
	for _, t := range l.targets {
		t.Invalidate()
	}
	logger.Debug(l.ctx, "settings cache invalidated", "group", group)
}

func (l *SettingsListener) sleep(d time.Duration) {
	select {
	case <-l.ctx.Done():
	case <-time.After(d):
	}
}
