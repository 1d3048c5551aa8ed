package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tinyland-inc/topicbridge/pkg/logger"
)

// Manager starts and stops the registered channels together.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
}

func NewManager(chs ...Channel) *Manager {
	m := &Manager{channels: make(map[string]Channel)}
	for _, ch := range chs {
		m.Register(ch)
	}
	return m
}

// Register adds ch, replacing any channel with the same name.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[ch.Name()]; !ok {
		m.order = append(m.order, ch.Name())
	}
	m.channels[ch.Name()] = ch
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// GetEnabledChannels returns channel names in registration order.
func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// StartAll starts every channel in registration order. If one fails, the
// ones already started are stopped again.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var started []Channel
	for _, name := range m.order {
		ch := m.channels[name]
		logger.InfoCF("channels", "Starting channel", map[string]any{"channel": name})
		if err := ch.Start(ctx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop(ctx)
			}
			return fmt.Errorf("start %s: %w", name, err)
		}
		started = append(started, ch)
	}
	return nil
}

// StopAll stops every running channel in reverse order and joins the errors.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		ch := m.channels[m.order[i]]
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", ch.Name(), err))
			continue
		}
		logger.InfoCF("channels", "Channel stopped", map[string]any{"channel": ch.Name()})
	}
	return errors.Join(errs...)
}
