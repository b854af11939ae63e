package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"vertex-relay/internal/events"

	log "github.com/sirupsen/logrus"
)

// Source yields the configuration snapshot for one request.
type Source interface {
	Current() *Config
}

// Static is a fixed Source.
type Static struct {
	Config *Config
}

// Current returns the wrapped configuration.
func (s Static) Current() *Config { return s.Config }

// Manager holds the active configuration and reloads it when the file changes.
// Readers get an immutable snapshot; a failed reload keeps the previous one.
type Manager struct {
	path    string
	current atomic.Pointer[Config]

	mu        sync.Mutex
	lastMod   time.Time
	publisher events.Publisher
	onChange  []ChangeFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager loads path and returns a manager serving it.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	m := &Manager{path: path, stopCh: make(chan struct{})}
	m.current.Store(cfg)
	if info, err := os.Stat(path); err == nil {
		m.lastMod = info.ModTime()
	}
	return m, nil
}

// Current returns the active snapshot.
func (m *Manager) Current() *Config {
	return m.current.Load()
}

// Path returns the watched file.
func (m *Manager) Path() string { return m.path }

// SetEventPublisher wires the event hub used to broadcast config updates.
func (m *Manager) SetEventPublisher(p events.Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// ChangeFunc observes a successful reload.
type ChangeFunc func(old, new *Config)

// OnChange registers a callback invoked after each successful reload.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Reload re-reads the file. On error the active snapshot is unchanged.
func (m *Manager) Reload() error {
	next, err := Load(m.path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(m.path); err == nil {
		m.mu.Lock()
		m.lastMod = info.ModTime()
		m.mu.Unlock()
	}
	old := m.current.Swap(next)
	m.emitChange(old, next)
	return nil
}

// Stop ends any running watcher.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) emitChange(old, next *Config) {
	m.mu.Lock()
	callbacks := append([]ChangeFunc(nil), m.onChange...)
	publisher := m.publisher
	m.mu.Unlock()

	logConfigChanges(old, next)
	for _, fn := range callbacks {
		fn(old, next)
	}
	if publisher != nil {
		publisher.Publish(context.Background(), events.TopicConfigUpdated, ConfigChangeEvent{
			Path:      m.path,
			UpdatedAt: time.Now().UTC(),
			Sections:  changedSections(old, next),
		}, nil)
	}
}

// ConfigChangeEvent is the payload broadcast when configuration changes.
// It names the changed sections only, so secrets never leave the process.
type ConfigChangeEvent struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
	Sections  []string  `json:"sections"`
}

func changedSections(old, next *Config) []string {
	if old == nil || next == nil {
		return nil
	}
	var out []string
	add := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			out = append(out, name)
		}
	}
	add("server", old.Server, next.Server)
	add("upstream", old.Upstream, next.Upstream)
	add("credential", old.Credential, next.Credential)
	add("relay", old.Relay, next.Relay)
	add("security", old.Security, next.Security)
	add("events", old.Events, next.Events)
	add("tracing", old.Tracing, next.Tracing)
	return out
}

func logConfigChanges(old, next *Config) {
	for _, section := range changedSections(old, next) {
		entry := log.WithField("section", section)
		switch section {
		case "credential", "events", "tracing":
			entry.Warn("config section changed; restart required to apply")
		case "server":
			if old.Server.Port != next.Server.Port || old.Server.Host != next.Server.Host {
				entry.Warn("listen address changed; restart required to apply")
			} else {
				entry.Info("config changed")
			}
		default:
			entry.Info("config changed")
		}
	}
}
