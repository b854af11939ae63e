package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vertex-relay/internal/events"
)

func TestManagerReloadSwapsSnapshotAndPublishes(t *testing.T) {
	clearRelayEnv(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	writeFile(t, path, "upstream:\n  model: m1\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m.Stop()

	hub := events.NewHub()
	var (
		mu  sync.Mutex
		got []ConfigChangeEvent
	)
	hub.Subscribe(events.TopicConfigUpdated, func(_ context.Context, ev events.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Payload.(ConfigChangeEvent))
	})
	m.SetEventPublisher(hub)

	first := m.Current()
	writeFile(t, path, "upstream:\n  model: m2\n")
	if err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if first.Upstream.Model != "m1" {
		t.Fatalf("previous snapshot mutated: %s", first.Upstream.Model)
	}
	if m.Current().Upstream.Model != "m2" {
		t.Fatalf("expected m2, got %s", m.Current().Upstream.Model)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || len(got[0].Sections) != 1 || got[0].Sections[0] != "upstream" {
		t.Fatalf("unexpected change events %+v", got)
	}
}

func TestManagerReloadRunsEveryCallbackInOrder(t *testing.T) {
	clearRelayEnv(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	writeFile(t, path, "upstream:\n  model: m1\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m.Stop()

	var calls []string
	m.OnChange(func(old, next *Config) { calls = append(calls, "a:"+old.Upstream.Model+">"+next.Upstream.Model) })
	m.OnChange(func(_, next *Config) { calls = append(calls, "b:"+next.Upstream.Model) })

	writeFile(t, path, "upstream:\n  model: m2\n")
	if err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(calls) != 2 || calls[0] != "a:m1>m2" || calls[1] != "b:m2" {
		t.Fatalf("unexpected callbacks %v", calls)
	}
}

func TestManagerInvalidReloadKeepsPrevious(t *testing.T) {
	clearRelayEnv(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	writeFile(t, path, "server:\n  port: 8081\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m.Stop()

	writeFile(t, path, "server:\n  port: 700000\n")
	if err := m.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if m.Current().Server.Port != 8081 {
		t.Fatalf("expected previous port kept, got %d", m.Current().Server.Port)
	}
}

func TestManagerWatchReloadsOnWrite(t *testing.T) {
	clearRelayEnv(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	writeFile(t, path, "upstream:\n  model: before\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m.Stop()

	reloaded := make(chan *Config, 4)
	m.OnChange(func(_, next *Config) { reloaded <- next })
	m.Watch()

	writeFile(t, path, "upstream:\n  model: after\n")
	// Filesystems with coarse timestamps may not advance mtime on a quick rewrite.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case next := <-reloaded:
			if next.Upstream.Model == "after" {
				return
			}
		case <-deadline:
			t.Fatalf("config was not reloaded; current model %s", m.Current().Upstream.Model)
		}
	}
}

func TestStaticSource(t *testing.T) {
	cfg := &Config{}
	var src Source = Static{Config: cfg}
	if src.Current() != cfg {
		t.Fatalf("static source returned a different config")
	}
}
