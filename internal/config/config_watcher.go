package config

import (
	"os"
	"path/filepath"
	"time"

	"vertex-relay/internal/constants"
	"vertex-relay/internal/runtime"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch starts reloading on file changes. It falls back to polling when
// fsnotify is unavailable. Stop ends it.
func (m *Manager) Watch() {
	if m.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		m.startPolling(constants.ConfigPollInterval)
		return
	}

	// Watch the directory to catch atomic writes (rename operations)
	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		log.WithError(err).WithField("dir", dir).Warn("failed to watch config directory, falling back to polling")
		watcher.Close()
		m.startPolling(constants.ConfigPollInterval)
		return
	}

	log.WithField("path", m.path).Info("file watcher started using fsnotify")
	target := filepath.Clean(m.path)

	runtime.SafeGo("config-watcher", func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(constants.ConfigReloadDebounce, func() { runtime.SafeGo("config-reload", m.checkAndReload) })
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("file watcher error")
			case <-m.stopCh:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	})
}

func (m *Manager) startPolling(interval time.Duration) {
	ticker := time.NewTicker(interval)
	log.WithField("interval", interval.String()).Info("file watcher started using polling")
	runtime.SafeGo("config-poller", func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkAndReload()
			case <-m.stopCh:
				return
			}
		}
	})
}

func (m *Manager) checkAndReload() {
	info, err := os.Stat(m.path)
	if err != nil {
		return
	}
	m.mu.Lock()
	changed := info.ModTime().After(m.lastMod)
	m.mu.Unlock()
	if !changed {
		return
	}
	if err := m.Reload(); err != nil {
		log.WithError(err).WithField("path", m.path).Warn("failed to reload config; keeping previous")
	}
}
