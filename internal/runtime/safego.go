package runtime

import (
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// SafeGo starts fn in a goroutine that logs instead of crashing on panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"goroutine": name,
					"error":     rec,
					"stack":     string(debug.Stack()),
				}).Error("goroutine panic recovered")
			}
		}()
		fn()
	}()
}
