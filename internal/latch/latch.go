// Package latch provides per-day idempotency flags backed by a local
// key-value store. A latch holds the yyyy-MM-dd string of the last day it
// was set; "already done today" means the stored value equals today's
// date, so flags reset implicitly at midnight with no cleanup.
package latch

import (
	"fmt"
	"log"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

// Store wraps a diskv instance holding one date string per key.
type Store struct {
	d *diskv.Diskv
}

// Open creates a Store rooted at basePath. Keys are flat file names, so
// they must not contain path separators.
func Open(basePath string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return nil },
		CacheSizeMax: 64 * 1024,
	})}
}

// Latch returns the daily flag stored under key.
func (s *Store) Latch(key string) *Latch {
	return &Latch{store: s, key: key}
}

// ForUser returns the three rollover flags for one user.
func (s *Store) ForUser(userID uint) (morningPrompted, celebrationShown, eveningPrompted *Latch) {
	prefix := fmt.Sprintf("user-%d.", userID)
	return s.Latch(prefix + "morning-rollover-prompted"),
		s.Latch(prefix + "morning-celebration-shown"),
		s.Latch(prefix + "evening-rollover-prompted")
}

// Latch is a single daily flag. Reads fail closed: if the underlying
// store errors, the flag reports "already set" so a prompt is suppressed
// rather than duplicated. Writes are logged and never escalated; the flag
// simply won't stick until a later write succeeds.
type Latch struct {
	store *Store
	key   string
}

func (l *Latch) IsSetToday(now time.Time) bool {
	if !l.store.d.Has(l.key) {
		return false
	}
	val, err := l.store.d.Read(l.key)
	if err != nil {
		log.Printf("[warn] latch %s: read failed, suppressing prompt: %v", l.key, err)
		return true
	}
	return string(val) == now.Format(model.DateFormat)
}

func (l *Latch) SetToday(now time.Time) {
	if err := l.store.d.Write(l.key, []byte(now.Format(model.DateFormat))); err != nil {
		log.Printf("[warn] latch %s: write failed: %v", l.key, err)
	}
}

// Clear removes the flag entirely. Used by tests and account resets.
func (l *Latch) Clear() {
	if err := l.store.d.Erase(l.key); err != nil {
		log.Printf("[warn] latch %s: erase failed: %v", l.key, err)
	}
}
