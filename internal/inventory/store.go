// Package inventory holds the application state: per-category raw row
// snapshots from the sheets plus user-added devices. Nothing here is
// persisted; a refresh replaces a category wholesale and a restart starts
// empty.
package inventory

import (
	"errors"
	"fmt"
	"sync"

	"citygrid/core-go/internal/device"
)

// ErrNotFound is returned when a device id is not present in the inventory.
var ErrNotFound = errors.New("device not found")

type Store struct {
	mu        sync.RWMutex
	rows      map[device.Category][]device.RawRow
	userAdded []device.Device
	subs      []func()
}

func NewStore() *Store {
	return &Store{rows: make(map[device.Category][]device.RawRow)}
}

// Subscribe registers a change callback. Callbacks run synchronously after
// each mutation, outside the store lock.
func (s *Store) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// ReplaceRows swaps a category's raw snapshot wholesale. A failed fetch
// never reaches this method, so stale-but-valid data survives failures.
func (s *Store) ReplaceRows(cat device.Category, rows []device.RawRow) {
	s.mu.Lock()
	s.rows[cat] = rows
	s.mu.Unlock()
	s.notify()
}

func (s *Store) RowCount(cat device.Category) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[cat])
}

// AddUserDevice builds and stores a transient user-added device from the
// creation hand-off.
func (s *Store) AddUserDevice(req device.NewDeviceRequest) (device.Device, error) {
	d, err := device.NewUserDevice(req)
	if err != nil {
		return device.Device{}, err
	}
	s.mu.Lock()
	s.userAdded = append(s.userAdded, d)
	s.mu.Unlock()
	s.notify()
	return d, nil
}

func (s *Store) RemoveUserDevice(id string) bool {
	s.mu.Lock()
	removed := false
	for i, d := range s.userAdded {
		if d.ID == id {
			s.userAdded = append(s.userAdded[:i], s.userAdded[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
	return removed
}

// Devices recomputes the normalized device list from the current snapshots.
// The result is a fresh slice on every call; callers own it.
func (s *Store) Devices() []device.Device {
	s.mu.RLock()
	rows := make(map[device.Category][]device.RawRow, len(s.rows))
	for cat, rs := range s.rows {
		rows[cat] = rs
	}
	user := append([]device.Device(nil), s.userAdded...)
	s.mu.RUnlock()

	return device.Normalize(rows, user)
}

// Get finds one normalized device by id.
func (s *Store) Get(id string) (device.Device, error) {
	for _, d := range s.Devices() {
		if d.ID == id {
			return d, nil
		}
	}
	return device.Device{}, fmt.Errorf("device %q: %w", id, ErrNotFound)
}
