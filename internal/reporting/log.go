// Package reporting keeps an in-memory log of issue reports filed against
// devices. Each report gets a uuid reference the caller can quote back;
// the log is capped and evicts oldest entries first.
package reporting

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"citygrid/core-go/internal/device"
)

const defaultCapacity = 500

// Ticket is one submitted issue report.
type Ticket struct {
	Reference  string        `json:"reference"`
	DeviceID   string        `json:"device_id"`
	DeviceName string        `json:"device_name"`
	Location   string        `json:"location"`
	Status     device.Status `json:"status"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Log struct {
	log zerolog.Logger

	mu      sync.Mutex
	tickets []Ticket
	cap     int

	now func() time.Time
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{
		log: log,
		cap: defaultCapacity,
		now: time.Now,
	}
}

// Submit records a report and returns its reference.
func (l *Log) Submit(deviceID, deviceName, location string, status device.Status, message string) string {
	t := Ticket{
		Reference:  uuid.NewString(),
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Location:   location,
		Status:     status,
		Message:    message,
		CreatedAt:  l.now().UTC(),
	}

	l.mu.Lock()
	l.tickets = append(l.tickets, t)
	if len(l.tickets) > l.cap {
		l.tickets = l.tickets[len(l.tickets)-l.cap:]
	}
	l.mu.Unlock()

	l.log.Info().
		Str("reference", t.Reference).
		Str("device_id", t.DeviceID).
		Msg("report recorded")
	return t.Reference
}

// Recent returns up to limit reports, newest first.
func (l *Log) Recent(limit int) []Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.tickets) {
		limit = len(l.tickets)
	}
	out := make([]Ticket, 0, limit)
	for i := len(l.tickets) - 1; i >= len(l.tickets)-limit; i-- {
		out = append(out, l.tickets[i])
	}
	return out
}
