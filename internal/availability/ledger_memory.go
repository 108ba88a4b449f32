package availability

import (
	"context"
	"sync"
)

// MemoryLedger is an in-process Ledger for tests and local runs.
type MemoryLedger struct {
	mu   sync.Mutex
	days map[string]*Day
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{days: map[string]*Day{}}
}

func memoryKey(companyID, date string) string {
	return companyID + "|" + date
}

func (l *MemoryLedger) EnsureDay(_ context.Context, companyID, date string, tmpl []WindowTemplate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := memoryKey(companyID, date)
	if _, ok := l.days[k]; ok {
		return nil
	}
	d := newDay(companyID, date, tmpl)
	l.days[k] = &d
	return nil
}

func (l *MemoryLedger) Reserve(_ context.Context, companyID, date, window string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.days[memoryKey(companyID, date)]
	if !ok {
		return 0, ErrWindowNotFound
	}
	for i := range d.Windows {
		w := &d.Windows[i]
		if w.Name != window {
			continue
		}
		if w.Booked >= w.Capacity {
			return w.Booked, ErrWindowFull
		}
		w.Booked++
		return w.Booked, nil
	}
	return 0, ErrWindowNotFound
}

func (l *MemoryLedger) GetDay(_ context.Context, companyID, date string) (Day, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.days[memoryKey(companyID, date)]
	if !ok {
		return Day{}, ErrNotFound
	}
	out := *d
	out.Windows = append([]Window(nil), d.Windows...)
	return out, nil
}
