package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{records: map[string]*Record{}} }

func (m *MemoryRepo) CreateIfAbsent(_ context.Context, r Record) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[r.CallID]; ok {
		return cloneRecord(*existing), false, nil
	}
	cp := cloneRecord(r)
	m.records[r.CallID] = &cp
	return cloneRecord(cp), true, nil
}

func (m *MemoryRepo) Get(_ context.Context, companyID, callID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookup(companyID, callID)
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(*r), nil
}

func (m *MemoryRepo) AppendTranscript(_ context.Context, companyID, callID string, e TranscriptEntry) (TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookup(companyID, callID)
	if !ok {
		return TranscriptEntry{}, ErrNotFound
	}
	e.Seq = len(r.Transcript) + 1
	r.Transcript = append(r.Transcript, e)
	if r.Status == StatusIncoming {
		r.Status = StatusInProgress
	}
	r.UpdatedAt = e.At
	return e, nil
}

func (m *MemoryRepo) Finalize(_ context.Context, companyID, callID string, f Finalization) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookup(companyID, callID)
	if !ok {
		return Record{}, false, ErrNotFound
	}
	if r.Finalized() {
		return cloneRecord(*r), false, nil
	}
	ended := f.EndedAt
	r.Status = f.Status
	r.Outcome = f.Outcome
	r.ProviderStatus = f.ProviderStatus
	if f.CustomerName != "" {
		r.CustomerName = f.CustomerName
	}
	if f.IssueType != "" {
		r.IssueType = f.IssueType
	}
	if f.AppointmentID != "" {
		r.AppointmentID = f.AppointmentID
	}
	r.EndedAt = &ended
	r.DurationSeconds = f.DurationSeconds
	r.FinalizedAt = &ended
	r.UpdatedAt = ended
	return cloneRecord(*r), true, nil
}

func (m *MemoryRepo) LinkAppointment(_ context.Context, companyID, callID, appointmentID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookup(companyID, callID)
	if !ok {
		return ErrNotFound
	}
	r.AppointmentID = appointmentID
	r.UpdatedAt = now
	return nil
}

func (m *MemoryRepo) MarkTransferred(_ context.Context, companyID, callID, target string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookup(companyID, callID)
	if !ok {
		return ErrNotFound
	}
	r.TransferredToHuman = true
	r.TransferTarget = target
	r.UpdatedAt = now
	return nil
}

func (m *MemoryRepo) lookup(companyID, callID string) (*Record, bool) {
	r, ok := m.records[callID]
	if !ok || r.CompanyID != companyID {
		return nil, false
	}
	return r, true
}

func cloneRecord(r Record) Record {
	r.Transcript = append([]TranscriptEntry(nil), r.Transcript...)
	return r
}
