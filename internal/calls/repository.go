package calls

import (
	"context"
	"time"
)

type Repository interface {
	// CreateIfAbsent inserts r unless a record with the same call id exists.
	CreateIfAbsent(ctx context.Context, r Record) (out Record, created bool, err error)
	Get(ctx context.Context, companyID, callID string) (Record, error)
	// AppendTranscript assigns the next Seq for the call and moves an incoming call to in_progress.
	AppendTranscript(ctx context.Context, companyID, callID string, e TranscriptEntry) (TranscriptEntry, error)
	// Finalize applies f only if the record is not finalized yet. applied is false when
	// another finalize won; out is the stored record either way.
	Finalize(ctx context.Context, companyID, callID string, f Finalization) (out Record, applied bool, err error)
	LinkAppointment(ctx context.Context, companyID, callID, appointmentID string, now time.Time) error
	MarkTransferred(ctx context.Context, companyID, callID, target string, now time.Time) error
}
