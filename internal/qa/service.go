package qa

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"hvac-backoffice/pkg/logger"
)

const (
	ReasonWarrantyNotRegistered  = "Warranty not registered"
	ReasonInspectionNotCompleted = "Inspection not completed"
	ReasonInspectionFailed       = "Inspection failed"
)

// ChangeListener is called after any closure input for a job changes.
type ChangeListener func(ctx context.Context, companyID, jobID string)

// JobStatus is the full closure picture for one job, evaluated live.
type JobStatus struct {
	CompanyID  string     `json:"company_id"`
	JobID      string     `json:"job_id"`
	Gate       Gate       `json:"qa_gate"`
	Evaluation Evaluation `json:"qa_evaluation"`
	Warranty   Warranty   `json:"warranty"`
	Inspection Inspection `json:"inspection"`
	CanClose   bool       `json:"can_close"`
	Reasons    []string   `json:"reasons,omitempty"`
}

// Service is the job closure gate. It decides permission only; marking a job
// completed belongs to the job owner.
type Service struct {
	repo   Repository
	policy Policy

	mu        sync.RWMutex
	listeners []ChangeListener

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, policy Policy) *Service {
	if len(policy.RequiredPhotoTypes) == 0 {
		policy.RequiredPhotoTypes = DefaultRequiredPhotoTypes
	}
	return &Service{repo: repo, policy: policy, clock: time.Now}
}

func (s *Service) Policy() Policy { return s.policy }

func (s *Service) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Status loads the three inputs and evaluates them. Missing records take their
// blocking defaults: no gate data, warranty unregistered, inspection required and pending.
func (s *Service) Status(ctx context.Context, companyID, jobID string) (JobStatus, error) {
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(jobID) == "" {
		return JobStatus{}, ErrInvalidArgument
	}

	gate, err := s.repo.GetGate(ctx, companyID, jobID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return JobStatus{}, err
		}
		gate = Gate{CompanyID: companyID, JobID: jobID}
	}
	warranty, err := s.repo.GetWarranty(ctx, companyID, jobID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return JobStatus{}, err
		}
		warranty = Warranty{CompanyID: companyID, JobID: jobID}
	}
	inspection, err := s.repo.GetInspection(ctx, companyID, jobID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return JobStatus{}, err
		}
		inspection = Inspection{CompanyID: companyID, JobID: jobID, Required: true}
	}

	st := JobStatus{
		CompanyID:  companyID,
		JobID:      jobID,
		Gate:       gate,
		Evaluation: gate.Evaluate(s.policy),
		Warranty:   warranty,
		Inspection: inspection,
	}
	st.Reasons = blockedReasons(gate, st.Evaluation, warranty, inspection, s.policy)
	st.CanClose = len(st.Reasons) == 0
	return st, nil
}

// CanClose returns nil when the job may be closed, or a *BlockedError.
func (s *Service) CanClose(ctx context.Context, companyID, jobID string) error {
	st, err := s.Status(ctx, companyID, jobID)
	if err != nil {
		return err
	}
	if !st.CanClose {
		return &BlockedError{Reasons: st.Reasons}
	}
	return nil
}

func blockedReasons(g Gate, ev Evaluation, w Warranty, in Inspection, p Policy) []string {
	var reasons []string
	if !ev.OverallPass {
		reasons = append(reasons, "QA gate not passed: "+g.FailureDetail(p))
	}
	if !w.Registered {
		reasons = append(reasons, ReasonWarrantyNotRegistered)
	}
	if in.Required {
		switch {
		case !in.Completed:
			reasons = append(reasons, ReasonInspectionNotCompleted)
		case !in.Passed:
			reasons = append(reasons, ReasonInspectionFailed)
		}
	}
	return reasons
}

// GetGate returns the stored gate with its evaluation.
func (s *Service) GetGate(ctx context.Context, companyID, jobID string) (Gate, Evaluation, error) {
	if companyID == "" || jobID == "" {
		return Gate{}, Evaluation{}, ErrInvalidArgument
	}
	g, err := s.repo.GetGate(ctx, companyID, jobID)
	if err != nil {
		return Gate{}, Evaluation{}, err
	}
	return g, g.Evaluate(s.policy), nil
}

// RecordGate replaces the captured QA data for a job.
func (s *Service) RecordGate(ctx context.Context, g Gate) (Evaluation, error) {
	if g.CompanyID == "" || g.JobID == "" {
		return Evaluation{}, ErrInvalidArgument
	}
	for _, ph := range g.Photos {
		if strings.TrimSpace(ph.Type) == "" || strings.TrimSpace(ph.URL) == "" {
			return Evaluation{}, ErrInvalidArgument
		}
	}
	g.UpdatedAt = s.clock().UTC()
	if err := s.repo.PutGate(ctx, g); err != nil {
		return Evaluation{}, err
	}
	s.changed(ctx, g.CompanyID, g.JobID)
	return g.Evaluate(s.policy), nil
}

func (s *Service) RecordWarranty(ctx context.Context, w Warranty) error {
	if w.CompanyID == "" || w.JobID == "" {
		return ErrInvalidArgument
	}
	if w.Registered && strings.TrimSpace(w.RegistrationNumber) == "" {
		return ErrInvalidArgument
	}
	now := s.clock().UTC()
	w.UpdatedAt = now
	if w.Registered && w.RegisteredAt == nil {
		w.RegisteredAt = &now
	}
	if err := s.repo.PutWarranty(ctx, w); err != nil {
		return err
	}
	s.changed(ctx, w.CompanyID, w.JobID)
	return nil
}

func (s *Service) RecordInspection(ctx context.Context, in Inspection) error {
	if in.CompanyID == "" || in.JobID == "" {
		return ErrInvalidArgument
	}
	if in.Passed && !in.Completed {
		return ErrInvalidArgument
	}
	now := s.clock().UTC()
	in.UpdatedAt = now
	if in.Completed && in.InspectedAt == nil {
		in.InspectedAt = &now
	}
	if err := s.repo.PutInspection(ctx, in); err != nil {
		return err
	}
	s.changed(ctx, in.CompanyID, in.JobID)
	return nil
}

func (s *Service) changed(ctx context.Context, companyID, jobID string) {
	s.mu.RLock()
	ls := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()
	logger.From(ctx).Debug("closure inputs changed", "company_id", companyID, "job_id", jobID, "listeners", len(ls))
	for _, l := range ls {
		l(ctx, companyID, jobID)
	}
}
