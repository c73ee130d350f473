package imports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"customer-import/common"
	"customer-import/config"
	"customer-import/customers"
	"customer-import/mapping"
	"customer-import/parsers"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids
	ErrSessionNotFound = eris.New("import session not found")

	// ErrJobNotFound is returned when no finished commit has the id
	ErrJobNotFound = eris.New("import job not found")
)

// JobRecorder stores the outcome of finished commits
type JobRecorder interface {
	SaveJob(ctx context.Context, job *common.ImportJob) error
	// GetJob returns nil, nil when there is no such job
	GetJob(ctx context.Context, id string) (*common.ImportJob, error)
}

// Service drives import sessions through their stages
type Service struct {
	registry    *Registry
	detector    *ConflictDetector
	executor    *Executor
	jobs        JobRecorder
	previewRows int
	retention   time.Duration
	logger      *zap.Logger
}

// NewService wires the import pipeline on store. jobs may be nil.
func NewService(store customers.Store, jobs JobRecorder, cfg config.ImportConfig, logger *zap.Logger) *Service {
	identity := EmailIdentity{}
	return &Service{
		registry:    NewRegistry(),
		detector:    NewConflictDetector(store, identity, logger),
		executor:    NewExecutor(store, identity, cfg.IdentifierPrefix, cfg.RowTimeout, logger),
		jobs:        jobs,
		previewRows: cfg.PreviewRows,
		retention:   cfg.Retention,
		logger:      logger.Named("imports"),
	}
}

// Start decodes an uploaded file and opens a session at the map stage.
// Ingestion errors are returned before any session exists.
func (s *Service) Start(fileName string, reader io.Reader) (*Session, error) {
	wb, err := parsers.Parse(fileName, reader)
	if err != nil {
		return nil, err
	}

	session := NewSession(uuid.New().String(), fileName, wb)
	s.registry.Put(session)

	s.logger.Info("import session started",
		zap.String("session_id", session.ID()),
		zap.String("file", fileName),
		zap.Int("rows", len(wb.Rows)),
		zap.Int("columns", len(wb.Columns)))
	return session, nil
}

// Get returns a live session
func (s *Service) Get(id string) (*Session, error) {
	session, ok := s.registry.Get(id)
	if !ok {
		return nil, eris.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	return session, nil
}

// View returns a session snapshot. A done session is discarded once its final
// snapshot has been handed out; its outcome stays available through Job.
func (s *Service) View(id string) (View, error) {
	session, err := s.Get(id)
	if err != nil {
		return View{}, err
	}
	view := session.Snapshot()
	if view.Stage == StageDone {
		s.registry.Delete(id)
		s.logger.Debug("finished import session discarded", zap.String("session_id", id))
	}
	return view, nil
}

// UpdateMapping applies operator overrides to the mapping
func (s *Service) UpdateMapping(id string, overrides []mapping.Entry) (*Session, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := session.UpdateMapping(overrides); err != nil {
		return nil, err
	}
	return session, nil
}

// Preview confirms the mapping and builds the preview
func (s *Service) Preview(id string) (*Preview, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.ConfirmMapping(s.previewRows)
}

// Back returns a session from preview to the map stage
func (s *Service) Back(id string) (*Session, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := session.BackToMapping(); err != nil {
		return nil, err
	}
	return session, nil
}

// DetectConflicts looks up every candidate record against the store. It returns
// true when the operator must resolve conflicts; otherwise the session is already
// importing and Commit should be run.
func (s *Service) DetectConflicts(ctx context.Context, id string) (bool, error) {
	session, err := s.Get(id)
	if err != nil {
		return false, err
	}
	records, revision, err := session.DetectionInput()
	if err != nil {
		return false, err
	}

	conflicts, err := s.detector.Detect(ctx, records)
	if err != nil {
		return false, err
	}
	return session.ApplyConflicts(revision, conflicts)
}

// Resolve records operator decisions. An "all" entry applies to every conflict
// before the per-email entries.
func (s *Service) Resolve(id string, all Resolution, byEmail map[string]Resolution) (*Session, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if all != "" {
		if err := session.ResolveAll(all); err != nil {
			return nil, err
		}
	}
	for email, resolution := range byEmail {
		if err := session.Resolve(email, resolution); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// BeginCommit moves a session from conflicts to importing
func (s *Service) BeginCommit(id string) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	return session.BeginImport()
}

// Commit runs the commit loop of an importing session to completion and records the job
func (s *Service) Commit(ctx context.Context, id string) (*Report, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	records, conflicts, resolutions, err := session.CommitInput()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report, err := s.executor.Run(ctx, records, conflicts, resolutions, session.SetProgress)
	if err != nil {
		s.logger.Error("import failed", zap.String("session_id", id), zap.Error(err))
		if abortErr := session.Abort("Import failed: " + err.Error()); abortErr != nil {
			return nil, abortErr
		}
		s.recordJob(ctx, session, &Report{Total: len(records)}, started)
		return nil, err
	}

	if err := session.Finish(report); err != nil {
		return nil, err
	}
	s.recordJob(ctx, session, report, started)
	return report, nil
}

// Cancel discards a session that is not importing
func (s *Service) Cancel(id string) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := session.Cancel(); err != nil {
		return err
	}
	s.registry.Delete(id)
	s.logger.Info("import session cancelled", zap.String("session_id", id))
	return nil
}

// Job returns the recorded outcome of a finished commit. It outlives the session.
func (s *Service) Job(ctx context.Context, id string) (*common.ImportJob, error) {
	if s.jobs == nil {
		return nil, eris.Wrapf(ErrJobNotFound, "job %s", id)
	}
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, eris.Wrapf(ErrJobNotFound, "job %s", id)
	}
	return job, nil
}

// Sweep drops idle sessions older than the configured retention
func (s *Service) Sweep(now time.Time) int {
	return s.registry.Sweep(now, s.retention)
}

// RunSweeper sweeps idle sessions every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.logger.Debug("expired import sessions removed", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) recordJob(ctx context.Context, session *Session, report *Report, started time.Time) {
	if s.jobs == nil {
		return
	}

	view := session.Snapshot()
	status := common.JobStatusCompleted
	if report.SuccessCount == 0 {
		status = common.JobStatusFailed
	}

	job := &common.ImportJob{
		ID:             session.ID(),
		FileName:       view.FileName,
		Fingerprint:    view.Fingerprint,
		Status:         status,
		TotalRecords:   report.Total,
		SuccessCount:   report.SuccessCount,
		DuplicateCount: report.DuplicateCount,
		SkippedCount:   report.SkippedCount,
		FailCount:      report.ErrorCount,
		CreatedAt:      started,
		CompletedAt:    time.Now(),
	}
	if failed := report.Failed(); len(failed) > 0 {
		if data, err := json.Marshal(failed); err == nil {
			job.Errors = string(data)
		}
	}

	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.Error("failed to record import job", zap.String("session_id", session.ID()), zap.Error(err))
	}
}
