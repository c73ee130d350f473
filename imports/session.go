package imports

import (
	"sync"
	"time"

	"customer-import/mapping"
	"customer-import/parsers"

	"github.com/rotisserie/eris"
)

// Stage is a step of the import session
type Stage string

const (
	StageUpload    Stage = "upload"
	StageMap       Stage = "map"
	StagePreview   Stage = "preview"
	StageConflicts Stage = "conflicts"
	StageImporting Stage = "importing"
	StageDone      Stage = "done"
)

// parsingProgress is the share of progress credited to parsing and validation
const parsingProgress = 20

var (
	// ErrInvalidStage is returned when an operation does not apply to the current stage
	ErrInvalidStage = eris.New("operation not allowed in current stage")

	// ErrImportInProgress is returned when cancelling a session that is committing
	ErrImportInProgress = eris.New("import is in progress and cannot be cancelled")

	// ErrStaleConflicts is returned when conflicts were detected against a preview
	// that has since been replaced
	ErrStaleConflicts = eris.New("mapping changed while conflicts were detected")
)

// Transition records a stage change
type Transition struct {
	From Stage     `json:"from"`
	To   Stage     `json:"to"`
	At   time.Time `json:"at"`
}

// Session is the state of one operator-driven import, from file selection to commit.
// Every transition method checks the current stage first; methods are safe for
// concurrent use because the commit loop reports progress from its own goroutine.
type Session struct {
	mu sync.RWMutex

	id          string
	fileName    string
	fingerprint string
	createdAt   time.Time
	touchedAt   time.Time

	stage        Stage
	columns      []parsers.Column
	rows         []parsers.Record
	mapping      mapping.Mapping
	preview      *Preview
	revision     int // bumped on every confirmed mapping
	conflicts    []Conflict
	resolutions  Resolutions
	progress     int
	report       *Report
	notification *Notification
	history      []Transition
}

// NewSession creates a session for a decoded upload and moves it to the map stage
// with the proposed mapping.
func NewSession(id, fileName string, wb *parsers.Workbook) *Session {
	now := time.Now()
	s := &Session{
		id:          id,
		fileName:    fileName,
		fingerprint: wb.Fingerprint,
		createdAt:   now,
		touchedAt:   now,
		stage:       StageUpload,
		columns:     wb.Columns,
		rows:        wb.Rows,
	}
	s.mapping = mapping.Propose(wb.Headers())
	s.moveTo(StageMap)
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Stage returns the current stage
func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// Mapping returns a copy of the current mapping
func (s *Session) Mapping() mapping.Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapping.Clone()
}

// Progress returns the commit progress, 0-100
func (s *Session) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// UpdateMapping applies operator overrides while in the map stage
func (s *Session) UpdateMapping(overrides []mapping.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageMap); err != nil {
		return err
	}
	m, err := s.mapping.Merge(overrides)
	if err != nil {
		return err
	}
	s.mapping = m
	return nil
}

// ConfirmMapping validates the mapping and builds the preview of the first previewRows rows.
// A missing required field keeps the session on the map stage.
func (s *Session) ConfirmMapping(previewRows int) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageMap); err != nil {
		return nil, err
	}
	if err := s.mapping.Validate(); err != nil {
		return nil, err
	}

	s.preview = BuildPreview(mapping.ProjectAll(s.rows, s.mapping), previewRows)
	s.revision++
	s.notification = nil
	s.moveTo(StagePreview)
	return s.preview, nil
}

// BackToMapping returns from preview to the map stage
func (s *Session) BackToMapping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StagePreview); err != nil {
		return err
	}
	s.preview = nil
	s.moveTo(StageMap)
	return nil
}

// Revision identifies the current confirmed mapping
func (s *Session) Revision() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// DetectionInput projects every row with the confirmed mapping and returns the
// revision it belongs to; only valid in preview
func (s *Session) DetectionInput() ([]mapping.Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.expect(StagePreview); err != nil {
		return nil, 0, err
	}
	return mapping.ProjectAll(s.rows, s.mapping), s.revision, nil
}

// ApplyConflicts stores the conflicts detected for revision. With none the session
// goes straight to importing and false is returned; otherwise it waits in the
// conflicts stage. Conflicts of an older revision are rejected.
func (s *Session) ApplyConflicts(revision int, conflicts []Conflict) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StagePreview); err != nil {
		return false, err
	}
	if revision != s.revision {
		return false, eris.Wrapf(ErrStaleConflicts, "detected for revision %d, current is %d", revision, s.revision)
	}

	s.conflicts = conflicts
	s.resolutions = NewResolutions(conflicts)
	if len(conflicts) == 0 {
		s.startImporting()
		return false, nil
	}
	s.moveTo(StageConflicts)
	return true, nil
}

// Resolve sets the operator decision for one conflicting email
func (s *Session) Resolve(email string, resolution Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageConflicts); err != nil {
		return err
	}
	return s.resolutions.Set(email, resolution)
}

// ResolveAll sets the same decision for every conflict
func (s *Session) ResolveAll(resolution Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageConflicts); err != nil {
		return err
	}
	return s.resolutions.SetAll(resolution)
}

// BeginImport leaves the conflicts stage once the operator confirmed the resolutions
func (s *Session) BeginImport() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageConflicts); err != nil {
		return err
	}
	s.startImporting()
	return nil
}

// CommitInput returns what the commit loop needs; only valid while importing
func (s *Session) CommitInput() ([]mapping.Record, []Conflict, Resolutions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.expect(StageImporting); err != nil {
		return nil, nil, nil, err
	}
	return mapping.ProjectAll(s.rows, s.mapping), s.conflicts, s.resolutions.Clone(), nil
}

// SetProgress records commit progress; progress never moves backwards
func (s *Session) SetProgress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if percent > 100 {
		percent = 100
	}
	if percent > s.progress {
		s.progress = percent
	}
	s.touchedAt = time.Now()
}

// Finish ends the commit loop. With at least one success the session is done,
// otherwise it returns to preview so the operator can fix the mapping.
func (s *Session) Finish(report *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageImporting); err != nil {
		return err
	}

	n := report.Notification()
	s.report = report
	s.notification = &n
	if report.SuccessCount > 0 {
		s.progress = 100
		s.moveTo(StageDone)
		return nil
	}
	s.fail()
	return nil
}

// Abort returns an importing session to preview after a failure that happened
// before any row was written
func (s *Session) Abort(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StageImporting); err != nil {
		return err
	}
	s.notification = &Notification{Kind: NotificationError, Text: text}
	s.fail()
	return nil
}

// Cancel checks that the session may be discarded
func (s *Session) Cancel() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stage == StageImporting {
		return ErrImportInProgress
	}
	return nil
}

func (s *Session) fail() {
	s.progress = 0
	s.conflicts = nil
	s.resolutions = nil
	s.moveTo(StagePreview)
}

func (s *Session) startImporting() {
	s.progress = parsingProgress
	s.report = nil
	s.notification = nil
	s.moveTo(StageImporting)
}

func (s *Session) expect(stage Stage) error {
	if s.stage != stage {
		return eris.Wrapf(ErrInvalidStage, "session is in %s, expected %s", s.stage, stage)
	}
	return nil
}

func (s *Session) moveTo(stage Stage) {
	now := time.Now()
	s.history = append(s.history, Transition{From: s.stage, To: stage, At: now})
	s.stage = stage
	s.touchedAt = now
}

// idleSince reports when the session last changed
func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touchedAt
}

// View is a read-only snapshot of a session
type View struct {
	ID           string           `json:"session_id"`
	FileName     string           `json:"file_name"`
	Fingerprint  string           `json:"fingerprint"`
	Stage        Stage            `json:"stage"`
	TotalRows    int              `json:"total_rows"`
	Columns      []parsers.Column `json:"columns"`
	Mapping      mapping.Mapping  `json:"mapping"`
	Missing      []string         `json:"missing_required,omitempty"`
	Preview      *Preview         `json:"preview,omitempty"`
	Conflicts    []Conflict       `json:"conflicts,omitempty"`
	Resolutions  Resolutions      `json:"resolutions,omitempty"`
	Progress     int              `json:"progress"`
	Report       *Report          `json:"report,omitempty"`
	Notification *Notification    `json:"notification,omitempty"`
	History      []Transition     `json:"history"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Snapshot returns a copy of the session state for the API
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, f := range s.mapping.MissingRequired() {
		missing = append(missing, string(f))
	}

	return View{
		ID:           s.id,
		FileName:     s.fileName,
		Fingerprint:  s.fingerprint,
		Stage:        s.stage,
		TotalRows:    len(s.rows),
		Columns:      s.columns,
		Mapping:      s.mapping.Clone(),
		Missing:      missing,
		Preview:      s.preview,
		Conflicts:    append([]Conflict(nil), s.conflicts...),
		Resolutions:  s.resolutions.Clone(),
		Progress:     s.progress,
		Report:       s.report,
		Notification: s.notification,
		History:      append([]Transition(nil), s.history...),
		CreatedAt:    s.createdAt,
	}
}
