package imports

import (
	"testing"
	"time"

	"customer-import/mapping"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(t *testing.T) *Session {
	t.Helper()
	wb := newWorkbook(
		[]string{"First Name", "Surname", "E-Mail", "Notes"},
		[]string{"John", "Doe", "john@x.com", "vip"},
		[]string{"", "Smith", "smith-at-x", ""},
	)
	return NewSession("s1", "customers.xlsx", wb)
}

func TestNewSession_ProposesMapping(t *testing.T) {
	s := sampleSession(t)

	assert.Equal(t, StageMap, s.Stage())
	m := s.Mapping()
	target, _ := m.Target("First Name")
	assert.Equal(t, mapping.FieldFirstName, target)
	target, _ = m.Target("Surname")
	assert.Equal(t, mapping.FieldLastName, target)
	target, _ = m.Target("E-Mail")
	assert.Equal(t, mapping.FieldEmail, target)
	target, _ = m.Target("Notes")
	assert.Equal(t, mapping.DoNotImport, target)

	view := s.Snapshot()
	require.Len(t, view.History, 1)
	assert.Equal(t, StageUpload, view.History[0].From)
	assert.Equal(t, StageMap, view.History[0].To)
	assert.Equal(t, 2, view.TotalRows)
}

func TestSession_ConfirmMappingRequiresNames(t *testing.T) {
	s := sampleSession(t)
	require.NoError(t, s.UpdateMapping([]mapping.Entry{{SourceColumn: "Surname", TargetField: mapping.DoNotImport}}))

	_, err := s.ConfirmMapping(10)
	assert.True(t, eris.Is(err, mapping.ErrUnmappedRequired))
	assert.Equal(t, StageMap, s.Stage())
	assert.Equal(t, []string{"last_name"}, s.Snapshot().Missing)
}

func TestSession_Preview(t *testing.T) {
	s := sampleSession(t)

	preview, err := s.ConfirmMapping(10)
	require.NoError(t, err)
	assert.Equal(t, StagePreview, s.Stage())

	require.Len(t, preview.Rows, 2)
	assert.Empty(t, preview.Rows[0].Errors)
	assert.Equal(t, []string{"First name is required"}, preview.Rows[1].Errors)
	assert.Equal(t, []string{"Email format may be invalid"}, preview.Rows[1].Warnings)
	assert.Equal(t, 1, preview.RowsWithErrors)
	assert.Equal(t, 1, preview.RowsWithWarnings)

	require.NoError(t, s.BackToMapping())
	assert.Equal(t, StageMap, s.Stage())
	assert.Nil(t, s.Snapshot().Preview)
}

func TestSession_StageGuards(t *testing.T) {
	s := sampleSession(t)

	assert.True(t, eris.Is(s.BackToMapping(), ErrInvalidStage))
	assert.True(t, eris.Is(s.BeginImport(), ErrInvalidStage))
	_, err := s.ApplyConflicts(s.Revision(), nil)
	assert.True(t, eris.Is(err, ErrInvalidStage))
	_, _, _, err = s.CommitInput()
	assert.True(t, eris.Is(err, ErrInvalidStage))

	_, err = s.ConfirmMapping(10)
	require.NoError(t, err)
	assert.True(t, eris.Is(s.UpdateMapping(nil), ErrInvalidStage))
	assert.True(t, eris.Is(s.Resolve("a@x.com", ResolutionMerge), ErrInvalidStage))
}

func TestSession_NoConflictsGoesStraightToImporting(t *testing.T) {
	s := sampleSession(t)
	_, err := s.ConfirmMapping(10)
	require.NoError(t, err)

	needsResolution, err := s.ApplyConflicts(s.Revision(), nil)
	require.NoError(t, err)
	assert.False(t, needsResolution)
	assert.Equal(t, StageImporting, s.Stage())
	assert.Equal(t, parsingProgress, s.Progress())

	assert.True(t, eris.Is(s.Cancel(), ErrImportInProgress))
}

func TestSession_ConflictsThenCommit(t *testing.T) {
	s := sampleSession(t)
	_, err := s.ConfirmMapping(10)
	require.NoError(t, err)

	needsResolution, err := s.ApplyConflicts(s.Revision(), []Conflict{{Email: "john@x.com", RowNumber: 1}})
	require.NoError(t, err)
	assert.True(t, needsResolution)
	assert.Equal(t, StageConflicts, s.Stage())
	assert.NoError(t, s.Cancel())

	require.NoError(t, s.Resolve("John@x.com", ResolutionMerge))
	require.NoError(t, s.BeginImport())

	records, conflicts, resolutions, err := s.CommitInput()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Len(t, conflicts, 1)
	res, _ := resolutions.Lookup("john@x.com")
	assert.Equal(t, ResolutionMerge, res)
}

func TestSession_ProgressIsMonotonic(t *testing.T) {
	s := sampleSession(t)
	_, err := s.ConfirmMapping(10)
	require.NoError(t, err)
	_, err = s.ApplyConflicts(s.Revision(), nil)
	require.NoError(t, err)

	s.SetProgress(60)
	s.SetProgress(40)
	assert.Equal(t, 60, s.Progress())
	s.SetProgress(150)
	assert.Equal(t, 100, s.Progress())
}

func TestSession_Finish(t *testing.T) {
	t.Run("success moves to done", func(t *testing.T) {
		s := sampleSession(t)
		_, _ = s.ConfirmMapping(10)
		_, _ = s.ApplyConflicts(s.Revision(), nil)

		require.NoError(t, s.Finish(&Report{Total: 2, SuccessCount: 1, ErrorCount: 1}))
		view := s.Snapshot()
		assert.Equal(t, StageDone, view.Stage)
		assert.Equal(t, 100, view.Progress)
		require.NotNil(t, view.Notification)
		assert.Equal(t, "Imported 1 customers, 1 errors", view.Notification.Text)
	})

	t.Run("nothing imported returns to preview", func(t *testing.T) {
		s := sampleSession(t)
		_, _ = s.ConfirmMapping(10)
		_, _ = s.ApplyConflicts(s.Revision(), nil)

		require.NoError(t, s.Finish(&Report{Total: 2, ErrorCount: 2}))
		view := s.Snapshot()
		assert.Equal(t, StagePreview, view.Stage)
		assert.Equal(t, 0, view.Progress)
		assert.NotNil(t, view.Preview)
		assert.Equal(t, NotificationError, view.Notification.Kind)
	})

	t.Run("abort returns to preview", func(t *testing.T) {
		s := sampleSession(t)
		_, _ = s.ConfirmMapping(10)
		_, _ = s.ApplyConflicts(s.Revision(), nil)

		require.NoError(t, s.Abort("Import failed: database is locked"))
		view := s.Snapshot()
		assert.Equal(t, StagePreview, view.Stage)
		assert.Equal(t, "Import failed: database is locked", view.Notification.Text)
	})
}

func TestBuildPreview_LimitsRows(t *testing.T) {
	var records []mapping.Record
	for i := 0; i < 15; i++ {
		records = append(records, rec("first_name", "A", "last_name", ""))
	}

	p := BuildPreview(records, 10)
	assert.Len(t, p.Rows, 10)
	assert.Equal(t, 15, p.TotalRows)
	assert.Equal(t, 15, p.RowsWithErrors)
	assert.Equal(t, 10, p.Rows[9].RowNumber)
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry()
	idle := sampleSession(t)
	busy := NewSession("s2", "busy.csv", newWorkbook([]string{"first", "last"}, []string{"a", "b"}))
	_, err := busy.ConfirmMapping(10)
	require.NoError(t, err)
	_, err = busy.ApplyConflicts(busy.Revision(), nil)
	require.NoError(t, err)

	r.Put(idle)
	r.Put(busy)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 0, r.Sweep(time.Now(), time.Hour))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Hour), time.Hour))

	_, ok := r.Get("s1")
	assert.False(t, ok)
	_, ok = r.Get("s2")
	assert.True(t, ok)
}

func TestSession_StaleConflictsRejected(t *testing.T) {
	s := sampleSession(t)
	_, err := s.ConfirmMapping(10)
	require.NoError(t, err)

	records, revision, err := s.DetectionInput()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// operator goes back and confirms a new mapping while detection is running
	require.NoError(t, s.BackToMapping())
	require.NoError(t, s.UpdateMapping([]mapping.Entry{{SourceColumn: "E-Mail", TargetField: mapping.DoNotImport}}))
	_, err = s.ConfirmMapping(10)
	require.NoError(t, err)

	_, err = s.ApplyConflicts(revision, []Conflict{{Email: "john@x.com", RowNumber: 1}})
	assert.True(t, eris.Is(err, ErrStaleConflicts))
	assert.Equal(t, StagePreview, s.Stage())
	assert.Empty(t, s.Snapshot().Conflicts)

	_, err = s.ApplyConflicts(s.Revision(), nil)
	require.NoError(t, err)
	assert.Equal(t, StageImporting, s.Stage())
}
