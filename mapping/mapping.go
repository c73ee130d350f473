package mapping

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrUnmappedRequired is returned when a required field has no source column
	ErrUnmappedRequired = eris.New("required field is not mapped")

	// ErrUnknownField is returned for a target that is not a canonical field
	ErrUnknownField = eris.New("unknown target field")

	// ErrUnknownColumn is returned for a source column that is not in the upload
	ErrUnknownColumn = eris.New("unknown source column")
)

// Entry maps one source column to a canonical field (or DoNotImport)
type Entry struct {
	SourceColumn string         `json:"source_column"`
	TargetField  CanonicalField `json:"target_field"`
}

// Mapping holds one entry per source column in sheet order
type Mapping []Entry

// Clone returns an independent copy of m
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	copy(out, m)
	return out
}

// Target returns the field mapped from source
func (m Mapping) Target(source string) (CanonicalField, bool) {
	for _, e := range m {
		if e.SourceColumn == source {
			return e.TargetField, true
		}
	}
	return DoNotImport, false
}

// Set overrides the target of a source column
func (m Mapping) Set(source string, target CanonicalField) error {
	if !target.Valid() {
		return eris.Wrapf(ErrUnknownField, "%q", target)
	}
	for i := range m {
		if m[i].SourceColumn == source {
			m[i].TargetField = target
			return nil
		}
	}
	return eris.Wrapf(ErrUnknownColumn, "%q", source)
}

// Merge applies overrides onto m and returns the result; m is left untouched.
// Columns absent from overrides keep their current target.
func (m Mapping) Merge(overrides []Entry) (Mapping, error) {
	out := m.Clone()
	for _, e := range overrides {
		if err := out.Set(e.SourceColumn, e.TargetField); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MissingRequired lists required fields that no column maps to
func (m Mapping) MissingRequired() []CanonicalField {
	mapped := make(map[CanonicalField]bool, len(m))
	for _, e := range m {
		mapped[e.TargetField] = true
	}

	var missing []CanonicalField
	for _, f := range RequiredFields {
		if !mapped[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate checks that every target is known and every required field is mapped
func (m Mapping) Validate() error {
	for _, e := range m {
		if !e.TargetField.Valid() {
			return eris.Wrapf(ErrUnknownField, "%q", e.TargetField)
		}
	}

	missing := m.MissingRequired()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.Label()
	}
	return eris.Wrap(ErrUnmappedRequired, strings.Join(names, ", "))
}

// Project builds a candidate record from a raw row.
// Values are trimmed; DoNotImport columns are skipped. When several columns
// map to the same field the later non-empty value wins.
func Project(row map[string]string, m Mapping) Record {
	record := make(Record, len(m))
	for _, e := range m {
		if e.TargetField == DoNotImport {
			continue
		}
		value := strings.TrimSpace(row[e.SourceColumn])
		if existing, ok := record[e.TargetField]; ok && value == "" && existing != "" {
			continue
		}
		record[e.TargetField] = value
	}
	return record
}

// ProjectAll projects every row
func ProjectAll[R ~map[string]string](rows []R, m Mapping) []Record {
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Project(row, m)
	}
	return records
}
