package imports

import (
	"github.com/rotisserie/eris"
)

// Resolution is the operator decision for a conflict
type Resolution string

const (
	// ResolutionSkip leaves the existing customer untouched and drops the incoming row
	ResolutionSkip Resolution = "skip"
	// ResolutionMerge overwrites the existing customer with the incoming fields
	ResolutionMerge Resolution = "merge"
)

var (
	// ErrUnknownConflict is returned when resolving an email that has no conflict
	ErrUnknownConflict = eris.New("no conflict for email")

	// ErrInvalidResolution is returned for anything other than skip or merge
	ErrInvalidResolution = eris.New("resolution must be skip or merge")
)

// Valid reports whether r is skip or merge
func (r Resolution) Valid() bool {
	return r == ResolutionSkip || r == ResolutionMerge
}

// Resolutions maps a conflict's email to the operator decision
type Resolutions map[string]Resolution

// NewResolutions initializes every conflict to skip
func NewResolutions(conflicts []Conflict) Resolutions {
	r := make(Resolutions, len(conflicts))
	for _, c := range conflicts {
		r[c.Email] = ResolutionSkip
	}
	return r
}

// Set changes the decision for one email
func (r Resolutions) Set(email string, resolution Resolution) error {
	if !resolution.Valid() {
		return eris.Wrapf(ErrInvalidResolution, "%q", resolution)
	}
	key := NormalizeEmail(email)
	if _, ok := r[key]; !ok {
		return eris.Wrapf(ErrUnknownConflict, "%q", email)
	}
	r[key] = resolution
	return nil
}

// SetAll applies one decision to every conflict
func (r Resolutions) SetAll(resolution Resolution) error {
	if !resolution.Valid() {
		return eris.Wrapf(ErrInvalidResolution, "%q", resolution)
	}
	for key := range r {
		r[key] = resolution
	}
	return nil
}

// Lookup returns the decision for email, if it conflicts
func (r Resolutions) Lookup(email string) (Resolution, bool) {
	res, ok := r[NormalizeEmail(email)]
	return res, ok
}

// Clone returns an independent copy
func (r Resolutions) Clone() Resolutions {
	if r == nil {
		return nil
	}
	out := make(Resolutions, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
