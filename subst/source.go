package subst

// sourceKind tags the variant held by a [Source].
type sourceKind uint8

const (
	sourceNone sourceKind = iota
	sourceSnapshot
	sourceLive
)

// Source is the value written by a direct-value definition ([Var]). It is
// either a Snapshot of a value taken when the Source is created, or a Live
// reference to a location owned by the caller.
//
// The zero Source is invalid; binding it fails with ErrNilSource.
type Source struct {
	kind  sourceKind
	value any
	load  func() any
}

// Snapshot returns a Source that always yields v.
func Snapshot(v any) Source {
	return Source{kind: sourceSnapshot, value: v}
}

// Live returns a Source that dereferences p every time it is evaluated.
//
// This captures a live reference, not a snapshot: each expansion writes
// whatever *p holds at that moment. The caller owns p and must synchronize
// writes to it with concurrent expansions. A nil p yields an invalid Source.
func Live[T any](p *T) Source {
	if p == nil {
		return Source{}
	}

	return Source{kind: sourceLive, load: func() any { return *p }}
}

// LiveFunc returns a Source that calls fn every time it is evaluated.
// A nil fn yields an invalid Source.
func LiveFunc(fn func() any) Source {
	if fn == nil {
		return Source{}
	}

	return Source{kind: sourceLive, load: fn}
}

// IsLive reports whether s reads its value at evaluation time.
func (s Source) IsLive() bool { return s.kind == sourceLive }

// IsValid reports whether s holds either variant.
func (s Source) IsValid() bool { return s.kind != sourceNone }

// Load returns the current value of s.
func (s Source) Load() any {
	switch s.kind {
	case sourceLive:
		return s.load()
	case sourceSnapshot:
		return s.value
	default:
		return nil
	}
}
