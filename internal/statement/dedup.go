package statement

// ReferenceSet tracks which external payment references have already been
// converted into a deposit credit during one reconciliation run. It is
// created per run and discarded with it; the engine processes wallet entries
// first, then C2B payments, then repayment groups, so earlier sources win
// when the same receipt appears in more than one table.
type ReferenceSet struct {
	keys map[string]struct{}
}

// NewReferenceSet returns an empty run-scoped set.
func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{keys: make(map[string]struct{})}
}

// Register records ref and reports whether it was new. Empty references
// cannot identify a money movement, so they are always treated as new and
// never stored.
func (s *ReferenceSet) Register(ref string) bool {
	if ref == "" {
		return true
	}
	if _, ok := s.keys[ref]; ok {
		return false
	}
	s.keys[ref] = struct{}{}
	return true
}

// Seen reports whether ref has already been registered.
func (s *ReferenceSet) Seen(ref string) bool {
	if ref == "" {
		return false
	}
	_, ok := s.keys[ref]
	return ok
}

// Len returns the number of distinct references registered.
func (s *ReferenceSet) Len() int {
	return len(s.keys)
}
