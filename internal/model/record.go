package model

// Record accumulates the fields of one substance across page fetches.
// Fields are additive: a key set by an earlier page is never replaced.
type Record struct {
	identity Identity
	props    map[string]Property
}

// NewRecord creates a record seeded with the root page identity
func NewRecord(identity Identity) *Record {
	return &Record{
		identity: identity,
		props:    make(map[string]Property),
	}
}

// Identity returns the identity captured from the root page
func (r *Record) Identity() Identity {
	return r.identity
}

// Merge adds every fragment field not already present.
// Returns the keys that were skipped because they were already set.
func (r *Record) Merge(f Fragment) []string {
	var skipped []string
	for _, key := range f.Keys() {
		if IsIdentityKey(key) {
			skipped = append(skipped, key)
			continue
		}
		if _, exists := r.props[key]; exists {
			skipped = append(skipped, key)
			continue
		}
		r.props[key] = f[key]
	}
	return skipped
}

// Get returns the property stored under key
func (r *Record) Get(key string) (Property, bool) {
	p, ok := r.props[key]
	return p, ok
}

// Len returns the number of property fields
func (r *Record) Len() int {
	return len(r.props)
}

// Freeze copies the record into an immutable Substance
func (r *Record) Freeze() *Substance {
	props := make(map[string]Property, len(r.props))
	for k, v := range r.props {
		props[k] = v
	}
	return &Substance{
		Identity:   r.identity,
		Properties: props,
	}
}
