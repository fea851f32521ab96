package detector

import "sync"

// maxSignatures and evictFraction implement spec §4.1 step 4: a bounded
// in-memory set of seen signatures, discarding the oldest 20% once full
// rather than growing without bound.
const (
	maxSignatures = 1000
	evictFraction = 0.2
)

// signatureDedup is an insertion-ordered bounded set: Seen both checks
// and records membership in one call, matching how the detector uses it
// (check-then-mark, never checked separately).
type signatureDedup struct {
	mu    sync.Mutex
	set   map[string]struct{}
	order []string
}

func newSignatureDedup() *signatureDedup {
	return &signatureDedup{set: make(map[string]struct{})}
}

// Seen reports whether signature was already recorded, recording it if
// not. Eviction happens before insertion so the set never exceeds
// maxSignatures.
func (d *signatureDedup) Seen(signature string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.set[signature]; ok {
		return true
	}

	if len(d.order) >= maxSignatures {
		evictCount := int(float64(maxSignatures) * evictFraction)
		if evictCount < 1 {
			evictCount = 1
		}
		for _, old := range d.order[:evictCount] {
			delete(d.set, old)
		}
		d.order = d.order[evictCount:]
	}

	d.set[signature] = struct{}{}
	d.order = append(d.order, signature)
	return false
}
