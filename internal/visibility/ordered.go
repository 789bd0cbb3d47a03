package visibility

// ordered is a map that remembers insertion order. Layout and rendering see
// nodes in the order they became visible, which keeps sibling order stable.
type ordered[V any] struct {
	m    map[string]V
	keys []string
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{m: make(map[string]V)}
}

func (o *ordered[V]) len() int { return len(o.keys) }

func (o *ordered[V]) has(k string) bool {
	_, ok := o.m[k]
	return ok
}

func (o *ordered[V]) get(k string) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

// put inserts or replaces v. Replacing keeps the original position.
func (o *ordered[V]) put(k string, v V) {
	if _, ok := o.m[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
}

// removeIf deletes every entry for which drop returns true and reports how
// many were removed.
func (o *ordered[V]) removeIf(drop func(k string, v V) bool) int {
	kept := o.keys[:0]
	removed := 0
	for _, k := range o.keys {
		if drop(k, o.m[k]) {
			delete(o.m, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	o.keys = kept
	return removed
}

func (o *ordered[V]) values() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.m[k])
	}
	return out
}
