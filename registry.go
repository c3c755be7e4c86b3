package frame

import "slices"

// registry maps IDs to callbacks and remembers registration order.
type registry[F any] struct {
	order []ID
	funcs map[ID]F
}

func newRegistry[F any]() *registry[F] {
	return &registry[F]{funcs: make(map[ID]F)}
}

func (r *registry[F]) add(id ID, fn F) {
	r.order = append(r.order, id)
	r.funcs[id] = fn
}

func (r *registry[F]) remove(id ID) bool {
	if _, ok := r.funcs[id]; !ok {
		return false
	}
	delete(r.funcs, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true
}

func (r *registry[F]) get(id ID) (F, bool) {
	fn, ok := r.funcs[id]
	return fn, ok
}

// ids returns a snapshot of the registered IDs in registration order.
func (r *registry[F]) ids() []ID {
	return slices.Clone(r.order)
}

func (r *registry[F]) len() int {
	return len(r.order)
}
