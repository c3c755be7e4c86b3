package frame

// ID identifies a registered callback. The zero ID is never allocated.
type ID uint64

// idArena allocates IDs from a monotonic counter and reuses released ones,
// most recently released first.
type idArena struct {
	last ID
	free []ID
}

func (a *idArena) alloc() ID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	a.last++
	return a.last
}

func (a *idArena) release(id ID) {
	if id == 0 || id > a.last {
		return
	}
	a.free = append(a.free, id)
}
