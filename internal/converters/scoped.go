package converters

import "sync"

// Lease is the scoped checkout of a pooled converter entry. Release
// returns the entry to the store exactly once; extra calls are no-ops.
// The pool retains ownership of the entry — a lease only borrows it.
type Lease struct {
	store *Store
	res   *Resource
	once  sync.Once
}

func newLease(store *Store, res *Resource) *Lease {
	return &Lease{store: store, res: res}
}

// Resource returns the borrowed entry.
func (l *Lease) Resource() *Resource { return l.res }

// Release returns the entry to the pool. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.store.put(l.res)
	})
}

// LeaseSink receives leases whose release must be deferred past the
// current call, until the device work that references the converter
// has retired. The binding context implements it.
type LeaseSink interface {
	AttachLease(*Lease)
}
