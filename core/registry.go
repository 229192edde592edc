package core

// Handler processes one event delivered synchronously to a component: no
// matching promise was found for it, so it falls through to whatever
// handler the component registered. Grounded on the dispatch fallback in
// original_source/core/src/sim.rs's step (actor.on(...)), generalized from
// a single "actor" trait method to a plain function value.
type Handler func(ctx *Context, e Event)

// CancelPolicy governs what happens to in-flight events and pending
// promises when a handler is detached from a component.
type CancelPolicy int

const (
	// CancelNone leaves events and promises untouched.
	CancelNone CancelPolicy = iota
	// CancelIncoming cancels events and promises where the component is
	// the destination.
	CancelIncoming
	// CancelOutgoing cancels events where the component is the source.
	CancelOutgoing
	// CancelAll applies both CancelIncoming and CancelOutgoing.
	CancelAll
)

// registry assigns dense ComponentIDs to names and tracks each component's
// currently attached handler. Grounded on kb/kb.go's name/id registration
// shape and async_simulation.rs's register/lookup_id/lookup_name, but
// deliberately without kb.KnowledgeBase's sync.RWMutex: the kernel is
// single-threaded by contract (spec §5), so a registry mutex would
// misrepresent that guarantee rather than enforce it.
type registry struct {
	nameToID map[string]ComponentID
	names    []string
	handlers []Handler
}

func newRegistry() *registry {
	return &registry{nameToID: make(map[string]ComponentID)}
}

// register is idempotent: registering the same name twice returns the same id.
func (r *registry) register(name string) ComponentID {
	if id, ok := r.nameToID[name]; ok {
		return id
	}
	id := ComponentID(len(r.names))
	r.nameToID[name] = id
	r.names = append(r.names, name)
	r.handlers = append(r.handlers, nil)
	return id
}

func (r *registry) lookupID(name string) (ComponentID, bool) {
	id, ok := r.nameToID[name]
	return id, ok
}

func (r *registry) lookupName(id ComponentID) (string, bool) {
	if int(id) >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

func (r *registry) setHandler(id ComponentID, h Handler) {
	r.ensure(id)
	r.handlers[id] = h
}

func (r *registry) removeHandler(id ComponentID) {
	if int(id) < len(r.handlers) {
		r.handlers[id] = nil
	}
}

func (r *registry) handlerFor(id ComponentID) (Handler, bool) {
	if int(id) >= len(r.handlers) || r.handlers[id] == nil {
		return nil, false
	}
	return r.handlers[id], true
}

func (r *registry) ensure(id ComponentID) {
	for ComponentID(len(r.handlers)) <= id {
		r.handlers = append(r.handlers, nil)
	}
}
