package core

import "reflect"

// payloadKey identifies one slot in the promise store: a destination
// component awaiting a given payload type, optionally narrowed by an
// explicit event key. A specific source component is not part of the key;
// promiseStore.sourced indexes it separately under the key. Grounded directly
// on AwaitKey in
// original_source/crates/dslab-core/src/async_core/promise_storage.rs.
type payloadKey struct {
	dest   ComponentID
	typ    reflect.Type
	hasKey bool
	key    int64
}

// eventPromiseHandle is the engine-side record of one pending await. slot is
// the Task's suspension point; pairedTimer links a with-timeout await to the
// timer that races it, so resolving one cancels the other.
type eventPromiseHandle struct {
	slot           *awaitSlot
	pairedTimer    TimerID
	hasPairedTimer bool
}

// promiseStore indexes pending event-promises by destination+type+key, with
// a strict separation between "any source" (unsourced) and "this exact
// source" (sourced) awaits. Insertion enforces the conflict rule from
// promise_storage.rs::insert: an unsourced await blocks every source on its
// key, and each source may have at most one sourced await on a key.
type promiseStore struct {
	unsourced map[payloadKey]*eventPromiseHandle
	sourced   map[payloadKey]map[ComponentID]*eventPromiseHandle
	keyGetters map[reflect.Type]func(any) int64
}

func newPromiseStore() *promiseStore {
	return &promiseStore{
		unsourced:  make(map[payloadKey]*eventPromiseHandle),
		sourced:    make(map[payloadKey]map[ComponentID]*eventPromiseHandle),
		keyGetters: make(map[reflect.Type]func(any) int64),
	}
}

// insert registers h for the given key, optionally restricted to src. It
// panics with ErrDuplicatePromise on any of the three conflicts described
// in promise_storage.rs: an existing unsourced await on the key, an
// existing sourced await for the same (key, src) pair, or — when inserting
// unsourced — any existing sourced await at all on that key.
func (s *promiseStore) insert(key payloadKey, src *ComponentID, h *eventPromiseHandle) {
	if src != nil {
		if _, exists := s.unsourced[key]; exists {
			fatalf(ErrDuplicatePromise, "dest=%d type=%s (blocked by an unsourced await on the same key)", key.dest, key.typ)
		}
		bucket := s.sourced[key]
		if bucket == nil {
			bucket = make(map[ComponentID]*eventPromiseHandle)
			s.sourced[key] = bucket
		}
		if _, exists := bucket[*src]; exists {
			fatalf(ErrDuplicatePromise, "dest=%d type=%s src=%d", key.dest, key.typ, *src)
		}
		bucket[*src] = h
		return
	}
	if bucket, ok := s.sourced[key]; ok && len(bucket) > 0 {
		fatalf(ErrDuplicatePromise, "dest=%d type=%s (blocked by a sourced await on the same key)", key.dest, key.typ)
	}
	if _, exists := s.unsourced[key]; exists {
		fatalf(ErrDuplicatePromise, "dest=%d type=%s", key.dest, key.typ)
	}
	s.unsourced[key] = h
}

// removeExact removes a specific await without resolving it, used to tear
// down the losing side of a with-timeout race or a caller-initiated detach.
func (s *promiseStore) removeExact(key payloadKey, src *ComponentID) {
	if src != nil {
		if bucket, ok := s.sourced[key]; ok {
			delete(bucket, *src)
			if len(bucket) == 0 {
				delete(s.sourced, key)
			}
		}
		return
	}
	delete(s.unsourced, key)
}

// keyGetterFor looks up the registered key getter for typ, if any.
func (s *promiseStore) keyGetterFor(typ reflect.Type) (func(any) int64, bool) {
	g, ok := s.keyGetters[typ]
	return g, ok
}

// extract locates (and removes) the promise handle matching an incoming
// event, probing the unsourced bucket first and then the sourced bucket for
// the event's specific source, matching
// promise_storage.rs::extract_promise_for's ordering.
func (s *promiseStore) extract(dest ComponentID, typ reflect.Type, hasKey bool, key int64, src ComponentID) (*eventPromiseHandle, bool) {
	pk := payloadKey{dest: dest, typ: typ, hasKey: hasKey, key: key}
	if h, ok := s.unsourced[pk]; ok {
		delete(s.unsourced, pk)
		return h, true
	}
	if bucket, ok := s.sourced[pk]; ok {
		if h, ok := bucket[src]; ok {
			delete(bucket, src)
			if len(bucket) == 0 {
				delete(s.sourced, pk)
			}
			return h, true
		}
	}
	return nil, false
}

// hasPromiseFor reports whether extract would currently find a match,
// without removing anything.
func (s *promiseStore) hasPromiseFor(dest ComponentID, typ reflect.Type, hasKey bool, key int64, src ComponentID) bool {
	pk := payloadKey{dest: dest, typ: typ, hasKey: hasKey, key: key}
	if _, ok := s.unsourced[pk]; ok {
		return true
	}
	if bucket, ok := s.sourced[pk]; ok {
		_, ok := bucket[src]
		return ok
	}
	return false
}

// removeForDestination drops every pending await whose destination is id,
// returning the handles so the caller can cancel their owning tasks.
// Grounded on promise_storage.rs::remove_component_promises.
func (s *promiseStore) removeForDestination(id ComponentID) []*eventPromiseHandle {
	var removed []*eventPromiseHandle
	for k, h := range s.unsourced {
		if k.dest == id {
			removed = append(removed, h)
			delete(s.unsourced, k)
		}
	}
	for k, bucket := range s.sourced {
		if k.dest != id {
			continue
		}
		for src, h := range bucket {
			removed = append(removed, h)
			delete(bucket, src)
		}
		delete(s.sourced, k)
	}
	return removed
}

func typeKeyFor[T any](dest ComponentID, hasKey bool, key int64) payloadKey {
	return payloadKey{dest: dest, typ: reflect.TypeFor[T](), hasKey: hasKey, key: key}
}
