package core

import (
	"reflect"
	"testing"
)

type pingPayload struct{ N int }

func TestPromiseStoreUnsourcedBlocksDuplicateInsert(t *testing.T) {
	s := newPromiseStore()
	key := typeKeyFor[pingPayload](1, false, 0)
	s.insert(key, nil, &eventPromiseHandle{slot: &awaitSlot{}})

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on duplicate unsourced insert")
		}
	}()
	s.insert(key, nil, &eventPromiseHandle{slot: &awaitSlot{}})
}

func TestPromiseStoreUnsourcedBlocksSourcedOnSameKey(t *testing.T) {
	s := newPromiseStore()
	key := typeKeyFor[pingPayload](1, false, 0)
	s.insert(key, nil, &eventPromiseHandle{slot: &awaitSlot{}})

	src := ComponentID(2)
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic inserting sourced await on a key already blocked unsourced")
		}
	}()
	s.insert(key, &src, &eventPromiseHandle{slot: &awaitSlot{}})
}

func TestPromiseStoreDistinctSourcesCoexist(t *testing.T) {
	s := newPromiseStore()
	key := typeKeyFor[pingPayload](1, false, 0)
	src1, src2 := ComponentID(2), ComponentID(3)
	s.insert(key, &src1, &eventPromiseHandle{slot: &awaitSlot{}})
	s.insert(key, &src2, &eventPromiseHandle{slot: &awaitSlot{}})

	if !s.hasPromiseFor(1, reflect.TypeFor[pingPayload](), false, 0, src1) {
		t.Fatalf("expected src1 promise present")
	}
	if !s.hasPromiseFor(1, reflect.TypeFor[pingPayload](), false, 0, src2) {
		t.Fatalf("expected src2 promise present")
	}
}

func TestPromiseStoreSameSourceTwiceConflicts(t *testing.T) {
	s := newPromiseStore()
	key := typeKeyFor[pingPayload](1, false, 0)
	src := ComponentID(2)
	s.insert(key, &src, &eventPromiseHandle{slot: &awaitSlot{}})

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on duplicate sourced insert for same source")
		}
	}()
	s.insert(key, &src, &eventPromiseHandle{slot: &awaitSlot{}})
}

func TestPromiseStoreExtractPrefersUnsourced(t *testing.T) {
	s := newPromiseStore()
	key := typeKeyFor[pingPayload](1, false, 0)
	unsourced := &eventPromiseHandle{slot: &awaitSlot{}}
	s.insert(key, nil, unsourced)

	typ := reflect.TypeFor[pingPayload]()
	h, ok := s.extract(1, typ, false, 0, ComponentID(9))
	if !ok || h != unsourced {
		t.Fatalf("expected the unsourced handle extracted")
	}
	if _, ok := s.extract(1, typ, false, 0, ComponentID(9)); ok {
		t.Fatalf("expected extract to remove the entry")
	}
}

func TestPromiseStoreRemoveForDestination(t *testing.T) {
	s := newPromiseStore()
	keyA := typeKeyFor[pingPayload](1, false, 0)
	keyB := typeKeyFor[pingPayload](1, true, 7)
	other := typeKeyFor[pingPayload](2, false, 0)

	src := ComponentID(5)
	s.insert(keyA, nil, &eventPromiseHandle{slot: &awaitSlot{}})
	s.insert(keyB, &src, &eventPromiseHandle{slot: &awaitSlot{}})
	s.insert(other, nil, &eventPromiseHandle{slot: &awaitSlot{}})

	removed := s.removeForDestination(1)
	if len(removed) != 2 {
		t.Fatalf("expected 2 promises removed for destination 1, got %d", len(removed))
	}
	typ := reflect.TypeFor[pingPayload]()
	if !s.hasPromiseFor(2, typ, false, 0, 0) {
		t.Fatalf("expected destination-2 promise to survive")
	}
}
