package engine

import (
	"fmt"
	"testing"
)

func TestGarbageIsReclaimed(t *testing.T) {
	vm := newTestVM(t)

	baseline := vm.UsedWords()
	for i := 0; i < 1000; i++ {
		if _, ok := vm.NewString(fmt.Sprintf("transient value %d", i)); !ok {
			t.Fatalf("allocation %d failed", i)
		}
	}
	vm.GC()
	if used := vm.UsedWords(); used > baseline+8 {
		t.Fatalf("used %d words after collection, baseline %d", used, baseline)
	}
}

func TestAllocationPressureTriggersCollection(t *testing.T) {
	// A small arena forces collections mid-stream; unpinned garbage must
	// never exhaust it.
	vm := New(StdBasic.MinCapacity, StdBasic)
	defer vm.Close()

	before := vm.Collections()
	for i := 0; i < 10000; i++ {
		if _, ok := vm.NewString("short-lived allocation payload"); !ok {
			t.Fatalf("allocation %d failed with garbage pending", i)
		}
	}
	if vm.Collections() == before {
		t.Fatal("expected at least one collection under pressure")
	}
}

func TestPinnedObjectsSurviveCompaction(t *testing.T) {
	vm := newTestVM(t)

	const n = 64
	refs := make([]*Ref, n)
	for i := 0; i < n; i++ {
		refs[i] = vm.AddRef()
		s, ok := vm.NewString(fmt.Sprintf("live-%03d", i))
		if !ok {
			t.Fatalf("alloc %d failed", i)
		}
		refs[i].Set(s)
		// Interleave garbage so live objects end up scattered.
		vm.NewString("interleaved garbage")
	}

	vm.GC()
	vm.GC()

	for i := 0; i < n; i++ {
		if got := vm.GoString(refs[i].Get()); got != fmt.Sprintf("live-%03d", i) {
			t.Fatalf("ref %d content = %q", i, got)
		}
		vm.DeleteRef(refs[i])
	}
}

func TestCompactionRewritesInteriorReferences(t *testing.T) {
	vm := newTestVM(t)

	// Build an object graph, surround it with garbage, collect, and
	// check the graph is intact through its pinned root.
	r := vm.AddRef()
	obj, ok := vm.NewObject()
	if !ok {
		t.Fatal("NewObject failed")
	}
	r.Set(obj)

	inner, ok := vm.NewArray()
	if !ok {
		t.Fatal("NewArray failed")
	}
	if !vm.SetProp(r.Get(), "items", inner) {
		t.Fatal("SetProp failed")
	}
	for i := 0; i < 10; i++ {
		s, ok := vm.NewString(fmt.Sprintf("item %d", i))
		if !ok {
			t.Fatal("string alloc failed")
		}
		items, _ := vm.GetProp(r.Get(), "items")
		if !vm.ArrayPush(items, s) {
			t.Fatal("ArrayPush failed")
		}
		vm.NewString("garbage between items")
	}

	vm.GC()

	items, found := vm.GetProp(r.Get(), "items")
	if !found || vm.ArrayLen(items) != 10 {
		t.Fatalf("items after compaction: found=%v len=%d", found, vm.ArrayLen(items))
	}
	for i := 0; i < 10; i++ {
		if got := vm.GoString(vm.ArrayGet(items, i)); got != fmt.Sprintf("item %d", i) {
			t.Fatalf("items[%d] = %q", i, got)
		}
	}
	vm.DeleteRef(r)
}

func TestCollectionMovesLiveObjects(t *testing.T) {
	vm := newTestVM(t)

	for i := 0; i < 30; i++ {
		vm.NewString("garbage ahead of the survivor")
	}
	r := vm.AddRef()
	s, _ := vm.NewString("survivor")
	r.Set(s)

	vm.GC()
	if r.Get() == s {
		t.Fatal("expected the survivor to slide toward the arena base")
	}
	if r.Get().ref() >= s.ref() {
		t.Fatalf("survivor moved up: %d -> %d", s.ref(), r.Get().ref())
	}
	if vm.GoString(r.Get()) != "survivor" {
		t.Fatal("content lost in move")
	}
	vm.DeleteRef(r)
}

func TestArenaExhaustionIsReported(t *testing.T) {
	vm := New(StdBasic.MinCapacity, StdBasic)
	defer vm.Close()

	// Pin everything so collection cannot reclaim, then allocate until
	// the arena reports exhaustion.
	exhausted := false
	var refs []*Ref
	for i := 0; i < 1<<20; i++ {
		s, ok := vm.NewString("pinned forever, arena filler, not collectable")
		if !ok {
			exhausted = true
			break
		}
		r := vm.AddRef()
		r.Set(s)
		refs = append(refs, r)
	}
	if !exhausted {
		t.Fatal("expected allocation failure with everything pinned")
	}

	// Dropping the pins makes the arena usable again.
	for _, r := range refs {
		vm.DeleteRef(r)
	}
	if _, ok := vm.NewString("after release"); !ok {
		t.Fatal("allocation should succeed after pins are released")
	}
}

func TestShadowStackHelpers(t *testing.T) {
	vm := newTestVM(t)

	i := vm.pushTmp(Int(1))
	j := vm.pushTmp(Int(2))
	if vm.tmpAt(i).Int() != 1 || vm.tmpAt(j).Int() != 2 {
		t.Fatal("tmpAt readback")
	}
	vm.setTmp(i, Int(9))
	if vm.tmpAt(i).Int() != 9 {
		t.Fatal("setTmp")
	}
	vm.popTmpTo(i)
	if len(vm.tmp) != i {
		t.Fatalf("tmp len = %d, want %d", len(vm.tmp), i)
	}
}
