package runtime

import (
	"fmt"
	"testing"

	"github.com/embjs/embjs/engine"
)

// Pinned values must survive arbitrary allocation pressure: the
// collector rewrites tracked cells when objects move.
func TestPinnedSurvivesAllocations(t *testing.T) {
	for _, n := range []int{0, 1, 10, 1000} {
		t.Run(fmt.Sprintf("allocs_%d", n), func(t *testing.T) {
			ctx := newTestContext(t)

			r := ctx.PushRef()
			r.Set(ctx.FromString("pinned payload"))

			for i := 0; i < n; i++ {
				v := ctx.FromString(fmt.Sprintf("filler %d", i))
				if v.IsException() {
					t.Fatalf("alloc %d failed: %v", i, ctx.Exception())
				}
			}
			ctx.GC()

			got := ctx.ToString(r.Get())
			ctx.PopRef()
			if got != "pinned payload" {
				t.Fatalf("pinned content = %q", got)
			}
		})
	}
}

// A collection after garbage accumulates ahead of a live object slides
// the object down the arena, so the pinned cell's raw value changes
// while its content does not.
func TestCollectionMovesObjects(t *testing.T) {
	ctx := newTestContext(t)

	// Unpinned garbage allocated before the live string.
	for i := 0; i < 50; i++ {
		ctx.FromString(fmt.Sprintf("garbage %04d", i))
	}

	r := ctx.PushRef()
	r.Set(ctx.FromString("survivor"))
	before := r.Get()

	ctx.GC()

	after := r.Get()
	if after == before {
		t.Fatal("expected the collector to relocate the pinned object")
	}
	if got := ctx.ToString(after); got != "survivor" {
		t.Fatalf("content after move = %q", got)
	}
	ctx.PopRef()
}

func TestPopRefReturnsFinalValue(t *testing.T) {
	ctx := newTestContext(t)
	r := ctx.PushRef()
	r.Set(engine.Int(7))
	v := ctx.PopRef()
	if !v.IsInt() || v.Int() != 7 {
		t.Fatalf("PopRef = %v", v)
	}
	if ctx.RefDepth() != 0 {
		t.Fatalf("RefDepth = %d", ctx.RefDepth())
	}
}

func TestListDisciplineArbitraryOrder(t *testing.T) {
	ctx := newTestContext(t)

	a := ctx.AddRef()
	b := ctx.AddRef()
	c := ctx.AddRef()
	a.Set(ctx.FromString("alpha"))
	b.Set(ctx.FromString("beta"))
	c.Set(ctx.FromString("gamma"))

	// Remove the middle cell first; the remaining two must keep
	// tracking across a collection.
	ctx.DeleteRef(b)
	ctx.GC()

	if got := ctx.ToString(a.Get()); got != "alpha" {
		t.Fatalf("a = %q", got)
	}
	if got := ctx.ToString(c.Get()); got != "gamma" {
		t.Fatalf("c = %q", got)
	}
	ctx.DeleteRef(a)
	ctx.DeleteRef(c)
}

func TestWithPinned(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.FromString("scoped")
	err := ctx.WithPinned(v, func(r *Ref) error {
		for i := 0; i < 100; i++ {
			ctx.FromString("pressure")
		}
		ctx.GC()
		if got := ctx.ToString(r.Get()); got != "scoped" {
			t.Fatalf("pinned content = %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithPinned: %v", err)
	}
	if ctx.RefDepth() != 0 {
		t.Fatalf("RefDepth after scope = %d", ctx.RefDepth())
	}
}

func TestWithPinnedPopsOnPanic(t *testing.T) {
	ctx := newTestContext(t)
	func() {
		defer func() { recover() }()
		ctx.WithPinned(engine.Int(1), func(*Ref) error {
			panic("inside scope")
		})
	}()
	if ctx.RefDepth() != 0 {
		t.Fatalf("RefDepth after panic = %d", ctx.RefDepth())
	}
}
