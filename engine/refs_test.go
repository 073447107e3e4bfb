package engine

import "testing"

func TestPopRefEmptyPanics(t *testing.T) {
	vm := newTestVM(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	vm.PopRef()
}

func TestDeleteRefTwicePanics(t *testing.T) {
	vm := newTestVM(t)
	r := vm.AddRef()
	vm.DeleteRef(r)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	vm.DeleteRef(r)
}

func TestDeleteRefOnStackRefPanics(t *testing.T) {
	vm := newTestVM(t)
	r := vm.PushRef()
	defer vm.PopRef()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	vm.DeleteRef(r)
}

func TestRefStackNesting(t *testing.T) {
	vm := newTestVM(t)

	a := vm.PushRef()
	b := vm.PushRef()
	a.Set(Int(1))
	b.Set(Int(2))

	if v := vm.PopRef(); v.Int() != 2 {
		t.Fatalf("inner pop = %v", v)
	}
	if v := vm.PopRef(); v.Int() != 1 {
		t.Fatalf("outer pop = %v", v)
	}
}
