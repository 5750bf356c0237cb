package id

import "testing"

func TestNewIsUnique(t *testing.T) {
	seen := make(map[Id]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id minted: %v", id)
		}
		seen[id] = true
		if id == Nil {
			t.Fatal("New minted the nil id")
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a := New()
	b := FromBytes(a.Bytes())
	if a != b {
		t.Errorf("FromBytes(a.Bytes()) = %v, want %v", b, a)
	}
}

func TestStringIsStable(t *testing.T) {
	a := New()
	if a.String() != a.String() {
		t.Error("String() is not deterministic for the same id")
	}
	if a.String() == Nil.String() {
		t.Error("a minted id stringifies the same as Nil")
	}
}
