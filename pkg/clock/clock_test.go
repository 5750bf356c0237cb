package clock

import "testing"

func TestCompareOrdering(t *testing.T) {
	a := Clock{Hi: 1, Lo: 0}
	b := Clock{Hi: 1, Lo: 1}
	if a.Compare(b) != -1 {
		t.Errorf("a.Compare(b) = %d, want -1", a.Compare(b))
	}
	if b.Compare(a) != 1 {
		t.Errorf("b.Compare(a) = %d, want 1", b.Compare(a))
	}
	if a.Compare(a) != 0 {
		t.Errorf("a.Compare(a) = %d, want 0", a.Compare(a))
	}
}

func TestLess(t *testing.T) {
	a := Clock{Hi: 0, Lo: 5}
	b := Clock{Hi: 0, Lo: 6}
	if !a.Less(b) {
		t.Error("a should be less than b")
	}
	if b.Less(a) {
		t.Error("b should not be less than a")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	c := Clock{Hi: 0x0102030405060708, Lo: 0x0a0b0c0d0e0f1011}
	got := FromBytes(c.Bytes())
	if got != c {
		t.Errorf("FromBytes(c.Bytes()) = %+v, want %+v", got, c)
	}
}

func TestSourceMonotonic(t *testing.T) {
	s := NewSource()
	prev := s.Next()
	for i := 0; i < 1000; i++ {
		next := s.Next()
		if !prev.Less(next) {
			t.Fatalf("clock source is not strictly increasing: %+v then %+v", prev, next)
		}
		prev = next
	}
}
