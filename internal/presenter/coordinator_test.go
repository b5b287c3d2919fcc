package presenter

import "testing"

func TestGrantFreeToBusy(t *testing.T) {
	c := New()
	granted, changed := c.Grant(0)
	if !granted || !changed {
		t.Fatalf("Grant(0) on FREE = (%v,%v), want (true,true)", granted, changed)
	}
	if c.Current() != 0 {
		t.Fatalf("Current() = %d, want 0", c.Current())
	}
}

func TestGrantReconnectIsIdempotent(t *testing.T) {
	c := New()
	c.Grant(0)
	granted, changed := c.Grant(0)
	if !granted || changed {
		t.Fatalf("reconnect Grant(0) = (%v,%v), want (true,false)", granted, changed)
	}
}

func TestGrantDeniesOtherHolder(t *testing.T) {
	c := New()
	c.Grant(0)
	granted, changed := c.Grant(1)
	if granted || changed {
		t.Fatalf("Grant(1) while busy(0) = (%v,%v), want (false,false)", granted, changed)
	}
	if c.Current() != 0 {
		t.Fatalf("Current() should remain 0, got %d", c.Current())
	}
}

func TestReleaseByHolder(t *testing.T) {
	c := New()
	c.Grant(0)
	if changed := c.Release(0); !changed {
		t.Fatalf("Release(0) should report changed")
	}
	if c.Current() != None {
		t.Fatalf("Current() = %d, want None", c.Current())
	}
}

func TestReleaseByNonHolderIsNoop(t *testing.T) {
	c := New()
	c.Grant(0)
	if changed := c.Release(1); changed {
		t.Fatalf("Release(1) while busy(0) should not change state")
	}
	if c.Current() != 0 {
		t.Fatalf("Current() should remain 0")
	}
}

func TestIsHolder(t *testing.T) {
	c := New()
	if c.IsHolder(0) {
		t.Fatalf("nobody should be holder when FREE")
	}
	c.Grant(0)
	if !c.IsHolder(0) {
		t.Fatalf("0 should be holder")
	}
	if c.IsHolder(1) {
		t.Fatalf("1 should not be holder")
	}
}

func TestAfterReleaseNewHolderCanGrant(t *testing.T) {
	c := New()
	c.Grant(0)
	c.Release(0)
	granted, changed := c.Grant(1)
	if !granted || !changed {
		t.Fatalf("Grant(1) after release = (%v,%v), want (true,true)", granted, changed)
	}
}
