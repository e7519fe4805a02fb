package internal

import "testing"

func TestPingTable_StoreAndTake(t *testing.T) {
	table := NewPingTable()
	fired := false
	table.Store([]byte("ping1"), func() { fired = true })

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}

	ping, ok := table.Take([]byte("ping1"))
	if !ok {
		t.Fatal("expected matching pending ping")
	}
	ping.Callback()
	if !fired {
		t.Fatal("expected callback to run")
	}
	if table.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Take", table.Len())
	}
}

func TestPingTable_TakeMissReturnsFalse(t *testing.T) {
	table := NewPingTable()
	_, ok := table.Take([]byte("nope"))
	if ok {
		t.Fatal("expected no match")
	}
}

func TestPingTable_MultipleEntriesIndependent(t *testing.T) {
	table := NewPingTable()
	table.Store([]byte("a"), func() {})
	table.Store([]byte("b"), func() {})
	table.Store([]byte("c"), func() {})

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	if _, ok := table.Take([]byte("b")); !ok {
		t.Fatal("expected b to be present")
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if _, ok := table.Take([]byte("a")); !ok {
		t.Fatal("expected a to still be present")
	}
	if _, ok := table.Take([]byte("c")); !ok {
		t.Fatal("expected c to still be present")
	}
}

func TestPingTable_StoreReplacesExisting(t *testing.T) {
	table := NewPingTable()
	table.Store([]byte("x"), func() {})
	table.Store([]byte("x"), func() {})
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after replacing the same key", table.Len())
	}
}
