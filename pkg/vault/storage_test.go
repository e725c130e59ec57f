package vault

import (
	"reflect"
	"testing"
)

// runStorageSuite exercises the Storage contract shared by every
// backend. Backends are constructed with the default container height
// (6 rows).
func runStorageSuite(t *testing.T, open func(t *testing.T) Storage) {
	t.Helper()

	holder := "069a79f4-44e9-4726-a5be-fca90e38aaf5"

	t.Run("save load delete scenario", func(t *testing.T) {
		s := open(t)

		rec := NewRecord(9)
		rec.Slots[0] = &ItemRecord{Type: "minecraft:apple", Count: 5}
		if err := s.Save(holder, 1, rec); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		got, err := s.Load(holder, 1, 9)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if got == nil {
			t.Fatal("load returned absence for a saved vault")
		}
		if got.Size != 9 {
			t.Errorf("size = %d, want 9", got.Size)
		}
		if got.Slots[0] == nil || got.Slots[0].Type != "minecraft:apple" || got.Slots[0].Count != 5 {
			t.Errorf("slot 0 = %+v, want 5 apples", got.Slots[0])
		}
		for i := 1; i < 9; i++ {
			if got.Slots[i] != nil {
				t.Errorf("slot %d should be empty", i)
			}
		}

		if err := s.Delete(holder, 1); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		got, err = s.Load(holder, 1, 9)
		if err != nil {
			t.Fatalf("load after delete failed: %v", err)
		}
		if got != nil {
			t.Error("load after delete should report absence")
		}
	})

	t.Run("absence is not an error", func(t *testing.T) {
		s := open(t)
		rec, err := s.Load(holder, 42, 9)
		if err != nil {
			t.Fatalf("load of never-saved vault errored: %v", err)
		}
		if rec != nil {
			t.Error("expected absence, got a record")
		}
	})

	t.Run("exists", func(t *testing.T) {
		s := open(t)
		if s.Exists(holder, 1) {
			t.Error("exists before save")
		}
		if err := s.Save(holder, 1, NewRecord(9)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if !s.Exists(holder, 1) {
			t.Error("missing after save")
		}
		if s.Exists(holder, 2) {
			t.Error("wrong number reported as existing")
		}
	})

	t.Run("numbers", func(t *testing.T) {
		s := open(t)
		for _, n := range []int{1, 3, 7} {
			if err := s.Save(holder, n, NewRecord(9)); err != nil {
				t.Fatalf("save vault %d failed: %v", n, err)
			}
		}
		want := map[int]struct{}{1: {}, 3: {}, 7: {}}
		if got := s.Numbers(holder); !reflect.DeepEqual(got, want) {
			t.Errorf("numbers = %v, want %v", got, want)
		}
		if got := s.Numbers("nobody-here"); len(got) != 0 {
			t.Errorf("numbers for unknown holder = %v, want empty", got)
		}
	})

	t.Run("deletes are idempotent", func(t *testing.T) {
		s := open(t)
		if err := s.Delete(holder, 9); err != nil {
			t.Errorf("delete of missing vault errored: %v", err)
		}
		if err := s.DeleteAll("nobody-here"); err != nil {
			t.Errorf("delete-all of missing holder errored: %v", err)
		}

		if err := s.Save(holder, 1, NewRecord(9)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := s.Delete(holder, 1); err != nil {
			t.Fatalf("first delete failed: %v", err)
		}
		if err := s.Delete(holder, 1); err != nil {
			t.Errorf("second delete errored: %v", err)
		}
	})

	t.Run("delete all", func(t *testing.T) {
		s := open(t)
		for _, n := range []int{1, 2} {
			if err := s.Save(holder, n, NewRecord(9)); err != nil {
				t.Fatalf("save vault %d failed: %v", n, err)
			}
		}
		if err := s.DeleteAll(holder); err != nil {
			t.Fatalf("delete-all failed: %v", err)
		}
		if len(s.Numbers(holder)) != 0 {
			t.Error("vaults remain after delete-all")
		}
	})

	t.Run("size default substitution", func(t *testing.T) {
		s := open(t)
		rec := NewRecord(54)
		rec.Slots[0] = &ItemRecord{Type: "minecraft:apple", Count: 1}
		if err := s.Save(holder, 1, rec); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		tests := []struct {
			requested int
			want      int
		}{
			{0, 54},  // non-positive -> default
			{7, 54},  // not a row multiple -> default
			{-1, 54}, // sentinel for "whatever is stored"
			{18, 18}, // usable size honored
		}
		for _, tt := range tests {
			got, err := s.Load(holder, 1, tt.requested)
			if err != nil {
				t.Fatalf("load size %d failed: %v", tt.requested, err)
			}
			if got.Size != tt.want {
				t.Errorf("load size %d: got size %d, want %d", tt.requested, got.Size, tt.want)
			}
		}
	})

	t.Run("overflow preserved across save and load", func(t *testing.T) {
		s := open(t)
		rec := NewRecord(54)
		for i := 0; i < 40; i++ {
			rec.Slots[i] = &ItemRecord{Type: "minecraft:diamond_sword", Count: 1, Damage: i, StackLimit: 1}
		}
		if err := s.Save(holder, 1, rec); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		small, err := s.Load(holder, 1, 9)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if got := countItems(small.Items()); got != 40 {
			t.Fatalf("items lost on shrink: got %d, want 40", got)
		}

		// Round-trip the shrunk record: overflow must ride along.
		if err := s.Save(holder, 1, small); err != nil {
			t.Fatalf("re-save failed: %v", err)
		}
		big, err := s.Load(holder, 1, 54)
		if err != nil {
			t.Fatalf("re-load failed: %v", err)
		}
		if got := countItems(big.Items()); got != 40 {
			t.Errorf("items lost after round trip: got %d, want 40", got)
		}
	})
}
