package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"mdvault/internal/mdv"
)

// testVaultBehavior runs the checks every mdv.Vault implementation must pass.
func testVaultBehavior(t *testing.T, newVault func(t *testing.T) mdv.Vault) {
	ctx := context.Background()

	put := func(t *testing.T, v mdv.Vault, set, key, data string) {
		t.Helper()
		if err := v.PutRecord(ctx, set, key, strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutRecord(%s/%s) error = %v", set, key, err)
		}
	}

	t.Run("put and get", func(t *testing.T) {
		v := newVault(t)
		for _, data := range []string{"hello world", "", strings.Repeat("x", 10000)} {
			put(t, v, "set1", "r.json", data)

			var buf bytes.Buffer
			if err := v.GetRecord(ctx, "set1", "r.json", &buf); err != nil {
				t.Fatalf("GetRecord() error = %v", err)
			}
			if buf.String() != data {
				t.Errorf("GetRecord() = %d bytes, want %d", buf.Len(), len(data))
			}
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		err := v.PutRecord(ctx, "set1", "r.json", strings.NewReader("short"), 100)
		if err == nil {
			t.Fatal("PutRecord() with wrong size should fail")
		}
		keys, _ := v.ListRecords(ctx, "set1")
		if len(keys) != 0 {
			t.Errorf("record stored despite size mismatch: %v", keys)
		}
	})

	t.Run("missing record", func(t *testing.T) {
		v := newVault(t)
		var buf bytes.Buffer
		if err := v.GetRecord(ctx, "set1", "nope.json", &buf); !errors.Is(err, mdv.ErrNotFound) {
			t.Errorf("GetRecord() error = %v, want ErrNotFound", err)
		}
		if err := v.DeleteRecord(ctx, "set1", "nope.json"); !errors.Is(err, mdv.ErrNotFound) {
			t.Errorf("DeleteRecord() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list records in order", func(t *testing.T) {
		v := newVault(t)
		put(t, v, "set1", "20240102T000000.000000000Z_b.json", "2")
		put(t, v, "set1", "20240101T000000.000000000Z_a.json", "1")
		put(t, v, "set1", "20240103T000000.000000000Z_c.json", "3")
		put(t, v, "set2", "20240101T000000.000000000Z_z.json", "z")

		keys, err := v.ListRecords(ctx, "set1")
		if err != nil {
			t.Fatalf("ListRecords() error = %v", err)
		}
		want := []string{
			"20240101T000000.000000000Z_a.json",
			"20240102T000000.000000000Z_b.json",
			"20240103T000000.000000000Z_c.json",
		}
		if strings.Join(keys, ",") != strings.Join(want, ",") {
			t.Errorf("ListRecords() = %v, want %v", keys, want)
		}
	})

	t.Run("list unknown set", func(t *testing.T) {
		v := newVault(t)
		keys, err := v.ListRecords(ctx, "never")
		if err != nil {
			t.Fatalf("ListRecords() error = %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("ListRecords() = %v, want empty", keys)
		}
	})

	t.Run("delete and list sets", func(t *testing.T) {
		v := newVault(t)
		put(t, v, "set1", "a.json", "a")
		put(t, v, "set2", "b.json", "b")

		sets, err := v.ListSets(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(sets, ",") != "set1,set2" {
			t.Errorf("ListSets() = %v", sets)
		}

		if err := v.DeleteRecord(ctx, "set1", "a.json"); err != nil {
			t.Fatalf("DeleteRecord() error = %v", err)
		}
		sets, err = v.ListSets(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(sets, ",") != "set2" {
			t.Errorf("ListSets() after delete = %v, want [set2]", sets)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		v := newVault(t)
		put(t, v, "set1", "r.json", "first")
		put(t, v, "set1", "r.json", "second")

		var buf bytes.Buffer
		if err := v.GetRecord(ctx, "set1", "r.json", &buf); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "second" {
			t.Errorf("GetRecord() = %q, want %q", buf.String(), "second")
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		v := newVault(t)
		if err := v.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
