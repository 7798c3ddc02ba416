// Package storetest holds the behaviour every identity store backend must show.
package storetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
)

// Run exercises store, which must be empty.
func Run(t *testing.T, store database.IdentityStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		got, err := store.Get(ctx, 12345)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing key, got %+v", got)
		}
		img, err := store.GetImage(ctx, 12345)
		if err != nil {
			t.Fatalf("GetImage: %v", err)
		}
		if img != nil {
			t.Errorf("expected nil image for missing key, got %d bytes", len(img))
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		err := store.Put(ctx, database.StoredIdentity{
			Key:       0,
			Name:      "",
			Image:     []byte("png-0"),
			Embedding: []float32{1, 0, 0},
		})
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := store.Get(ctx, 0)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil || got.Key != 0 || got.IsNamed() {
			t.Fatalf("unexpected record %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
		img, err := store.GetImage(ctx, 0)
		if err != nil {
			t.Fatalf("GetImage: %v", err)
		}
		if !bytes.Equal(img, []byte("png-0")) {
			t.Errorf("image = %q, want png-0", img)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		if err := store.Put(ctx, database.StoredIdentity{Key: 1, Name: "old", Image: []byte("a"), Embedding: []float32{0, 1, 0}}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := store.Put(ctx, database.StoredIdentity{Key: 1, Name: "Alice", Image: []byte("b")}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := store.Get(ctx, 1)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "Alice" {
			t.Errorf("name = %q, want Alice", got.Name)
		}
		img, _ := store.GetImage(ctx, 1)
		if string(img) != "b" {
			t.Errorf("image = %q, want b", img)
		}
	})

	t.Run("UpdateName", func(t *testing.T) {
		ok, err := store.UpdateName(ctx, 0, "Bob")
		if err != nil {
			t.Fatalf("UpdateName: %v", err)
		}
		if !ok {
			t.Fatal("expected existing key to be updated")
		}
		got, _ := store.Get(ctx, 0)
		if got.Name != "Bob" {
			t.Errorf("name = %q, want Bob", got.Name)
		}
		img, _ := store.GetImage(ctx, 0)
		if string(img) != "png-0" {
			t.Errorf("rename must keep the image, got %q", img)
		}

		ok, err = store.UpdateName(ctx, 999, "Nobody")
		if err != nil {
			t.Fatalf("UpdateName: %v", err)
		}
		if ok {
			t.Error("expected false for missing key")
		}
	})

	t.Run("ListUnnamedAndCount", func(t *testing.T) {
		for _, key := range []int{3, 2} {
			if err := store.Put(ctx, database.StoredIdentity{Key: key, Image: []byte("x"), Embedding: []float32{0, 0, 1}}); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}
		unnamed, err := store.ListUnnamed(ctx)
		if err != nil {
			t.Fatalf("ListUnnamed: %v", err)
		}
		if len(unnamed) != 2 || unnamed[0].Key != 2 || unnamed[1].Key != 3 {
			t.Errorf("unnamed = %+v, want keys [2 3]", unnamed)
		}
		count, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if count != 4 {
			t.Errorf("count = %d, want 4", count)
		}
	})

	t.Run("ListEmbeddings", func(t *testing.T) {
		embs, err := store.ListEmbeddings(ctx)
		if err != nil {
			t.Fatalf("ListEmbeddings: %v", err)
		}
		if len(embs) != 4 {
			t.Fatalf("got %d embeddings, want 4", len(embs))
		}
		for i, e := range embs {
			if e.Key != i {
				t.Errorf("embedding %d has key %d", i, e.Key)
			}
			if len(e.Embedding) != 3 {
				t.Errorf("embedding %d has dim %d", i, len(e.Embedding))
			}
		}
		// overwriting without an embedding keeps the stored copy
		if embs[1].Embedding[1] != 1 {
			t.Errorf("key 1 embedding = %v, want [0 1 0]", embs[1].Embedding)
		}
	})
}
