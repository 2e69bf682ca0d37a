package invoices

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, rec Record) bson.D {
	t.Helper()
	raw, err := bson.Marshal(rec)
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("bson.Unmarshal: %v", err)
	}
	return doc
}

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mt.Run("get missing", func(mt *mtest.T) {
		repo := &MongoRepo{Coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.invoices", mtest.FirstBatch))

		if _, err := repo.GetByFileID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := &MongoRepo{Coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(ctx, NewPlaceholder("abc", "a.pdf", created))
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	mt.Run("update returns document after", func(mt *mtest.T) {
		repo := &MongoRepo{Coll: mt.Coll}
		updated := created.Add(time.Hour)
		want := NewPlaceholder("abc", "a.pdf", created)
		want.Vendor = Vendor{Name: "ACME"}
		want.UpdatedAt = &updated
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: toDoc(t, want)},
		})

		got, err := repo.Update(ctx, "abc", Patch{Vendor: &Vendor{Name: "ACME"}, UpdatedAt: updated})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Vendor.Name != "ACME" || got.UpdatedAt == nil || !got.UpdatedAt.Equal(updated) {
			t.Fatalf("unexpected record: %+v", got)
		}
	})

	mt.Run("update missing", func(mt *mtest.T) {
		repo := &MongoRepo{Coll: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		if _, err := repo.Update(ctx, "nope", Patch{UpdatedAt: created}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := &MongoRepo{Coll: mt.Coll}
		a := NewPlaceholder("a", "a.pdf", created)
		b := NewPlaceholder("b", "b.pdf", created.Add(time.Minute))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.invoices", mtest.FirstBatch, toDoc(t, b), toDoc(t, a)))

		got, err := repo.List(ctx, Filter{VendorName: "unknown"})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 || got[0].FileID != "b" {
			t.Fatalf("unexpected list: %+v", got)
		}
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := &MongoRepo{Coll: mt.Coll}
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}},
		)

		if err := repo.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := repo.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
