package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newTestMongoStore(mt *mtest.T) *MongoStore {
	return NewMongoStore(mt.DB)
}

func testBinding() Binding {
	return Binding{
		Token:                     "LONG-LIVED",
		PhoneNumberID:             "P1",
		WhatsappBusinessAccountID: "W1",
		WhatsappDisplayName:       "Acme",
		WhatsappBusiness:          "+1 555 0100",
		WhatsappQualityRating:     "GREEN",
		ConnectedAt:               time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("success", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		if store.assistants == nil {
			mt.Error("store.assistants is nil")
		}
	})
}

func TestMongoStore_Get(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		doc := bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "businessId", Value: "b1"},
			{Key: "token", Value: "LONG-LIVED"},
			{Key: "phoneNumberId", Value: "P1"},
			{Key: "whatsappBusinessAccountId", Value: "W1"},
			{Key: "whatsappDisplayName", Value: "Acme"},
			{Key: "whatsappBusiness", Value: "+1 555 0100"},
			{Key: "whatsappQualityRating", Value: "GREEN"},
			{Key: "whatsappConnectionStatus", Value: "CONECTADO"},
			{Key: "whatsappTokenLastSet", Value: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, doc))

		a, err := store.Get(context.Background(), "a1")
		if err != nil {
			mt.Fatalf("Get failed: %v", err)
		}
		if a.ID != "a1" || a.BusinessID != "b1" {
			mt.Errorf("unexpected ids %q/%q", a.ID, a.BusinessID)
		}
		if !a.Connected() {
			mt.Errorf("expected a connected record, got %+v", a)
		}
	})

	mt.Run("cleared record", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		doc := bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "businessId", Value: "b1"},
			{Key: "token", Value: nil},
			{Key: "phoneNumberId", Value: nil},
			{Key: "whatsappConnectionStatus", Value: "NO_CONECTADO"},
			{Key: "whatsappTokenLastSet", Value: nil},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, doc))

		a, err := store.Get(context.Background(), "a1")
		if err != nil {
			mt.Fatalf("Get failed: %v", err)
		}
		if !a.Cleared() {
			mt.Errorf("expected a cleared record, got %+v", a)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch))

		_, err := store.Get(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("find error", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "find error"}))

		_, err := store.Get(context.Background(), "a1")
		if err == nil || errors.Is(err, ErrNotFound) {
			mt.Errorf("expected a driver error, got %v", err)
		}
	})
}

func TestMongoStore_GetByBusiness(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		doc := bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "businessId", Value: "b1"},
			{Key: "whatsappConnectionStatus", Value: "NO_CONECTADO"},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, doc))

		a, err := store.GetByBusiness(context.Background(), "b1")
		if err != nil {
			mt.Fatalf("GetByBusiness failed: %v", err)
		}
		if a.ID != "a1" {
			mt.Errorf("expected a1, got %q", a.ID)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch))

		if _, err := store.GetByBusiness(context.Background(), "b9"); !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMongoStore_Connect(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, bson.D{{Key: "_id", Value: "a1"}}))
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}}) // release
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}}) // binding

		if err := store.Connect(context.Background(), "a1", "b1", testBinding()); err != nil {
			mt.Fatalf("Connect failed: %v", err)
		}
	})

	mt.Run("assistant not in business", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch))

		err := store.Connect(context.Background(), "a1", "other-business", testBinding())
		if !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("assistant moved before the write", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, bson.D{{Key: "_id", Value: "a1"}}))
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		if err := store.Connect(context.Background(), "a1", "b1", testBinding()); !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("release error", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, bson.D{{Key: "_id", Value: "a1"}}))
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "update error"}))

		if err := store.Connect(context.Background(), "a1", "b1", testBinding()); err == nil {
			mt.Error("expected an error")
		}
	})

	mt.Run("update error", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "foo.bar", mtest.FirstBatch, bson.D{{Key: "_id", Value: "a1"}}))
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "update error"}))

		err := store.Connect(context.Background(), "a1", "b1", testBinding())
		if err == nil || errors.Is(err, ErrNotFound) {
			mt.Errorf("expected a driver error, got %v", err)
		}
	})
}

func TestMongoStore_Disconnect(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		if err := store.Disconnect(context.Background(), "a1"); err != nil {
			mt.Fatalf("Disconnect failed: %v", err)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		store := newTestMongoStore(mt)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		if err := store.Disconnect(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestClearedFields(t *testing.T) {
	fields := clearedFields()
	if len(fields) != 8 {
		t.Fatalf("expected 8 connection fields, got %d", len(fields))
	}
	for k, v := range fields {
		if k == "whatsappConnectionStatus" {
			if v != StatusNotConnected {
				t.Errorf("status = %v, want %v", v, StatusNotConnected)
			}
			continue
		}
		if v != nil {
			t.Errorf("%s = %v, want nil", k, v)
		}
	}
}
