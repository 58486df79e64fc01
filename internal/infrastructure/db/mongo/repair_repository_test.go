package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// These tests need a live MongoDB; set MONGO_URI to run them.
func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	client, db, err := Connect(context.Background(), Config{URI: uri, Database: "fixly_test_" + uuid.NewString()[:8]})
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func seedRepair(t *testing.T, db *mongo.Database, id int64, archived bool, history int) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.Collection(repairCollection).InsertOne(ctx, bson.M{"id": id, "archived": archived}); err != nil {
		t.Fatalf("insert repair: %v", err)
	}
	for i := 0; i < history; i++ {
		if _, err := db.Collection(historyCollection).InsertOne(ctx, bson.M{"orden_id": id, "n": i}); err != nil {
			t.Fatalf("insert history: %v", err)
		}
	}
}

func countHistory(t *testing.T, db *mongo.Database, id int64) int64 {
	t.Helper()
	n, err := db.Collection(historyCollection).CountDocuments(context.Background(), bson.M{"orden_id": id})
	if err != nil {
		t.Fatalf("count history: %v", err)
	}
	return n
}

func TestRepairRepository_NotArchivedKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepairRepository(db)
	seedRepair(t, db, 42, false, 2)

	if err := repo.DeleteArchived(context.Background(), 42); !errors.Is(err, domain.ErrNotArchived) {
		t.Fatalf("expected ErrNotArchived, got %v", err)
	}
	if n := countHistory(t, db, 42); n != 2 {
		t.Fatalf("history touched for a live repair: %d left", n)
	}
}

func TestRepairRepository_DeletesHistoryAndRepair(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepairRepository(db)
	seedRepair(t, db, 43, true, 3)
	ctx := context.Background()

	if err := repo.DeleteArchived(ctx, 43); err != nil {
		t.Fatalf("DeleteArchived: %v", err)
	}
	if n := countHistory(t, db, 43); n != 0 {
		t.Fatalf("expected history removed, %d left", n)
	}
	if _, err := repo.FindByID(ctx, 43); !errors.Is(err, domain.ErrRepairNotFound) {
		t.Fatalf("expected ErrRepairNotFound, got %v", err)
	}
	if err := repo.DeleteArchived(ctx, 44); !errors.Is(err, domain.ErrRepairNotFound) {
		t.Fatalf("expected ErrRepairNotFound for missing repair, got %v", err)
	}
}
