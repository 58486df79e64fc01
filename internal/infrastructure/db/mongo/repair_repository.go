package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

const (
	repairCollection  = "reparaciones"
	historyCollection = "historial"
)

// RepairRepository implements ports.RepairRepository using MongoDB.
type RepairRepository struct {
	repairs *mongo.Collection
	history *mongo.Collection
}

func NewRepairRepository(db *mongo.Database) *RepairRepository {
	return &RepairRepository{
		repairs: db.Collection(repairCollection),
		history: db.Collection(historyCollection),
	}
}

type mongoRepair struct {
	ID       int64 `bson:"id"`
	Archived bool  `bson:"archived"`
}

func (r *RepairRepository) FindByID(ctx context.Context, id int64) (*domain.Repair, error) {
	var mr mongoRepair
	if err := r.repairs.FindOne(ctx, bson.M{"id": id}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRepairNotFound
		}
		return nil, fmt.Errorf("find repair: %w", err)
	}
	return &domain.Repair{ID: mr.ID, Archived: mr.Archived}, nil
}

// DeleteArchived removes the history entries of an archived repair, then
// the repair itself. The repair delete filters on archived=true, so a repair
// un-archived in between is kept.
func (r *RepairRepository) DeleteArchived(ctx context.Context, id int64) error {
	repair, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !repair.Archived {
		return domain.ErrNotArchived
	}

	if _, err := r.history.DeleteMany(ctx, bson.M{"orden_id": id}); err != nil {
		return fmt.Errorf("delete repair history: %w", err)
	}

	res, err := r.repairs.DeleteOne(ctx, bson.M{"id": id, "archived": true})
	if err != nil {
		return fmt.Errorf("delete repair: %w", err)
	}
	if res.DeletedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrNotArchived
	}
	return nil
}
