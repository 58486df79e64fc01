package ports

import "context"

// RepairService exposes the guarded repair deletion use case.
type RepairService interface {
	DeleteArchived(ctx context.Context, id int64) error
}
