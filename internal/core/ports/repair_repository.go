package ports

import (
	"context"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// RepairRepository persists repair orders and their history.
type RepairRepository interface {
	// FindByID returns domain.ErrRepairNotFound when no repair has id.
	FindByID(ctx context.Context, id int64) (*domain.Repair, error)
	// DeleteArchived removes the repair and its history entries only if the
	// repair is still archived; otherwise it returns domain.ErrNotArchived.
	DeleteArchived(ctx context.Context, id int64) error
}
