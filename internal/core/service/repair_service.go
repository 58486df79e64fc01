package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fixlytaller/fixly-session/internal/api/metrics"
	"github.com/fixlytaller/fixly-session/internal/core/domain"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
)

type repairService struct {
	repo ports.RepairRepository
	log  zerolog.Logger
}

// NewRepairService returns a RepairService that only deletes archived repairs.
func NewRepairService(repo ports.RepairRepository, log zerolog.Logger) ports.RepairService {
	return &repairService{repo: repo, log: log}
}

// DeleteArchived removes repair id and its history entries.
func (s *repairService) DeleteArchived(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("delete repair: %w: id must be positive", domain.ErrInvalidInput)
	}

	repair, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRepairNotFound) {
			metrics.RepairDeletionsTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.RepairDeletionsTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("delete repair: %w", err)
	}
	if !repair.Archived {
		metrics.RepairDeletionsTotal.WithLabelValues("not_archived").Inc()
		return fmt.Errorf("delete repair %d: %w", id, domain.ErrNotArchived)
	}

	// The repository re-checks the archived flag in the delete itself.
	if err := s.repo.DeleteArchived(ctx, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotArchived):
			metrics.RepairDeletionsTotal.WithLabelValues("not_archived").Inc()
		case errors.Is(err, domain.ErrRepairNotFound):
			metrics.RepairDeletionsTotal.WithLabelValues("not_found").Inc()
		default:
			metrics.RepairDeletionsTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("delete repair %d: %w", id, err)
	}

	metrics.RepairDeletionsTotal.WithLabelValues("deleted").Inc()
	s.log.Info().Int64("repair_id", id).Msg("archived repair deleted")
	return nil
}
