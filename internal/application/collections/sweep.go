package collections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/collections/backend/internal/infrastructure/scheduler"
	"github.com/collections/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const sweepPageSize = 100

// SweepRisk reclassifies every open overdue task whose stored risk level no
// longer matches the classifier. Changes are recorded as the system actor.
// A task that changed underneath the sweep is counted and skipped; the next
// sweep picks it up again.
func (s *CollectionsService) SweepRisk(ctx context.Context) (scheduler.SweepResult, error) {
	started := time.Now()
	ctx, span := s.startSpan(ctx, "sweep_risk", uuid.Nil)
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "sweep_risk", started)

	var result scheduler.SweepResult
	if s.systemActor == uuid.Nil {
		err := fmt.Errorf("risk sweep: %w", shared.NewValidationError("ACTOR_REQUIRED", "system actor is not configured"))
		telemetry.RecordError(span, err)
		return result, err
	}

	today := collections.StartOfDay(s.clock.Now())
	q := collections.DefaultTaskQuery()
	q.Statuses = []collections.TaskStatus{collections.TaskStatusPending, collections.TaskStatusInProgress}
	q.OverdueAsOf = &today
	q.OrderBy = "due_date"
	q.OrderDir = "asc"
	q.PageSize = sweepPageSize

	for page := 1; ; page++ {
		q.Page = page
		tasks, total, err := s.repo.FindAll(ctx, q)
		if err != nil {
			err = fmt.Errorf("risk sweep: list page %d: %w", page, err)
			telemetry.RecordError(span, err)
			return result, err
		}

		for i := range tasks {
			result.Examined++
			applied, err := s.sweepTask(ctx, tasks[i].ID)
			switch {
			case errors.Is(err, shared.ErrConcurrentModification):
				result.Conflicts++
			case errors.Is(err, shared.ErrNotFound):
				// deleted after listing
			case err != nil:
				err = fmt.Errorf("risk sweep: task %s: %w", tasks[i].ID, err)
				telemetry.RecordError(span, err)
				return result, err
			case applied:
				result.Reclassified++
			}
		}

		if len(tasks) < q.PageSize || int64(page*q.PageSize) >= total {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("collections.sweep.examined", result.Examined),
		attribute.Int("collections.sweep.reclassified", result.Reclassified),
		attribute.Int("collections.sweep.conflicts", result.Conflicts),
	)
	return result, nil
}

// sweepTask reloads one task with its communication log and applies the
// current recommendation
func (s *CollectionsService) sweepTask(ctx context.Context, taskID uuid.UUID) (bool, error) {
	var (
		rec     collections.RiskRecommendation
		applied bool
	)
	_, err := s.mutate(ctx, "sweep_risk_task", s.systemActor, taskID, func(ctx context.Context, task *collections.Task, actor collections.Actor) error {
		if task.Status.IsTerminal() {
			return nil
		}
		rec = s.classifier.RecommendFor(task, actor.At)
		var err error
		applied, err = task.ApplyRiskRecommendation(rec, actor)
		if applied {
			logger.With(ctx, s.logger).Info("Risk level reclassified",
				zap.String("risk_level", string(rec.Level)),
				zap.Int("days_overdue", rec.DaysOverdue),
				zap.Bool("unresponsive", rec.Upgraded),
			)
		}
		return err
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.metrics.RiskReclassified(ctx, string(rec.Level))
	}
	return applied, nil
}

// Ensure CollectionsService implements RiskSweeper
var _ scheduler.RiskSweeper = (*CollectionsService)(nil)
