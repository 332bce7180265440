package jobs

import (
	"context"
	"database/sql"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"go.uber.org/zap"
)

// ConsistencyCheck сверяет кэшированные бегущие итоги с пересчётом по
// записям активного периода. Расхождение — сигнал о баге в транзакциях,
// наружу уходит только метрика и лог.
func ConsistencyCheck(database *sql.DB, log *zap.SugaredLogger) Job {
	return func(ctx context.Context) error {
		period, err := db.GetActivePeriod(ctx, database)
		if err != nil {
			return err
		}
		if period == nil {
			metrics.AggregateDrift.Set(0)
			return nil
		}
		drift, err := db.FindAggregateDrift(ctx, database, period.ID)
		if err != nil {
			return err
		}
		metrics.AggregateDrift.Set(float64(len(drift)))
		for _, d := range drift {
			log.Errorw("расхождение агрегата с леджером",
				"subject_kind", d.Subject.Kind, "member_id", d.Subject.MemberID,
				"cached", d.Cached, "computed", d.Computed)
		}
		return nil
	}
}
