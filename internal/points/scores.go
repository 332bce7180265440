package points

import (
	"context"
	"sort"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
)

// SubjectScores — накопительная сумма и счёт в активном периоде для одного
// субъекта.
type SubjectScores struct {
	Subject      models.Subject
	RunningTotal int64
	PeriodScore  int64
}

func (s *Service) Scores(ctx context.Context, subject models.Subject) (SubjectScores, error) {
	out := SubjectScores{Subject: subject}
	total, err := db.GetRunningTotal(ctx, s.DB, subject)
	if err != nil {
		return out, err
	}
	out.RunningTotal = total

	period, err := db.GetActivePeriod(ctx, s.DB)
	if err != nil {
		return out, err
	}
	if period == nil {
		return out, nil
	}
	out.PeriodScore, err = db.GetPeriodScore(ctx, s.DB, subject, period.ID)
	return out, err
}

func (s *Service) History(ctx context.Context, subject models.Subject) ([]models.Entry, error) {
	return db.ListEntriesBySubject(ctx, s.DB, subject)
}

// Leaderboard — участники по убыванию накопительной суммы; счёт организации
// в рейтинг не входит.
func (s *Service) Leaderboard(ctx context.Context) ([]models.RunningTotal, error) {
	totals, err := db.ListRunningTotals(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := totals[:0:0]
	for _, t := range totals {
		if !t.Subject.IsOrg() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}

func (s *Service) PeriodScores(ctx context.Context, periodID int64) ([]models.PeriodScore, error) {
	return db.ListPeriodScores(ctx, s.DB, periodID)
}
