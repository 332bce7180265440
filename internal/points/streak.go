package points

import (
	"context"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
)

// NextValue — чистая арифметика серии: сколько стоит новое начисление по
// правилу, если последняя запись пары (субъект, правило) — last (nil, если
// её нет).
//
// Серия жива, пока календарных дней с прошлого раза не больше окна (граница
// включительно); тогда к значению прошлой записи прибавляется шаг эскалации,
// всегда в сторону знака базовой величины правила. Разорванная серия
// сбрасывается сразу на базу, без постепенного спада. Начисление задним
// числом, раньше последней записи, серию не продолжает: эскалироваться от
// более поздней записи назад во времени нельзя.
func NextValue(rule models.Rule, last *models.Entry, performedOn time.Time) int {
	step, windowDays, ok := rule.Escalation()
	if !ok || last == nil {
		return rule.BaseValue
	}
	if d := daysBetween(last.PerformedOn, performedOn); d < 0 || d > windowDays {
		return rule.BaseValue
	}
	if step < 0 {
		step = -step
	}
	if rule.BaseValue < 0 {
		step = -step
	}
	return last.Value + step
}

// FinalValue — единственная точка вычисления стоимости начисления; её зовут
// и прямое начисление, и одобрение заявки, и предпросмотр. Дублей логики
// быть не должно.
func FinalValue(ctx context.Context, q db.Querier, subject models.Subject, rule models.Rule, performedOn time.Time) (int, error) {
	if _, _, ok := rule.Escalation(); !ok {
		return rule.BaseValue, nil
	}
	last, err := db.GetLastEntryForSubjectRule(ctx, q, subject, rule.ID)
	if err != nil {
		return 0, err
	}
	return NextValue(rule, last, performedOn), nil
}

// daysBetween — разница в календарных днях, не в прошедших часах.
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
