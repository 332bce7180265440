package export

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
)

// PeriodReport — книга с зафиксированным (или текущим) счётом периода:
// лист участников по убыванию баллов плюс строка организации.
func PeriodReport(ctx context.Context, database *sql.DB, period models.Period) (*Workbook, error) {
	scores, err := db.ListPeriodScores(ctx, database, period.ID)
	if err != nil {
		return nil, err
	}
	members, err := db.ListActiveMembers(ctx, database)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	var memberRows [][]string
	var orgValue int64
	memberScores := scores[:0:0]
	for _, s := range scores {
		if s.Subject.IsOrg() {
			orgValue = s.Value
			continue
		}
		memberScores = append(memberScores, s)
	}
	sort.SliceStable(memberScores, func(i, j int) bool { return memberScores[i].Value > memberScores[j].Value })
	for i, s := range memberScores {
		name := names[s.Subject.MemberID]
		if name == "" {
			name = fmt.Sprintf("участник %d", s.Subject.MemberID)
		}
		memberRows = append(memberRows, []string{
			fmt.Sprintf("%d", i+1), name, fmt.Sprintf("%d", s.Value),
		})
	}

	sheets := []SheetSpec{
		{
			Title:  "Счёт периода",
			Header: []string{"Место", "Участник", "Баллы"},
			Rows:   memberRows,
		},
		{
			Title:  "Организация",
			Header: []string{"Период", "Баллы организации"},
			Rows:   [][]string{{period.Name, fmt.Sprintf("%d", orgValue)}},
		},
	}
	return NewWorkbook(sheets)
}
