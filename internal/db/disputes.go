package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/empjr/jrpoints/internal/models"
)

const disputeColumns = `id, description, status, requester_id, entry_id, reviewer_id, reviewer_notes, corrected_value, corrected_description, is_for_org, period_id, created_at, reviewed_at`

func scanDispute(row interface{ Scan(...any) error }) (models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(&d.ID, &d.Description, &d.Status, &d.RequesterID, &d.EntryID,
		&d.ReviewerID, &d.ReviewerNotes, &d.CorrectedValue, &d.CorrectedDescription,
		&d.IsForOrg, &d.PeriodID, &d.CreatedAt, &d.ReviewedAt)
	return d, err
}

func CreateDispute(ctx context.Context, database *sql.DB, d models.Dispute) (int64, error) {
	var id int64
	err := InTx(ctx, database, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
INSERT INTO disputes (description, status, requester_id, entry_id, corrected_value, corrected_description, is_for_org, period_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
			d.Description, models.StatusPending, d.RequesterID, d.EntryID,
			d.CorrectedValue, d.CorrectedDescription, d.IsForOrg, d.PeriodID).Scan(&id)
		if err != nil {
			return err
		}
		for _, a := range d.Attachments {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO attachments (key, name, dispute_id) VALUES ($1, $2, $3)`, a.Key, a.Name, id); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

func GetDisputeByID(ctx context.Context, q Querier, id int64) (*models.Dispute, error) {
	d, err := scanDispute(q.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func ListDisputes(ctx context.Context, database *sql.DB, status models.ReviewStatus) ([]models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// entryHasApprovedDisputeTx: были ли баллы записи уже «введены в действие»
// ранее одобренной апелляцией. От этого зависит базовая величина diff-а
// при повторных пересмотрах.
func entryHasApprovedDisputeTx(ctx context.Context, tx *sql.Tx, entryID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM disputes WHERE entry_id = $1 AND status = $2)`,
		entryID, models.StatusApproved).Scan(&exists)
	return exists, err
}

// ReviewDispute — решение ревьюера по апелляции, самый тонкий переход.
//
// initial — сколько баллов записи реально «в действии» до решения: value
// записи, если по ней уже была одобренная апелляция, иначе 0. final —
// corrected_value, если задан, иначе value при одобрении и 0 при отказе.
// Разница прикладывается одним инкрементом к бегущему итогу и счёту
// периода записи. Коррекция value/description применяется независимо от
// вердикта, запись помечается is_from_appeal.
func ReviewDispute(ctx context.Context, database *sql.DB, disputeID, reviewerID int64, decision models.ReviewStatus, notes string, correctedValue *int, correctedDescription *string) (models.Subject, int64, error) {
	var (
		subject models.Subject
		diff    int64
	)
	err := InTx(ctx, database, func(tx *sql.Tx) error {
		d, err := scanDispute(tx.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, disputeID))
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("апелляция не найдена")
		}
		if err != nil {
			return err
		}
		if d.Status.Terminal() {
			return ErrDisputeReviewed
		}

		entry, err := getEntryForUpdateTx(ctx, tx, d.EntryID)
		if err != nil {
			return err
		}
		subject = entry.Subject

		approvedBefore, err := entryHasApprovedDisputeTx(ctx, tx, entry.ID)
		if err != nil {
			return err
		}

		var initial int64
		if approvedBefore {
			initial = int64(entry.Value)
		}
		var final int64
		switch {
		case correctedValue != nil:
			final = int64(*correctedValue)
		case decision == models.StatusApproved:
			final = int64(entry.Value)
		default:
			final = 0
		}
		diff = final - initial

		if diff != 0 {
			if err := bumpAggregatesTx(ctx, tx, entry.Subject, entry.PeriodScoreID, diff); err != nil {
				return err
			}
		}

		if correctedValue != nil || correctedDescription != nil {
			newValue := entry.Value
			if correctedValue != nil {
				newValue = *correctedValue
			}
			newDescription := entry.Description
			if correctedDescription != nil {
				newDescription = *correctedDescription
			}
			_, err := tx.ExecContext(ctx, `
UPDATE entries SET value = $1, description = $2, is_from_appeal = TRUE WHERE id = $3`,
				newValue, newDescription, entry.ID)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
UPDATE disputes SET status = $1, reviewer_id = $2, reviewer_notes = $3,
       corrected_value = $4, corrected_description = $5, reviewed_at = NOW()
WHERE id = $6`,
			decision, reviewerID, notes, correctedValue, correctedDescription, disputeID)
		return err
	})
	return subject, diff, err
}
