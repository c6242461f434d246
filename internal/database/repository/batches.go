package repository

import (
	"context"
	"database/sql"
)

// BatchRepo persists batches and their verdicts.
type BatchRepo struct {
	db *sql.DB
}

func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

func (r *BatchRepo) Create(ctx context.Context, b Batch) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO batches(id, campaign_id, status, page_count)
	VALUES(?, ?, ?, ?);
	`, b.ID, b.CampaignID, b.Status, b.PageCount)
	return err
}

func (r *BatchRepo) Get(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	err := r.db.QueryRowContext(ctx, `
	SELECT id, campaign_id, status, page_count, created_at, finalized_at
	FROM batches WHERE id = ?`, id).
		Scan(&b.ID, &b.CampaignID, &b.Status, &b.PageCount, &b.CreatedAt, &b.FinalizedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveVerdicts writes every verdict of a batch and marks it finalized, in
// one transaction. The partial unique index on verdicts rejects a second
// valid claim of the same voter, so a bug upstream cannot persist an
// invalid assignment.
func (r *BatchRepo) SaveVerdicts(ctx context.Context, batchID string, verdicts []VerdictRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO verdicts(
	 id, batch_id, page_index, entry_index, name, address, signed_date, ward,
	 status, voter_record_id, confidence, reason)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, v := range verdicts {
		if _, err := stmt.ExecContext(ctx, v.ID, batchID, v.PageIndex, v.EntryIndex,
			v.Name, v.Address, v.SignedDate, v.Ward, v.Status, v.VoterRecordID, v.Confidence, v.Reason); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
	UPDATE batches SET status = ?, finalized_at = CURRENT_TIMESTAMP WHERE id = ?`,
		BatchStatusFinalized, batchID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListVerdicts returns a batch's verdicts in submission order.
func (r *BatchRepo) ListVerdicts(ctx context.Context, batchID string) ([]VerdictRow, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, batch_id, page_index, entry_index, name, address, signed_date, ward,
	       status, voter_record_id, confidence, reason, created_at
	FROM verdicts WHERE batch_id = ? ORDER BY page_index, entry_index`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VerdictRow
	for rows.Next() {
		var v VerdictRow
		if err := rows.Scan(&v.ID, &v.BatchID, &v.PageIndex, &v.EntryIndex, &v.Name, &v.Address,
			&v.SignedDate, &v.Ward, &v.Status, &v.VoterRecordID, &v.Confidence, &v.Reason, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
