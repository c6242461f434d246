package repository

import (
	"context"
	"database/sql"
)

// VoterRepo handles voter roll rows.
type VoterRepo struct {
	db *sql.DB
}

func NewVoterRepo(db *sql.DB) *VoterRepo { return &VoterRepo{db: db} }

func (r *VoterRepo) Insert(ctx context.Context, v VoterRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO voter_records(
	 campaign_id, first_name, last_name, street_number, street_name, street_type, street_dir_suffix)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`,
		v.CampaignID, v.FirstName, v.LastName, v.StreetNumber, v.StreetName, v.StreetType, v.StreetDirSuffix)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertMany imports a roll inside one transaction.
func (r *VoterRepo) InsertMany(ctx context.Context, records []VoterRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO voter_records(
	 campaign_id, first_name, last_name, street_number, street_name, street_type, street_dir_suffix)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, v := range records {
		if _, err := stmt.ExecContext(ctx, v.CampaignID, v.FirstName, v.LastName,
			v.StreetNumber, v.StreetName, v.StreetType, v.StreetDirSuffix); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListByCampaign returns the campaign's roll snapshot ordered by id.
func (r *VoterRepo) ListByCampaign(ctx context.Context, campaignID string) ([]VoterRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, campaign_id, first_name, last_name, street_number, street_name, street_type, street_dir_suffix, created_at
	FROM voter_records WHERE campaign_id = ? ORDER BY id`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VoterRecord
	for rows.Next() {
		var v VoterRecord
		if err := rows.Scan(&v.ID, &v.CampaignID, &v.FirstName, &v.LastName,
			&v.StreetNumber, &v.StreetName, &v.StreetType, &v.StreetDirSuffix, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteCampaign removes a campaign's roll (used when the campaign goes away).
func (r *VoterRepo) DeleteCampaign(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM voter_records WHERE campaign_id = ?`, campaignID)
	return err
}
