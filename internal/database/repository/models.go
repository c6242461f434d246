package repository

import "time"

// VoterRecord is one immutable row of a campaign's registered-voter roll.
// Rows are created at import time and only ever deleted with the campaign.
type VoterRecord struct {
	ID              int64
	CampaignID      string
	FirstName       string
	LastName        string
	StreetNumber    string
	StreetName      string
	StreetType      string
	StreetDirSuffix string
	CreatedAt       time.Time
}

// Batch is one submitted group of signature pages.
type Batch struct {
	ID          string
	CampaignID  string
	Status      string
	PageCount   int
	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// Batch lifecycle statuses.
const (
	BatchStatusCreated   = "created"
	BatchStatusResolved  = "resolved"
	BatchStatusFinalized = "finalized"
)

// VerdictRow is the persisted form of a per-signature decision.
type VerdictRow struct {
	ID            string
	BatchID       string
	PageIndex     int
	EntryIndex    int
	Name          string
	Address       string
	SignedDate    string
	Ward          string
	Status        string
	VoterRecordID *int64
	Confidence    float64
	Reason        string
	CreatedAt     time.Time
}
