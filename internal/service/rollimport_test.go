package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpetition/sigverify/internal/database"
	"github.com/openpetition/sigverify/internal/database/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestImportRollCSV(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db := openTestDB(t)

	voters := repository.NewVoterRepo(db)
	svc := &RollImporter{Voters: voters}

	data := strings.Join([]string{
		"First_Name,Last_Name,Street_Number,Street_Name,Street_Type,Street_Dir_Suffix",
		"Jane,Doe,12,Main,St,",
		"John,Doe,14,Main,St,",
		"Bob,Miller,220,Elm,St,NW",
	}, "\n")

	res, err := svc.ImportCSV(ctx, "camp-1", strings.NewReader(data))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, 3, res.Imported)

	roll, err := voters.ListByCampaign(ctx, "camp-1")
	require.NoError(t, err)
	require.Len(t, roll, 3)
	require.Equal(t, "Jane", roll[0].FirstName)
	require.Equal(t, "NW", roll[2].StreetDirSuffix)

	// Rows belong to their campaign only.
	other, err := voters.ListByCampaign(ctx, "camp-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestImportRollCSVRejectsWrongHeader(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	svc := &RollImporter{Voters: repository.NewVoterRepo(db)}

	data := "first,last,number\nJane,Doe,12\n"
	_, err := svc.ImportCSV(context.Background(), "camp-1", strings.NewReader(data))
	require.ErrorIs(t, err, ErrRollHeader)
}

func TestImportRollCSVSkipsShortLines(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	voters := repository.NewVoterRepo(db)
	svc := &RollImporter{Voters: voters}

	data := strings.Join([]string{
		"First_Name,Last_Name,Street_Number,Street_Name,Street_Type,Street_Dir_Suffix",
		"Jane,Doe,12,Main,St,",
		"broken line",
	}, "\n")

	res, err := svc.ImportCSV(context.Background(), "camp-1", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Error(), "line 3")
}

func TestImportRollCSVIgnoresExtraColumns(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	voters := repository.NewVoterRepo(db)
	svc := &RollImporter{Voters: voters}

	data := strings.Join([]string{
		"First_Name,Last_Name,Street_Number,Street_Name,Street_Type,Street_Dir_Suffix,Precinct",
		"Jane,Doe,12,Main,St,,P-7",
	}, "\n")

	res, err := svc.ImportCSV(context.Background(), "camp-1", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)
}

func TestVerdictClaimInvariantEnforcedBySchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	voters := repository.NewVoterRepo(db)
	voterID, err := voters.Insert(ctx, repository.VoterRecord{CampaignID: "camp-1", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	batches := repository.NewBatchRepo(db)
	require.NoError(t, batches.Create(ctx, repository.Batch{ID: "batch-1", CampaignID: "camp-1", Status: repository.BatchStatusCreated, PageCount: 1}))

	rows := []repository.VerdictRow{
		{ID: "v-1", PageIndex: 0, EntryIndex: 0, Status: string(StatusValid), VoterRecordID: &voterID},
		{ID: "v-2", PageIndex: 0, EntryIndex: 1, Status: string(StatusValid), VoterRecordID: &voterID},
	}
	err = batches.SaveVerdicts(ctx, "batch-1", rows)
	require.Error(t, err, "two valid verdicts for one voter must be rejected")

	// Duplicate status for the second claim is fine.
	rows[1].Status = string(StatusDuplicate)
	require.NoError(t, batches.SaveVerdicts(ctx, "batch-1", rows))

	got, err := batches.ListVerdicts(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, string(StatusValid), got[0].Status)
	require.Equal(t, string(StatusDuplicate), got[1].Status)

	b, err := batches.Get(ctx, "batch-1")
	require.NoError(t, err)
	require.Equal(t, repository.BatchStatusFinalized, b.Status)
	require.NotNil(t, b.FinalizedAt)
}
