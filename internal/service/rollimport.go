package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openpetition/sigverify/internal/database/repository"
)

// rollHeader is the exact header row a voter roll export must carry.
// Additional columns after the sixth are ignored.
var rollHeader = []string{"First_Name", "Last_Name", "Street_Number", "Street_Name", "Street_Type", "Street_Dir_Suffix"}

// ErrRollHeader reports a CSV whose header row does not match the expected
// roll export format.
var ErrRollHeader = errors.New("csv headers do not match expected voter roll format")

// RollImporter imports a campaign's voter roll from CSV.
type RollImporter struct {
	Voters *repository.VoterRepo
}

type ImportResult struct {
	Imported int
	Errors   []error
}

// ImportCSV reads a roll export and stores its rows for the campaign. Rows
// are immutable once written; a bad line is reported and skipped, it never
// aborts the import.
func (s *RollImporter) ImportCSV(ctx context.Context, campaignID string, r io.Reader) (ImportResult, error) {
	res := ImportResult{}
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	if !headerMatches(header) {
		return res, fmt.Errorf("%w: got %q", ErrRollHeader, strings.Join(header, ","))
	}

	var records []repository.VoterRecord
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if len(rec) < len(rollHeader) {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: expected %d columns, got %d", line, len(rollHeader), len(rec)))
			continue
		}
		records = append(records, repository.VoterRecord{
			CampaignID:      campaignID,
			FirstName:       strings.TrimSpace(rec[0]),
			LastName:        strings.TrimSpace(rec[1]),
			StreetNumber:    strings.TrimSpace(rec[2]),
			StreetName:      strings.TrimSpace(rec[3]),
			StreetType:      strings.TrimSpace(rec[4]),
			StreetDirSuffix: strings.TrimSpace(rec[5]),
		})
	}

	if len(records) > 0 {
		if err := s.Voters.InsertMany(ctx, records); err != nil {
			return res, fmt.Errorf("insert voter records: %w", err)
		}
	}
	res.Imported = len(records)
	return res, nil
}

func headerMatches(header []string) bool {
	if len(header) < len(rollHeader) {
		return false
	}
	for i, want := range rollHeader {
		if strings.TrimSpace(header[i]) != want {
			return false
		}
	}
	return true
}
