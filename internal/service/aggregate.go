package service

import (
	"fmt"

	"github.com/openpetition/sigverify/internal/ocr"
)

// Status is the final per-signature decision.
type Status string

const (
	StatusValid      Status = "valid"
	StatusDuplicate  Status = "duplicate"
	StatusUnresolved Status = "unresolved"

	// StatusInvalid is reserved for the reviewing application: the
	// pipeline never rejects a signature outright, it only fails to
	// resolve one.
	StatusInvalid Status = "invalid"
)

// Entry is one extracted signature in submission order, carrying the raw
// text for the audit trail.
type Entry struct {
	ID         string
	PageIndex  int
	EntryIndex int
	Raw        ocr.SignerEntry
}

// Verdict is the immutable per-signature decision returned to the caller.
type Verdict struct {
	EntryID    string
	PageIndex  int
	EntryIndex int
	Name       string
	Address    string
	Date       string
	Ward       string
	Status     Status
	VoterID    *int64
	Confidence float64
	Reason     string
}

// Aggregate turns per-entry candidate lists into verdicts. Entries are
// processed in slice order (submission order): the first entry to claim a
// voter keeps it, every later entry resolving to the same voter is marked
// Duplicate. Among equally scored candidates an entry prefers an exact
// house-number match, then a voter nobody has claimed yet, then the lowest
// voter id. Deterministic: same entries and candidate lists, same verdicts.
func Aggregate(entries []Entry, candidates [][]Candidate) []Verdict {
	claimed := make(map[int64]Entry, len(entries))
	verdicts := make([]Verdict, 0, len(entries))

	for i, e := range entries {
		v := Verdict{
			EntryID:    e.ID,
			PageIndex:  e.PageIndex,
			EntryIndex: e.EntryIndex,
			Name:       e.Raw.Name,
			Address:    e.Raw.Address,
			Date:       e.Raw.Date,
			Ward:       e.Raw.Ward,
		}

		cands := candidates[i]
		if len(cands) == 0 {
			v.Status = StatusUnresolved
			v.Reason = "no match above threshold"
			verdicts = append(verdicts, v)
			continue
		}

		best := pickCandidate(cands, claimed)
		voterID := best.VoterID
		v.VoterID = &voterID
		v.Confidence = best.Score

		if earlier, taken := claimed[voterID]; taken {
			v.Status = StatusDuplicate
			v.Reason = fmt.Sprintf("voter %d already claimed by entry on page %d row %d",
				voterID, earlier.PageIndex+1, earlier.EntryIndex+1)
		} else {
			claimed[voterID] = e
			v.Status = StatusValid
			v.Reason = fmt.Sprintf("matched voter %d (family %.2f, given %.2f, street %.2f)",
				voterID, best.Fields.Family, best.Fields.Given, best.Fields.Street)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// pickCandidate selects the provisional match. Candidates arrive sorted by
// score, house exactness and id; the unclaimed preference only breaks ties
// within an equal (score, house) group, it never outranks a better score.
func pickCandidate(cands []Candidate, claimed map[int64]Entry) Candidate {
	best := cands[0]
	if _, taken := claimed[best.VoterID]; !taken {
		return best
	}
	for _, c := range cands[1:] {
		if c.Score != best.Score || c.HouseExact != best.HouseExact {
			break
		}
		if _, taken := claimed[c.VoterID]; !taken {
			return c
		}
	}
	return best
}
