package service

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/openpetition/sigverify/internal/database/repository"
)

// Similarity weights and thresholds. Family name dominates because it is
// both the most legible field on a signature sheet and the blocking key.
const (
	weightFamily = 0.35
	weightGiven  = 0.25
	weightHouse  = 0.25
	weightStreet = 0.15

	minFamilySimilarity = 0.8
	minCombinedScore    = 0.6
)

// FieldScores breaks a candidate's score down per field for the audit trail.
type FieldScores struct {
	Family float64
	Given  float64
	House  float64
	Street float64
}

// Candidate is one qualifying voter record for a signer entry.
type Candidate struct {
	VoterID    int64
	Score      float64
	Fields     FieldScores
	HouseExact bool
}

type blockKey struct {
	family     string
	streetType string
	direction  string
}

// Index is a blocked index over one campaign's roll snapshot. It is built
// per batch run, read-only afterwards, and discarded with the run.
type Index struct {
	records []repository.VoterRecord
	canon   []Canonical
	buckets map[blockKey][]int
}

// BuildIndex canonicalizes every roll row once and groups rows by blocking
// key. O(roll size).
func BuildIndex(records []repository.VoterRecord) *Index {
	ix := &Index{
		records: records,
		canon:   make([]Canonical, len(records)),
		buckets: make(map[blockKey][]int, len(records)),
	}
	for i, rec := range records {
		c := CanonicalFromVoter(rec)
		ix.canon[i] = c
		key := blockKey{family: c.Family, streetType: c.StreetType, direction: c.Direction}
		ix.buckets[key] = append(ix.buckets[key], i)
	}
	return ix
}

// Size reports the number of indexed roll rows.
func (ix *Index) Size() int { return len(ix.records) }

// Resolve returns the qualifying candidates for a canonical signer record,
// best first. Entries whose street type did not resolve fall back to a
// scan of the whole roll; only unresolved entries pay that cost.
func (ix *Index) Resolve(c Canonical) []Candidate {
	if c.Family == "" {
		// Family similarity can never reach threshold without a family name.
		return nil
	}

	var bucket []int
	if c.StreetType != "" {
		bucket = ix.buckets[blockKey{family: c.Family, streetType: c.StreetType, direction: c.Direction}]
	} else {
		bucket = make([]int, len(ix.records))
		for i := range ix.records {
			bucket[i] = i
		}
	}

	var out []Candidate
	for _, i := range bucket {
		cand, ok := score(c, ix.canon[i], ix.records[i].ID)
		if ok {
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		if out[a].HouseExact != out[b].HouseExact {
			return out[a].HouseExact
		}
		return out[a].VoterID < out[b].VoterID
	})
	return out
}

// score computes the weighted similarity of a signer record against one
// roll row, reporting ok=false when the row does not qualify.
func score(q, v Canonical, voterID int64) (Candidate, bool) {
	f := FieldScores{
		Family: tokenSimilarity(q.Family, v.Family),
		Given:  tokenSimilarity(q.Given, v.Given),
		Street: tokenSimilarity(strings.Join(q.StreetTokens, " "), strings.Join(v.StreetTokens, " ")),
	}
	houseExact := q.HouseNumber != nil && v.HouseNumber != nil && *q.HouseNumber == *v.HouseNumber
	if houseExact {
		f.House = 1
	}

	total := weightFamily*f.Family + weightGiven*f.Given + weightHouse*f.House + weightStreet*f.Street
	if f.Family < minFamilySimilarity || total < minCombinedScore {
		return Candidate{}, false
	}
	return Candidate{VoterID: voterID, Score: total, Fields: f, HouseExact: houseExact}, true
}

// tokenSimilarity is an edit-distance similarity normalized to [0,1].
func tokenSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	d := levenshtein.ComputeDistance(a, b)
	if d >= maxLen {
		return 0
	}
	return 1 - float64(d)/float64(maxLen)
}
