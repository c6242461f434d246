package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpetition/sigverify/internal/database/repository"
)

func testRoll() []repository.VoterRecord {
	return []repository.VoterRecord{
		{ID: 1, FirstName: "Jane", LastName: "Doe", StreetNumber: "12", StreetName: "Main", StreetType: "St"},
		{ID: 2, FirstName: "John", LastName: "Doe", StreetNumber: "14", StreetName: "Main", StreetType: "St"},
		{ID: 3, FirstName: "Alice", LastName: "Nguyen", StreetNumber: "7", StreetName: "Oak", StreetType: "Ave"},
		{ID: 4, FirstName: "Bob", LastName: "Miller", StreetNumber: "220", StreetName: "Elm", StreetType: "St", StreetDirSuffix: "NW"},
	}
}

func TestResolveExactMatchIsTopCandidate(t *testing.T) {
	t.Parallel()

	ix := BuildIndex(testRoll())
	cands := ix.Resolve(Normalize("Jane Doe", "12 Main Street"))
	require.NotEmpty(t, cands)
	require.Equal(t, int64(1), cands[0].VoterID)
	require.GreaterOrEqual(t, cands[0].Score, minCombinedScore)
	require.True(t, cands[0].HouseExact)
	require.InDelta(t, 1.0, cands[0].Score, 1e-9)
}

func TestResolveExactHouseFamilyStreetScoresAboveThreshold(t *testing.T) {
	t.Parallel()

	// Given name illegible; family, house and street carry the score.
	ix := BuildIndex(testRoll())
	cands := ix.Resolve(Normalize("Xq Doe", "12 Main Street"))
	require.NotEmpty(t, cands)
	require.Equal(t, int64(1), cands[0].VoterID)
	require.GreaterOrEqual(t, cands[0].Score, minCombinedScore)
}

func TestResolveDissimilarFamilyNameExcluded(t *testing.T) {
	t.Parallel()

	ix := BuildIndex(testRoll())
	cands := ix.Resolve(Normalize("Xx Yy", "999 Nowhere Ln"))
	require.Empty(t, cands)
}

func TestResolveFamilyBelowThresholdExcludedEvenInSameBucket(t *testing.T) {
	t.Parallel()

	// "Dow" vs "Doe" is 2/3 similar: above nothing, blocked out anyway
	// because blocking is exact on the family token.
	ix := BuildIndex(testRoll())
	cands := ix.Resolve(Normalize("Jane Dow", "12 Main Street"))
	require.Empty(t, cands)
}

func TestResolveWildcardBucketWhenStreetTypeUnresolved(t *testing.T) {
	t.Parallel()

	// No street type resolved: the entry pays a full-roll scan instead of
	// missing the blocked bucket.
	ix := BuildIndex(testRoll())
	cands := ix.Resolve(Normalize("Jane Doe", "12 Main"))
	require.NotEmpty(t, cands)
	require.Equal(t, int64(1), cands[0].VoterID)
}

func TestResolveDirectionPartOfBlockingKey(t *testing.T) {
	t.Parallel()

	ix := BuildIndex(testRoll())
	cands := ix.Resolve(Normalize("Bob Miller", "220 Elm St NW"))
	require.NotEmpty(t, cands)
	require.Equal(t, int64(4), cands[0].VoterID)
}

func TestResolveTieBreakPrefersExactHouseThenLowestID(t *testing.T) {
	t.Parallel()

	roll := []repository.VoterRecord{
		{ID: 5, FirstName: "Jane", LastName: "Doe", StreetNumber: "99", StreetName: "Main", StreetType: "St"},
		{ID: 2, FirstName: "Jane", LastName: "Doe", StreetNumber: "12", StreetName: "Main", StreetType: "St"},
		{ID: 9, FirstName: "Jane", LastName: "Doe", StreetNumber: "12", StreetName: "Main", StreetType: "St"},
	}
	ix := BuildIndex(roll)
	cands := ix.Resolve(Normalize("Jane Doe", "12 Main Street"))
	require.Len(t, cands, 3)
	// Exact house wins; among the two exact twins the lower id comes first.
	require.Equal(t, int64(2), cands[0].VoterID)
	require.Equal(t, int64(9), cands[1].VoterID)
	require.Equal(t, int64(5), cands[2].VoterID)
}

func TestResolveMissingHouseNumberLowersConfidence(t *testing.T) {
	t.Parallel()

	ix := BuildIndex(testRoll())
	with := ix.Resolve(Normalize("Jane Doe", "12 Main Street"))
	without := ix.Resolve(Normalize("Jane Doe", "One Two Main Street"))
	require.NotEmpty(t, with)
	require.NotEmpty(t, without)
	require.Greater(t, with[0].Score, without[0].Score)
	require.False(t, without[0].HouseExact)
}

func TestResolveEmptyFamilyReturnsNothing(t *testing.T) {
	t.Parallel()

	ix := BuildIndex(testRoll())
	require.Empty(t, ix.Resolve(Normalize("", "12 Main Street")))
}

func TestTokenSimilarity(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, tokenSimilarity("doe", "doe"))
	require.Equal(t, 0.0, tokenSimilarity("", "doe"))
	require.InDelta(t, 0.75, tokenSimilarity("dane", "jane"), 1e-9)
	require.Equal(t, 0.0, tokenSimilarity("ab", "xyzzy"))
}
