package testdata

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/openpetition/sigverify/internal/database/repository"
)

var (
	firstNames  = []string{"Jane", "John", "Alice", "Bob", "Maria", "Wei", "Fatima", "Carlos", "Priya", "Sam"}
	lastNames   = []string{"Doe", "Miller", "Nguyen", "Garcia", "Smith", "Johnson", "Lee", "Brown", "Patel", "Kowalski"}
	streetNames = []string{"Main", "Oak", "Elm", "Maple", "Washington", "Lake", "Hill", "Park", "Cedar", "Franklin"}
	streetTypes = []string{"St", "Ave", "Blvd", "Rd", "Dr", "Ln"}
	dirSuffixes = []string{"", "", "", "N", "S", "E", "W", "NE", "NW", "SE", "SW"}
)

// SeedRoll fills a campaign with n plausible voter roll rows. Intended for
// demos and local testing; a fixed seed makes the roll reproducible.
func SeedRoll(ctx context.Context, voters *repository.VoterRepo, campaignID string, n int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	records := make([]repository.VoterRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, repository.VoterRecord{
			CampaignID:      campaignID,
			FirstName:       firstNames[rng.Intn(len(firstNames))],
			LastName:        lastNames[rng.Intn(len(lastNames))],
			StreetNumber:    fmt.Sprintf("%d", rng.Intn(9900)+100),
			StreetName:      streetNames[rng.Intn(len(streetNames))],
			StreetType:      streetTypes[rng.Intn(len(streetTypes))],
			StreetDirSuffix: dirSuffixes[rng.Intn(len(dirSuffixes))],
		})
	}
	return voters.InsertMany(ctx, records)
}
