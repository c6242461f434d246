package service

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/openpetition/sigverify/internal/database/repository"
)

// Canonical is the normalized form of a signer entry or a voter roll row.
// All similarity comparisons are defined on this shape and nothing else.
type Canonical struct {
	Given        string
	Family       string
	Middles      []string // kept for audit display, ignored by matching
	HouseNumber  *int     // nil when absent or textual ("One Hundred")
	StreetTokens []string
	StreetType   string // normalized abbreviation, "" when unresolved
	Direction    string // normalized N/S/E/W/NE/NW/SE/SW, "" when absent
}

// Closed lookup tables for address suffixes. Keys and values are the
// lowercased canonical abbreviations all comparisons run on.
var streetTypes = map[string]string{
	"street": "st", "st": "st", "str": "st",
	"avenue": "ave", "ave": "ave", "av": "ave",
	"boulevard": "blvd", "blvd": "blvd",
	"road": "rd", "rd": "rd",
	"drive": "dr", "dr": "dr",
	"lane": "ln", "ln": "ln",
	"court": "ct", "ct": "ct",
	"place": "pl", "pl": "pl",
	"terrace": "ter", "ter": "ter", "terr": "ter",
	"circle": "cir", "cir": "cir",
	"way": "way",
	"parkway": "pkwy", "pkwy": "pkwy",
	"square": "sq", "sq": "sq",
	"trail": "trl", "trl": "trl",
	"highway": "hwy", "hwy": "hwy",
}

var directions = map[string]string{
	"n": "n", "north": "n",
	"s": "s", "south": "s",
	"e": "e", "east": "e",
	"w": "w", "west": "w",
	"ne": "ne", "northeast": "ne",
	"nw": "nw", "northwest": "nw",
	"se": "se", "southeast": "se",
	"sw": "sw", "southwest": "sw",
}

// Normalize canonicalizes a free-text name and address as extracted from a
// signature sheet. Pure and deterministic: same input, same output.
func Normalize(name, address string) Canonical {
	c := Canonical{}

	nameTokens := tokenize(name)
	switch {
	case len(nameTokens) == 1:
		// OCR often merges or truncates; a lone token counts as both.
		c.Given, c.Family = nameTokens[0], nameTokens[0]
	case len(nameTokens) > 1:
		c.Given = nameTokens[0]
		c.Family = nameTokens[len(nameTokens)-1]
		c.Middles = nameTokens[1 : len(nameTokens)-1]
	}

	addrTokens := tokenize(address)
	if len(addrTokens) > 0 && isDigits(addrTokens[0]) {
		if n, err := strconv.Atoi(addrTokens[0]); err == nil {
			c.HouseNumber = &n
		}
		addrTokens = addrTokens[1:]
	}
	// Directional suffix sits after the street type when both are present.
	if len(addrTokens) > 0 {
		if d, ok := directions[addrTokens[len(addrTokens)-1]]; ok && len(addrTokens) > 1 {
			c.Direction = d
			addrTokens = addrTokens[:len(addrTokens)-1]
		}
	}
	if len(addrTokens) > 0 {
		if t, ok := streetTypes[addrTokens[len(addrTokens)-1]]; ok && len(addrTokens) > 1 {
			c.StreetType = t
			addrTokens = addrTokens[:len(addrTokens)-1]
		}
	}
	c.StreetTokens = addrTokens
	return c
}

// CanonicalFromVoter canonicalizes a roll row field by field. Roll rows are
// already structured, so no suffix guessing is needed.
func CanonicalFromVoter(v repository.VoterRecord) Canonical {
	c := Canonical{}

	if t := tokenize(v.FirstName); len(t) > 0 {
		c.Given = t[0]
	}
	if t := tokenize(v.LastName); len(t) > 0 {
		c.Family = t[len(t)-1]
	}
	if num := tokenize(v.StreetNumber); len(num) > 0 && isDigits(num[0]) {
		if n, err := strconv.Atoi(num[0]); err == nil {
			c.HouseNumber = &n
		}
	}
	c.StreetTokens = tokenize(v.StreetName)
	if t := tokenize(v.StreetType); len(t) > 0 {
		c.StreetType = streetTypes[t[0]]
	}
	if t := tokenize(v.StreetDirSuffix); len(t) > 0 {
		c.Direction = directions[t[0]]
	}
	return c
}

// tokenize lowercases, strips punctuation and splits on whitespace.
func tokenize(s string) []string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Fields(mapped)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
