package ocr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEntriesPlainList(t *testing.T) {
	t.Parallel()

	entries, err := ParseEntries(`[{"Name":"Jane Doe","Address":"12 Main Street","Date":"5/1/2026","Ward":"3"}]`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Jane Doe", entries[0].Name)
	require.Equal(t, "12 Main Street", entries[0].Address)
	require.Equal(t, "5/1/2026", entries[0].Date)
	require.Equal(t, "3", entries[0].Ward)
}

func TestParseEntriesFencedWithIntro(t *testing.T) {
	t.Parallel()

	text := "Here is the extracted list:\n```json\n[{\"name\":\"Bob Smith\",\"address\":\"4 Oak Ave\"}]\n```"
	entries, err := ParseEntries(text)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Bob Smith", entries[0].Name)
	require.Equal(t, "4 Oak Ave", entries[0].Address)
	require.Empty(t, entries[0].Date)
	require.Empty(t, entries[0].Ward)
}

func TestParseEntriesMissingAndExtraKeys(t *testing.T) {
	t.Parallel()

	entries, err := ParseEntries(`[{"Name":"A","Signature":"scrawl","Row":1},{"Address":"7 Elm St"}]`)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "A", entries[0].Name)
	require.Empty(t, entries[0].Address)
	require.Empty(t, entries[1].Name)
	require.Equal(t, "7 Elm St", entries[1].Address)
}

func TestParseEntriesNumericValues(t *testing.T) {
	t.Parallel()

	entries, err := ParseEntries(`[{"Name":"A","Ward":7}]`)
	require.NoError(t, err)
	require.Equal(t, "7", entries[0].Ward)
}

func TestParseEntriesNonListIsMalformed(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		`I could not read the image.`,
		`{"Name":"only one dict"}`,
		``,
		"```json\n```",
	} {
		entries, err := ParseEntries(text)
		require.ErrorIs(t, err, ErrMalformedExtraction, "input %q", text)
		require.Empty(t, entries)
	}
}

func TestParseEntriesSkipsNonDictElements(t *testing.T) {
	t.Parallel()

	entries, err := ParseEntries(`["stray", {"Name":"Kept Person","Address":"1 A St"}, 42]`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Kept Person", entries[0].Name)
}

func TestParseEntriesEmptyList(t *testing.T) {
	t.Parallel()

	entries, err := ParseEntries(`[]`)
	require.NoError(t, err)
	require.Empty(t, entries)
}
