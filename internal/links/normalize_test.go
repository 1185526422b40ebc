package links

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeRecords(t *testing.T, raw string) []Record {
	t.Helper()
	var records []Record
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	return records
}

func TestNormalizeRecord_EmptyTitleFallsBackToUntitled(t *testing.T) {
	t.Parallel()

	records := decodeRecords(t, `[{
		"id": "p1",
		"properties": {
			"Tags": {"select": {"name": "Tools"}},
			"Number": {"number": 2},
			"Name": {"title": []},
			"URL": {"url": "https://a"}
		}
	}]`)

	got := NormalizeRecord(records[0])
	require.Equal(t, Entry{Tag: "Tools", Num: 2, Name: "Untitled", URL: "https://a", Icon: ""}, got)
}

func TestNormalizeRecord_MissingPropertiesUseDefaults(t *testing.T) {
	t.Parallel()

	got := NormalizeRecord(Record{ID: "bare"})
	require.Equal(t, Entry{Tag: DefaultTag, Num: 0, Name: DefaultName}, got)
}

func TestNormalizeRecord_NullValuesUseDefaults(t *testing.T) {
	t.Parallel()

	records := decodeRecords(t, `[{
		"properties": {
			"Tags": {"select": null},
			"Number": {"number": null},
			"URL": {"url": null},
			"Icon": {"url": null}
		}
	}]`)

	got := NormalizeRecord(records[0])
	require.Equal(t, Entry{Tag: DefaultTag, Num: 0, Name: DefaultName}, got)
}

func TestNormalizeRecord_TitleSegmentWithoutTextIsBlank(t *testing.T) {
	t.Parallel()

	records := decodeRecords(t, `[{"properties": {"Name": {"title": [{"type": "mention"}]}}}]`)

	require.Equal(t, "", NormalizeRecord(records[0]).Name)
}

func TestNormalizeRecord_ReadsFirstTitleSegmentAndIcon(t *testing.T) {
	t.Parallel()

	records := decodeRecords(t, `[{"properties": {
		"Name": {"title": [{"text": {"content": "Docs"}}, {"text": {"content": " ignored"}}]},
		"Icon": {"url": "https://a/icon.png"}
	}}]`)

	got := NormalizeRecord(records[0])
	require.Equal(t, "Docs", got.Name)
	require.Equal(t, "https://a/icon.png", got.Icon)
}

func TestNormalize_GroupsAndOrdersEntries(t *testing.T) {
	t.Parallel()

	records := []Record{
		record("Tools", 3, "c", "https://c"),
		record("News", 1, "n", "https://n"),
		record("Tools", 1, "a", "https://a"),
		recordWithoutNumber("Tools", "zero", "https://z"),
		record("Tools", 1, "a2", "https://a2"),
	}

	index, urls := Normalize(records)

	require.Equal(t, []string{"News", "Tools"}, index.Tags())
	names := make([]string, 0, len(index["Tools"]))
	for _, entry := range index["Tools"] {
		names = append(names, entry.Name)
	}
	require.Equal(t, []string{"zero", "a", "a2", "c"}, names)
	require.Equal(t, []string{"https://c", "https://n", "https://a", "https://z", "https://a2"}, urls)
	require.Equal(t, 5, index.EntryCount())
}

func TestNormalize_EntriesAreNonDecreasingWithinTags(t *testing.T) {
	t.Parallel()

	records := []Record{
		record("b", 5, "x", "u1"),
		record("a", -1, "x", "u2"),
		record("b", 2.5, "x", "u3"),
		record("a", 7, "x", "u4"),
		record("b", 2.5, "x", "u5"),
	}

	index, _ := Normalize(records)
	for tag, entries := range index {
		for i := 1; i < len(entries); i++ {
			require.LessOrEqual(t, entries[i-1].Num, entries[i].Num, "tag %s", tag)
		}
	}
}

func TestNormalize_ReportsEmptyURLs(t *testing.T) {
	t.Parallel()

	_, urls := Normalize([]Record{{ID: "no-url"}})
	require.Equal(t, []string{""}, urls)
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	records := []Record{
		record("Tools", 2, "b", "https://b"),
		record("Tools", 1, "a", "https://a"),
	}
	first, _ := Normalize(records)
	second, _ := Normalize(records)
	require.Equal(t, first, second)
}

func TestIndex_JSONOrdersTags(t *testing.T) {
	t.Parallel()

	index, _ := Normalize([]Record{
		record("Zeta", 0, "z", "https://z"),
		record("Alpha", 0, "a", "https://a"),
	})
	data, err := json.Marshal(index)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"Alpha":[{"tag":"Alpha","num":0,"name":"a","url":"https://a","icon":""}],
		"Zeta":[{"tag":"Zeta","num":0,"name":"z","url":"https://z","icon":""}]
	}`, string(data))
	require.Less(t, strings.Index(string(data), "Alpha"), strings.Index(string(data), "Zeta"))
	require.Equal(t, []string{"https://a", "https://z"}, index.URLs())
}

func record(tag string, num float64, name, url string) Record {
	r := recordWithoutNumber(tag, name, url)
	r.Properties.Number = &NumberProperty{Number: &num}
	return r
}

func recordWithoutNumber(tag, name, url string) Record {
	return Record{
		ID: name,
		Properties: RecordProperties{
			Tags: &SelectProperty{Select: &SelectOption{Name: &tag}},
			Name: &TitleProperty{Title: []RichText{{Text: &TextContent{Content: name}}}},
			URL:  &URLProperty{URL: &url},
		},
	}
}
