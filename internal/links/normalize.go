package links

import "sort"

// Normalize maps records to entries, groups them by tag, and orders each group
// by Num. It also returns every URL it encountered, in record order and
// including empty ones, so callers can extend the set of selectable URLs.
func Normalize(records []Record) (Index, []string) {
	index := make(Index)
	urls := make([]string, 0, len(records))
	for _, record := range records {
		entry := NormalizeRecord(record)
		index[entry.Tag] = append(index[entry.Tag], entry)
		urls = append(urls, entry.URL)
	}
	for _, entries := range index {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Num < entries[j].Num
		})
	}
	return index, urls
}

// NormalizeRecord converts a single record, applying the field defaults.
func NormalizeRecord(record Record) Entry {
	props := record.Properties
	return Entry{
		Tag:  tagOf(props.Tags),
		Num:  numberOf(props.Number),
		Name: nameOf(props.Name),
		URL:  urlOf(props.URL),
		Icon: urlOf(props.Icon),
	}
}

func tagOf(p *SelectProperty) string {
	if p == nil || p.Select == nil || p.Select.Name == nil {
		return DefaultTag
	}
	return *p.Select.Name
}

func numberOf(p *NumberProperty) float64 {
	if p == nil || p.Number == nil {
		return 0
	}
	return *p.Number
}

// nameOf reads the first title segment. A segment without a text block yields
// an empty name rather than the default.
func nameOf(p *TitleProperty) string {
	if p == nil || len(p.Title) == 0 {
		return DefaultName
	}
	first := p.Title[0]
	if first.Text == nil {
		return ""
	}
	return first.Text.Content
}

func urlOf(p *URLProperty) string {
	if p == nil || p.URL == nil {
		return ""
	}
	return *p.URL
}
