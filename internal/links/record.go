package links

// Record is one page row returned by the upstream database query. Every
// property is optional; nested values the upstream reports as null decode to
// nil pointers.
type Record struct {
	ID         string           `json:"id"`
	Properties RecordProperties `json:"properties"`
}

// RecordProperties holds the subset of page properties the directory reads.
type RecordProperties struct {
	Tags   *SelectProperty `json:"Tags"`
	Number *NumberProperty `json:"Number"`
	Name   *TitleProperty  `json:"Name"`
	URL    *URLProperty    `json:"URL"`
	Icon   *URLProperty    `json:"Icon"`
}

// SelectProperty is a single-select property.
type SelectProperty struct {
	Select *SelectOption `json:"select"`
}

// SelectOption is the chosen option of a select property.
type SelectOption struct {
	Name *string `json:"name"`
}

// NumberProperty is a number property.
type NumberProperty struct {
	Number *float64 `json:"number"`
}

// TitleProperty is the page title, split into rich-text segments.
type TitleProperty struct {
	Title []RichText `json:"title"`
}

// RichText is one rich-text segment.
type RichText struct {
	Text *TextContent `json:"text"`
}

// TextContent carries the literal text of a segment.
type TextContent struct {
	Content string `json:"content"`
}

// URLProperty is a url property.
type URLProperty struct {
	URL *string `json:"url"`
}
