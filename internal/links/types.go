package links

import (
	"sort"
	"time"
)

// Default values applied when a record omits a field.
const (
	DefaultTag  = "Uncategorized"
	DefaultName = "Untitled"
)

// Entry is one normalized link in the directory.
type Entry struct {
	Tag  string  `json:"tag"`
	Num  float64 `json:"num"`
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Icon string  `json:"icon"`
}

// Index maps a tag to its entries ordered by Num. It is replaced wholesale on
// every refresh and must be treated as read-only once published.
type Index map[string][]Entry

// Tags returns the tag names in lexicographic order.
func (idx Index) Tags() []string {
	tags := make([]string, 0, len(idx))
	for tag := range idx {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// EntryCount returns the number of entries across all tags.
func (idx Index) EntryCount() int {
	total := 0
	for _, entries := range idx {
		total += len(entries)
	}
	return total
}

// URLs returns every entry URL in tag order, then entry order.
func (idx Index) URLs() []string {
	urls := make([]string, 0, idx.EntryCount())
	for _, tag := range idx.Tags() {
		for _, entry := range idx[tag] {
			urls = append(urls, entry.URL)
		}
	}
	return urls
}

// Snapshot is a persisted copy of one successful refresh.
type Snapshot struct {
	ID          string    `json:"id"`
	RefreshedAt time.Time `json:"refreshed_at"`
	TagCount    int       `json:"tag_count"`
	EntryCount  int       `json:"entry_count"`
	Index       Index     `json:"index"`
}

// SelectionAction names a change to the current selection.
type SelectionAction string

// Selection actions published to the event topic.
const (
	SelectionSet   SelectionAction = "set"
	SelectionClear SelectionAction = "clear"
)

// SelectionEvent is published whenever the selection changes.
type SelectionEvent struct {
	Action SelectionAction `json:"action"`
	URL    string          `json:"url,omitempty"`
	At     time.Time       `json:"at"`
}

// UploadObject is a fully buffered upload ready to hand to a FileStore.
type UploadObject struct {
	Name     string
	MimeType string
	Data     []byte
	// SHA256 is the hex digest of Data, attached to the stored object when the
	// backend supports custom metadata.
	SHA256 string
}

// StoredFile describes an object after the storage provider accepted it.
type StoredFile struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	MimeType    string            `json:"mimeType"`
	WebViewLink string            `json:"webViewLink"`
	ExportLinks map[string]string `json:"exportLinks,omitempty"`
}
