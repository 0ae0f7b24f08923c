package document

// Well-known metadata values.
const (
	ContentTypeExcel = "excel_knowledge"
	CategoryExcel    = "excel"

	LanguageJapanese = "ja"
	LanguageEnglish  = "en"
)

// Metadata holds the well-known typed fields of a document plus a free-form
// extension map. Well-known fields are indexed as tags in the store; Extra
// rides along unindexed.
type Metadata struct {
	Source      string
	Language    string
	Category    string
	Difficulty  string
	ContentType string
	IndexedAt   string
	Extra       map[string]string
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	c := m
	if m.Extra != nil {
		c.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Tags flattens the metadata into a tag map as persisted and searched.
// Extra keys never shadow the well-known fields.
func (m Metadata) Tags() map[string]string {
	tags := make(map[string]string, len(m.Extra)+6)
	for k, v := range m.Extra {
		tags[k] = v
	}
	put := func(k, v string) {
		if v != "" {
			tags[k] = v
		}
	}
	put("source", m.Source)
	put("language", m.Language)
	put("category", m.Category)
	put("difficulty", m.Difficulty)
	put("content_type", m.ContentType)
	put("indexed_at", m.IndexedAt)
	return tags
}

// MetadataFromTags rebuilds Metadata from a flat tag map (storage hydration).
func MetadataFromTags(tags map[string]string) Metadata {
	var m Metadata
	for k, v := range tags {
		switch k {
		case "source":
			m.Source = v
		case "language":
			m.Language = v
		case "category":
			m.Category = v
		case "difficulty":
			m.Difficulty = v
		case "content_type":
			m.ContentType = v
		case "indexed_at":
			m.IndexedAt = v
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v
		}
	}
	return m
}
