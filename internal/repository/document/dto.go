package document

import (
	"encoding/json"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// docJSON is the persisted document shape. Metadata is flattened into the
// tags object; the well-known keys are indexed via fixed JSONPaths.
type docJSON struct {
	Content    string            `json:"content"`
	Vector     []float32         `json:"vector"`
	TokenCount int               `json:"token_count"`
	CreatedAt  int64             `json:"created_at"` // unix seconds, UTC
	Tags       map[string]string `json:"tags"`
}

func toJSON(doc *domdoc.Document) ([]byte, error) {
	tags := doc.Meta().Tags()
	if tags == nil {
		tags = map[string]string{}
	}
	return json.Marshal(docJSON{
		Content:    doc.Content(),
		Vector:     doc.Vector(),
		TokenCount: doc.TokenCount(),
		CreatedAt:  doc.CreatedAt().Unix(),
		Tags:       tags,
	})
}

// fromJSONGet hydrates a document from a JSON.GET "$" payload (array-wrapped).
func fromJSONGet(id string, raw []byte) (domdoc.Document, error) {
	var docs []docJSON
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domdoc.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	if len(docs) == 0 {
		return domdoc.Document{}, fmt.Errorf("empty document payload for %s", id)
	}
	return hydrate(id, docs[0]), nil
}

func hydrate(id string, d docJSON) domdoc.Document {
	return domdoc.Reconstruct(
		id,
		d.Content,
		domdoc.MetadataFromTags(d.Tags),
		d.Vector,
		d.TokenCount,
		time.Unix(d.CreatedAt, 0).UTC(),
	)
}
