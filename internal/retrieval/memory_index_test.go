package retrieval

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

type memoryDoc struct {
	ID        string
	Title     string
	Type      DocumentType
	EnactedAt time.Time
	Text      interface{}
}

// memoryIndex ranks documents with Composite and a term-overlap text score.
type memoryIndex struct {
	docs    []memoryDoc
	now     time.Time
	err     error
	queries []Query
}

func (m *memoryIndex) Search(ctx context.Context, query Query) ([]Hit, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query.Question))
	hits := make([]Hit, 0, len(m.docs))
	for _, doc := range m.docs {
		source, _ := json.Marshal(map[string]interface{}{FieldText: doc.Text})
		hits = append(hits, Hit{
			ID:     doc.ID,
			Score:  Composite(textScore(terms, doc), doc.EnactedAt, doc.Type, m.now),
			Source: source,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > query.Size {
		hits = hits[:query.Size]
	}
	return hits, nil
}

func textScore(terms []string, doc memoryDoc) float64 {
	haystack := strings.ToLower(doc.Title)
	switch v := doc.Text.(type) {
	case string:
		haystack += " " + strings.ToLower(v)
	case []string:
		haystack += " " + strings.ToLower(strings.Join(v, " "))
	}

	var score float64
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			score++
		}
	}
	return score
}
