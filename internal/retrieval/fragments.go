package retrieval

import (
	"encoding/json"
)

// Fragment is the raw text of one retrieved document.
type Fragment string

// Hit is one ranked search result.
type Hit struct {
	ID     string
	Score  float64
	Source json.RawMessage
}

// ExtractFragments returns the text of each hit in rank order. Text stored as
// a list keeps only its first element. Hits without usable text are skipped.
func ExtractFragments(hits []Hit) []Fragment {
	fragments := make([]Fragment, 0, len(hits))
	for _, hit := range hits {
		text, ok := hitText(hit.Source)
		if !ok {
			continue
		}
		fragments = append(fragments, Fragment(text))
	}
	return fragments
}

func hitText(source json.RawMessage) (string, bool) {
	if len(source) == 0 {
		return "", false
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(source, &doc); err != nil {
		return "", false
	}

	switch v := doc[FieldText].(type) {
	case string:
		return v, true
	case []interface{}:
		// TODO: confirm with the corpus owners whether multi-part bodies
		// should be joined instead of truncated to the first part.
		if len(v) == 0 {
			return "", false
		}
		s, ok := v[0].(string)
		return s, ok
	default:
		return "", false
	}
}
