package retrieval

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Index field names.
const (
	FieldTitle       = "judul"
	FieldType        = "jenis_bentuk_peraturan"
	FieldTypeKeyword = "jenis_bentuk_peraturan.keyword"
	FieldSubject     = "materi_pokok"
	FieldText        = "teks"
	FieldEnactedAt   = "tanggal_penetapan"
)

// Cross-reference relations, each a nested list of documents with a title.
var relations = []string{
	"dasar_hukum",
	"mengubah",
	"diubah_oleh",
	"mencabut",
	"dicabut_oleh",
	"melaksanakan_amanat_peraturan",
	"dilaksanakan_oleh_peraturan_pelaksana",
}

// Recency decay parameters.
const (
	decayOrigin = "now"
	decayScale  = "365d"
	decayOffset = "365d"
	decayFactor = 0.5
)

// signalCount is the number of averaged signals: text relevance, recency and
// authority weight.
const signalCount = 3

// Query is one search request. Body is the Elasticsearch request body;
// Question and Size are kept alongside for indexes that do not speak the
// query DSL.
type Query struct {
	Question string
	Size     int
	Body     map[string]interface{}
}

// JSON encodes the request body.
func (q Query) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(q.Body); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildQuery builds the ranked search for question.
//
// The final score is the arithmetic mean of the text score, the recency
// multiplier and the authority weight. Every document gets exactly one
// weight function (its table row, or the fallback for unknown types), the
// functions are summed with the decay, that sum is added to the text score
// and the whole is scaled by 1/3.
func BuildQuery(question string, size int) Query {
	should := []interface{}{
		match(FieldTitle, question),
		match(FieldType, question),
		match(FieldSubject, question),
		match(FieldText, question),
	}
	for _, rel := range relations {
		should = append(should, map[string]interface{}{
			"nested": map[string]interface{}{
				"path": rel,
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"should": []interface{}{
							match(rel+"."+FieldTitle, question),
						},
					},
				},
				"ignore_unmapped": true,
			},
		})
	}

	functions := []interface{}{
		map[string]interface{}{
			"linear": map[string]interface{}{
				FieldEnactedAt: map[string]interface{}{
					"origin": decayOrigin,
					"scale":  decayScale,
					"offset": decayOffset,
					"decay":  decayFactor,
				},
			},
		},
	}

	types := KnownTypes()
	known := make([]interface{}, 0, len(types))
	for _, dt := range types {
		known = append(known, string(dt))
		functions = append(functions, map[string]interface{}{
			"filter": map[string]interface{}{
				"term": map[string]interface{}{
					FieldTypeKeyword: string(dt),
				},
			},
			"weight": dt.AuthorityWeight(),
		})
	}
	functions = append(functions, map[string]interface{}{
		"filter": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []interface{}{
					map[string]interface{}{
						"terms": map[string]interface{}{
							FieldTypeKeyword: known,
						},
					},
				},
			},
		},
		"weight": DefaultAuthorityWeight,
	})

	body := map[string]interface{}{
		"size":    size,
		"_source": []string{FieldText},
		"query": map[string]interface{}{
			"function_score": map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"should": should,
					},
				},
				"functions":  functions,
				"score_mode": "sum",
				"boost_mode": "sum",
				"boost":      1.0 / signalCount,
			},
		},
	}

	return Query{
		Question: question,
		Size:     size,
		Body:     body,
	}
}

func match(field, question string) map[string]interface{} {
	return map[string]interface{}{
		"match": map[string]interface{}{
			field: question,
		},
	}
}
