package tfidf

import (
	"math"
	"sort"
)

// Field names a numeric column of the table used for ranking
type Field string

const (
	FieldTFIDF Field = "tf_idf"
	FieldTF    Field = "tf"
	FieldIDF   Field = "idf"
)

// ParseField maps a query value to a Field. Empty selects tf_idf.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case "":
		return FieldTFIDF, nil
	case FieldTFIDF, FieldTF, FieldIDF:
		return Field(s), nil
	}
	return "", invalid("field", "unknown ranking key %q", s)
}

func (f Field) value(s Score) float64 {
	switch f {
	case FieldTF:
		return s.TF
	case FieldIDF:
		return s.IDF
	}
	return s.TFIDF
}

// TopKByDocument returns, per document, the k rows with the largest field value.
// Equal values are ordered by token ascending.
func TopKByDocument(table *Table, k int, field Field) (map[string][]Score, error) {
	if k <= 0 {
		return nil, invalid("k", "must be positive, got %d", k)
	}
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, invalid("table", "missing")
	}

	groups := make(map[string][]Score)
	for _, r := range table.Rows {
		groups[r.DocumentID] = append(groups[r.DocumentID], r)
	}

	top := make(map[string][]Score, len(groups))
	for id, rows := range groups {
		sort.Slice(rows, func(i, j int) bool {
			vi, vj := field.value(rows[i]), field.value(rows[j])
			if vi != vj {
				return vi > vj
			}
			return rows[i].Token < rows[j].Token
		})
		if len(rows) > k {
			rows = rows[:k]
		}
		top[id] = rows
	}
	return top, nil
}

// Similarity scores one document against another
type Similarity struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

type entry struct {
	token  string
	weight float64
}

// SimilarDocuments ranks the other documents of the table by cosine similarity of their
// tf-idf vectors to the given document. Documents with zero similarity are omitted.
func SimilarDocuments(table *Table, documentID string, k int) ([]Similarity, error) {
	if k <= 0 {
		return nil, invalid("k", "must be positive, got %d", k)
	}
	if table == nil {
		return nil, invalid("table", "missing")
	}

	// rows are ordered by document then token, so every vector comes out sorted
	vectors := make(map[string][]entry)
	for _, r := range table.Rows {
		vectors[r.DocumentID] = append(vectors[r.DocumentID], entry{token: r.Token, weight: r.TFIDF})
	}
	query, ok := vectors[documentID]
	if !ok {
		return nil, invalid("document_id", "unknown document %q", documentID)
	}

	var results []Similarity
	for _, id := range table.DocumentIDs() {
		if id == documentID {
			continue
		}
		score := cosine(query, vectors[id])
		if score > 0 {
			results = append(results, Similarity{DocumentID: id, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	if len(results) > k {
		return results[:k], nil
	}
	return results, nil
}

// cosine of two token-sorted sparse vectors
func cosine(a, b []entry) float64 {
	var dotProduct, normA, normB float64
	for _, e := range a {
		normA += e.weight * e.weight
	}
	for _, e := range b {
		normB += e.weight * e.weight
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].token == b[j].token:
			dotProduct += a[i].weight * b[j].weight
			i++
			j++
		case a[i].token < b[j].token:
			i++
		default:
			j++
		}
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
