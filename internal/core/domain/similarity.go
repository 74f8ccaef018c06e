package domain

import "math"

// Similarity search defaults.
const (
	// DefaultSimilarLimit caps each similarity list.
	DefaultSimilarLimit = 5

	// DefaultMatchThreshold is the minimum raw (0-1) similarity the
	// nearest-neighbour query returns.
	DefaultMatchThreshold = 0.3

	// ProductScoreGate is the minimum 0-100 score for a candidate to be
	// reported as a similar product.
	ProductScoreGate = 50.0

	// KeywordScoreFloor is the score a keyword fallback match must exceed.
	KeywordScoreFloor = 20.0
)

// SimilarityPath records which path produced a similarity result.
type SimilarityPath string

// Similarity paths.
const (
	SimilarityPathVector  SimilarityPath = "vector"
	SimilarityPathKeyword SimilarityPath = "keyword"
	SimilarityPathNone    SimilarityPath = "none"
)

// SimilarityQuery describes the product to find neighbours for.
type SimilarityQuery struct {
	ProductName string
	Code        string
	Market      string
	Records     []HistoricalRecord
	Limit       int
}

// Key returns the querying product's document key.
func (q SimilarityQuery) Key() DocumentKey {
	return NewDocumentKey(q.Code, q.Market)
}

// EffectiveLimit returns Limit, or DefaultSimilarLimit when unset.
func (q SimilarityQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSimilarLimit
	}
	return q.Limit
}

// SimilarProduct is a stored product ranked against the queried one.
type SimilarProduct struct {
	Code        string   `json:"hsn_code"`
	ProductName string   `json:"product_name"`
	Similarity  float64  `json:"similarity"`
	Markets     []string `json:"markets"`
}

// HasMarket reports whether market is already listed.
func (p *SimilarProduct) HasMarket(market string) bool {
	for _, m := range p.Markets {
		if m == market {
			return true
		}
	}
	return false
}

// SimilarHistoricalRecord is a similar product together with its prices.
type SimilarHistoricalRecord struct {
	SimilarProduct
	Records []HistoricalRecord `json:"records"`
}

// SimilarityResult holds both similarity lists for one query.
type SimilarityResult struct {
	Products   []SimilarProduct          `json:"similar_products"`
	Historical []SimilarHistoricalRecord `json:"similar_historical"`
	Path       SimilarityPath            `json:"path"`
}

// IsEmpty reports whether neither list has entries.
func (r SimilarityResult) IsEmpty() bool {
	return len(r.Products) == 0 && len(r.Historical) == 0
}

// ClampScore bounds a similarity score to [0, 100].
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// ScoreFromSimilarity converts a raw 0-1 similarity to a clamped 0-100 score.
func ScoreFromSimilarity(similarity float64) float64 {
	return ClampScore(similarity * 100)
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Vectors of different length or with zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
