package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driving"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// Ensure SimilarityService implements the interface.
var _ driving.SimilarityService = (*SimilarityService)(nil)

// SimilarityService finds similar products through nearest-neighbour
// search, falling back to keyword overlap when the vector path is absent,
// fails, or returns no candidates.
type SimilarityService struct {
	indexer   *DocumentIndexer
	store     driven.DocumentStore
	searcher  driven.NearestNeighborSearcher
	embedder  driven.EmbeddingService
	threshold float64
}

// NewSimilarityService creates a similarity service. searcher may be nil,
// in which case every query uses the keyword path.
func NewSimilarityService(
	indexer *DocumentIndexer,
	store driven.DocumentStore,
	searcher driven.NearestNeighborSearcher,
	embedder driven.EmbeddingService,
	threshold float64,
) *SimilarityService {
	if threshold <= 0 {
		threshold = domain.DefaultMatchThreshold
	}
	return &SimilarityService{
		indexer:   indexer,
		store:     store,
		searcher:  searcher,
		embedder:  embedder,
		threshold: threshold,
	}
}

// searchOutcome keeps "nothing similar" and "search unavailable" apart
// internally. FindSimilar collapses both to an empty result.
type searchOutcome struct {
	available bool
	result    domain.SimilarityResult
	cause     error
}

func found(result domain.SimilarityResult) searchOutcome {
	return searchOutcome{available: true, result: result}
}

func unavailable(cause error) searchOutcome {
	return searchOutcome{cause: cause}
}

// FindSimilar stores the queried product, then returns similar products
// and similar historical records. Errors never escape.
func (s *SimilarityService) FindSimilar(ctx context.Context, q domain.SimilarityQuery) domain.SimilarityResult {
	logger.Section("Similarity Search")
	outcome := s.search(ctx, q)
	if !outcome.available {
		logger.Warn("Similarity search unavailable for %s: %v", q.Key(), outcome.cause)
		return domain.SimilarityResult{Path: domain.SimilarityPathNone}
	}
	logger.Info("Similarity via %s path: %d products, %d historical",
		outcome.result.Path, len(outcome.result.Products), len(outcome.result.Historical))
	return outcome.result
}

func (s *SimilarityService) search(ctx context.Context, q domain.SimilarityQuery) searchOutcome {
	limit := q.EffectiveLimit()
	key := q.Key()

	if err := s.indexer.UpsertDocument(ctx, q.ProductName, q.Code, q.Market, q.Records); err != nil {
		return unavailable(fmt.Errorf("storing %s: %w", key, err))
	}

	if s.searcher == nil {
		logger.Debug("No nearest-neighbour searcher configured, using keyword search")
		return s.keywordOutcome(ctx, q, limit)
	}

	queryText := RenderDocumentText(q.ProductName, q.Code, q.Market, q.Records)
	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return unavailable(fmt.Errorf("embedding query: %w", err))
	}

	matches, err := s.searcher.MatchDocuments(ctx, vec, s.threshold, limit*2)
	if err != nil {
		logger.Warn("Nearest-neighbour query failed, using keyword search: %v", err)
		return s.keywordOutcome(ctx, q, limit)
	}

	candidates := make([]scoredDocument, 0, len(matches))
	for _, m := range matches {
		if m.Document.Key() == key {
			continue
		}
		candidates = append(candidates, scoredDocument{doc: m.Document, score: domain.ScoreFromSimilarity(m.Similarity)})
	}
	if len(candidates) == 0 {
		logger.Debug("Nearest-neighbour query returned no candidates, using keyword search")
		return s.keywordOutcome(ctx, q, limit)
	}

	sortByScore(candidates)
	result := rank(candidates, domain.ProductScoreGate, limit)
	result.Path = domain.SimilarityPathVector
	return found(result)
}

func (s *SimilarityService) keywordOutcome(ctx context.Context, q domain.SimilarityQuery, limit int) searchOutcome {
	result, err := s.keywordSearch(ctx, q, limit)
	if err != nil {
		return unavailable(err)
	}
	return found(result)
}

// keywordSearch scores stored documents by the share of query tokens
// found in their content and product name.
func (s *SimilarityService) keywordSearch(
	ctx context.Context,
	q domain.SimilarityQuery,
	limit int,
) (domain.SimilarityResult, error) {
	docs, err := s.store.ListByType(ctx, domain.DocumentTypeHistorical)
	if err != nil {
		return domain.SimilarityResult{}, fmt.Errorf("%w: listing documents: %w", domain.ErrDocumentStore, err)
	}

	queryTokens := uniqueTokens(q.ProductName + " " + q.Code)
	if len(queryTokens) == 0 {
		return domain.SimilarityResult{Path: domain.SimilarityPathKeyword}, nil
	}

	key := q.Key()
	var candidates []scoredDocument
	for i := range docs {
		if docs[i].Key() == key {
			continue
		}
		score := KeywordScore(queryTokens, Tokenize(docs[i].Content+" "+docs[i].Metadata.ProductName))
		if score > domain.KeywordScoreFloor {
			candidates = append(candidates, scoredDocument{doc: docs[i], score: score})
		}
	}

	sortByScore(candidates)
	result := rank(candidates, 0, limit)
	result.Path = domain.SimilarityPathKeyword
	return result, nil
}

type scoredDocument struct {
	doc   domain.Document
	score float64
}

func sortByScore(candidates []scoredDocument) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// rank turns ordered candidates into both similarity lists. Products need
// the historical type tag and a score of at least gate. Products sharing
// a code are merged and collect their markets. Any candidate with prices
// joins the historical list regardless of the gate. Both lists are capped
// at limit.
func rank(candidates []scoredDocument, gate float64, limit int) domain.SimilarityResult {
	var result domain.SimilarityResult
	byCode := make(map[string]int)

	for _, c := range candidates {
		meta := c.doc.Metadata
		product := domain.SimilarProduct{
			Code:        c.doc.Code,
			ProductName: meta.ProductName,
			Similarity:  domain.ClampScore(c.score),
			Markets:     []string{c.doc.MarketLabel()},
		}
		if product.ProductName == "" {
			product.ProductName = c.doc.Code
		}

		if meta.Type == domain.DocumentTypeHistorical && product.Similarity >= gate {
			if idx, ok := byCode[product.Code]; ok {
				if label := c.doc.MarketLabel(); !result.Products[idx].HasMarket(label) {
					result.Products[idx].Markets = append(result.Products[idx].Markets, label)
				}
			} else if len(result.Products) < limit {
				byCode[product.Code] = len(result.Products)
				result.Products = append(result.Products, product)
			}
		}

		if meta.HasPrices() && len(result.Historical) < limit {
			result.Historical = append(result.Historical, domain.SimilarHistoricalRecord{
				SimilarProduct: domain.SimilarProduct{
					Code:        product.Code,
					ProductName: product.ProductName,
					Similarity:  product.Similarity,
					Markets:     []string{c.doc.MarketLabel()},
				},
				Records: meta.Records(),
			})
		}
	}
	return result
}

// Tokenize lowercases text and splits it into words longer than two characters.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := words[:0]
	for _, w := range words {
		if len([]rune(w)) > 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func uniqueTokens(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, t := range Tokenize(text) {
		if !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// KeywordScore is the percentage of query tokens that substring-match
// any candidate token, in [0, 100].
func KeywordScore(queryTokens, candidateTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	matched := 0
	for _, qt := range queryTokens {
		for _, ct := range candidateTokens {
			if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				matched++
				break
			}
		}
	}
	return domain.ClampScore(float64(matched) / float64(len(queryTokens)) * 100)
}
