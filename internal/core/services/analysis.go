package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driving"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// connectionProbeThreshold is high enough that the probe query rarely
// returns rows; only reachability matters.
const connectionProbeThreshold = 0.99

// AnalysisConfig holds the dependencies of an AnalysisService.
type AnalysisConfig struct {
	Historical driving.HistoricalService
	Similarity driving.SimilarityService
	Assembler  *ContextAssembler
	Prompts    *PromptBuilder

	// LLM is optional. Remote mode requires it.
	LLM driven.LLMService

	// Documents, Searcher and Embedder are probed by TestConnections.
	// Searcher and Embedder may be nil.
	Documents driven.DocumentStore
	Searcher  driven.NearestNeighborSearcher
	Embedder  driven.EmbeddingService

	Analysis domain.AnalysisSettings
	LLMOpts  driven.ChatOptions
}

// AnalysisService orchestrates one analysis request: historical lookup,
// similarity retrieval, context assembly and local or remote analysis.
type AnalysisService struct {
	historical driving.HistoricalService
	similarity driving.SimilarityService
	assembler  *ContextAssembler
	prompts    *PromptBuilder
	llm        driven.LLMService
	documents  driven.DocumentStore
	searcher   driven.NearestNeighborSearcher
	embedder   driven.EmbeddingService
	settings   domain.AnalysisSettings
	chatOpts   driven.ChatOptions
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(cfg AnalysisConfig) *AnalysisService {
	if cfg.Assembler == nil {
		cfg.Assembler = NewContextAssembler()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = NewPromptBuilder(nil)
	}
	if !cfg.Analysis.Mode.IsValid() {
		cfg.Analysis.Mode = domain.AnalysisModeLocal
	}
	if cfg.Analysis.SimilarLimit <= 0 {
		cfg.Analysis.SimilarLimit = domain.DefaultSimilarLimit
	}
	if cfg.LLMOpts.MaxTokens <= 0 {
		cfg.LLMOpts.MaxTokens = domain.DefaultLLMMaxTokens
	}
	return &AnalysisService{
		historical: cfg.Historical,
		similarity: cfg.Similarity,
		assembler:  cfg.Assembler,
		prompts:    cfg.Prompts,
		llm:        cfg.LLM,
		documents:  cfg.Documents,
		searcher:   cfg.Searcher,
		embedder:   cfg.Embedder,
		settings:   cfg.Analysis,
		chatOpts:   cfg.LLMOpts,
	}
}

// stepResult is the outcome of one pipeline step together with its value.
// Fatal results carry the error that aborts the request.
type stepResult[T any] struct {
	value  T
	status domain.StepStatus
	detail string
	err    error
}

func stepOK[T any](v T) stepResult[T] {
	return stepResult[T]{value: v, status: domain.StepOK}
}

func stepRecoverable[T any](v T, detail string) stepResult[T] {
	return stepResult[T]{value: v, status: domain.StepRecoverableEmpty, detail: detail}
}

func stepFatal[T any](err error) stepResult[T] {
	return stepResult[T]{status: domain.StepFatal, detail: err.Error(), err: err}
}

func stepSkipped[T any](detail string) stepResult[T] {
	return stepResult[T]{status: domain.StepSkipped, detail: detail}
}

// record appends the step to the result and logs it.
func record[T any](result *domain.AnalysisResult, name string, s stepResult[T]) {
	result.Steps = append(result.Steps, domain.StepResult{Step: name, Status: s.status, Detail: s.detail})
	logger.Step(name, string(s.status), s.detail)
}

// Analyze runs the pipeline for one product and market.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Market = strings.TrimSpace(req.Market)
	req.ProductName = strings.TrimSpace(req.ProductName)
	if req.Code == "" || req.Market == "" {
		return nil, fmt.Errorf("%w: hsn code and market are required", domain.ErrInvalidInput)
	}
	if req.ProductName == "" {
		req.ProductName = req.Code
	}

	mode, err := s.resolveMode(req.Mode)
	if err != nil {
		return nil, err
	}
	limit := req.SimilarLimit
	if limit <= 0 {
		limit = s.settings.SimilarLimit
	}

	logger.Section("Analysis")
	logger.Info("Analysing %s (HSN %s) in %s using %s mode", req.ProductName, req.Code, req.Market, mode)

	result := &domain.AnalysisResult{
		ProductName: req.ProductName,
		Code:        req.Code,
		Market:      req.Market,
		Mode:        mode,
	}

	hist := s.historicalStep(ctx, req)
	record(result, domain.StepHistorical, hist)
	if hist.err != nil {
		return nil, hist.err
	}
	result.Records = hist.value

	sim := s.similarityStep(ctx, req, hist.value, limit)
	record(result, domain.StepSimilarity, sim)

	actx := s.assembler.Assemble(req.ProductName, req.Code, req.Market, hist.value, sim.value)
	result.SimilarProducts = actx.SimilarProducts
	result.SimilarHistorical = actx.SimilarHistorical

	if mode == domain.AnalysisModeLocal {
		report, metrics := AnalyzeLocally(actx)
		result.Analysis = report
		result.Metrics = metrics
		record(result, domain.StepAnalysis, stepOK(report))
		record(result, domain.StepPrediction, stepSkipped[string]("local mode"))
		return result, nil
	}

	analysis := s.remoteAnalysisStep(ctx, actx)
	record(result, domain.StepAnalysis, analysis)
	if analysis.err != nil {
		return nil, analysis.err
	}
	result.Analysis = analysis.value

	prediction := s.predictionStep(ctx, actx)
	record(result, domain.StepPrediction, prediction)
	result.Prediction = prediction.value
	result.PredictionAvailable = prediction.status == domain.StepOK

	return result, nil
}

func (s *AnalysisService) resolveMode(requested domain.AnalysisMode) (domain.AnalysisMode, error) {
	mode := requested
	if mode == "" {
		mode = s.settings.Mode
	}
	if !mode.IsValid() {
		return "", fmt.Errorf("%w: unknown analysis mode %q", domain.ErrInvalidInput, mode)
	}
	if mode.RequiresLLM() && s.llm == nil {
		return "", fmt.Errorf("%w: %w: %s mode requires an LLM provider",
			domain.ErrConfiguration, domain.ErrLLMUnavailable, mode)
	}
	return mode, nil
}

func (s *AnalysisService) historicalStep(
	ctx context.Context,
	req domain.AnalysisRequest,
) stepResult[[]domain.HistoricalRecord] {
	records, err := s.historical.FetchHistoricalData(ctx, req.Code, req.Market)
	if err != nil {
		return stepFatal[[]domain.HistoricalRecord](err)
	}
	return stepOK(records)
}

func (s *AnalysisService) similarityStep(
	ctx context.Context,
	req domain.AnalysisRequest,
	records []domain.HistoricalRecord,
	limit int,
) stepResult[domain.SimilarityResult] {
	if s.similarity == nil {
		return stepRecoverable(domain.SimilarityResult{Path: domain.SimilarityPathNone}, "similarity search not configured")
	}
	res := s.similarity.FindSimilar(ctx, domain.SimilarityQuery{
		ProductName: req.ProductName,
		Code:        req.Code,
		Market:      req.Market,
		Records:     records,
		Limit:       limit,
	})
	if res.IsEmpty() {
		return stepRecoverable(res, fmt.Sprintf("no similar products (%s path)", res.Path))
	}
	return stepOK(res)
}

func (s *AnalysisService) remoteAnalysisStep(ctx context.Context, actx domain.AnalysisContext) stepResult[string] {
	if !actx.HasRecords() {
		return stepOK(domain.NoDataMessage)
	}
	messages, err := s.prompts.AnalysisMessages(actx)
	if err != nil {
		return stepFatal[string](fmt.Errorf("%w: %w", domain.ErrAnalysisService, err))
	}
	report, err := s.llm.Chat(ctx, messages, s.chatOpts)
	if err != nil {
		return stepFatal[string](fmt.Errorf("%w: %w", domain.ErrAnalysisService, err))
	}
	return stepOK(strings.TrimSpace(report))
}

func (s *AnalysisService) predictionStep(ctx context.Context, actx domain.AnalysisContext) stepResult[string] {
	if !actx.HasRecords() {
		return stepRecoverable(domain.PredictionPlaceholder, "no historical data")
	}
	messages, err := s.prompts.PredictionMessages(actx)
	if err != nil {
		return stepRecoverable(domain.PredictionPlaceholder, err.Error())
	}
	prediction, err := s.llm.Chat(ctx, messages, s.chatOpts)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrPredictionUnavailable, err)
		return stepRecoverable(domain.PredictionPlaceholder, err.Error())
	}
	prediction = strings.TrimSpace(prediction)
	if prediction == "" {
		return stepRecoverable(domain.PredictionPlaceholder, "empty prediction")
	}
	return stepOK(prediction)
}

// TestConnections probes every configured external service. A service
// that is not configured is reported unreachable.
func (s *AnalysisService) TestConnections(ctx context.Context) (map[string]bool, error) {
	logger.Section("Connection Test")
	status := make(map[string]bool)
	var errs []error

	probe := func(name string, fn func() error) {
		err := fn()
		status[name] = err == nil
		if err != nil {
			logger.Warn("%s unreachable: %v", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		logger.Info("%s reachable", name)
	}

	probe(domain.ServiceLLM, func() error {
		if s.llm == nil {
			return fmt.Errorf("%w: no LLM provider configured", domain.ErrConfiguration)
		}
		return s.llm.Ping(ctx)
	})
	probe(domain.ServiceDocumentStore, func() error {
		if s.documents == nil {
			return fmt.Errorf("%w: no document store configured", domain.ErrConfiguration)
		}
		_, err := s.documents.Count(ctx)
		return err
	})
	probe(domain.ServiceVectorSearch, func() error {
		if s.searcher == nil {
			return fmt.Errorf("%w: no nearest-neighbour searcher configured", domain.ErrConfiguration)
		}
		dims := domain.DefaultEmbeddingDimensions
		if s.embedder != nil {
			dims = s.embedder.Dimensions()
		}
		_, err := s.searcher.MatchDocuments(ctx, make([]float32, dims), connectionProbeThreshold, 1)
		return err
	})
	probe(domain.ServiceEmbedding, func() error {
		if s.embedder == nil {
			return fmt.Errorf("%w: no embedding provider configured", domain.ErrConfiguration)
		}
		_, err := s.embedder.Embed(ctx, ProbeText)
		return err
	})

	return status, errors.Join(errs...)
}
