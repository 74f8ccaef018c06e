package domain

// NoDataMessage is the local analysis output for an empty record list.
const NoDataMessage = "No historical data available for analysis."

// PredictionPlaceholder replaces the prediction when the remote call fails.
const PredictionPlaceholder = "Prediction unavailable at this time."

// AnalysisMode selects how the assembled context is analysed.
type AnalysisMode string

// Available analysis modes.
const (
	// AnalysisModeLocal is a deterministic statistical summary with no network call.
	AnalysisModeLocal AnalysisMode = "local"

	// AnalysisModeRemote sends the context to a generative model.
	AnalysisModeRemote AnalysisMode = "remote"
)

// IsValid returns true if the mode is recognised.
func (m AnalysisMode) IsValid() bool {
	return m == AnalysisModeLocal || m == AnalysisModeRemote
}

// RequiresLLM returns true if this mode needs an LLM provider.
func (m AnalysisMode) RequiresLLM() bool {
	return m == AnalysisModeRemote
}

// String returns the string representation.
func (m AnalysisMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m AnalysisMode) Description() string {
	switch m {
	case AnalysisModeLocal:
		return "Local (deterministic statistics)"
	case AnalysisModeRemote:
		return "Remote (LLM narrative + prediction)"
	default:
		return unknownDescription
	}
}

// AllAnalysisModes returns all available analysis modes.
func AllAnalysisModes() []AnalysisMode {
	return []AnalysisMode{AnalysisModeLocal, AnalysisModeRemote}
}

// Trend is the direction of the most recent price change.
type Trend string

// Trends. A change beyond +/-TrendThreshold percent is a movement.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"

	TrendThreshold = 2.0
)

// TrendFromChange classifies a percentage change.
func TrendFromChange(changePercent float64) Trend {
	switch {
	case changePercent > TrendThreshold:
		return TrendIncreasing
	case changePercent < -TrendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// MarketPosition places the current price within the retained window.
type MarketPosition string

// Market positions.
const (
	PositionHighest     MarketPosition = "highest"
	PositionLowest      MarketPosition = "lowest"
	PositionAboveMidway MarketPosition = "above_midrange"
	PositionBelowMidway MarketPosition = "below_midrange"
)

// AnalysisRequest is the caller's input for one analysis.
type AnalysisRequest struct {
	ProductName string
	Code        string
	Market      string

	// Mode overrides the configured mode when set.
	Mode AnalysisMode

	// SimilarLimit overrides the configured similarity limit when positive.
	SimilarLimit int
}

// AnalysisContext is everything assembled for one analysis request.
// It is built per request and owned by the dispatcher call that made it.
type AnalysisContext struct {
	ProductName       string
	Code              string
	Market            string
	Records           []HistoricalRecord
	SimilarProducts   []SimilarProduct
	SimilarHistorical []SimilarHistoricalRecord
}

// HasRecords reports whether any historical record is present.
func (c *AnalysisContext) HasRecords() bool {
	return len(c.Records) > 0
}

// LocalMetrics are the statistics derived in local mode.
type LocalMetrics struct {
	CurrentPrice  float64        `json:"current_price"`
	PriorPrice    float64        `json:"prior_price"`
	ChangePercent float64        `json:"change_percent"`
	Trend         Trend          `json:"trend"`
	MinPrice      float64        `json:"min_price"`
	MaxPrice      float64        `json:"max_price"`
	Position      MarketPosition `json:"position"`
	Currency      string         `json:"currency"`
}

// StepStatus is the outcome of one pipeline step.
type StepStatus string

// Step outcomes.
const (
	// StepOK means the step produced its output.
	StepOK StepStatus = "ok"

	// StepRecoverableEmpty means the step failed or found nothing, and the
	// pipeline continued with an empty or placeholder value.
	StepRecoverableEmpty StepStatus = "recoverable_empty"

	// StepFatal means the step failed and the request was aborted.
	StepFatal StepStatus = "fatal"

	// StepSkipped means the step did not apply to this request.
	StepSkipped StepStatus = "skipped"
)

// Pipeline step names.
const (
	StepHistorical = "historical"
	StepSimilarity = "similarity"
	StepAnalysis   = "analysis"
	StepPrediction = "prediction"
)

// StepResult records what happened in one pipeline step.
type StepResult struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// AnalysisResult is returned to the caller after a completed analysis.
type AnalysisResult struct {
	ProductName         string                    `json:"product_name"`
	Code                string                    `json:"hsn_code"`
	Market              string                    `json:"market"`
	Mode                AnalysisMode              `json:"mode"`
	Records             []HistoricalRecord        `json:"records"`
	SimilarProducts     []SimilarProduct          `json:"similar_products"`
	SimilarHistorical   []SimilarHistoricalRecord `json:"similar_historical"`
	Analysis            string                    `json:"analysis"`
	Metrics             *LocalMetrics             `json:"metrics,omitempty"`
	Prediction          string                    `json:"prediction,omitempty"`
	PredictionAvailable bool                      `json:"prediction_available"`
	Steps               []StepResult              `json:"steps"`
}

// Step returns the recorded result for a named step.
func (r *AnalysisResult) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Connection probe names used by the connectivity self-test.
const (
	ServiceLLM           = "llm"
	ServiceDocumentStore = "document_store"
	ServiceVectorSearch  = "vector_search"
	ServiceEmbedding     = "embedding"
)
