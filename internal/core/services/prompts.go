package services

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

// Built-in prompt templates, used when no PromptStore is configured or the
// store has no override. Templates see a promptData value.
const (
	defaultAnalysisSystemPrompt = `You are an international trade analyst specialising in tariff (HSN) classified goods.
You write concise, factual market reports grounded only in the data provided.`

	defaultAnalysisUserPrompt = `Analyse the market for the following product.

Product: {{.ProductName}}
HSN Code: {{.Code}}
Market: {{.Market}}

Historical prices (newest first):
{{.Records}}
Similar products:
{{.SimilarProducts}}
Historical prices of similar products:
{{.SimilarHistorical}}
Write a report with these sections:
1. Price Trend Analysis
2. Market Position
3. Comparison with Similar Products
4. Risk Factors
5. Recommendations`

	defaultPredictionSystemPrompt = `You are a pricing forecaster. Answer briefly and never invent data beyond what is given.`

	defaultPredictionUserPrompt = `Based on these historical prices for {{.ProductName}} (HSN {{.Code}}) in {{.Market}}:
{{.Records}}
Predict the price one year after the most recent entry.
Respond in exactly this form:
Predicted Price: <amount> <currency>
Confidence: <High|Medium|Low>
Rationale: <one sentence>`
)

// promptData is the template input.
type promptData struct {
	ProductName       string
	Code              string
	Market            string
	Records           string
	SimilarProducts   string
	SimilarHistorical string
}

func newPromptData(actx domain.AnalysisContext) promptData {
	return promptData{
		ProductName:       actx.ProductName,
		Code:              actx.Code,
		Market:            actx.Market,
		Records:           RenderRecords(actx.Records),
		SimilarProducts:   RenderSimilarProducts(actx.SimilarProducts),
		SimilarHistorical: RenderSimilarHistorical(actx.SimilarHistorical),
	}
}

// PromptBuilder renders chat prompts from templates.
type PromptBuilder struct {
	store driven.PromptStore
}

// NewPromptBuilder creates a prompt builder. store may be nil.
func NewPromptBuilder(store driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{store: store}
}

// AnalysisMessages builds the long-form report conversation.
func (b *PromptBuilder) AnalysisMessages(actx domain.AnalysisContext) ([]driven.ChatMessage, error) {
	return b.messages(actx,
		driven.PromptAnalysisSystem, defaultAnalysisSystemPrompt,
		driven.PromptAnalysisUser, defaultAnalysisUserPrompt)
}

// PredictionMessages builds the one-year prediction conversation.
func (b *PromptBuilder) PredictionMessages(actx domain.AnalysisContext) ([]driven.ChatMessage, error) {
	return b.messages(actx,
		driven.PromptPredictionSystem, defaultPredictionSystemPrompt,
		driven.PromptPredictionUser, defaultPredictionUserPrompt)
}

func (b *PromptBuilder) messages(
	actx domain.AnalysisContext,
	systemName, systemDefault, userName, userDefault string,
) ([]driven.ChatMessage, error) {
	data := newPromptData(actx)

	system, err := b.render(systemName, systemDefault, data)
	if err != nil {
		return nil, err
	}
	user, err := b.render(userName, userDefault, data)
	if err != nil {
		return nil, err
	}
	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}, nil
}

func (b *PromptBuilder) render(name, fallback string, data promptData) (string, error) {
	text := b.load(name, fallback)
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// load returns the stored template, falling back to the default if unavailable.
func (b *PromptBuilder) load(name, fallback string) string {
	if b.store == nil {
		return fallback
	}
	prompt, err := b.store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}

// DefaultPrompts returns the built-in templates keyed by prompt name.
// The file prompt store writes these out as editable starting points.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptAnalysisSystem:   defaultAnalysisSystemPrompt,
		driven.PromptAnalysisUser:     defaultAnalysisUserPrompt,
		driven.PromptPredictionSystem: defaultPredictionSystemPrompt,
		driven.PromptPredictionUser:   defaultPredictionUserPrompt,
	}
}
