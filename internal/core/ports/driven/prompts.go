package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return an error and the
	// caller falls back to its built-in template.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
// Templates are rendered with text/template against the analysis context.
const (
	// PromptAnalysisSystem is the system prompt for the long-form market report.
	PromptAnalysisSystem = "analysis_system"

	// PromptAnalysisUser is the user prompt for the long-form market report.
	PromptAnalysisUser = "analysis_user"

	// PromptPredictionSystem is the system prompt for the one-year prediction.
	PromptPredictionSystem = "prediction_system"

	// PromptPredictionUser is the user prompt for the one-year prediction.
	PromptPredictionUser = "prediction_user"
)

// AllPromptNames lists every prompt the application loads.
func AllPromptNames() []string {
	return []string{
		PromptAnalysisSystem,
		PromptAnalysisUser,
		PromptPredictionSystem,
		PromptPredictionUser,
	}
}
