package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisMode(t *testing.T) {
	assert.True(t, AnalysisModeLocal.IsValid())
	assert.True(t, AnalysisModeRemote.IsValid())
	assert.False(t, AnalysisMode("hybrid").IsValid())

	assert.False(t, AnalysisModeLocal.RequiresLLM())
	assert.True(t, AnalysisModeRemote.RequiresLLM())

	assert.Equal(t, "local", AnalysisModeLocal.String())
	assert.Equal(t, unknownDescription, AnalysisMode("x").Description())
	assert.Equal(t, []AnalysisMode{AnalysisModeLocal, AnalysisModeRemote}, AllAnalysisModes())
}

func TestTrendFromChange(t *testing.T) {
	tests := []struct {
		change float64
		want   Trend
	}{
		{20, TrendIncreasing},
		{2.01, TrendIncreasing},
		{2, TrendStable},
		{0, TrendStable},
		{-2, TrendStable},
		{-2.01, TrendDecreasing},
		{-16.67, TrendDecreasing},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TrendFromChange(tt.change), "change %v", tt.change)
	}
}

func TestAnalysisResult_Step(t *testing.T) {
	result := AnalysisResult{
		Steps: []StepResult{
			{Step: StepHistorical, Status: StepOK},
			{Step: StepPrediction, Status: StepRecoverableEmpty, Detail: "timeout"},
		},
	}

	step, ok := result.Step(StepPrediction)
	assert.True(t, ok)
	assert.Equal(t, StepRecoverableEmpty, step.Status)

	_, ok = result.Step(StepAnalysis)
	assert.False(t, ok)
}

func TestAnalysisContext_HasRecords(t *testing.T) {
	assert.False(t, (&AnalysisContext{}).HasRecords())
	assert.True(t, (&AnalysisContext{Records: []HistoricalRecord{{Year: "2024", Price: 1}}}).HasRecords())
}
