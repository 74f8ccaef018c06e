package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnalysisService)
	})

	t.Run("nil analysis service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnalysisService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil analysis service returns error", func(t *testing.T) {
		ports := &Ports{Historical: &mockHistoricalService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingAnalysisService)
	})

	t.Run("analysis only is valid", func(t *testing.T) {
		ports := &Ports{Analysis: &mockAnalysisService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Analysis:   &mockAnalysisService{},
			Similarity: &mockSimilarityService{},
			Historical: &mockHistoricalService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
