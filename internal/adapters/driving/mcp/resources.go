package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for hsnlens resources.
	uriScheme = "hsnlens://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "modes",
		Name:        "analysis-modes",
		Description: "Available analysis modes and what each one does",
		MIMEType:    mimeJSON,
	}, s.handleModesResource)

	// Market names may contain spaces, so path segments are URL-escaped.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "markets/{code}",
		Name:        "markets",
		Description: "Markets that have price data for an HSN code",
		MIMEType:    mimeJSON,
	}, s.handleMarketsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "history/{code}/{market}",
		Name:        "price-history",
		Description: "Recent yearly prices for an HSN code in a market",
		MIMEType:    mimeJSON,
	}, s.handleHistoryResource)
}

// handleModesResource lists the analysis modes.
func (s *Server) handleModesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type modeInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		RequiresLLM bool   `json:"requires_llm"`
	}

	modes := domain.AllAnalysisModes()
	infos := make([]modeInfo, len(modes))
	for i, m := range modes {
		infos[i] = modeInfo{
			Name:        m.String(),
			Description: m.Description(),
			RequiresLLM: m.RequiresLLM(),
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleMarketsResource lists markets for a code.
func (s *Server) handleMarketsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Historical == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// hsnlens://markets/{code}
	code := extractMarketsCode(req.Params.URI)
	if code == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	markets := s.ports.Historical.ListAvailableMarkets(ctx, code)
	if markets == nil {
		markets = []string{}
	}
	return jsonResource(req.Params.URI, MarketsOutput{Code: code, Markets: markets})
}

// handleHistoryResource returns price records for a code and market.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Historical == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// hsnlens://history/{code}/{market}
	code, market := extractHistoryKey(req.Params.URI)
	if code == "" || market == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Historical.FetchHistoricalData(ctx, code, market)
	if err != nil {
		return nil, toolError("fetching history", err)
	}
	if len(records) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, HistoryOutput{Code: code, Market: market, Records: records})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractMarketsCode extracts the code from hsnlens://markets/{code}.
func extractMarketsCode(uri string) string {
	parts := resourcePath(uri, "markets/", 1)
	if parts == nil {
		return ""
	}
	return parts[0]
}

// extractHistoryKey extracts code and market from hsnlens://history/{code}/{market}.
func extractHistoryKey(uri string) (code, market string) {
	parts := resourcePath(uri, "history/", 2)
	if parts == nil {
		return "", ""
	}
	return parts[0], parts[1]
}

// resourcePath splits the unescaped segments after prefix, requiring
// exactly n non-empty segments.
func resourcePath(uri, prefix string, n int) []string {
	rest, ok := strings.CutPrefix(uri, uriScheme+prefix)
	if !ok {
		return nil
	}
	parts := strings.Split(rest, "/")
	if len(parts) != n {
		return nil
	}
	for i, p := range parts {
		unescaped, err := url.PathUnescape(p)
		if err != nil || strings.TrimSpace(unescaped) == "" {
			return nil
		}
		parts[i] = unescaped
	}
	return parts
}
