package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// AnalyzeInput is the input schema for the analyze_product tool.
type AnalyzeInput struct {
	Code        string `json:"hsn_code" jsonschema:"the HSN tariff classification code, e.g. 0902"`
	ProductName string `json:"product_name,omitempty" jsonschema:"product description; defaults to the code"`
	Market      string `json:"market" jsonschema:"destination market, e.g. Japan"`
	Mode        string `json:"mode,omitempty" jsonschema:"local or remote; defaults to the configured mode"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of similar products (default 5)"`
}

// SimilarInput is the input schema for the find_similar tool.
type SimilarInput struct {
	Code        string `json:"hsn_code" jsonschema:"the HSN tariff classification code"`
	ProductName string `json:"product_name,omitempty" jsonschema:"product description; defaults to the code"`
	Market      string `json:"market" jsonschema:"destination market"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of similar products (default 5)"`
}

// CodeInput is the input schema for the list_markets tool.
type CodeInput struct {
	Code string `json:"hsn_code" jsonschema:"the HSN tariff classification code"`
}

// HistoryInput is the input schema for the historical_prices tool.
type HistoryInput struct {
	Code   string `json:"hsn_code" jsonschema:"the HSN tariff classification code"`
	Market string `json:"market" jsonschema:"destination market"`
}

// MarketsOutput is the output schema for the list_markets tool.
type MarketsOutput struct {
	Code    string   `json:"hsn_code"`
	Markets []string `json:"markets"`
}

// HistoryOutput is the output schema for the historical_prices tool.
type HistoryOutput struct {
	Code    string                    `json:"hsn_code"`
	Market  string                    `json:"market"`
	Records []domain.HistoricalRecord `json:"records"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "analyze_product",
		Description: "Analyse the price history of an HSN-coded product in a market, " +
			"with similar products and, in remote mode, a one-year price prediction",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_similar",
		Description: "Find products similar to an HSN-coded product, with their price history",
	}, s.handleFindSimilar)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_markets",
		Description: "List the markets that have price data for an HSN code",
	}, s.handleListMarkets)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "historical_prices",
		Description: "Return up to five recent yearly prices for an HSN code in a market",
	}, s.handleHistoricalPrices)
}

func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, *domain.AnalysisResult, error) {
	result, err := s.ports.Analysis.Analyze(ctx, domain.AnalysisRequest{
		ProductName:  input.ProductName,
		Code:         input.Code,
		Market:       input.Market,
		Mode:         domain.AnalysisMode(strings.ToLower(strings.TrimSpace(input.Mode))),
		SimilarLimit: input.Limit,
	})
	if err != nil {
		return nil, nil, toolError("analyze_product", err)
	}
	return nil, result, nil
}

func (s *Server) handleFindSimilar(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, domain.SimilarityResult, error) {
	if s.ports.Similarity == nil {
		return nil, domain.SimilarityResult{}, fmt.Errorf("find_similar: %w", errServiceUnavailable)
	}
	code, market, err := requireCodeAndMarket(input.Code, input.Market)
	if err != nil {
		return nil, domain.SimilarityResult{}, err
	}

	query := domain.SimilarityQuery{
		ProductName: strings.TrimSpace(input.ProductName),
		Code:        code,
		Market:      market,
		Limit:       input.Limit,
	}
	if query.ProductName == "" {
		query.ProductName = code
	}
	// Own prices feed the stored document; a lookup miss is not an error here.
	if s.ports.Historical != nil {
		query.Records, _ = s.ports.Historical.FetchHistoricalData(ctx, code, market) //nolint:errcheck
	}

	return nil, s.ports.Similarity.FindSimilar(ctx, query), nil
}

func (s *Server) handleListMarkets(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CodeInput,
) (*mcp.CallToolResult, MarketsOutput, error) {
	if s.ports.Historical == nil {
		return nil, MarketsOutput{}, fmt.Errorf("list_markets: %w", errServiceUnavailable)
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, MarketsOutput{}, fmt.Errorf("%w: hsn_code is required", domain.ErrInvalidInput)
	}

	markets := s.ports.Historical.ListAvailableMarkets(ctx, code)
	if markets == nil {
		markets = []string{}
	}
	return nil, MarketsOutput{Code: code, Markets: markets}, nil
}

func (s *Server) handleHistoricalPrices(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	if s.ports.Historical == nil {
		return nil, HistoryOutput{}, fmt.Errorf("historical_prices: %w", errServiceUnavailable)
	}
	code, market, err := requireCodeAndMarket(input.Code, input.Market)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	records, err := s.ports.Historical.FetchHistoricalData(ctx, code, market)
	if err != nil {
		return nil, HistoryOutput{}, toolError("historical_prices", err)
	}
	return nil, HistoryOutput{Code: code, Market: market, Records: records}, nil
}

func requireCodeAndMarket(code, market string) (string, string, error) {
	code = strings.TrimSpace(code)
	market = strings.TrimSpace(market)
	if code == "" || market == "" {
		return "", "", fmt.Errorf("%w: hsn_code and market are required", domain.ErrInvalidInput)
	}
	return code, market, nil
}
