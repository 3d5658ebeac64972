package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
)

var (
	listPredictionsToolName    = "list_predictions"
	listPredictionsDescription = "List saved churn predictions, newest first by default. Supports a case-insensitive search over contract, internet service and gender, a risk filter (Low, Medium, High) and sorting by prediction_timestamp, churn_probability or tenure."

	getPredictionToolName    = "get_prediction"
	getPredictionDescription = "Get one saved churn prediction by ID, including the customer attributes and retention insights."

	insightsToolName    = "churn_insights"
	insightsDescription = "Classify a churn probability into a risk level and return retention suggestions for the given customer attributes."
)

// ListInput represents the input arguments for the list_predictions tool.
type ListInput struct {
	Search string `json:"search,omitempty" jsonschema:"case-insensitive substring of contract, internet service or gender"`
	Risk   string `json:"risk,omitempty" jsonschema:"risk level filter: All, Low, Medium or High"`
	Sort   string `json:"sort,omitempty" jsonschema:"sort field: prediction_timestamp, churn_probability or tenure"`
	Dir    string `json:"dir,omitempty" jsonschema:"sort direction: asc or desc (default: desc)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 200)"`
}

// PredictionSummary is one prediction in a list_predictions result.
type PredictionSummary struct {
	ID              string  `json:"id"`
	SessionID       string  `json:"session_id"`
	Probability     float64 `json:"churn_probability"`
	RiskLevel       string  `json:"risk_level"`
	PredictedChurn  bool    `json:"predicted_churn"`
	Tenure          int     `json:"tenure"`
	Contract        string  `json:"contract"`
	InternetService string  `json:"internet_service"`
	MonthlyCharges  float64 `json:"monthly_charges"`
	CreatedAt       string  `json:"prediction_timestamp"`
}

// ListOutput represents the output of the list_predictions tool.
type ListOutput struct {
	Count              int                 `json:"count"`
	Total              int                 `json:"total"`
	HighRiskCount      int                 `json:"high_risk_count"`
	AverageProbability float64             `json:"average_probability"`
	Predictions        []PredictionSummary `json:"predictions"`
}

// GetInput represents the input arguments for the get_prediction tool.
type GetInput struct {
	ID string `json:"id" jsonschema:"the prediction ID"`
}

// GetOutput represents the output of the get_prediction tool.
type GetOutput struct {
	Prediction PredictionSummary `json:"prediction"`
	Customer   churn.Customer    `json:"customer"`
	Insights   []string          `json:"insights"`
}

// InsightsInput represents the input arguments for the churn_insights tool.
type InsightsInput struct {
	Probability     float64 `json:"churn_probability" jsonschema:"churn probability between 0 and 1"`
	Tenure          int     `json:"tenure,omitempty" jsonschema:"months as a customer"`
	Contract        string  `json:"contract,omitempty" jsonschema:"Month-to-month, One year or Two year"`
	InternetService string  `json:"internet_service,omitempty" jsonschema:"DSL, Fiber optic or No"`
	PaymentMethod   string  `json:"payment_method,omitempty" jsonschema:"payment method, e.g. Electronic check"`
	OnlineSecurity  string  `json:"online_security,omitempty" jsonschema:"Yes or No"`
	TechSupport     string  `json:"tech_support,omitempty" jsonschema:"Yes or No"`
	StreamingTV     string  `json:"streaming_tv,omitempty" jsonschema:"Yes or No"`
	StreamingMovies string  `json:"streaming_movies,omitempty" jsonschema:"Yes or No"`
}

// InsightsOutput represents the output of the churn_insights tool.
type InsightsOutput struct {
	RiskLevel      string   `json:"risk_level"`
	Badge          string   `json:"badge"`
	PredictedChurn bool     `json:"predicted_churn"`
	Insights       []string `json:"insights"`
}

func (s *Server) handleListPredictions(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	q, err := parseListInput(input)
	if err != nil {
		return errorResult(err.Error()), ListOutput{}, nil
	}

	s.config.Logger.Debug("MCP list predictions request",
		"search", q.Search,
		"risk", string(q.Risk),
		"sort", string(q.Sort),
	)

	all, err := s.config.Driver.List(ctx, q.Unfiltered())
	if err != nil {
		s.config.Logger.Error("failed to list predictions", "error", err)
		return errorResult(fmt.Sprintf("Failed to list predictions: %v", err)), ListOutput{}, nil
	}

	preds := q.Filter(all)
	stats := storage.Summarize(all)

	output := ListOutput{
		Count:              len(preds),
		Total:              stats.Total,
		HighRiskCount:      stats.HighRiskCount,
		AverageProbability: stats.AverageProbability,
		Predictions:        make([]PredictionSummary, 0, len(preds)),
	}
	for _, p := range preds {
		output.Predictions = append(output.Predictions, summarize(p))
	}

	return jsonResult(output), output, nil
}

func (s *Server) handleGetPrediction(ctx context.Context, _ *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, GetOutput, error) {
	p, err := s.config.Driver.Get(ctx, input.ID)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.config.Logger.Error("failed to get prediction", "prediction_id", input.ID, "error", err)
		}
		return errorResult(fmt.Sprintf("Failed to get prediction: %v", err)), GetOutput{}, nil
	}

	output := GetOutput{
		Prediction: summarize(p),
		Customer:   p.Customer,
		Insights:   p.Insights(),
	}
	return jsonResult(output), output, nil
}

func (s *Server) handleInsights(_ context.Context, _ *mcp.CallToolRequest, input InsightsInput) (*mcp.CallToolResult, InsightsOutput, error) {
	if input.Probability < 0 || input.Probability > 1 {
		return errorResult("churn_probability must be between 0 and 1"), InsightsOutput{}, nil
	}

	c := churn.Customer{
		Tenure:          input.Tenure,
		Contract:        input.Contract,
		InternetService: input.InternetService,
		PaymentMethod:   input.PaymentMethod,
		OnlineSecurity:  input.OnlineSecurity,
		TechSupport:     input.TechSupport,
		StreamingTV:     input.StreamingTV,
		StreamingMovies: input.StreamingMovies,
	}

	level := churn.Classify(input.Probability)
	output := InsightsOutput{
		RiskLevel:      string(level),
		Badge:          churn.Badge(level),
		PredictedChurn: churn.PredictedChurn(input.Probability),
		Insights:       churn.Insights(input.Probability, c),
	}
	return jsonResult(output), output, nil
}

func parseListInput(input ListInput) (storage.Query, error) {
	sort, err := storage.ParseSortField(input.Sort)
	if err != nil {
		return storage.Query{}, err
	}
	dir, err := storage.ParseSortDir(input.Dir)
	if err != nil {
		return storage.Query{}, err
	}
	risk, err := storage.ParseRiskFilter(input.Risk)
	if err != nil {
		return storage.Query{}, err
	}

	q := storage.Query{
		Search: input.Search,
		Risk:   risk,
		Sort:   sort,
		Dir:    dir,
		Limit:  input.Limit,
	}
	return q.Normalize(), nil
}

func summarize(p *churn.Prediction) PredictionSummary {
	return PredictionSummary{
		ID:              p.ID,
		SessionID:       p.SessionID,
		Probability:     p.Probability,
		RiskLevel:       string(p.RiskLevel),
		PredictedChurn:  p.PredictedChurn,
		Tenure:          p.Customer.Tenure,
		Contract:        p.Customer.Contract,
		InternetService: p.Customer.InternetService,
		MonthlyCharges:  p.Customer.MonthlyCharges,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}

// jsonResult serializes structured output into a TextContent block as well,
// for clients that only read text.
func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
