package api

import (
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
	"github.com/papercomputeco/churnsense/pkg/worker"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SaveRequest is the body of POST /predictions.
type SaveRequest struct {
	SessionID   string         `json:"session_id"`
	Customer    churn.Customer `json:"customer"`
	Probability float64        `json:"churn_probability"`
}

// PredictionResponse is a stored prediction with its retention insights.
type PredictionResponse struct {
	*churn.Prediction
	Insights []string `json:"insights"`
}

// ListResponse is the body of GET /predictions. Stats cover every fetched
// prediction, before the search and risk filters.
type ListResponse struct {
	Count       int                 `json:"count"`
	Total       int                 `json:"total"`
	Stats       storage.Summary     `json:"stats"`
	Predictions []*churn.Prediction `json:"predictions"`
}

// ReloadResponse carries the customer attributes of a stored prediction.
type ReloadResponse struct {
	ID       string         `json:"id"`
	Customer churn.Customer `json:"customer"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleSavePrediction stores a scored customer and publishes its event.
func (s *Server) handleSavePrediction(c *fiber.Ctx) error {
	var req SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid prediction payload"})
	}
	if math.IsNaN(req.Probability) || req.Probability < 0 || req.Probability > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "churn_probability must be between 0 and 1"})
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	p := churn.NewPrediction(uuid.NewString(), sessionID, req.Customer, req.Probability, time.Now())
	if err := s.driver.Put(c.UserContext(), p); err != nil {
		s.logger.Error("failed to save prediction", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save prediction"})
	}

	s.config.Metrics.PredictionSaved(string(p.RiskLevel))
	s.logger.Info("prediction saved",
		"prediction_id", p.ID,
		"session_id", p.SessionID,
		"risk_level", string(p.RiskLevel),
	)

	if s.config.Pool != nil {
		s.config.Pool.Enqueue(worker.Job{Prediction: p})
	}

	return c.Status(fiber.StatusCreated).JSON(PredictionResponse{
		Prediction: p,
		Insights:   p.Insights(),
	})
}

// handleListPredictions lists predictions with search, risk filter, sort
// and limit taken from the query string.
func (s *Server) handleListPredictions(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	all, err := s.driver.List(c.UserContext(), q.Unfiltered())
	if err != nil {
		s.logger.Error("failed to list predictions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list predictions"})
	}

	preds := q.Filter(all)
	return c.JSON(ListResponse{
		Count:       len(preds),
		Total:       len(all),
		Stats:       storage.Summarize(all),
		Predictions: preds,
	})
}

// handleGetPrediction returns one prediction with its insights.
func (s *Server) handleGetPrediction(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := s.driver.Get(c.UserContext(), id)
	if err != nil {
		return s.getError(c, id, err)
	}
	return c.JSON(PredictionResponse{Prediction: p, Insights: p.Insights()})
}

// handleReloadPrediction returns the customer of a prediction for
// pre-filling a new one.
func (s *Server) handleReloadPrediction(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := s.driver.Get(c.UserContext(), id)
	if err != nil {
		return s.getError(c, id, err)
	}
	return c.JSON(ReloadResponse{ID: p.ID, Customer: p.Reload()})
}

// handleDeletePrediction removes a prediction.
func (s *Server) handleDeletePrediction(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.driver.Delete(c.UserContext(), id); err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to delete prediction", "prediction_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete prediction"})
	}

	s.logger.Info("prediction deleted", "prediction_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// getError writes the response for a failed Get.
func (s *Server) getError(c *fiber.Ctx, id string, err error) error {
	if storage.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	}
	s.logger.Error("failed to get prediction", "prediction_id", id, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get prediction"})
}

func parseQuery(c *fiber.Ctx) (storage.Query, error) {
	sort, err := storage.ParseSortField(c.Query("sort"))
	if err != nil {
		return storage.Query{}, err
	}
	dir, err := storage.ParseSortDir(c.Query("dir"))
	if err != nil {
		return storage.Query{}, err
	}
	risk, err := storage.ParseRiskFilter(c.Query("risk"))
	if err != nil {
		return storage.Query{}, err
	}

	q := storage.Query{
		Search: c.Query("search"),
		Risk:   risk,
		Sort:   sort,
		Dir:    dir,
		Limit:  c.QueryInt("limit", 0),
	}
	return q.Normalize(), nil
}
