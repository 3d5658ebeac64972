package churn

import "time"

// Prediction is a saved churn prediction for one customer.
type Prediction struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Customer       Customer  `json:"customer"`
	Probability    float64   `json:"churn_probability"`
	PredictedChurn bool      `json:"predicted_churn"`
	RiskLevel      RiskLevel `json:"risk_level"`
	CreatedAt      time.Time `json:"prediction_timestamp"`
}

// NewPrediction scores a customer at probability p, deriving the risk level,
// churn outcome and total charges.
func NewPrediction(id, sessionID string, c Customer, p float64, at time.Time) *Prediction {
	return &Prediction{
		ID:             id,
		SessionID:      sessionID,
		Customer:       c.WithDerivedTotals(),
		Probability:    p,
		PredictedChurn: PredictedChurn(p),
		RiskLevel:      Classify(p),
		CreatedAt:      at.UTC(),
	}
}

// Reload returns the customer attributes for pre-filling a new prediction.
func (p *Prediction) Reload() Customer {
	c := p.Customer
	if c.MonthlyCharges == 0 {
		c.MonthlyCharges = DefaultMonthlyCharges
	}
	return c
}

// Insights returns retention suggestions for this prediction.
func (p *Prediction) Insights() []string {
	return Insights(p.Probability, p.Customer)
}
