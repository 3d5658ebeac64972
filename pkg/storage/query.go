package storage

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

// SortField names a column predictions can be ordered by.
type SortField string

const (
	SortByTimestamp   SortField = "prediction_timestamp"
	SortByProbability SortField = "churn_probability"
	SortByTenure      SortField = "tenure"
)

// SortDir is the ordering direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

const (
	// DefaultLimit is the page size used when a query carries none.
	DefaultLimit = 200

	// MaxLimit caps the page size of any query.
	MaxLimit = 1000
)

// RiskAll is the risk filter value that matches every level.
const RiskAll = "All"

// Query selects, orders and limits predictions.
type Query struct {
	// Search is a case-insensitive substring matched against contract,
	// internet service and gender.
	Search string

	// Risk restricts results to one risk level. Empty matches all levels.
	Risk churn.RiskLevel

	// Sort is the field to order by. Defaults to SortByTimestamp.
	Sort SortField

	// Dir is the ordering direction. Defaults to Desc.
	Dir SortDir

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int
}

// ParseSortField validates a sort field name. Empty selects the default.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.TrimSpace(s)); f {
	case "":
		return SortByTimestamp, nil
	case SortByTimestamp, SortByProbability, SortByTenure:
		return f, nil
	default:
		return "", fmt.Errorf("invalid sort field %q", s)
	}
}

// ParseSortDir validates a sort direction. Empty selects the default.
func ParseSortDir(s string) (SortDir, error) {
	switch d := SortDir(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Desc, nil
	case Asc, Desc:
		return d, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q", s)
	}
}

// ParseRiskFilter validates a risk filter. Empty and "All" match every level.
func ParseRiskFilter(s string) (churn.RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", strings.ToLower(RiskAll):
		return "", nil
	case "low":
		return churn.RiskLow, nil
	case "medium":
		return churn.RiskMedium, nil
	case "high":
		return churn.RiskHigh, nil
	default:
		return "", fmt.Errorf("invalid risk filter %q", s)
	}
}

// Normalize fills defaults and clamps the limit.
func (q Query) Normalize() Query {
	if q.Sort == "" {
		q.Sort = SortByTimestamp
	}
	if q.Dir == "" {
		q.Dir = Desc
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Unfiltered returns q without its search and risk filters.
func (q Query) Unfiltered() Query {
	q.Search = ""
	q.Risk = ""
	return q
}

// Matches reports whether p passes the search and risk filters of q.
func (q Query) Matches(p *churn.Prediction) bool {
	if q.Risk != "" && p.RiskLevel != q.Risk {
		return false
	}
	if q.Search == "" {
		return true
	}

	needle := strings.ToLower(q.Search)
	for _, hay := range []string{p.Customer.Contract, p.Customer.InternetService, p.Customer.Gender} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// Filter returns the predictions matching q's filters, in their input order.
func (q Query) Filter(preds []*churn.Prediction) []*churn.Prediction {
	out := make([]*churn.Prediction, 0, len(preds))
	for _, p := range preds {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Apply filters, sorts and limits preds in memory. The input is not modified.
// Ties are broken by ID so the order is deterministic.
func (q Query) Apply(preds []*churn.Prediction) []*churn.Prediction {
	q = q.Normalize()
	out := q.Filter(preds)

	slices.SortStableFunc(out, func(a, b *churn.Prediction) int {
		c := q.compare(a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if q.Dir == Desc {
			return -c
		}
		return c
	})

	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (q Query) compare(a, b *churn.Prediction) int {
	switch q.Sort {
	case SortByProbability:
		return cmp.Compare(a.Probability, b.Probability)
	case SortByTenure:
		return cmp.Compare(a.Customer.Tenure, b.Customer.Tenure)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Summary aggregates a page of predictions.
type Summary struct {
	Total              int     `json:"total"`
	HighRiskCount      int     `json:"high_risk_count"`
	AverageProbability float64 `json:"average_probability"`
}

// Summarize computes the summary of preds. An empty slice averages to zero.
func Summarize(preds []*churn.Prediction) Summary {
	s := Summary{Total: len(preds)}
	if len(preds) == 0 {
		return s
	}

	var sum float64
	for _, p := range preds {
		sum += p.Probability
		if p.RiskLevel == churn.RiskHigh {
			s.HighRiskCount++
		}
	}
	s.AverageProbability = sum / float64(len(preds))
	return s
}
