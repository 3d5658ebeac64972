// Package churn holds the churn prediction domain: customer attributes, risk
// classification and the retention suggestions shown next to a prediction.
package churn

// Customer is the set of attributes the churn model scores. JSON field names
// match the inference endpoint's payload.
type Customer struct {
	// Demographics
	Gender        string `json:"gender"`
	SeniorCitizen int    `json:"SeniorCitizen"`
	Partner       string `json:"Partner"`
	Dependents    string `json:"Dependents"`

	// Account
	Tenure           int     `json:"tenure"`
	Contract         string  `json:"Contract"`
	PaymentMethod    string  `json:"PaymentMethod"`
	PaperlessBilling string  `json:"PaperlessBilling"`
	MonthlyCharges   float64 `json:"MonthlyCharges"`
	TotalCharges     float64 `json:"TotalCharges"`

	// Services
	PhoneService    string `json:"PhoneService"`
	MultipleLines   string `json:"MultipleLines"`
	InternetService string `json:"InternetService"`

	// Add-ons
	OnlineSecurity   string `json:"OnlineSecurity"`
	OnlineBackup     string `json:"OnlineBackup"`
	DeviceProtection string `json:"DeviceProtection"`
	TechSupport      string `json:"TechSupport"`
	StreamingTV      string `json:"StreamingTV"`
	StreamingMovies  string `json:"StreamingMovies"`
}

// NewCustomer returns the starting attributes of a new prediction: a male,
// non-senior, brand new month-to-month customer without any services.
func NewCustomer() Customer {
	return Customer{
		Gender:           "Male",
		Partner:          No,
		Dependents:       No,
		Contract:         ContractMonthToMonth,
		PaymentMethod:    PaymentElectronicCheck,
		PaperlessBilling: No,
		PhoneService:     No,
		MultipleLines:    No,
		InternetService:  No,
		OnlineSecurity:   No,
		OnlineBackup:     No,
		DeviceProtection: No,
		TechSupport:      No,
		StreamingTV:      No,
		StreamingMovies:  No,
	}
}

// DefaultMonthlyCharges is used when a stored record carries no monthly charge.
const DefaultMonthlyCharges = 65.0

// WithDerivedTotals returns a copy of c whose TotalCharges is tenure times the
// monthly charge when it was left at zero.
func (c Customer) WithDerivedTotals() Customer {
	if c.TotalCharges == 0 {
		c.TotalCharges = float64(c.Tenure) * c.MonthlyCharges
	}
	return c
}

// Common attribute values used by the insight rules.
const (
	ContractMonthToMonth   = "Month-to-month"
	InternetFiberOptic     = "Fiber optic"
	PaymentElectronicCheck = "Electronic check"
	Yes                    = "Yes"
	No                     = "No"
)
