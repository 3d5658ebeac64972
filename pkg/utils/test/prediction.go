package testutils

import (
	"time"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

// BaseTime is the timestamp NewTestPrediction offsets from.
var BaseTime = time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)

// NewTestCustomer creates a month-to-month fiber customer with the given
// tenure and monthly charge.
func NewTestCustomer(tenure int, monthly float64) churn.Customer {
	return churn.Customer{
		Gender:           "Male",
		SeniorCitizen:    0,
		Partner:          churn.No,
		Dependents:       churn.No,
		Tenure:           tenure,
		Contract:         churn.ContractMonthToMonth,
		PaymentMethod:    churn.PaymentElectronicCheck,
		PaperlessBilling: churn.Yes,
		MonthlyCharges:   monthly,
		PhoneService:     churn.Yes,
		MultipleLines:    churn.No,
		InternetService:  churn.InternetFiberOptic,
		OnlineSecurity:   churn.No,
		OnlineBackup:     churn.No,
		DeviceProtection: churn.No,
		TechSupport:      churn.No,
		StreamingTV:      churn.No,
		StreamingMovies:  churn.No,
	}
}

// NewTestPrediction creates a prediction for a test customer, created the
// given number of minutes after BaseTime.
func NewTestPrediction(id string, probability float64, minutes int) *churn.Prediction {
	return churn.NewPrediction(
		id,
		"test-session",
		NewTestCustomer(12, 70),
		probability,
		BaseTime.Add(time.Duration(minutes)*time.Minute),
	)
}
