package predictcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

type stringAttr struct {
	name  string
	usage string
	field func(c *churn.Customer) *string
}

var stringAttrs = []stringAttr{
	{"gender", "Gender (Male, Female)", func(c *churn.Customer) *string { return &c.Gender }},
	{"partner", "Has a partner (Yes, No)", func(c *churn.Customer) *string { return &c.Partner }},
	{"dependents", "Has dependents (Yes, No)", func(c *churn.Customer) *string { return &c.Dependents }},
	{"contract", "Contract (Month-to-month, One year, Two year)", func(c *churn.Customer) *string { return &c.Contract }},
	{"payment-method", "Payment method (Electronic check, Mailed check, Bank transfer (automatic), Credit card (automatic))", func(c *churn.Customer) *string { return &c.PaymentMethod }},
	{"paperless-billing", "Paperless billing (Yes, No)", func(c *churn.Customer) *string { return &c.PaperlessBilling }},
	{"phone-service", "Phone service (Yes, No)", func(c *churn.Customer) *string { return &c.PhoneService }},
	{"multiple-lines", "Multiple lines (Yes, No, No phone service)", func(c *churn.Customer) *string { return &c.MultipleLines }},
	{"internet-service", "Internet service (DSL, Fiber optic, No)", func(c *churn.Customer) *string { return &c.InternetService }},
	{"online-security", "Online security (Yes, No, No internet service)", func(c *churn.Customer) *string { return &c.OnlineSecurity }},
	{"online-backup", "Online backup (Yes, No, No internet service)", func(c *churn.Customer) *string { return &c.OnlineBackup }},
	{"device-protection", "Device protection (Yes, No, No internet service)", func(c *churn.Customer) *string { return &c.DeviceProtection }},
	{"tech-support", "Tech support (Yes, No, No internet service)", func(c *churn.Customer) *string { return &c.TechSupport }},
	{"streaming-tv", "Streaming TV (Yes, No, No internet service)", func(c *churn.Customer) *string { return &c.StreamingTV }},
	{"streaming-movies", "Streaming movies (Yes, No, No internet service)", func(c *churn.Customer) *string { return &c.StreamingMovies }},
}

// addCustomerFlags registers one flag per customer attribute. Flags only
// override the base customer when set.
func addCustomerFlags(cmd *cobra.Command) {
	for _, a := range stringAttrs {
		cmd.Flags().String(a.name, "", a.usage)
	}
	cmd.Flags().Bool("senior-citizen", false, "Customer is 65 or older")
	cmd.Flags().Int("tenure", 0, "Months as a customer (0-72)")
	cmd.Flags().Float64("monthly-charges", 0, "Monthly charge in dollars")
	cmd.Flags().Float64("total-charges", 0, "Total charged to date (default: tenure * monthly charges)")
}

// applyCustomerFlags copies the attribute flags that were set onto c.
func applyCustomerFlags(cmd *cobra.Command, c *churn.Customer) error {
	flags := cmd.Flags()

	for _, a := range stringAttrs {
		if !flags.Changed(a.name) {
			continue
		}
		v, err := flags.GetString(a.name)
		if err != nil {
			return err
		}
		*a.field(c) = v
	}

	if flags.Changed("senior-citizen") {
		senior, err := flags.GetBool("senior-citizen")
		if err != nil {
			return err
		}
		c.SeniorCitizen = 0
		if senior {
			c.SeniorCitizen = 1
		}
	}
	if flags.Changed("tenure") {
		tenure, err := flags.GetInt("tenure")
		if err != nil {
			return err
		}
		c.Tenure = tenure
	}
	if flags.Changed("monthly-charges") {
		monthly, err := flags.GetFloat64("monthly-charges")
		if err != nil {
			return err
		}
		c.MonthlyCharges = monthly
	}
	if flags.Changed("total-charges") {
		total, err := flags.GetFloat64("total-charges")
		if err != nil {
			return err
		}
		c.TotalCharges = total
	}

	return nil
}
