package churn

// MaxInsights caps the number of suggestions returned by Insights.
const MaxInsights = 4

// Insights returns rule-based retention suggestions for a customer scored at
// probability p, at most MaxInsights of them, in priority order.
func Insights(p float64, c Customer) []string {
	var out []string

	switch Classify(p) {
	case RiskHigh:
		if c.Contract == ContractMonthToMonth {
			out = append(out, "Offer a discounted 1 or 2-year contract to boost retention immediately.")
		}
		if c.InternetService == InternetFiberOptic {
			out = append(out, "Fiber optic customers churn more. Check for service quality issues or competitor pricing.")
		}
		if c.Tenure < 12 {
			out = append(out, "New customer at high risk. Trigger an onboarding engagement campaign now.")
		}
		if c.TechSupport == No {
			out = append(out, "Enable Tech Support access. It significantly reduces churn for at-risk customers.")
		}
		if c.OnlineSecurity == No {
			out = append(out, "Bundle Online Security as a free trial. It's a high-impact retention lever.")
		}
		if len(out) < 3 {
			out = append(out,
				"Assign a dedicated account manager to proactively engage this customer.",
				"Provide a personalized loyalty reward or bill credit to re-establish goodwill.",
			)
		}

	case RiskMedium:
		if c.PaymentMethod == PaymentElectronicCheck {
			out = append(out, "Encourage auto-pay setup. Electronic check users churn at higher rates.")
		}
		if c.StreamingTV == No && c.StreamingMovies == No {
			out = append(out, "Introduce streaming bundles. Entertainment add-ons increase stickiness.")
		}
		if c.Contract == ContractMonthToMonth {
			out = append(out, "Send a proactive contract upgrade offer with a modest incentive.")
		}
		if len(out) < 2 {
			out = append(out,
				"Schedule a mid-cycle check-in to ensure the customer's needs are met.",
				"Send satisfaction survey and respond promptly to any concerns raised.",
			)
		}

	default:
		out = append(out, "This customer shows strong loyalty indicators. Great candidate for upselling premium services.")
		if c.StreamingTV == No {
			out = append(out, "Offer Streaming TV as an upgrade. High satisfaction customers accept add-ons readily.")
		}
		out = append(out, "Consider enrolling them in a referral program to expand your customer base.")
	}

	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}
