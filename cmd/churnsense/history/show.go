package historycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/api"
	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/cliui"
)

const showShortDesc string = "Show a saved prediction"

const gaugeWidth = 30

type showCommander struct {
	target
	jsonOut bool
}

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the prediction as JSON")

	return cmd
}

func (c *showCommander) run(cmd *cobra.Command, id string) error {
	p, err := c.client.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("getting prediction %s: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	renderPrediction(out, p)
	return nil
}

func renderPrediction(w io.Writer, p *api.PredictionResponse) {
	lipgloss.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Prediction:"), cliui.NameStyle.Render(p.ID))
	if p.SessionID != "" {
		lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Session:   "), cliui.ValueStyle.Render(p.SessionID))
	}
	lipgloss.Fprintf(w, "  %s %s\n\n", cliui.KeyStyle.Render("Saved:     "), cliui.ValueStyle.Render(p.CreatedAt.Local().Format("2006-01-02 15:04:05")))

	lipgloss.Fprintf(w, "  %s  %s\n\n", cliui.GaugeBar(p.Probability, gaugeWidth), cliui.RiskBadge(p.RiskLevel))

	c := p.Customer
	senior := churn.No
	if c.SeniorCitizen == 1 {
		senior = churn.Yes
	}
	rows := [][]string{
		{"Gender", c.Gender},
		{"Senior citizen", senior},
		{"Partner", c.Partner},
		{"Dependents", c.Dependents},
		{"Tenure", strconv.Itoa(c.Tenure) + " months"},
		{"Contract", c.Contract},
		{"Payment method", c.PaymentMethod},
		{"Paperless billing", c.PaperlessBilling},
		{"Monthly charges", fmt.Sprintf("$%.2f", c.MonthlyCharges)},
		{"Total charges", fmt.Sprintf("$%.2f", c.TotalCharges)},
		{"Phone service", c.PhoneService},
		{"Multiple lines", c.MultipleLines},
		{"Internet service", c.InternetService},
		{"Online security", c.OnlineSecurity},
		{"Online backup", c.OnlineBackup},
		{"Device protection", c.DeviceProtection},
		{"Tech support", c.TechSupport},
		{"Streaming TV", c.StreamingTV},
		{"Streaming movies", c.StreamingMovies},
	}
	lipgloss.Fprintln(w, cliui.Table([]string{"Attribute", "Value"}, rows))

	if len(p.Insights) > 0 {
		lipgloss.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Retention insights"))
		for _, insight := range p.Insights {
			lipgloss.Fprintf(w, "    • %s\n", insight)
		}
	}
	lipgloss.Fprintln(w)
}
