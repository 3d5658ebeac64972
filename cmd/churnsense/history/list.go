package historycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/api"
	apiclient "github.com/papercomputeco/churnsense/api/client"
	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/cliui"
)

const listLongDesc string = `List saved predictions with summary statistics.

Statistics cover every saved prediction; --search and --risk only narrow
the rows shown.

Sort fields: prediction_timestamp (default), churn_probability, tenure.
Risk filters: All (default), Low, Medium, High.

Examples:
  churnsense history list
  churnsense history list --risk High --limit 10
  churnsense history list --search fiber --sort tenure --dir asc
  churnsense history list --json`

const listShortDesc string = "List saved predictions"

type listCommander struct {
	target
	params  apiclient.ListParams
	jsonOut bool
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().StringVarP(&cmder.params.Search, "search", "q", "", "Match customer attributes or prediction IDs")
	cmd.Flags().StringVarP(&cmder.params.Risk, "risk", "r", "", "Filter by risk level (All, Low, Medium, High)")
	cmd.Flags().StringVar(&cmder.params.Sort, "sort", "", "Sort field")
	cmd.Flags().StringVar(&cmder.params.Dir, "dir", "", "Sort direction (asc, desc)")
	cmd.Flags().IntVarP(&cmder.params.Limit, "limit", "n", 0, "Maximum number of predictions to show")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

func (c *listCommander) run(cmd *cobra.Command) error {
	resp, err := c.client.List(cmd.Context(), c.params)
	if err != nil {
		return fmt.Errorf("listing predictions: %w", err)
	}

	out := cmd.OutOrStdout()
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	renderList(out, resp)
	return nil
}

func renderList(w io.Writer, resp *api.ListResponse) {
	s := resp.Stats
	lipgloss.Fprintf(w, "\n  %s %s   %s %s   %s %s\n\n",
		cliui.KeyStyle.Render("Total:"), cliui.ValueStyle.Render(strconv.Itoa(s.Total)),
		cliui.KeyStyle.Render("High risk:"), cliui.RiskText(churn.RiskHigh)+" "+cliui.ValueStyle.Render(strconv.Itoa(s.HighRiskCount)),
		cliui.KeyStyle.Render("Avg. probability:"), cliui.ValueStyle.Render(percent(s.AverageProbability)),
	)

	if len(resp.Predictions) == 0 {
		lipgloss.Fprintf(w, "  %s No predictions found.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	rows := make([][]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		rows = append(rows, []string{
			p.ID,
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
			percent(p.Probability),
			cliui.RiskText(p.RiskLevel),
			strconv.Itoa(p.Customer.Tenure),
			p.Customer.Contract,
			fmt.Sprintf("$%.2f", p.Customer.MonthlyCharges),
		})
	}

	lipgloss.Fprintln(w, cliui.Table(
		[]string{"ID", "Date", "Churn", "Risk", "Tenure", "Contract", "Monthly"},
		rows,
	))
	lipgloss.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("Showing %d of %d", resp.Count, resp.Total)))
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
