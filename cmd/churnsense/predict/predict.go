// Package predictcmder provides the predict command for scoring a customer's
// churn risk.
package predictcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/api"
	apiclient "github.com/papercomputeco/churnsense/api/client"
	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/pkg/inference"
	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/proxy"
)

const gaugeWidth = 30

type predictCommander struct {
	flags struct {
		proxyTarget  string
		apiTarget    string
		inferenceURL string
	}

	file      string
	reloadID  string
	direct    bool
	save      bool
	sessionID string
	jsonOut   bool
	debug     bool

	viper  *viper.Viper
	logger *slog.Logger
}

var predictFlags = []string{
	config.FlagProxyTarget,
	config.FlagAPITarget,
	config.FlagInferenceURL,
}

// output is the --json rendering of a prediction.
type output struct {
	Customer    churn.Customer    `json:"customer"`
	Prediction  *inference.Result `json:"prediction"`
	Insights    []string          `json:"insights"`
	SavedID     string            `json:"saved_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	ScoredVia   string            `json:"scored_via"`
	ElapsedSecs float64           `json:"elapsed_seconds"`
}

const predictLongDesc string = `Score a customer's churn risk.

The customer starts from a new month-to-month customer without services,
a JSON file (--file, "-" for stdin) or a saved prediction (--reload <id>).
Attribute flags override individual fields. Total charges default to
tenure times monthly charges.

By default the customer is scored through the churnsense proxy. Use --direct
to call the inference API yourself; a sleeping model is woken up first.

Examples:
  churnsense predict --tenure 2 --contract Month-to-month --internet-service "Fiber optic" --monthly-charges 95
  churnsense predict --file customer.json --save
  churnsense predict --reload 6f1c... --contract "Two year"`

const predictShortDesc string = "Score a customer's churn risk"

func NewPredictCmd() *cobra.Command {
	cmder := &predictCommander{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: predictShortDesc,
		Long:  predictLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, err = config.InitCommandViper(cmd, config.Flags, predictFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyTarget, &cmder.flags.proxyTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.flags.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagInferenceURL, &cmder.flags.inferenceURL)
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", `Read the customer from a JSON file ("-" for stdin)`)
	cmd.Flags().StringVarP(&cmder.reloadID, "reload", "r", "", "Start from the customer of a saved prediction")
	cmd.Flags().BoolVar(&cmder.direct, "direct", false, "Call the inference API instead of the proxy")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Save the prediction to the history API")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session ID to save the prediction under")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")
	addCustomerFlags(cmd)

	return cmd
}

func (c *predictCommander) run(cmd *cobra.Command) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	cfg := config.FromViper(c.viper)

	customer, err := c.baseCustomer(ctx, cmd.InOrStdin(), cfg.Client.APITarget)
	if err != nil {
		return err
	}
	if err := applyCustomerFlags(cmd, &customer); err != nil {
		return err
	}
	customer = customer.WithDerivedTotals()

	var (
		result   *inference.Result
		insights []string
		via      string
	)
	start := time.Now()
	err = c.step(cmd.ErrOrStderr(), "Scoring customer", func() error {
		var err error
		if c.direct {
			via = cfg.Proxy.InferenceURL
			result, err = c.predictDirect(ctx, cfg.Proxy.InferenceURL, customer)
			if err == nil {
				insights = churn.Insights(result.Probability, customer)
			}
			return err
		}
		via = cfg.Client.ProxyTarget
		result, insights, err = predictViaProxy(ctx, cfg.Client.ProxyTarget, customer)
		return err
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	o := output{
		Customer:    customer,
		Prediction:  result,
		Insights:    insights,
		ScoredVia:   via,
		ElapsedSecs: elapsed.Seconds(),
	}

	if c.save {
		saved, err := apiclient.New(cfg.Client.APITarget, 0).Save(ctx, api.SaveRequest{
			SessionID:   c.sessionID,
			Customer:    customer,
			Probability: result.Probability,
		})
		if err != nil {
			return fmt.Errorf("saving prediction: %w", err)
		}
		o.SavedID = saved.ID
		o.SessionID = saved.SessionID
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	render(out, o)
	return nil
}

// baseCustomer returns the customer the attribute flags are applied to.
func (c *predictCommander) baseCustomer(ctx context.Context, stdin io.Reader, apiTarget string) (churn.Customer, error) {
	switch {
	case c.reloadID != "" && c.file != "":
		return churn.Customer{}, errors.New("--reload and --file are mutually exclusive")

	case c.reloadID != "":
		reload, err := apiclient.New(apiTarget, 0).Reload(ctx, c.reloadID)
		if err != nil {
			return churn.Customer{}, fmt.Errorf("reloading prediction %s: %w", c.reloadID, err)
		}
		customer := reload.Customer
		// Totals are derived again from the possibly edited tenure and charge.
		customer.TotalCharges = 0
		return customer, nil

	case c.file != "":
		r := stdin
		if c.file != "-" {
			f, err := os.Open(c.file)
			if err != nil {
				return churn.Customer{}, fmt.Errorf("opening customer file: %w", err)
			}
			defer f.Close()
			r = f
		}

		customer := churn.NewCustomer()
		if err := json.NewDecoder(r).Decode(&customer); err != nil {
			return churn.Customer{}, fmt.Errorf("decoding customer: %w", err)
		}
		return customer, nil

	default:
		return churn.NewCustomer(), nil
	}
}

func (c *predictCommander) predictDirect(ctx context.Context, baseURL string, customer churn.Customer) (*inference.Result, error) {
	client := inference.NewClient(inference.Config{BaseURL: baseURL})

	if err := client.Warm(ctx); err != nil {
		c.logger.Debug("inference warm-up failed", "error", err)
	}

	return client.Predict(ctx, customer)
}

// predictViaProxy scores customer with the proxy's POST /predict.
func predictViaProxy(ctx context.Context, proxyTarget string, customer churn.Customer) (*inference.Result, []string, error) {
	body, err := json.Marshal(customer)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling customer: %w", err)
	}

	url := strings.TrimRight(proxyTarget, "/") + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: inference.DefaultTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sending request to proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e proxy.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return nil, nil, fmt.Errorf("proxy returned status %d: %s", resp.StatusCode, e.Error)
	}

	var pr proxy.PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, nil, fmt.Errorf("decoding prediction: %w", err)
	}
	if pr.Prediction == nil {
		return nil, nil, errors.New("proxy returned no prediction")
	}
	return pr.Prediction, pr.Insights, nil
}

// step runs fn behind a spinner when stderr is a terminal.
func (c *predictCommander) step(w io.Writer, msg string, fn func() error) error {
	if c.jsonOut || !cliui.IsTerminal(w) {
		return fn()
	}
	return cliui.Step(w, msg, fn)
}

func render(w io.Writer, o output) {
	r := o.Prediction
	level := churn.Classify(r.Probability)

	lipgloss.Fprintf(w, "\n  %s  %s\n\n", cliui.GaugeBar(r.Probability, gaugeWidth), cliui.RiskBadge(level))

	outcome := "Likely to stay"
	if r.PredictedChurn {
		outcome = "Likely to churn"
	}
	lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Outcome:"), cliui.ValueStyle.Render(outcome))
	if r.Status != "" {
		lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Model status:"), cliui.ValueStyle.Render(r.Status))
	}
	lipgloss.Fprintf(w, "  %s %s\n",
		cliui.KeyStyle.Render("Scored by:"),
		cliui.DimStyle.Render(fmt.Sprintf("%s (%s)", o.ScoredVia, cliui.FormatDuration(time.Duration(o.ElapsedSecs*float64(time.Second))))),
	)

	if len(o.Insights) > 0 {
		lipgloss.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Retention insights"))
		for _, insight := range o.Insights {
			lipgloss.Fprintf(w, "    • %s\n", insight)
		}
	}
	for _, rec := range r.Recommendations {
		lipgloss.Fprintf(w, "    • %s\n", cliui.DimStyle.Render(rec))
	}

	if o.SavedID != "" {
		lipgloss.Fprintf(w, "\n  %s Saved as %s\n", cliui.SuccessMark, cliui.NameStyle.Render(o.SavedID))
	}
	lipgloss.Fprintln(w)
}
