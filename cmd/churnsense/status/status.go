// Package statuscmder provides the status command for checking the churnsense
// services and the saved ChurnBot conversation.
package statuscmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/pkg/dotdir"
	"github.com/papercomputeco/churnsense/pkg/utils"
	"github.com/papercomputeco/churnsense/proxy"
)

const statusLongDesc string = `Show the state of churnsense.

Checks that the proxy and its inference endpoint are healthy, that the
history API answers, and shows the ChurnBot conversation the next
"churnsense chat" resumes.

Examples:
  churnsense status
  churnsense status --proxy-target http://proxy:8080 --api-target http://api:8081`

const statusShortDesc string = "Show service health and chat state"

const checkTimeout = 5 * time.Second

type statusCommander struct {
	flags struct {
		proxyTarget string
		apiTarget   string
	}

	configDir string
	viper     *viper.Viper
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, err = config.InitCommandViper(cmd, config.Flags, []string{
				config.FlagProxyTarget,
				config.FlagAPITarget,
			})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyTarget, &cmder.flags.proxyTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.flags.apiTarget)

	return cmd
}

func (c *statusCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()
	client := &http.Client{Timeout: checkTimeout}

	proxyTarget := strings.TrimRight(c.viper.GetString("client.proxy_target"), "/")
	apiTarget := strings.TrimRight(c.viper.GetString("client.api_target"), "/")

	lipgloss.Fprintln(w)

	health, err := checkProxy(ctx, client, proxyTarget)
	printCheck(w, "Proxy", proxyTarget, err)
	if err == nil {
		var herr error
		if health.Status != "ok" {
			herr = errors.New(health.Error)
		}
		printCheck(w, "Inference", inferenceDetail(health), herr)
	}

	printCheck(w, "History API", apiTarget, checkAPI(ctx, client, apiTarget))
	lipgloss.Fprintln(w)

	return c.printChat(w)
}

func (c *statusCommander) printChat(w io.Writer) error {
	state, err := dotdir.NewManager().LoadChatState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading chat state: %w", err)
	}

	if state == nil || len(state.Messages) == 0 {
		lipgloss.Fprintf(w, "  %s No saved conversation. Next chat will start a new one.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	lipgloss.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Chat session:"), cliui.NameStyle.Render(state.SessionID))
	lipgloss.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render("Messages:    "), cliui.ValueStyle.Render(strconv.Itoa(len(state.Messages))))

	for i, msg := range state.Messages {
		preview := utils.Truncate(msg.Content, 72)
		lipgloss.Fprintf(w, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.StepStyle.Render("["+msg.Role+"]"),
			preview,
		)
	}

	lipgloss.Fprintln(w)
	return nil
}

func checkProxy(ctx context.Context, client *http.Client, target string) (*proxy.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// An unhealthy inference endpoint is reported with a 502 body.
	h := &proxy.HealthResponse{}
	if err := json.NewDecoder(resp.Body).Decode(h); err != nil || h.Status == "" {
		return nil, fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	return h, nil
}

func checkAPI(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func inferenceDetail(h *proxy.HealthResponse) string {
	if h.Inference == nil {
		return h.Status
	}
	if h.Inference.ModelFeaturesCount > 0 {
		return fmt.Sprintf("%s (%d model features)", h.Inference.Status, h.Inference.ModelFeaturesCount)
	}
	return h.Inference.Status
}

func printCheck(w io.Writer, name, detail string, err error) {
	if err != nil {
		lipgloss.Fprintf(w, "  %s %-12s %s %s\n", cliui.FailMark, name, cliui.DimStyle.Render(detail), err)
		return
	}
	lipgloss.Fprintf(w, "  %s %-12s %s\n", cliui.SuccessMark, name, cliui.DimStyle.Render(detail))
}
