// Package chatcmder provides the chat command for talking to ChurnBot
// through the churnsense proxy.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/pkg/chat"
	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/pkg/dotdir"
	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Render("churnbot> ")
)

// shownQuickQuestions is how many suggestions /quick lists.
const shownQuickQuestions = 8

type chatCommander struct {
	flags struct {
		proxyTarget string
	}

	configDir string
	newChat   bool
	raw       bool
	debug     bool

	viper  *viper.Viper
	logger *slog.Logger
	dotdir *dotdir.Manager
}

const chatLongDesc string = `Start an interactive chat with ChurnBot through the churnsense proxy.

ChurnBot answers questions about ChurnSense AI: the model, its features,
risk levels and how to act on a prediction. Replies stream in as they are
generated. On a terminal each finished reply is rendered as markdown; use
--raw to print the plain stream instead.

The conversation is kept in the churnsense directory (chat.json) and resumed
on the next run. Use --new to start over.

Commands:
  /quick       List suggested questions
  /quick <n>   Ask suggested question n
  /new         Start a new conversation
  /exit        Quit (or Ctrl+D)

Examples:
  churnsense chat
  churnsense chat --new
  echo "What drives customer churn?" | churnsense chat`

const chatShortDesc string = "Chat with ChurnBot"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, err = config.InitCommandViper(cmd, config.Flags, []string{config.FlagProxyTarget})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
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
	cmd.Flags().BoolVar(&cmder.newChat, "new", false, "Discard the saved conversation and start a new one")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies as they stream instead of rendering markdown")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	c.dotdir = dotdir.NewManager()
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if c.newChat {
		if err := c.dotdir.ClearChatState(c.configDir); err != nil {
			return fmt.Errorf("clearing chat state: %w", err)
		}
	}

	state, err := c.dotdir.LoadChatState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading chat state: %w", err)
	}

	endpoint := strings.TrimRight(c.viper.GetString("client.proxy_target"), "/") + "/chat"
	client := chat.NewClient(chat.Config{
		Endpoint: endpoint,
		Logger:   c.logger,
	})

	session := c.resume(out, client, state)
	lipgloss.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Endpoint:"), cliui.NameStyle.Render(endpoint))
	lipgloss.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /quick for suggestions, /exit or Ctrl+D to quit."))

	render := !c.raw && cliui.IsTerminal(out)
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		lipgloss.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "/exit":
			lipgloss.Fprintln(out)
			return nil

		case input == "/new":
			if err := c.dotdir.ClearChatState(c.configDir); err != nil {
				return fmt.Errorf("clearing chat state: %w", err)
			}
			session = chat.NewSession(client, c.logger)
			lipgloss.Fprintf(out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue

		case input == "/quick":
			printQuickQuestions(out)
			continue

		case strings.HasPrefix(input, "/quick "):
			q, err := quickQuestion(strings.TrimSpace(strings.TrimPrefix(input, "/quick ")))
			if err != nil {
				lipgloss.Fprintf(cmd.ErrOrStderr(), "  %s %v\n", cliui.FailMark, err)
				continue
			}
			lipgloss.Fprintf(out, "%s\n", q)
			input = q
		}

		if err := c.turn(ctx, out, session, input, render); err != nil {
			lipgloss.Fprintf(cmd.ErrOrStderr(), "  %s %v\n", cliui.FailMark, err)
		}

		if err := c.save(session); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	lipgloss.Fprintln(out)
	return nil
}

// resume continues the saved conversation, or starts a new one when there
// is none.
func (c *chatCommander) resume(w io.Writer, client *chat.Client, state *dotdir.ChatState) *chat.Session {
	lipgloss.Fprintln(w)
	if state == nil || len(state.Messages) == 0 {
		lipgloss.Fprintf(w, "  %s New conversation\n", cliui.DimStyle.Render("●"))
		return chat.NewSession(client, c.logger)
	}

	msgs := make([]chat.Message, 0, len(state.Messages))
	for _, m := range state.Messages {
		msgs = append(msgs, chat.Message{Role: m.Role, Content: m.Content})
	}

	lipgloss.Fprintf(w, "  %s Resuming %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(utils.Truncate(state.SessionID, 13)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(msgs))),
	)
	last := msgs[len(msgs)-1]
	lipgloss.Fprintf(w, "  %s %s\n",
		cliui.DimStyle.Render("["+last.Role+"]"),
		cliui.DimStyle.Render(utils.Truncate(last.Content, 72)),
	)

	return chat.ResumeSession(client, state.SessionID, msgs, c.logger)
}

// turn sends one message and prints the reply. Raw mode prints each new
// fragment as it arrives; otherwise the finished reply is rendered as
// markdown.
func (c *chatCommander) turn(ctx context.Context, w io.Writer, session *chat.Session, input string, render bool) error {
	if !render {
		lipgloss.Fprint(w, assistantPrompt)
		printed := 0
		reply, err := session.Send(ctx, input, func(message string) {
			if len(message) > printed {
				lipgloss.Fprint(w, message[printed:])
				printed = len(message)
			}
		})
		if err != nil {
			if reply != "" {
				lipgloss.Fprintln(w)
			}
			lipgloss.Fprint(w, chat.FallbackMessage)
		}
		lipgloss.Fprint(w, "\n\n")
		return err
	}

	var reply string
	err := cliui.Step(w, "ChurnBot is typing", func() error {
		var err error
		reply, err = session.Send(ctx, input, nil)
		return err
	})
	if err != nil {
		reply = strings.TrimSpace(reply + "\n\n" + chat.FallbackMessage)
	}

	rendered, rerr := cliui.RenderMarkdown(reply, cliui.Width(w), true)
	if rerr != nil {
		c.logger.Debug("markdown rendering failed", "error", rerr)
		rendered = reply + "\n"
	}
	lipgloss.Fprint(w, rendered)
	return err
}

func (c *chatCommander) save(session *chat.Session) error {
	msgs := session.Transcript().Messages()
	state := &dotdir.ChatState{
		SessionID: session.ID(),
		Messages:  make([]dotdir.ChatMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		state.Messages = append(state.Messages, dotdir.ChatMessage{Role: m.Role, Content: m.Content})
	}

	if err := c.dotdir.SaveChatState(state, c.configDir); err != nil {
		return fmt.Errorf("saving chat state: %w", err)
	}
	return nil
}

func printQuickQuestions(w io.Writer) {
	lipgloss.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Suggested questions"))
	for i, q := range chat.QuickQuestions[:min(shownQuickQuestions, len(chat.QuickQuestions))] {
		lipgloss.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)), q)
	}
	lipgloss.Fprintln(w)
}

func quickQuestion(arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(chat.QuickQuestions) {
		return "", fmt.Errorf("no suggested question %q (1-%d)", arg, len(chat.QuickQuestions))
	}
	return chat.QuickQuestions[n-1], nil
}
