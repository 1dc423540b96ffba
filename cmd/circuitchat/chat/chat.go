// Package chatcmder provides the chat command for sending circuit images and
// questions to a running circuitchat server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/circuitchat/pkg/client"
	"github.com/papercomputeco/circuitchat/pkg/cliui"
	"github.com/papercomputeco/circuitchat/pkg/config"
	"github.com/papercomputeco/circuitchat/pkg/dotdir"
	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/logger"
	"github.com/papercomputeco/circuitchat/pkg/prompt"
	"github.com/papercomputeco/circuitchat/pkg/relay"
	"github.com/papercomputeco/circuitchat/pkg/sections"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("circuitchat> ")
)

type chatCommander struct {
	target    string
	preset    string
	images    []string
	render    bool
	raw       bool
	fresh     bool
	configDir string
	debug     bool

	out    io.Writer
	in     io.Reader
	logger *slog.Logger
}

const chatLongDesc string = `Chat with a running circuitchat server.

Each --image is sent as its own turn: the server answers for every image in
order, then streams the answers back as one response. Local files are sent
as data-URLs; http(s) URLs are passed through.

With a message argument the command sends one request and exits. Without
one it starts an interactive session. The conversation is saved in the
.circuitchat/ directory and resumed by the next session; use --new to start
over.

Examples:
  circuitchat chat --image board.jpg
  circuitchat chat --image front.jpg --image back.jpg "Which part is U3?"
  circuitchat chat --preset summary "What does this filter do?"
  circuitchat chat --render --preset schematic --image amp.png`

const chatShortDesc string = "Chat with a circuitchat server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed(config.Flags[config.FlagTarget].Name) {
				cmder.target = cfg.Client.Target
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			cmder.in = cmd.InOrStdin()
			cmder.logger = logger.New(logger.WithDebug(cmder.debug), logger.WithPretty(true), logger.WithWriter(cmd.ErrOrStderr()))

			if len(args) == 1 {
				return cmder.once(cmd.Context(), args[0])
			}
			return cmder.interactive(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Prompt preset (default: the server's default preset)")
	cmd.Flags().StringArrayVarP(&cmder.images, "image", "i", nil, "Image file or URL, one turn each (repeatable)")
	cmd.Flags().BoolVarP(&cmder.render, "render", "r", false, "Render the finished answer section by section")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Write the raw event stream to stdout")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Discard the saved conversation")

	return cmd
}

func (c *chatCommander) newClient() *client.Client {
	cfg := client.Config{Target: c.target, Logger: c.logger}
	if c.raw {
		cfg.Tee = c.out
	}
	return client.New(cfg)
}

// once sends a single message and saves the exchange.
func (c *chatCommander) once(ctx context.Context, text string) error {
	conv, err := c.loadConversation()
	if err != nil {
		return err
	}

	images, err := LoadImages(c.images)
	if err != nil {
		return err
	}

	answer, err := c.send(ctx, c.newClient(), conv, text, images)
	if err != nil {
		return err
	}

	return c.saveConversation(conv, text, answer)
}

// interactive reads messages from the input until EOF or /exit. Images
// given on the command line go with the first message only.
func (c *chatCommander) interactive(ctx context.Context) error {
	conv, err := c.loadConversation()
	if err != nil {
		return err
	}

	images, err := LoadImages(c.images)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	if len(conv.Messages) > 0 {
		fmt.Fprintf(c.out, "  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(conv.Messages))),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Server:"), cliui.NameStyle.Render(c.target))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	cl := c.newClient()
	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" && len(images) == 0 {
			continue
		}
		if input == "/exit" {
			break
		}

		answer, err := c.send(ctx, cl, conv, input, images)
		if err != nil {
			fmt.Fprintf(c.out, "\n  %s %v\n\n", cliui.FailMark, err)
			continue
		}
		images = nil

		if err := c.saveConversation(conv, input, answer); err != nil {
			return err
		}
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// send posts one request built from the conversation so far and prints the
// answer. It returns the full answer text.
func (c *chatCommander) send(ctx context.Context, cl *client.Client, conv *dotdir.Conversation, text string, images []string) (string, error) {
	req := NewRequest(conv, text, images, c.preset)

	c.logger.Debug("sending chat request",
		"target", c.target,
		"history", len(req.History),
		"images", len(req.Images),
	)

	if c.raw {
		return cl.Chat(ctx, req, nil)
	}

	if !c.render {
		fmt.Fprint(c.out, assistantPrompt)
		answer, err := cl.Chat(ctx, req, func(delta string) {
			fmt.Fprint(c.out, delta)
		})
		fmt.Fprintln(c.out)
		return answer, err
	}

	var answer string
	err := cliui.Step(c.out, "Waiting for the answer", func() error {
		var err error
		answer, err = cl.Chat(ctx, req, nil)
		return err
	})
	if err != nil {
		return "", err
	}

	fmt.Fprintln(c.out)
	fmt.Fprint(c.out, Render(answer, c.layout()))
	return answer, nil
}

// layout is the section layout of the selected preset. Presets defined only
// in server-side overrides have no known layout.
func (c *chatCommander) layout() sections.Layout {
	inst, err := prompt.NewRegistry("").Get(c.preset)
	if err != nil {
		return nil
	}
	return inst.Layout()
}

func (c *chatCommander) loadConversation() (*dotdir.Conversation, error) {
	ddm := dotdir.NewManager()
	if c.fresh {
		if err := ddm.ClearConversation(c.configDir); err != nil {
			return nil, fmt.Errorf("clearing conversation: %w", err)
		}
	}

	conv, err := ddm.LoadConversation(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv == nil {
		conv = &dotdir.Conversation{Preset: c.preset}
	}
	return conv, nil
}

func (c *chatCommander) saveConversation(conv *dotdir.Conversation, text, answer string) error {
	conv.Messages = append(conv.Messages,
		dotdir.ConversationMessage{Role: llm.RoleUser, Content: text},
		dotdir.ConversationMessage{Role: llm.RoleAssistant, Content: answer},
	)
	if err := dotdir.NewManager().SaveConversation(conv, c.configDir); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// NewRequest builds a chat request carrying the saved conversation as
// history.
func NewRequest(conv *dotdir.Conversation, text string, images []string, preset string) *relay.Request {
	req := &relay.Request{
		Text:   text,
		Images: images,
		Preset: preset,
	}
	if req.Preset == "" && conv != nil {
		req.Preset = conv.Preset
	}
	if conv != nil {
		for _, msg := range conv.Messages {
			req.History = append(req.History, relay.Message{Role: msg.Role, Content: msg.Content})
		}
	}
	return req
}

// LoadImages turns image arguments into request images: http(s) URLs and
// data-URLs are kept, anything else is read as a local file.
func LoadImages(args []string) ([]string, error) {
	images := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"), strings.HasPrefix(arg, "data:"):
			images = append(images, arg)
		default:
			data, err := os.ReadFile(arg)
			if err != nil {
				return nil, fmt.Errorf("reading image: %w", err)
			}
			images = append(images, llm.EncodeDataURL(data))
		}
	}
	return images, nil
}

// Render formats a finished answer for the terminal.
func Render(answer string, layout sections.Layout) string {
	if sections.IsRefusal(answer) {
		return cliui.RenderRefusal()
	}
	if layout == nil {
		if strings.HasSuffix(answer, "\n") {
			return answer
		}
		return answer + "\n"
	}
	secs := sections.Parse(answer, layout)
	out := cliui.RenderSections(secs)
	if !sections.InOrder(secs, layout) {
		out += cliui.RenderOrderWarning(layout)
	}
	return out
}
