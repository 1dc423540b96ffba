// Package translatecmder provides the translate command that translates the
// SCHEMATIC, PCB and BOM sections of a design answer.
package translatecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/circuitchat/pkg/client"
	"github.com/papercomputeco/circuitchat/pkg/cliui"
	"github.com/papercomputeco/circuitchat/pkg/config"
	"github.com/papercomputeco/circuitchat/pkg/dotdir"
	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/logger"
	"github.com/papercomputeco/circuitchat/pkg/sections"
	"github.com/papercomputeco/circuitchat/pkg/translate"
)

// errNoDocument is returned when there is nothing to translate.
var errNoDocument = errors.New("no SCHEMATIC, PCB or BOM section to translate")

type translateCommander struct {
	target    string
	language  string
	file      string
	stream    bool
	configDir string
	debug     bool

	out    io.Writer
	in     io.Reader
	logger *slog.Logger
}

const translateLongDesc string = `Translate a design answer into another language.

The SCHEMATIC, PCB and BOM sections are read from --file ("-" for stdin) or,
by default, from the last answer of the saved chat conversation. Drawings
keep their layout; only the text is translated.

Examples:
  circuitchat translate --language Spanish
  circuitchat translate --language German --file answer.txt
  circuitchat chat --image amp.png --preset schematic "draw it" && circuitchat translate -L French --stream`

const translateShortDesc string = "Translate a design answer"

func NewTranslateCmd() *cobra.Command {
	cmder := &translateCommander{}

	cmd := &cobra.Command{
		Use:   "translate",
		Short: translateShortDesc,
		Long:  translateLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			cmder.in = cmd.InOrStdin()
			cmder.logger = logger.New(logger.WithDebug(cmder.debug), logger.WithPretty(true), logger.WithWriter(cmd.ErrOrStderr()))
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVarP(&cmder.language, "language", "L", "", "Target language (e.g., Spanish)")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", `File holding the answer to translate ("-" for stdin)`)
	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Stream the translation as it is produced")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

func (c *translateCommander) run(ctx context.Context) error {
	text, err := c.document()
	if err != nil {
		return err
	}

	content := translate.FromSections(sections.Parse(text, sections.TranslationLayout))
	if content == (translate.Content{}) {
		return errNoDocument
	}

	req := &translate.Request{Language: c.language, Content: content}
	cl := client.New(client.Config{Target: c.target, Logger: c.logger})

	c.logger.Debug("sending translation request", "target", c.target, "language", c.language)

	if c.stream {
		_, err := cl.TranslateStream(ctx, req, func(delta string) {
			fmt.Fprint(c.out, delta)
		})
		fmt.Fprintln(c.out)
		return err
	}

	var res *translate.Result
	err = cliui.Step(c.out, "Translating to "+c.language, func() error {
		var err error
		res, err = cl.Translate(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	secs := sections.Parse(res.Response, sections.TranslationLayout)
	fmt.Fprint(c.out, cliui.RenderSections(secs))
	if !sections.InOrder(secs, sections.TranslationLayout) {
		fmt.Fprint(c.out, cliui.RenderOrderWarning(sections.TranslationLayout))
	}
	return nil
}

// document returns the answer text to translate.
func (c *translateCommander) document() (string, error) {
	switch c.file {
	case "":
		conv, err := dotdir.NewManager().LoadConversation(c.configDir)
		if err != nil {
			return "", fmt.Errorf("loading conversation: %w", err)
		}
		if conv != nil {
			for i := len(conv.Messages) - 1; i >= 0; i-- {
				if conv.Messages[i].Role == llm.RoleAssistant {
					return conv.Messages[i].Content, nil
				}
			}
		}
		return "", fmt.Errorf("%w: no saved answer, pass --file", errNoDocument)

	case "-":
		data, err := io.ReadAll(c.in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil

	default:
		data, err := os.ReadFile(c.file)
		if err != nil {
			return "", fmt.Errorf("reading answer file: %w", err)
		}
		return string(data), nil
	}
}
