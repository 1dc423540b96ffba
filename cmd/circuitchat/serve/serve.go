// Package servecmder provides the serve command that runs the relay server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/circuitchat/pkg/config"
	"github.com/papercomputeco/circuitchat/pkg/credentials"
	"github.com/papercomputeco/circuitchat/pkg/eventstream"
	"github.com/papercomputeco/circuitchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/circuitchat/pkg/eventstream/nop"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider"
	"github.com/papercomputeco/circuitchat/pkg/logger"
	"github.com/papercomputeco/circuitchat/pkg/prompt"
	"github.com/papercomputeco/circuitchat/pkg/relay"
	"github.com/papercomputeco/circuitchat/server"
)

// Event stream provider names.
const (
	eventStreamNone  = "none"
	eventStreamKafka = "kafka"
)

type serveCommander struct {
	listen   string
	logFile  string
	maxFrame uint

	providerType string
	upstream     string
	model        string
	accountID    string
	apiKey       string
	seed         int
	maxTokens    uint

	preset    string
	overrides string
	watch     bool

	eventStream string
	brokers     string
	topic       string

	configDir string
	debug     bool
	logger    *slog.Logger
}

// serveFlags is every registry flag the serve command binds.
var serveFlags = []string{
	config.FlagListen,
	config.FlagLogFile,
	config.FlagMaxFrame,
	config.FlagProvider,
	config.FlagUpstream,
	config.FlagModel,
	config.FlagAccountID,
	config.FlagAPIKey,
	config.FlagSeed,
	config.FlagMaxTokens,
	config.FlagPreset,
	config.FlagOverrides,
	config.FlagWatch,
	config.FlagEventStream,
	config.FlagBrokers,
	config.FlagTopic,
}

const serveLongDesc string = `Run the circuitchat relay server.

The server accepts chat requests carrying circuit images and instructions,
calls the configured inference provider once per image, and streams every
turn back to the client over a single event stream.

Routes:
  POST /chat         Stream a multi-turn relay
  POST /translate    Translate SCHEMATIC/PCB/BOM sections
  GET  /ping         Liveness check

Supported provider types: workersai, ollama, openai

Values are resolved from flags, then CIRCUITCHAT_* environment variables,
then config.toml, then defaults. A missing API key or account ID falls back
to the provider's environment variables and then to "circuitchat auth".

Examples:
  circuitchat serve --account-id $CF_ACCOUNT_ID --api-key $CF_API_TOKEN
  circuitchat serve --provider ollama --model llama3.2-vision
  circuitchat serve --prompt-overrides ./prompts.toml --watch-prompts
  circuitchat serve --eventstream kafka --brokers localhost:9092`

const serveShortDesc string = "Run the circuitchat relay server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.load(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxFrame, &cmder.maxFrame)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.providerType)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagAccountID, &cmder.accountID)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &cmder.apiKey)
	config.AddIntFlag(cmd, config.Flags, config.FlagSeed, &cmder.seed)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddStringFlag(cmd, config.Flags, config.FlagPreset, &cmder.preset)
	config.AddStringFlag(cmd, config.Flags, config.FlagOverrides, &cmder.overrides)
	config.AddBoolFlag(cmd, config.Flags, config.FlagWatch, &cmder.watch)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &cmder.eventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)

	return cmd
}

// load copies the resolved values out of v.
func (c *serveCommander) load(v *viper.Viper) {
	c.listen = v.GetString("server.listen")
	c.logFile = v.GetString("server.log_file")
	c.maxFrame = v.GetUint("server.max_frame_bytes")
	c.providerType = v.GetString("model.provider")
	c.upstream = v.GetString("model.upstream")
	c.model = v.GetString("model.name")
	c.accountID = v.GetString("model.account_id")
	c.apiKey = v.GetString("model.api_key")
	c.seed = v.GetInt("model.seed")
	c.maxTokens = v.GetUint("model.max_tokens")
	c.preset = v.GetString("prompt.preset")
	c.overrides = v.GetString("prompt.overrides")
	c.watch = v.GetBool("prompt.watch")
	c.eventStream = v.GetString("eventstream.provider")
	c.brokers = v.GetString("eventstream.brokers")
	c.topic = v.GetString("eventstream.topic")
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	c.logger, err = c.newLogger()
	if err != nil {
		return err
	}

	presets, err := c.newPresets(ctx)
	if err != nil {
		return err
	}

	cred, err := c.resolveCredential()
	if err != nil {
		return err
	}

	p, err := provider.New(c.providerType, provider.Options{
		Upstream:  c.upstream,
		AccountID: cred.AccountID,
		APIKey:    cred.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	r, err := relay.New(c.relayConfig(p))
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	srv, err := server.New(server.Config{
		ListenAddr:   c.listen,
		ProviderName: p.Name(),
		Model:        c.model,
	}, r, presets, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return nil
	}
}

// newLogger builds the pretty terminal logger, fanned out to a JSON log file
// when one is configured.
func (c *serveCommander) newLogger() (*slog.Logger, error) {
	term := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	if c.logFile == "" {
		return term, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f))
	return logger.Multi(term, file), nil
}

// newPresets builds the prompt registry, applying and optionally following
// the overrides file.
func (c *serveCommander) newPresets(ctx context.Context) (*prompt.Registry, error) {
	presets := prompt.NewRegistry(c.preset)
	if c.overrides == "" {
		if _, err := presets.Get(""); err != nil {
			return nil, fmt.Errorf("default prompt preset: %w", err)
		}
		return presets, nil
	}

	if err := presets.LoadFile(c.overrides); err != nil {
		return nil, fmt.Errorf("loading prompt overrides: %w", err)
	}
	c.logger.Info("prompt overrides loaded", "path", c.overrides, "presets", strings.Join(presets.Names(), ","))

	if c.watch {
		go func() {
			err := presets.Watch(ctx, c.overrides, c.logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("prompt watcher stopped", "error", err)
			}
		}()
	}

	return presets, nil
}

// resolveCredential completes the configured API key and account ID from
// the provider environment and credentials.toml.
func (c *serveCommander) resolveCredential() (credentials.ProviderCredential, error) {
	explicit := credentials.ProviderCredential{APIKey: c.apiKey, AccountID: c.accountID}
	if !credentials.IsSupportedProvider(c.providerType) {
		return explicit, nil
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return explicit, fmt.Errorf("loading credentials: %w", err)
	}

	cred, err := mgr.Resolve(c.providerType, explicit)
	if err != nil {
		return explicit, fmt.Errorf("loading credentials: %w", err)
	}
	if cred.APIKey == "" {
		c.logger.Warn("no API key configured", "provider", c.providerType, "hint", "circuitchat auth "+c.providerType)
	}
	return cred, nil
}

func (c *serveCommander) relayConfig(p provider.Provider) relay.Config {
	seed := c.seed
	if seed == 0 {
		seed = relay.DefaultSeed
	}

	rc := relay.Config{
		Provider:     p,
		Model:        c.model,
		Seed:         &seed,
		MaxFrameSize: int(c.maxFrame),
		Logger:       c.logger,
	}
	if c.maxTokens > 0 {
		n := int(c.maxTokens)
		rc.MaxTokens = &n
	}
	return rc
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.eventStream {
	case "", eventStreamNone:
		return nop.NewPublisher(), nil

	case eventStreamKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(c.brokers),
			Topic:   c.topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing relay events", "brokers", c.brokers, "topic", c.topic)
		return publisher, nil

	default:
		return nil, fmt.Errorf("unknown event stream provider: %q (supported: %s, %s)", c.eventStream, eventStreamNone, eventStreamKafka)
	}
}

func splitBrokers(s string) []string {
	var brokers []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
