package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/logging"
	"github.com/zhouzirui/studio-chat/backend/internal/model/preset"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
	"github.com/zhouzirui/studio-chat/backend/internal/service/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/service/speech"
)

var (
	apiKeyFlag  string
	systemFlag  string
	presetFlag  string
	speakFlag   bool
	listPresets bool
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Chat with a Gemini model from the terminal",
	Long: `Start an interactive chat session against the configured model provider.

Commands inside the session:
  /image <prompt>  generate an image
  /speak <text>    read text aloud (requires SPEECH_COMMAND)
  /reset           start over with the same key and system prompt
  /quit            leave`,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	rootCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "model API key (default $GOOGLE_API_KEY)")
	rootCmd.Flags().StringVar(&systemFlag, "system", "", "system prompt for the session")
	rootCmd.Flags().StringVar(&presetFlag, "preset", "", "use the system prompt of a named preset")
	rootCmd.Flags().BoolVar(&speakFlag, "speak", false, "read every reply aloud")
	rootCmd.Flags().BoolVar(&listPresets, "list-presets", false, "print available presets and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	presets := preset.NewMemoryStore(preset.Seed())
	out := cmd.OutOrStdout()
	if listPresets {
		for _, p := range presets.List() {
			fmt.Fprintf(out, "%-12s %s\n", p.ID, p.Description)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// 交互式终端默认只输出警告，避免日志打断对话
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	apiKey := apiKeyFlag
	if strings.TrimSpace(apiKey) == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	systemPrompt := systemFlag
	if presetFlag != "" {
		p, ok := presets.FindByID(presetFlag)
		if !ok {
			return fmt.Errorf("unknown preset %q", presetFlag)
		}
		if strings.TrimSpace(systemPrompt) == "" {
			systemPrompt = p.SystemPrompt
		}
	}

	newClient, err := ai.NewFactory(cfg.AI, cfg.Chat.HistoryLimit, logger)
	if err != nil {
		return err
	}
	conv := chat.NewConversation("cli", newClient, chat.NewDispatcher(cfg.Chat.RequestTimeout, logger), logger)
	defer conv.Close()

	speechEnabled := false
	if cfg.Speech.Enabled() {
		events, release, err := conv.SpeechEvents()
		if err != nil {
			return err
		}
		defer release()
		speechEnabled = true
		go func() {
			speaker := speech.NewCommandSpeaker(cfg.Speech.Command, cfg.Speech.Args...)
			if err := speech.Run(ctx, events, speaker, logger); err != nil && ctx.Err() == nil {
				logger.Warn("speech loop stopped", zap.Error(err))
			}
		}()
	} else if speakFlag {
		fmt.Fprintln(cmd.ErrOrStderr(), "speech disabled: set SPEECH_COMMAND to enable --speak")
	}

	r := &repl{
		conv:          conv,
		apiKey:        apiKey,
		systemPrompt:  systemPrompt,
		autoSpeak:     speakFlag && speechEnabled,
		speechEnabled: speechEnabled,
		out:           out,
	}
	return r.run(ctx, cmd.InOrStdin())
}
