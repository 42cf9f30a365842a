package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jdgilhuly/go_fence/pkg/config"
	"github.com/jdgilhuly/go_fence/pkg/logging"
	"github.com/jdgilhuly/go_fence/pkg/messages"
	"github.com/jdgilhuly/go_fence/pkg/metrics"
	"github.com/jdgilhuly/go_fence/pkg/prompt"
	"github.com/jdgilhuly/go_fence/pkg/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fence",
	Short: "Invoke hosted chat models from the command line",
	Long: `fence sends a plain text prompt or a YAML conversation to a hosted
chat model and prints the completion.

Use 'fence init' to write an example configuration and conversation, then
'fence invoke' to call the model.`,
	SilenceUsage: true,
}

// --- invoke command ---

var invokeCmd = &cobra.Command{
	Use:   "invoke [text]",
	Short: "Send a prompt to a model",
	Long: `Send a prompt to the configured model and print the completion.

The prompt is either the text argument or a conversation file given with
--conversation. Conversation files may reference variables set with --var.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInvoke,
}

func runInvoke(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	p, err := readPrompt(cmd, args)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	hook, closeHooks, err := buildHooks(cmd.Context(), cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer closeHooks()

	prov, err := newProvider(cfg, logger, hook)
	if err != nil {
		return err
	}

	completion, err := prov.Invoke(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), completion)

	if show, _ := cmd.Flags().GetBool("metrics"); show {
		if rec, ok := recorder.Last(); ok {
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding metrics: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), string(out))
		}
	}
	return nil
}

// loadEnvFile loads variables from path into the environment. A missing
// file is only an error when the path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("temperature") {
		cfg.Temperature, _ = flags.GetFloat64("temperature")
	}
	if flags.Changed("max-tokens") {
		n, _ := flags.GetInt("max-tokens")
		cfg.MaxTokens = &n
	}
	if flags.Changed("source") {
		cfg.Source, _ = flags.GetString("source")
	}
}

func readPrompt(cmd *cobra.Command, args []string) (prompt.Prompt, error) {
	convPath, _ := cmd.Flags().GetString("conversation")
	switch {
	case convPath != "" && len(args) > 0:
		return nil, errors.New("pass either a text prompt or --conversation, not both")
	case convPath != "":
		rawVars, _ := cmd.Flags().GetStringArray("var")
		vars, err := parseVars(rawVars)
		if err != nil {
			return nil, err
		}
		tmpl, err := messages.LoadTemplate(convPath)
		if err != nil {
			return nil, err
		}
		if err := tmpl.Validate(); err != nil {
			return nil, err
		}
		conv, err := tmpl.Render(vars)
		if err != nil {
			return nil, err
		}
		return prompt.FromMessages(conv), nil
	case len(args) == 1:
		return prompt.FromText(args[0]), nil
	default:
		return nil, errors.New("a text prompt or --conversation is required")
	}
}

// parseVars converts key=value pairs into template variables.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", kv)
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars, nil
}

func buildHooks(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder) (metrics.Hook, func(), error) {
	hooks := []metrics.Hook{recorder}
	closeFn := func() {}

	if cfg.Metrics.Log {
		hooks = append(hooks, metrics.NewLogHook(logger, cfg.MetricPrefix))
	}
	if cfg.Metrics.Redis.Address != "" {
		sink, err := metrics.NewRedisSink(ctx, metrics.RedisConfig{
			Address:   cfg.Metrics.Redis.Address,
			Password:  cfg.Metrics.Redis.Password,
			DB:        cfg.Metrics.Redis.DB,
			KeyPrefix: cfg.Metrics.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configuring redis metrics: %w", err)
		}
		hooks = append(hooks, sink)
		closeFn = func() {
			if err := sink.Close(); err != nil {
				logger.Warn("closing redis metrics sink", "error", err)
			}
		}
	}
	return metrics.Multi(hooks...), closeFn, nil
}

func newProvider(cfg *config.Config, logger *slog.Logger, hook metrics.Hook) (*provider.OpenAIProvider, error) {
	key, err := cfg.ResolveAPIKey()
	if err != nil {
		logger.Debug("api key not resolved from config", "error", err)
	}

	opts := []provider.OpenAIOption{
		provider.WithAPIKey(key),
		provider.WithTemperature(cfg.Temperature),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		provider.WithLogger(logger),
		provider.WithMetricsHook(hook),
		provider.WithSource(cfg.Source),
		provider.WithTags(cfg.Tags),
	}
	if cfg.MaxTokens != nil {
		opts = append(opts, provider.WithMaxTokens(*cfg.MaxTokens))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, provider.WithBaseURL(cfg.BaseURL))
	}
	return provider.NewOpenAIProvider(provider.LookupModel(cfg.Model), opts...)
}

// --- models command ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known model variants",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, m := range provider.Models() {
			price := "(no pricing)"
			if in, outPrice, ok := provider.Pricing(m.ID); ok {
				price = fmt.Sprintf("$%.2f / $%.2f per 1M tokens", in, outPrice)
			}
			fmt.Fprintf(out, "  %-14s %-14s %s\n", m.ID, m.Name, price)
		}
		return nil
	},
}

// --- validate command ---

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config and conversation files",
	Long: `Check the fence configuration and, optionally, a conversation file or a
directory of conversation files for errors.

Validates YAML syntax, required fields, parameter ranges and message roles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		convPath, _ := cmd.Flags().GetString("conversation")
		if convPath != "" {
			tmpl, err := messages.LoadTemplate(convPath)
			if err != nil {
				return fmt.Errorf("loading conversation: %w", err)
			}
			if err := tmpl.Validate(); err != nil {
				return fmt.Errorf("conversation validation failed: %w", err)
			}
			fmt.Fprintf(out, "Conversation %q is valid (%d messages).\n", tmpl.Name, len(tmpl.Messages))
		}

		convDir, _ := cmd.Flags().GetString("conversations")
		if convDir != "" {
			tmpls, err := messages.LoadTemplateDir(convDir)
			if err != nil {
				return fmt.Errorf("loading conversations: %w", err)
			}
			for _, tmpl := range tmpls {
				if err := tmpl.Validate(); err != nil {
					return fmt.Errorf("conversation validation failed: %w", err)
				}
			}
			fmt.Fprintf(out, "%d conversations in %q are valid.\n", len(tmpls), convDir)
		}

		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadOrDefault(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
		fmt.Fprintf(out, "Config %q is valid.\n", cfgPath)

		return nil
	},
}

// --- init command ---

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example configuration",
	Long: `Scaffold an example configuration and conversation file.

Creates the following structure:
  fence.yaml                    - Main configuration file
  conversations/example.yaml    - Example conversation template`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if err := os.MkdirAll("conversations", 0o755); err != nil {
		return fmt.Errorf("creating directory conversations: %w", err)
	}
	fmt.Fprintln(out, "  created conversations/")

	if err := writeExampleConfig(out, "fence.yaml"); err != nil {
		return err
	}
	if err := writeExampleConversation(out, filepath.Join("conversations", "example.yaml")); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nRun 'fence validate' to check your config.")
	return nil
}

func writeYAML(out io.Writer, path string, data any) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "  skipped %s (already exists)\n", path)
		return nil
	}

	encoded, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(out, "  created %s\n", path)
	return nil
}

func writeExampleConfig(out io.Writer, path string) error {
	data := map[string]any{
		"model":         provider.GPT4oMini.ID,
		"temperature":   1,
		"api_key_env":   provider.APIKeyEnv,
		"timeout":       "60s",
		"source":        "cli",
		"metric_prefix": "fence",
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"metrics": map[string]any{
			"log": true,
		},
	}
	return writeYAML(out, path, data)
}

func writeExampleConversation(out io.Writer, path string) error {
	data := messages.Template{
		Name:        "example",
		Description: "Asks the model a question in a given style",
		System:      "Respond in {{.style}}.",
		Messages: []messages.Message{
			{Role: messages.RoleUser, Content: "Hello, how are you today?"},
		},
	}
	return writeYAML(out, path, data)
}

func init() {
	// invoke command flags
	invokeCmd.Flags().String("conversation", "", "Path to a YAML conversation file")
	invokeCmd.Flags().StringArray("var", nil, "Conversation variable as key=value (repeatable)")
	invokeCmd.Flags().StringP("model", "m", "", "Override model id")
	invokeCmd.Flags().Float64P("temperature", "t", 1, "Override sampling temperature")
	invokeCmd.Flags().Int("max-tokens", 0, "Override maximum completion tokens")
	invokeCmd.Flags().String("source", "", "Override metrics source")
	invokeCmd.Flags().StringP("config", "c", "fence.yaml", "Path to config file")
	invokeCmd.Flags().String("env-file", ".env", "Path to a .env file to load")
	invokeCmd.Flags().Bool("metrics", false, "Print the usage record to stderr")
	invokeCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	// validate command flags
	validateCmd.Flags().String("conversation", "", "Path to conversation file to validate")
	validateCmd.Flags().String("conversations", "", "Directory of conversation files to validate")
	validateCmd.Flags().String("config", "fence.yaml", "Path to config file to validate")

	// register all subcommands
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
}
