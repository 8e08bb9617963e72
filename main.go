// Package main provides the entry point for the voicepipe CLI.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/voicepipe/internal/utils"
	"github.com/dgnsrekt/voicepipe/voice"
	"github.com/dgnsrekt/voicepipe/voice/engines/openai"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	voiceName  string
	modelName  string
	apiKey     string
	streamMode bool

	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}).
		Render

	rootCmd = &cobra.Command{
		Use:   "voicepipe [FILE]",
		Short: "Speak streaming text aloud, without gaps",
		Long: paragraph(fmt.Sprintf(
			"\nTurn a %s into continuously playing speech. Text is segmented into sentences as it arrives, synthesized in the background, and played back-to-back with crossfaded splices.",
			keyword("text stream"),
		)),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

func paragraph(s string) string {
	return lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render(s)
}

// loadConfig merges defaults, environment, config file, and flags, in that
// order of increasing precedence.
func loadConfig(cmd *cobra.Command) (voice.Config, error) {
	cfg := voice.DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	cfg = voice.FromViper(cfg)

	if cmd.Flags().Changed("voice") {
		cfg.Voice = voiceName
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = modelName
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, voice.ErrMissingAPIKey) {
			return cfg, fmt.Errorf("%w: set %s or voice.api_key in %s",
				err, keyword("VOICEPIPE_API_KEY"), keyword("voicepipe.yml"))
		}
		return cfg, err
	}
	return cfg, nil
}

// inputReader resolves the text source: an explicit file, "-", or a pipe.
func inputReader(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		if yes, err := stdinIsPipe(); err != nil {
			return nil, err
		} else if !yes && len(args) == 0 {
			return nil, errors.New("no input: pass a file or pipe text on stdin")
		}
		return os.Stdin, nil
	}
	f, err := os.Open(utils.ExpandPath(args[0]))
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	return f, nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src, err := inputReader(args)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck

	engine, err := openai.New(openai.Config{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		RequestTimeout:    cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	var failed int
	proc, err := voice.NewProcessor(cfg, engine,
		voice.WithErrorHandler(func(seq uint64, text string, err error) {
			failed++
			fmt.Fprintf(os.Stderr, "voicepipe: sentence %d failed: %v\n", seq, err)
		}))
	if err != nil {
		return err
	}
	defer proc.Close() //nolint:errcheck

	if streamMode {
		err = speakStream(proc, src)
	} else {
		err = speakAll(proc, src)
	}
	if err != nil {
		return err
	}

	if err := proc.Wait(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d sentence(s) failed to synthesize", failed)
	}
	return nil
}

// speakAll reads the whole source and enqueues it in one segmentation pass.
func speakAll(proc *voice.Processor, src io.Reader) error {
	b, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("unable to read input: %w", err)
	}
	n, err := proc.AddText(string(b))
	if err != nil {
		return err
	}
	log.Debug("queued input", "sentences", n)
	return nil
}

// speakStream feeds the source incrementally, speaking sentences as soon as
// they complete instead of waiting for EOF.
func speakStream(proc *voice.Processor, src io.Reader) error {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(os.Stderr, "Reading from terminal; finish with Ctrl-D.")
	}

	r := bufio.NewReader(src)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if _, aerr := proc.AddToken(line); aerr != nil {
				return aerr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("unable to read input: %w", err)
		}
	}
	_, err := proc.FinalizeTokens()
	return err
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&voiceName, "voice", "v", "alloy", "voice name (alloy/echo/fable/onyx/nova/shimmer) or 1-based index")
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "tts-1", "speech model")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (overrides env and config file)")
	rootCmd.Flags().BoolVarP(&streamMode, "stream", "s", false, "feed input incrementally, speaking sentences as they complete")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voicepipe")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voicepipe")}, dirs...)
	}

	if c := os.Getenv("VOICEPIPE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voicepipe")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voicepipe")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voicepipe.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
