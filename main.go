package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	// Selection
	modeFlag           string
	extensionsFlag     string
	excludeFilesFlag   string
	excludeFoldersFlag string
	showHidden         bool
	noIgnore           bool
	trackedOnly        bool

	// Output
	outputFile      string
	reportFile      string
	pdfFile         string
	pdfFormat       string
	copyToClipboard bool

	// Processing
	sizeWarningMB float64
	chunkSize     int
	queueCapacity int
	pollInterval  time.Duration

	// Token Counting
	tokenizerType  string
	tokenizerModel string
	tokenizerFile  string

	// Consumer
	jsonOutput bool
	noProgress bool
	logLevel   string

	// Interactive Mode
	interactiveMode bool

	cfgFile string

	langCatalog *LanguageCatalog
)

// version is the application version, set via ldflags.
var version string = "dev"

var rootCmd = &cobra.Command{
	Use:   "fxp [flags] [folder]",
	Short: "fxp concatenates the text files of a folder tree into one output file.",
	Long: `fxp walks a folder, filters files by extension, exclusion patterns, and
gitignore rules, and streams every selected file into a single concatenated
output file, with live progress, per-file hashing, and run reports.`,
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if code := runExtraction(cmd.Context(), args); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	// Initialize config first, then languages
	cobra.OnInitialize(initConfig, initLanguages)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/fxp/config.toml)")

	// Selection
	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", string(ModeInclusion), "Extension filter mode: inclusion or exclusion")
	viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	rootCmd.Flags().StringVarP(&extensionsFlag, "extensions", "x", "", `Extensions to filter on (comma-separated, e.g. .go,.md or "*" for all)`)
	viper.BindPFlag("extensions", rootCmd.Flags().Lookup("extensions"))
	rootCmd.Flags().StringVar(&excludeFilesFlag, "exclude-files", "", "File name glob patterns to exclude (comma-separated)")
	viper.BindPFlag("exclude_files", rootCmd.Flags().Lookup("exclude-files"))
	rootCmd.Flags().StringVar(&excludeFoldersFlag, "exclude-folders", "", "Folder name glob patterns to exclude (comma-separated)")
	viper.BindPFlag("exclude_folders", rootCmd.Flags().Lookup("exclude-folders"))
	rootCmd.Flags().BoolVarP(&showHidden, "hidden", "H", false, "Include hidden files and directories")
	viper.BindPFlag("hidden", rootCmd.Flags().Lookup("hidden"))
	rootCmd.Flags().BoolVar(&noIgnore, "no-ignore", false, "Don't respect the root .gitignore file")
	viper.BindPFlag("no_ignore", rootCmd.Flags().Lookup("no-ignore"))
	rootCmd.Flags().BoolVar(&trackedOnly, "tracked-only", false, "Only process files tracked in the git HEAD commit")
	viper.BindPFlag("tracked_only", rootCmd.Flags().Lookup("tracked-only"))

	// Output
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "extraction.txt", "Destination file for the concatenated content")
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	rootCmd.Flags().StringVar(&reportFile, "report", "", "Write a JSON run report to this path")
	viper.BindPFlag("report", rootCmd.Flags().Lookup("report"))
	rootCmd.Flags().StringVar(&pdfFile, "pdf", "", "Write a PDF run report to this path")
	viper.BindPFlag("pdf", rootCmd.Flags().Lookup("pdf"))
	rootCmd.Flags().StringVar(&pdfFormat, "pdf-format", PDFFormatSummary, "PDF report format: summary, files, or both")
	viper.BindPFlag("pdf_format", rootCmd.Flags().Lookup("pdf-format"))
	rootCmd.Flags().BoolVarP(&copyToClipboard, "copy", "c", false, "Copy the run summary to the clipboard")
	viper.BindPFlag("copy", rootCmd.Flags().Lookup("copy"))

	// Processing
	rootCmd.Flags().Float64Var(&sizeWarningMB, "size-warning-mb", 0, "Warn when a file exceeds this size in MB (0 disables)")
	viper.BindPFlag("size_warning_mb", rootCmd.Flags().Lookup("size-warning-mb"))
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", DefaultChunkSize, "Read size in bytes for streaming file content")
	viper.BindPFlag("chunk_size", rootCmd.Flags().Lookup("chunk-size"))
	rootCmd.Flags().IntVar(&queueCapacity, "queue-capacity", DefaultQueueCapacity, "Capacity of the status message queue")
	viper.BindPFlag("queue_capacity", rootCmd.Flags().Lookup("queue-capacity"))
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", DefaultPollInterval, "How often the consumer polls the status queue")
	viper.BindPFlag("poll_interval", rootCmd.Flags().Lookup("poll-interval"))

	// Token Counting
	rootCmd.Flags().StringVar(&tokenizerType, "tokenizer", TokenizerNone, "Token counter: none, tiktoken, or huggingface")
	viper.BindPFlag("tokenizer", rootCmd.Flags().Lookup("tokenizer"))
	rootCmd.Flags().StringVar(&tokenizerModel, "tokenizer-model", "", "Model name for the tokenizer (e.g., gpt-4o, gpt2)")
	viper.BindPFlag("tokenizer_model", rootCmd.Flags().Lookup("tokenizer-model"))
	rootCmd.Flags().StringVar(&tokenizerFile, "tokenizer-file", "", "Path to a local tokenizer.json file")
	viper.BindPFlag("tokenizer_file", rootCmd.Flags().Lookup("tokenizer-file"))

	// Consumer
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON events on stdout")
	viper.BindPFlag("json", rootCmd.Flags().Lookup("json"))
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress the progress bar")
	viper.BindPFlag("no_progress", rootCmd.Flags().Lookup("no-progress"))
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))

	// Interactive Mode
	rootCmd.Flags().BoolVar(&interactiveMode, "interactive", false, "Pick the source folder with a fuzzy finder")
	viper.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))

	// Viper defaults for config-file-only usage.
	viper.SetDefault("mode", string(ModeInclusion))
	viper.SetDefault("extensions", "")
	viper.SetDefault("exclude_files", "")
	viper.SetDefault("exclude_folders", "")
	viper.SetDefault("hidden", false)
	viper.SetDefault("no_ignore", false)
	viper.SetDefault("tracked_only", false)
	viper.SetDefault("output", "extraction.txt")
	viper.SetDefault("pdf_format", PDFFormatSummary)
	viper.SetDefault("size_warning_mb", 0.0)
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("queue_capacity", DefaultQueueCapacity)
	viper.SetDefault("poll_interval", DefaultPollInterval)
	viper.SetDefault("tokenizer", TokenizerNone)
	viper.SetDefault("log_level", "info")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home/.config/fxp with name "config" (without extension).
		viper.AddConfigPath(filepath.Join(home, ".config", "fxp"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.AutomaticEnv() // read in environment variables that match FXP_*
	viper.SetEnvPrefix("FXP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
	}
}

// initLanguages loads the language catalog. Failures fall back to the
// built-in definitions.
func initLanguages() {
	var err error
	langCatalog, err = loadLanguageCatalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load language definitions: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q, defaulting to 'info'.\n", level)
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildRequest resolves the effective configuration (defaults < config file <
// env < flags) into a validated ExtractionRequest.
func buildRequest(folder string) (ExtractionRequest, error) {
	mode, err := ParseMode(viper.GetString("mode"))
	if err != nil {
		return ExtractionRequest{}, err
	}

	req, err := NewExtractionRequest(
		folder,
		mode,
		[]string{viper.GetString("extensions")},
		[]string{viper.GetString("exclude_files")},
		[]string{viper.GetString("exclude_folders")},
		viper.GetString("output"),
	)
	if err != nil {
		return ExtractionRequest{}, err
	}

	req.IncludeHidden = viper.GetBool("hidden")
	req.SizeWarnBytes = int64(viper.GetFloat64("size_warning_mb") * 1024 * 1024)
	req.ChunkSize = viper.GetInt("chunk_size")
	req.QueueCapacity = viper.GetInt("queue_capacity")
	req.RespectIgnore = !viper.GetBool("no_ignore")
	req.TrackedOnly = viper.GetBool("tracked_only")

	if err := req.Validate(); err != nil {
		return ExtractionRequest{}, err
	}
	return req, nil
}

// runExtraction is the body of the root command. It returns the process exit
// code: 0 on success, 1 on failure, 130 on interrupt-driven cancellation.
func runExtraction(ctx context.Context, args []string) int {
	logger := newLogger(viper.GetString("log_level"))
	slog.SetDefault(logger)

	// Resolve the source folder: interactive picker or positional argument.
	var folder string
	if viper.GetBool("interactive") {
		picked, err := pickSourceFolder(viper.GetBool("hidden"))
		if err != nil {
			logger.Error("interactive selection failed", "error", err)
			return 1
		}
		if picked == "" {
			return 0 // aborted by the user
		}
		folder = picked
	} else {
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Error: folder argument is required (or use --interactive).")
			return 1
		}
		folder = args[0]
	}

	req, err := buildRequest(folder)
	if err != nil {
		logger.Error("invalid extraction request", "error", err)
		return 1
	}

	tokenizer, err := newTokenizer(viper.GetString("tokenizer"), viper.GetString("tokenizer_model"), viper.GetString("tokenizer_file"))
	if err != nil {
		logger.Error("tokenizer initialization failed", "error", err)
		return 1
	}
	if tokenizer != nil {
		defer tokenizer.Close()
	}

	if format := viper.GetString("pdf_format"); viper.GetString("pdf") != "" {
		switch format {
		case PDFFormatSummary, PDFFormatFiles, PDFFormatBoth:
		default:
			logger.Error("unknown pdf format", "format", format)
			return 1
		}
	}

	queue := NewStatusQueue(req.QueueCapacity)
	engine := NewEngine(queue, tokenizer, logger)
	service := NewService(queue, engine, logger)

	var reporter StatusReporter
	if viper.GetBool("json") {
		reporter = NewJSONReporter()
	} else {
		reporter = NewConsoleReporter(logger, !viper.GetBool("no_progress"))
	}

	// First SIGINT/SIGTERM cancels the run cooperatively; the drain loop
	// still runs to the terminal message.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			service.Cancel()
		}
	}()

	if _, err := service.Start(ctx, req); err != nil {
		logger.Error("cannot start extraction", "error", err)
		return 1
	}

	var result TerminalResult
	g := new(errgroup.Group)
	g.Go(func() error {
		result = drainStatus(queue, reporter, viper.GetDuration("poll_interval"))
		return nil
	})
	g.Go(func() error {
		service.Wait()
		return nil
	})
	_ = g.Wait()

	code := 0
	switch result.Outcome {
	case RunCompleted:
	case RunCancelled:
		code = 130
	default:
		code = 1
	}

	report, reportErr := service.Report()
	if reportErr != nil {
		logger.Error("run report unavailable", "error", reportErr)
		if code == 0 {
			code = 1
		}
		return code
	}

	if path := viper.GetString("report"); path != "" {
		if err := WriteJSONReport(report, path); err != nil {
			logger.Error("cannot write JSON report", "error", err)
			if code == 0 {
				code = 1
			}
		} else {
			logger.Info("JSON report written", "path", path)
		}
	}

	if path := viper.GetString("pdf"); path != "" {
		if err := renderPDFReport(report, viper.GetString("pdf_format"), langCatalog, path); err != nil {
			logger.Error("cannot write PDF report", "error", err)
			if code == 0 {
				code = 1
			}
		} else {
			logger.Info("PDF report written", "path", path)
		}
	}

	if !viper.GetBool("json") {
		summary := buildSummaryText(report, langCatalog)
		fmt.Println(summary)

		if viper.GetBool("copy") {
			if err := clipboard.WriteAll(summary); err != nil {
				logger.Warn("cannot copy summary to clipboard", "error", err)
			} else {
				fmt.Println("Summary copied to clipboard.")
			}
		}
	}

	return code
}
