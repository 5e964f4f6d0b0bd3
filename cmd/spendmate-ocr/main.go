package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/spendmate-ocr/internal/expense"
	"github.com/zombor/spendmate-ocr/internal/parsing"
	"github.com/zombor/spendmate-ocr/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "error loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("spendmate-ocr")
	var (
		port            = fs.IntLong("port", 5050, "HTTP server port")
		lang            = fs.StringLong("lang", "korean", "Language hint passed to the engines")
		primaryType     = fs.StringLong("primary", "clova", "Primary engine: 'clova', 'gemini' or 'none'")
		clovaEndpoint   = fs.StringLong("clova-endpoint", "", "CLOVA OCR API Gateway invoke URL")
		clovaSecret     = fs.StringLong("clova-secret", "", "CLOVA OCR secret key")
		primaryTimeout  = fs.DurationLong("primary-timeout", 15*time.Second, "Time limit for the primary engine call")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		fallbackType    = fs.StringLong("fallback", "tesseract", "Fallback engine: 'tesseract', 'ollama' or 'none'")
		fallbackTimeout = fs.DurationLong("fallback-timeout", 60*time.Second, "Time limit for the fallback engine call")
		tessdata        = fs.StringLong("tessdata", "", "Tesseract traineddata directory (defaults to TESSDATA_PREFIX)")
		singlePass      = fs.BoolLong("single-pass", "Run tesseract on the original image only")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		saveUploads     = fs.BoolLong("save-uploads", "Keep uploaded images for debugging")
		uploadDir       = fs.StringLong("upload-dir", "./uploads", "Directory for saved uploads")
		historyDB       = fs.StringLong("history-db", "", "Scan history database path (enables /api/scans)")
		maxUploadMB     = fs.IntLong("max-upload-mb", 20, "Largest accepted upload in megabytes")
		maskPrefix      = fs.IntLong("mask-prefix", 4, "Account symbols left visible at the start")
		maskSuffix      = fs.IntLong("mask-suffix", 3, "Account symbols left visible at the end")
		dateFormats     = fs.StringLong("date-formats", strings.Join(parsing.DefaultDateFormats(), ","), "Accepted timestamp formats, in priority order")
		logLevel        = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPENDMATE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	primary, err := newPrimaryEngine(*primaryType, *clovaEndpoint, *clovaSecret, *geminiKey, *geminiModel)
	if err != nil {
		slog.Error("Failed to initialize primary engine", "engine", *primaryType, "error", err)
		os.Exit(1)
	}
	if primary != nil {
		defer primary.Close()
	}

	fallback, err := newFallbackEngine(*fallbackType, *tessdata, *singlePass, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize fallback engine", "engine", *fallbackType, "error", err)
		os.Exit(1)
	}
	if fallback != nil {
		defer fallback.Close()
	}

	if primary == nil && fallback == nil {
		slog.Warn("No OCR engine configured; /api/ocr will answer 502 and /health 503")
	}

	orchestrator := scanning.NewOrchestrator(primary, fallback, scanning.OrchestratorConfig{
		Language:        *lang,
		PrimaryTimeout:  *primaryTimeout,
		FallbackTimeout: *fallbackTimeout,
	})

	opts := parsing.DefaultOptions()
	opts.MaskKeepPrefix = *maskPrefix
	opts.MaskKeepSuffix = *maskSuffix
	opts.DateFormats = splitList(*dateFormats)
	parser, err := parsing.NewParser(opts)
	if err != nil {
		slog.Error("Invalid parser options", "error", err)
		os.Exit(1)
	}

	var store expense.Storage
	if *saveUploads {
		slog.Info("Saving uploads", "dir", *uploadDir)
		local, err := expense.NewLocalStorage(*uploadDir)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
		store = local
	}

	var history expense.History
	if *historyDB != "" {
		slog.Info("Opening scan history", "path", *historyDB)
		db, err := expense.NewBoltHistory(*historyDB)
		if err != nil {
			slog.Error("Failed to open scan history", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		history = db
	}

	service := expense.NewService(orchestrator, parser, store, history)
	server := expense.NewServer(service, int64(*maxUploadMB)<<20)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	primaryName, fallbackName := orchestrator.Engines()
	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"version", version,
		"primary", primaryName,
		"fallback", fallbackName)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), *fallbackTimeout+*primaryTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}

// newPrimaryEngine builds the cloud engine. Missing credentials disable it
// rather than failing startup, so the service can run on the fallback alone.
func newPrimaryEngine(kind, clovaEndpoint, clovaSecret, geminiKey, geminiModel string) (scanning.Engine, error) {
	switch kind {
	case "clova":
		if clovaEndpoint == "" || clovaSecret == "" {
			slog.Warn("CLOVA credentials not set, primary engine disabled")
			return nil, nil
		}
		slog.Info("Initializing CLOVA engine...")
		return scanning.NewClova(clovaEndpoint, clovaSecret)
	case "gemini":
		if geminiKey == "" {
			geminiKey = os.Getenv("GEMINI_API_KEY")
		}
		if geminiKey == "" {
			slog.Warn("Gemini API key not set, primary engine disabled")
			return nil, nil
		}
		slog.Info("Initializing Gemini engine...", "model", geminiModel)
		return scanning.NewGemini(geminiKey, geminiModel)
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown primary engine %q (valid: clova, gemini, none)", kind)
}

func newFallbackEngine(kind, tessdata string, singlePass bool, ollamaURL, ollamaModel string) (scanning.Engine, error) {
	switch kind {
	case "tesseract":
		slog.Info("Initializing Tesseract engine...", "single_pass", singlePass)
		return scanning.NewTesseract(scanning.TesseractConfig{
			TessdataPrefix: tessdata,
			SinglePass:     singlePass,
		}), nil
	case "ollama":
		slog.Info("Initializing Ollama engine...", "url", ollamaURL, "model", ollamaModel)
		return scanning.NewOllama(ollamaURL, ollamaModel)
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown fallback engine %q (valid: tesseract, ollama, none)", kind)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
