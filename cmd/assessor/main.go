package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pavelanni/assessor/internal/essay"
	"github.com/pavelanni/assessor/internal/exam"
	"github.com/pavelanni/assessor/internal/handler"
	appI18n "github.com/pavelanni/assessor/internal/i18n"
	"github.com/pavelanni/assessor/internal/llm"
	"github.com/pavelanni/assessor/internal/llm/prompts"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assessor",
		Short: "LLM-generated exams with automatic grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), essayCmd(), importCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `assessor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("llm-timeout", llm.DefaultTimeout, "Timeout for a single LLM call")
	f.Float64("llm-rate", 0, "Maximum LLM requests per second (0 = unlimited)")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Also write logs to this file, rotated by size")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "assessor.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default language of API messages (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /exams)")
	f.Int("grading-workers", 4, "Concurrent subjective grading calls per submission")
	f.Int("default-questions", 5, "Questions per exam when a request does not say")
	f.Int("max-questions", 20, "Upper bound for questions per exam")
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export graded attempts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "assessor.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func essayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "essay",
		Short: "Grade an essay file and print the evaluation as JSON",
		RunE:  runEssay,
	}
	f := cmd.Flags()
	f.String("topic", "", "Essay topic (required)")
	f.StringP("file", "f", "-", "Essay text file (- for stdin)")
	f.String("criteria", "", "Evaluation criteria (default: "+essay.DefaultCriteria+")")
	addLLMFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create an exam from a JSON file of questions in the generation format",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "assessor.db", "SQLite database path")
	f.StringP("file", "f", "", "Questions JSON file (required)")
	f.String("title", "", "Exam title (default: file name)")
	f.String("description", "", "Exam description")
	f.Int64("student-id", 0, "Owning student ID")
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if path := v.GetString("log-file"); path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ASSESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("assessor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/assessor")
	v.AddConfigPath("/etc/assessor")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func promptVariant(v *viper.Viper) string {
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", variant)
		return string(prompts.PromptStandard)
	}
	return variant
}

func newLLMClient(v *viper.Viper) (*llm.Client, error) {
	c, err := llm.New(llm.Config{
		BaseURL: v.GetString("llm-url"),
		APIKey:  v.GetString("llm-key"),
		Model:   v.GetString("llm-model"),
		Timeout: v.GetDuration("llm-timeout"),
		Rate:    v.GetFloat64("llm-rate"),
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return c, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	variant := promptVariant(v)
	llmClient, err := newLLMClient(v)
	if err != nil {
		return err
	}
	// Every LLM failure has a local fallback, so an unreachable endpoint
	// does not stop the server.
	if err := llmClient.Ping(ctx); err != nil {
		slog.Warn("LLM health check failed, generation and grading will use fallbacks", "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	if err := db.SetMetadata(ctx, store.MetaPromptVariant, variant); err != nil {
		return fmt.Errorf("record prompt variant: %w", err)
	}
	if err := db.SetMetadata(ctx, store.MetaFallbackBank, exam.FallbackBankVersion); err != nil {
		return fmt.Errorf("record fallback bank version: %w", err)
	}

	examCfg := model.ExamConfig{
		DefaultQuestions: v.GetInt("default-questions"),
		MaxQuestions:     v.GetInt("max-questions"),
		GradingWorkers:   v.GetInt("grading-workers"),
		PromptVariant:    variant,
	}
	h := handler.New(db, llmClient, examCfg)

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"llm_timeout", v.GetDuration("llm-timeout"),
		"lang", lang,
		"prompt_variant", variant,
		"default_questions", examCfg.DefaultQuestions,
		"max_questions", examCfg.MaxQuestions,
		"grading_workers", examCfg.GradingWorkers,
		"base_path", basePath,
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportResults(ctx, exam.NewSummaryBuilder(db))
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	variant, err := db.GetMetadata(ctx, store.MetaPromptVariant)
	if err != nil {
		return fmt.Errorf("read prompt variant: %w", err)
	}

	return writeJSONOutput(v.GetString("output"), model.ResultsExport{
		ExportedAt:    time.Now().UTC(),
		PromptVariant: variant,
		Results:       results,
	})
}

func runEssay(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	text, err := readInput(v.GetString("file"))
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("essay is empty")
	}

	llmClient, err := newLLMClient(v)
	if err != nil {
		return err
	}
	ev := essay.NewEvaluator(llmClient, promptVariant(v)).Evaluate(context.Background(), model.EssayRequest{
		Topic:    v.GetString("topic"),
		Essay:    text,
		Criteria: v.GetString("criteria"),
	})
	if ev.Fallback {
		slog.Warn("essay could not be graded by the model, printing fallback evaluation")
	}
	return writeJSONOutput("-", ev)
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	path := v.GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	hash := sha256sum(data)
	key := "import:" + path
	storedHash, err := db.GetMetadata(ctx, key)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("questions file unchanged, skipping", "path", path)
		return nil
	}

	questions, err := exam.ParseQuestions(string(data), 0, "")
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	title := v.GetString("title")
	if title == "" {
		title = path
	}
	gen := exam.NewGenerator(nil, db, model.ExamConfig{})
	e, saved, err := gen.Save(ctx, model.Exam{
		Title:       title,
		Description: v.GetString("description"),
		InputText:   "imported from " + path,
		StudentID:   v.GetInt64("student-id"),
	}, questions)
	if err != nil {
		return err
	}
	if err := db.SetMetadata(ctx, key, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported exam", "path", path, "exam_id", e.ID, "questions", len(saved))
	fmt.Println(e.ID)
	return nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeJSONOutput(outPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
