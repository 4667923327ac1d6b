package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abaev/quizdrill/internal/auth"
	"github.com/abaev/quizdrill/internal/handler"
	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
	"github.com/abaev/quizdrill/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizdrill",
		Short: "Multiple-choice exam practice server",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), tokenCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizdrill --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP practice server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizdrill.db", "SQLite database path")
	f.String("allowed-email", "", "The single email allowed to use the app (required)")
	f.String("token-secret", "", "HMAC secret for login tokens (required)")
	f.Duration("cache-ttl", 10*time.Minute, "Read cache TTL (0 disables caching)")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import question dump files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "quizdrill.db", "SQLite database path")
	f.Int("session-time", 30, "Session time limit in minutes")
	f.Int("total-questions", 0, "Declared exam size (0 = number of uploaded questions)")
	f.Int("questions-per-session", 0, "Questions per practice batch (0 = all uploaded)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed login token for the allowed user",
		RunE:  runToken,
	}
	f := cmd.Flags()
	f.String("token-secret", "", "HMAC secret for login tokens (required)")
	f.String("email", "", "Email claim (required)")
	f.String("name", "", "Display name claim")
	f.Duration("ttl", time.Hour, "Token lifetime")

	_ = cmd.MarkFlagRequired("email")

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
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZDRILL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizdrill")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizdrill")
	v.AddConfigPath("/etc/quizdrill")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	allowedEmail := strings.TrimSpace(v.GetString("allowed-email"))
	if allowedEmail == "" {
		return fmt.Errorf("allowed email is required: set --allowed-email flag or QUIZDRILL_ALLOWED_EMAIL env var")
	}
	tokenSecret := v.GetString("token-secret")
	if tokenSecret == "" {
		return fmt.Errorf("token secret is required: set --token-secret flag or QUIZDRILL_TOKEN_SECRET env var")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("cleanup expired login sessions", "error", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cacheTTL := v.GetDuration("cache-ttl")
	cached := store.NewCached(db, cacheTTL)

	cfg := model.ServerConfig{
		AllowedEmail:  allowedEmail,
		TokenSecret:   tokenSecret,
		CacheTTL:      cacheTTL,
		SecureCookies: v.GetBool("secure-cookies"),
	}
	h := handler.New(cached, auth.NewTokenVerifier(tokenSecret), cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"allowed_email", allowedEmail,
		"cache_ttl", cacheTTL,
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

// runImport loads question dump files straight into the store, one exam per
// file. The exam identity comes from the questions themselves.
func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var uploads []model.QuestionUpload
		if err := json.Unmarshal(data, &uploads); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if len(uploads) == 0 {
			return fmt.Errorf("%s contains no questions", path)
		}

		exam := model.Exam{
			Exam:     strings.TrimSpace(uploads[0].Exam),
			Provider: strings.TrimSpace(uploads[0].Provider),
			Metadata: model.Metadata{
				SessionTime:         v.GetInt("session-time"),
				TotalQuestions:      v.GetInt("total-questions"),
				QuestionsPerSession: v.GetInt("questions-per-session"),
			},
		}
		if exam.Exam == "" || exam.Provider == "" {
			return fmt.Errorf("%s: questions must carry exam and provider names", path)
		}
		for _, q := range uploads {
			exam.Questions = append(exam.Questions, q.Question())
		}
		if exam.Metadata.TotalQuestions <= 0 {
			exam.Metadata.TotalQuestions = len(exam.Questions)
		}
		if exam.Metadata.QuestionsPerSession <= 0 {
			exam.Metadata.QuestionsPerSession = len(exam.Questions)
		}

		if err := db.SaveExam(exam); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		slog.Info("imported exam", "path", path, "exam", exam.Exam,
			"provider", exam.Provider, "questions", len(exam.Questions))
	}

	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

	secret := v.GetString("token-secret")
	if secret == "" {
		return fmt.Errorf("token secret is required: set --token-secret flag or QUIZDRILL_TOKEN_SECRET env var")
	}

	token, err := auth.SignToken(secret, v.GetString("email"), v.GetString("name"), v.GetDuration("ttl"))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}
