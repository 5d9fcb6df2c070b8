package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	ArticleSourceSQLite  = "sqlite"
	ArticleSourceGraphQL = "graphql"

	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

type Config struct {
	ListenAddr string
	StaticDir  string

	RootURL   string
	SiteTitle string

	CacheLiveNavigation string

	ArticleSource string
	SQLitePath    string

	GraphQLEndpoint  string
	GraphQLAuthToken string

	HomeArticles int

	LogLevel      slog.Level
	TraceExporter string
}

func Load() Config {
	return Config{
		ListenAddr: getEnv("BLOG_LISTEN_ADDR", ":8080"),
		StaticDir:  getEnv("BLOG_STATIC_DIR", "internal/web/static"),
		RootURL:    getEnv("BLOG_ROOT_URL", ""),
		SiteTitle:  getEnv("BLOG_SITE_TITLE", "devblog"),
		CacheLiveNavigation: strings.TrimSpace(
			os.Getenv("BLOG_CACHE_LIVE_NAV"),
		),
		ArticleSource:    getEnvChoice("BLOG_ARTICLE_SOURCE", ArticleSourceSQLite, ArticleSourceSQLite, ArticleSourceGraphQL),
		SQLitePath:       getEnv("BLOG_SQLITE_PATH", "devblog.db"),
		GraphQLEndpoint:  getEnv("BLOG_GRAPHQL_ENDPOINT", "http://localhost:3000/api/graphql"),
		GraphQLAuthToken: os.Getenv("BLOG_GRAPHQL_AUTH_TOKEN"),
		HomeArticles:     getEnvInt("BLOG_HOME_ARTICLES", 3),
		LogLevel:         getEnvLevel("BLOG_LOG_LEVEL", slog.LevelInfo),
		TraceExporter:    getEnvChoice("BLOG_TRACE_EXPORTER", TraceExporterNone, TraceExporterNone, TraceExporterStdout),
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}

	return parsed
}

func getEnvChoice(key string, fallback string, choices ...string) string {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	for _, choice := range choices {
		if value == choice {
			return choice
		}
	}

	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}

	return level
}
