package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/stock-admin-cli/internal/adapters/history"
	sessionfile "github.com/bnema/stock-admin-cli/internal/adapters/session/file"
	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/application"
	"github.com/bnema/stock-admin-cli/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".stock-admin"

	storeURLKey    = "store.url"
	sessionPathKey = "session.path"
	historyPathKey = "history.path"

	defaultStoreURL = "http://127.0.0.1:8090"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// app is the single process-scoped context object: every adapter and service
// is constructed once here and handed to the commands by reference.
type app struct {
	client     *store.Client
	sessions   *application.SessionManager
	data       *application.DataService
	aggregates *application.AggregateService
	importer   *application.Importer
	history    *history.Repository
	logger     *zap.Logger
	clock      ports.Clock
}

func wireApp() (*app, error) {
	cfg := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetEnvPrefix("SA")
	cfg.SetEnvKeyReplacer(envKeyReplacer)
	cfg.AutomaticEnv()
	cfg.SetDefault(storeURLKey, defaultStoreURL)
	cfg.SetDefault(sessionPathKey, filepath.Join(homeDir, configDir, "session.json"))
	cfg.SetDefault(historyPathKey, filepath.Join(homeDir, configDir, "imports.toml"))

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	client := store.New(cfg.GetString(storeURLKey), http.DefaultClient)

	sessionStore, err := sessionfile.NewStore(cfg.GetString(sessionPathKey))
	if err != nil {
		return nil, fmt.Errorf("wire session storage: %w", err)
	}

	historyRepo, err := history.NewRepository(cfg.GetString(historyPathKey))
	if err != nil {
		return nil, fmt.Errorf("wire import history: %w", err)
	}

	data := application.NewDataService(client)
	aggregates := application.NewAggregateService(client, logger)

	return &app{
		client:     client,
		sessions:   application.NewSessionManager(client, sessionStore, logger),
		data:       data,
		aggregates: aggregates,
		importer:   application.NewImporter(data, client, aggregates, logger),
		history:    historyRepo,
		logger:     logger,
		clock:      ports.SystemClock{},
	}, nil
}

func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if os.Getenv("SA_DEBUG") != "" {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return config.Build()
}
