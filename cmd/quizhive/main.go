package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/account"
	"github.com/quizhive/quizhive/internal/quizhive/analytics"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	"github.com/quizhive/quizhive/internal/quizhive/events"
	"github.com/quizhive/quizhive/internal/quizhive/handlers"
	"github.com/quizhive/quizhive/internal/quizhive/identity"
	"github.com/quizhive/quizhive/internal/quizhive/membership"
	"github.com/quizhive/quizhive/internal/quizhive/notify"
	"github.com/quizhive/quizhive/internal/quizhive/quiz"
	"github.com/quizhive/quizhive/internal/quizhive/votestore"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config struct for YAML configuration
type Config struct {
	HTTPPort      int      `yaml:"HTTP_PORT"`
	DBHost        string   `yaml:"DB_HOST"`
	DBPort        int      `yaml:"DB_PORT"`
	DBUser        string   `yaml:"DB_USER"`
	DBPassword    string   `yaml:"DB_PASSWORD"`
	DBName        string   `yaml:"DB_NAME"`
	DBSSLMode     string   `yaml:"DB_SSLMODE"`
	RedisAddr     string   `yaml:"REDIS_ADDR"`
	RedisPassword string   `yaml:"REDIS_PASSWORD"`
	RedisDB       int      `yaml:"REDIS_DB"`
	KafkaBrokers  []string `yaml:"KAFKA_BROKERS"`
	Topic         string   `yaml:"TOPIC"`
	GroupID       string   `yaml:"GROUP_ID"`
	JWTSecret     string   `yaml:"JWT_SECRET"`
	JWTIssuer     string   `yaml:"JWT_ISSUER"`
	TokenTTLHours int      `yaml:"TOKEN_TTL_HOURS"`
	IDPIssuer     string   `yaml:"IDP_ISSUER"`
	IDPAudience   string   `yaml:"IDP_AUDIENCE"`
	IDPJWKSURL    string   `yaml:"IDP_JWKS_URL"`
}

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := db.NewRepository(initDatabase(cfg))
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		log.Fatal("failed to initialize Kafka producer", err)
	}
	defer producer.Close()

	votes := votestore.New(votestore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))

	signer := identity.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.TokenTTLHours)*time.Hour)
	resolver := identity.NewResolver(repo, signer, identity.ProviderConfig{
		Issuer:   cfg.IDPIssuer,
		Audience: cfg.IDPAudience,
		JWKSURL:  cfg.IDPJWKSURL,
	}, logger)

	gate := access.NewGate(repo)
	notifySvc := notify.NewService(repo, logger)

	api := &handlers.API{
		Users:         account.NewUserService(repo, signer, logger),
		Companies:     account.NewCompanyService(repo, gate, logger),
		Membership:    membership.NewService(repo, gate, logger),
		Quizzes:       quiz.NewService(repo, gate, producer, votes, logger),
		Analytics:     analytics.NewService(repo, gate, logger),
		Notifications: notifySvc,
		Resolver:      resolver,
	}

	// Fan out notifications off the quiz event stream.
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.GroupID, cfg.Topic, logger)
	consumer.RegisterHandler(notifySvc.HandleEvent)
	consumer.Start(consumerCtx)

	server := handlers.NewServer(cfg.HTTPPort, api, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)

	cancelConsumer()
	consumer.Close()
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// loadConfig loads configuration. Use real config tooling (e.g. Viper) in production.
// TODO: some settings to env
func loadConfig() (*Config, error) {
	configPath := filepath.Join("internal", "quizhive", "config", "config.yaml")
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// initDatabase initializes the database connection.
func initDatabase(cfg *Config) *db.Config {
	return &db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down the server.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Server stopped properly")
}
