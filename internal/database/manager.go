package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codewiz073-droid/bwami/internal/models"
	"github.com/codewiz073-droid/bwami/internal/websearch"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

type Config struct {
	DatabaseURL string
	RedisURL    string
	LogLevel    string
}

// NewManager creates a new database manager with connection pooling
func NewManager(config *Config, logger *logrus.Logger) (*Manager, error) {
	gormLogLevel := gormlogger.Silent
	if config.LogLevel == "debug" {
		gormLogLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormLogLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 5
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute

	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Database and Redis connections established successfully")

	return &Manager{
		DB:     db,
		Redis:  redisClient,
		logger: logger,
	}, nil
}

// Migrate runs database migrations
func (m *Manager) Migrate() error {
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.User{},
		&models.UserPreferences{},
		&models.Chat{},
		&models.Message{},
	)
}

// Close closes all database connections
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

func (m *Manager) PingDatabase() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (m *Manager) PingRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Redis.Ping(ctx).Err()
}

// Cache implementation
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	EvidenceKey     = "evidence:%s"
	ConnectivityKey = "connectivity:state"
	ChatHistoryKey  = "chat:history:%s"
)

// CacheEvidence stores search evidence for a query hash so repeated
// verification of the same question skips the network.
func (c *Cache) CacheEvidence(ctx context.Context, queryHash string, docs []websearch.EvidenceDocument, expiration time.Duration) error {
	key := fmt.Sprintf(EvidenceKey, queryHash)

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedEvidence retrieves cached evidence documents
func (c *Cache) GetCachedEvidence(ctx context.Context, queryHash string) ([]websearch.EvidenceDocument, error) {
	key := fmt.Sprintf(EvidenceKey, queryHash)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var docs []websearch.EvidenceDocument
	err = json.Unmarshal([]byte(data), &docs)
	return docs, err
}

// CacheChatHistory caches recent messages for a chat
func (c *Cache) CacheChatHistory(ctx context.Context, chatID string, messages []models.Message, expiration time.Duration) error {
	key := fmt.Sprintf(ChatHistoryKey, chatID)

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedChatHistory retrieves cached chat history
func (c *Cache) GetCachedChatHistory(ctx context.Context, chatID string) ([]models.Message, error) {
	key := fmt.Sprintf(ChatHistoryKey, chatID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	err = json.Unmarshal([]byte(data), &messages)
	return messages, err
}

// InvalidateChatHistory removes the cached history after a new message
func (c *Cache) InvalidateChatHistory(ctx context.Context, chatID string) error {
	key := fmt.Sprintf(ChatHistoryKey, chatID)
	return c.client.Del(ctx, key).Err()
}
