package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/healthsync/healthsync-api/internal/agent"
	appconfig "github.com/healthsync/healthsync-api/internal/config"
	"github.com/healthsync/healthsync-api/internal/generalqa"
	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/internal/observability/metrics"
	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// BuildAgent assembles the booking assistant. A nil redis client leaves general
// answers without chat memory.
func BuildAgent(cfg *appconfig.Config, store schedule.Store, client llm.Client, redisClient *redis.Client, m *metrics.AgentMetrics, logger *logging.Logger) (*agent.Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var history generalqa.HistoryStore
	if redisClient != nil {
		history = generalqa.NewRedisHistoryStore(redisClient, cfg.GeneralHistoryLimit, cfg.GeneralHistoryTTL)
	} else {
		logger.Warn("general chat history disabled")
	}
	general := generalqa.NewService(client, history, cfg.GeneralHistoryLimit, cfg.LLMTemperature, logger)

	return agent.New(agent.Options{
		Store:       store,
		LLM:         client,
		General:     general,
		Temperature: cfg.LLMTemperature,
		Logger:      logger,
		Metrics:     m,
	})
}
