package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/healthsync/healthsync-api/internal/config"
	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// ErrNoLLMProvider is returned when neither Gemini nor Bedrock is configured.
var ErrNoLLMProvider = errors.New("bootstrap: no llm provider configured (set GEMINI_API_KEY or BEDROCK_MODEL_ID)")

// LLMStack is the assembled model client plus whatever must be closed on shutdown.
type LLMStack struct {
	Client  llm.Client
	Primary string
	closers []func() error
}

// Close releases provider connections.
func (s *LLMStack) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadAWSConfig loads the default AWS chain, preferring static credentials
// from config when both halves are set.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, loaders...)
}

// BuildLLMClient wires the configured provider as primary and the other one,
// when it has credentials, as fallback. Every call is bounded by LLMTimeout.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*LLMStack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stack := &LLMStack{}
	providers := map[string]llm.Client{}

	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" {
		gemini, err := llm.NewGeminiClient(ctx, key, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		stack.closers = append(stack.closers, gemini.Close)
		providers[ProviderGemini] = gemini
	}
	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			_ = stack.Close()
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		providers[ProviderBedrock] = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), model)
	}

	primaryName, secondaryName := ProviderGemini, ProviderBedrock
	if cfg.LLMProvider == ProviderBedrock {
		primaryName, secondaryName = ProviderBedrock, ProviderGemini
	}
	primary, secondary := providers[primaryName], providers[secondaryName]
	if primary == nil {
		if secondary == nil {
			return nil, ErrNoLLMProvider
		}
		logger.Warn("configured llm provider unavailable; using the other one",
			"wanted", primaryName, "using", secondaryName)
		primary, primaryName, secondary = secondary, secondaryName, nil
	}

	client := primary
	if secondary != nil {
		client = llm.NewFallbackClient(primary, secondary, logger)
	}
	stack.Client = llm.WithTimeout(client, cfg.LLMTimeout)
	stack.Primary = primaryName

	logger.Info("llm configured",
		"primary", primaryName,
		"fallback", secondary != nil,
		"timeout", cfg.LLMTimeout.String(),
	)
	return stack, nil
}
