package openai

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds OpenAI-compatible LLM client configuration, sourced from the
// Azure AI Foundry-flavored environment variables.
type Config struct {
	APIKey      string   // AZURE_AI_API_KEY
	BaseURL     string   // AZURE_AI_PROJECT_ENDPOINT
	Model       string   // AZURE_AI_MODEL_DEPLOYMENT_NAME
	Temperature *float32 // nil = API default
	MaxTokens   int      // 0 = no limit
	MaxRetries  int      // retries after any failed call; errors are not classified
	HTTPTimeout int      // seconds
}

// NewConfigFromEnv builds a Config from AZURE_AI_API_KEY,
// AZURE_AI_PROJECT_ENDPOINT, AZURE_AI_MODEL_DEPLOYMENT_NAME, and the
// optional LLM_TEMPERATURE / LLM_MAX_TOKENS / LLM_MAX_RETRIES /
// LLM_HTTP_TIMEOUT tuning variables.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:      os.Getenv("AZURE_AI_API_KEY"),
		BaseURL:     os.Getenv("AZURE_AI_PROJECT_ENDPOINT"),
		Model:       os.Getenv("AZURE_AI_MODEL_DEPLOYMENT_NAME"),
		Temperature: getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:  getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout: getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("AZURE_AI_API_KEY is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("AZURE_AI_PROJECT_ENDPOINT is required")
	}
	if c.Model == "" {
		return fmt.Errorf("AZURE_AI_MODEL_DEPLOYMENT_NAME is required")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		log.Printf("[llm/openai] WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[llm/openai] WARNING: invalid value for %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}
