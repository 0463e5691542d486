package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"   yaml:"name"`
	Source APIKeySource `json:"source" yaml:"source"`
	IsSet  bool         `json:"is_set" yaml:"is_set"`
	Masked string       `json:"masked,omitempty" yaml:"masked,omitempty"` // e.g., "AIz...abc"
}

// CheckAPIKeys returns the status of the language-model API keys.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Gemini API Key", cfg.LLM.GeminiKey, "TICKERPROXY_LLM_GEMINI_KEY", "GEMINI_API_KEY"),
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, "TICKERPROXY_LLM_OPENAI_KEY", "OPENAI_API_KEY"),
	}
}

// ActiveKey returns the key for the configured provider.
func (c *Config) ActiveKey() string {
	if c.LLM.Provider == "openai" {
		return c.LLM.OpenAIKey
	}
	return c.LLM.GeminiKey
}

// Redacted returns a copy of the config with secrets masked, safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	if out.LLM.GeminiKey != "" {
		out.LLM.GeminiKey = maskKey(out.LLM.GeminiKey)
	}
	if out.LLM.OpenAIKey != "" {
		out.LLM.OpenAIKey = maskKey(out.LLM.OpenAIKey)
	}
	return out
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, ev := range envVars {
		if os.Getenv(ev) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
