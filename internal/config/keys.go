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
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "sk-...abc"
}

// CheckAPIKeys returns the status of all required API keys.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, "TRENDLENS_LLM_OPENAI_KEY"),
		checkKey("Google Ads Developer Token", cfg.Ads.DeveloperToken, "TRENDLENS_ADS_DEVELOPER_TOKEN"),
		checkKey("Google Ads Client Secret", cfg.Ads.ClientSecret, "TRENDLENS_ADS_CLIENT_SECRET"),
		checkKey("Google Ads Refresh Token", cfg.Ads.RefreshToken, "TRENDLENS_ADS_REFRESH_TOKEN"),
		checkKey("Slack Webhook URL", cfg.Notify.SlackWebhookURL, "TRENDLENS_NOTIFY_SLACK_WEBHOOK_URL"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value != "" {
		// Check if it came from env
		if os.Getenv(envVar) != "" {
			status.Source = KeySourceEnv
		} else {
			status.Source = KeySourceConfig
		}
		status.Masked = maskKey(value)
	} else {
		status.Source = KeySourceNone
	}

	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
