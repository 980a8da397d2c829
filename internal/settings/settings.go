// Package settings keeps the runtime knobs the dashboard can edit
// without a redeploy: alert thresholds, the Slack webhook, and the
// tracked-keyword list. State lives in Redis as JSON under two fixed
// keys so the web UI and the scheduled notifier share one source of
// truth.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trendlens/trendlens/internal/config"
)

const (
	settingsKey = "dashboard_settings"
	keywordsKey = "tracked_keywords"
)

// Settings are the dashboard-editable runtime values.
type Settings struct {
	NotificationThreshold float64 `json:"notification_threshold"`
	MinHitsThreshold      int     `json:"min_hits_threshold"`
	SlackWebhookURL       string  `json:"slack_webhook_url"`
}

// Defaults returns the values written on first run.
func Defaults() Settings {
	return Settings{
		NotificationThreshold: 10,
		MinHitsThreshold:      100,
		SlackWebhookURL:       "",
	}
}

// Client reads and writes settings state in Redis.
type Client struct {
	rdb redis.Cmdable
}

// New connects to Redis using the config section.
func New(cfg config.RedisConfig) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// NewWithClient wraps an existing Redis client (used in tests).
func NewWithClient(rdb redis.Cmdable) *Client {
	return &Client{rdb: rdb}
}

// Ping verifies the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("settings: ping: %w", err)
	}
	return nil
}

// Initialize writes default settings and an empty keyword list unless
// they already exist. force overwrites existing state.
func (c *Client) Initialize(ctx context.Context, force bool) error {
	if !force {
		n, err := c.rdb.Exists(ctx, settingsKey).Result()
		if err != nil {
			return fmt.Errorf("settings: initialize: %w", err)
		}
		if n > 0 {
			return nil
		}
	}
	if err := c.Save(ctx, Defaults()); err != nil {
		return err
	}
	return c.SaveKeywords(ctx, []string{})
}

// Get reads the settings, falling back to defaults when the key is
// missing.
func (c *Client) Get(ctx context.Context) (Settings, error) {
	raw, err := c.rdb.Get(ctx, settingsKey).Result()
	if errors.Is(err, redis.Nil) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: get: %w", err)
	}

	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	return s, nil
}

// Save writes the settings.
func (c *Client) Save(ctx context.Context, s Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := c.rdb.Set(ctx, settingsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// Keywords reads the tracked-keyword list. A missing key is an empty
// list.
func (c *Client) Keywords(ctx context.Context) ([]string, error) {
	raw, err := c.rdb.Get(ctx, keywordsKey).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: keywords: %w", err)
	}

	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, fmt.Errorf("settings: decode keywords: %w", err)
	}
	return keywords, nil
}

// SaveKeywords writes the tracked-keyword list.
func (c *Client) SaveKeywords(ctx context.Context, keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}
	raw, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("settings: encode keywords: %w", err)
	}
	if err := c.rdb.Set(ctx, keywordsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("settings: save keywords: %w", err)
	}
	return nil
}
