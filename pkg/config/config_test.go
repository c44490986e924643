package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 2*time.Minute, cfg.Analytics.CacheTTL)
	assert.False(t, cfg.Analytics.CacheEnabled)
	assert.Equal(t, 2, cfg.Notifications.Workers)
	assert.Equal(t, 3, cfg.Notifications.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ANALYTICS_CACHE_TTL", "45s")
	v.Set("NOTIFY_RETRY_DELAY", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, 45*time.Second, cfg.Analytics.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
