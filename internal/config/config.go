package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "github.com/VNP-Solutions/vnp-scraper-backend-sub000/common/config"
)

// MaxAccessCacheTTL 权限缓存时间上限
const MaxAccessCacheTTL = 5 * time.Minute

// Config vnp-api（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	Log struct {
		Level  string
		Format string
	}

	Access struct {
		// CacheTTL 权限集合缓存时间，0 表示不缓存，上限 MaxAccessCacheTTL
		CacheTTL  time.Duration
		KeyPrefix string
	}

	Activity struct {
		Stream string
	}

	Scraper ScraperConfig

	// EncryptionKey 用于 OTA 凭据加解密
	EncryptionKey string
}

// ScraperConfig 爬虫服务配置（任务代理）
type ScraperConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB 不可用时回退到内存存储（本地联调）
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "vnp"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Access.CacheTTL = time.Duration(parseInt(getEnv("ACCESS_CACHE_TTL_SECONDS", "0"), 0)) * time.Second
	// 层级（物业/子组合归属）变更不会主动失效缓存，最多滞后 CacheTTL
	if cfg.Access.CacheTTL > MaxAccessCacheTTL {
		cfg.Access.CacheTTL = MaxAccessCacheTTL
	}
	cfg.Access.KeyPrefix = getEnv("ACCESS_CACHE_PREFIX", "vnp:access:")

	cfg.Activity.Stream = getEnv("ACTIVITY_STREAM", "activity:permissions")

	cfg.Scraper.BaseURL = getEnv("SCRAPER_BASE_URL", "http://localhost:9000")
	cfg.Scraper.APIKey = getEnv("SCRAPER_API_KEY", "")
	cfg.Scraper.Timeout = time.Duration(parseInt(getEnv("SCRAPER_TIMEOUT_SECONDS", "15"), 15)) * time.Second

	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return def
	}
	return i
}
