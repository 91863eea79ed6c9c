package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64  `mapstructure:"admin_chat_id"`
		ChannelID   string `mapstructure:"channel_id"`
		// Mode: "polling" | "webhook"
		Mode        string
		PollTimeout int `mapstructure:"poll_timeout"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr   string
		Port   int
		Domain string
	} `mapstructure:"http"`

	Payments struct {
		SecretKey     string `mapstructure:"secret_key"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		Currency      string
		ProductName   string `mapstructure:"product_name"`
		DirectLink    bool   `mapstructure:"direct_link"`
	} `mapstructure:"payments"`

	Storage struct {
		// Driver: "file" | "postgres"
		Driver string
		Dir    string
	} `mapstructure:"storage"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Grants struct {
		MaxAttempts  int           `mapstructure:"max_attempts"`
		Retries      uint64        `mapstructure:"retries"`
		Backoff      time.Duration `mapstructure:"backoff"`
		ScanInterval time.Duration `mapstructure:"scan_interval"`
	} `mapstructure:"grants"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// legacyEnv: имена переменных окружения из старого деплоя (.env на Node),
// чтобы существующие окружения продолжали работать без правок.
var legacyEnv = map[string]string{
	"payments.secret_key":     "STRIPE_SECRET_KEY",
	"payments.webhook_secret": "STRIPE_WEBHOOK_SECRET",
	"telegram.token":          "BOT_TOKEN",
	"telegram.admin_chat_id":  "ADMIN_ID",
	"telegram.channel_id":     "CHANNEL_ID",
	"http.domain":             "DOMAIN",
	"http.port":               "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.channel_id", "")
	v.SetDefault("telegram.mode", "polling")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("http.addr", "")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.domain", "")
	v.SetDefault("payments.secret_key", "")
	v.SetDefault("payments.webhook_secret", "")
	v.SetDefault("payments.currency", "rub")
	v.SetDefault("payments.product_name", "Telegram Subscription")
	v.SetDefault("payments.direct_link", false)
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", ".")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("grants.max_attempts", 5)
	v.SetDefault("grants.retries", 3)
	v.SetDefault("grants.backoff", "2s")
	v.SetDefault("grants.scan_interval", "1m")
	v.SetDefault("metrics.enabled", true)
}

// Load читает конфиг из YAML (если файл есть), затем накладывает .env и переменные окружения.
// ENV: APP_<SECTION>_<KEY> или старые имена из legacyEnv.
func Load(path string) (Config, error) {
	// .env необязателен
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, err
		}
	}

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return c, err
			}
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Validate проверяет обязательные параметры.
func (c Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token")
	}
	if c.Telegram.AdminChatID == 0 {
		missing = append(missing, "telegram.admin_chat_id")
	}
	if c.Telegram.ChannelID == "" {
		missing = append(missing, "telegram.channel_id")
	}
	if c.Payments.SecretKey == "" {
		missing = append(missing, "payments.secret_key")
	}
	if c.Payments.WebhookSecret == "" {
		missing = append(missing, "payments.webhook_secret")
	}
	if c.HTTP.Domain == "" {
		missing = append(missing, "http.domain")
	}
	if c.Storage.Driver == "postgres" && c.Postgres.DSN == "" {
		missing = append(missing, "postgres.dsn")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}

	switch c.Storage.Driver {
	case "file", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Telegram.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("config: unknown telegram mode %q", c.Telegram.Mode)
	}
	return nil
}

// ListenAddr адрес HTTP-сервера: http.addr, иначе ":<port>".
func (c Config) ListenAddr() string {
	if c.HTTP.Addr != "" {
		return c.HTTP.Addr
	}
	return ":" + strconv.Itoa(c.HTTP.Port)
}

// PublicURL публичный адрес сервиса без завершающего слэша.
func (c Config) PublicURL() string {
	return strings.TrimRight(c.HTTP.Domain, "/")
}
