// Package config はサーバーとクライアントの設定を読み込みます。
//
// 読み込み順 (後勝ち):
//  1. デフォルト値
//  2. TOMLファイル (theone.toml または $THEONE_CONFIG)
//  3. .env (godotenv。既存の環境変数は上書きしない)
//  4. 環境変数
//
// CLIフラグによる上書きは呼び出し側 (internal/cli) で行います。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultConfigFile はカレントディレクトリで探す設定ファイル名です。
const DefaultConfigFile = "theone.toml"

// Config はアプリケーション全体の設定です。
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Client   ClientConfig   `toml:"client"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig はAPIサーバーの設定です。
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	JWTSecret   string   `toml:"jwt_secret"`
	TokenTTL    Duration `toml:"token_ttl"`
	FrontendURL string   `toml:"frontend_url"`
}

// DatabaseConfig はデータベース接続の設定です。
// Driver は "mysql" または "sqlite3"。
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	User   string `toml:"user"`
	Pass   string `toml:"pass"`
	Host   string `toml:"host"`
	Port   string `toml:"port"`
	Name   string `toml:"name"`
	Path   string `toml:"path"` // sqlite3 用
}

// ClientConfig はCLI/TUIクライアントの設定です。
type ClientConfig struct {
	APIBaseURL      string   `toml:"api_base_url"`
	RemoteTimeout   Duration `toml:"remote_timeout"`
	CredentialsPath string   `toml:"credentials_path"`
	Token           string   `toml:"-"` // THEONE_TOKEN からのみ
	LocalDBPath     string   `toml:"local_db_path"`
	LocalUser       string   `toml:"local_user"`
}

// LogConfig はログ出力の設定です。
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration は "10s" のような文字列で書ける time.Duration です。
type Duration struct {
	time.Duration
}

// UnmarshalText は time.ParseDuration 形式の文字列を読み込みます。
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText は Duration を文字列に変換します。
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default はデフォルト値で埋めた Config を返します。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			TokenTTL:    Duration{24 * time.Hour},
			FrontendURL: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "127.0.0.1",
			Port:   "3306",
			Name:   "todo",
			Path:   "theone.db",
		},
		Client: ClientConfig{
			APIBaseURL:    "http://localhost:8080",
			RemoteTimeout: Duration{10 * time.Second},
			LocalDBPath:   "theone.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load は設定を読み込みます。path が空の場合は $THEONE_CONFIG、
// それもなければ DefaultConfigFile を (存在すれば) 使います。
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = os.Getenv("THEONE_CONFIG")
	}
	if file == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			file = DefaultConfigFile
		}
	}
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", file, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv は環境変数で設定を上書きします。
func loadFromEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *Duration) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		return dst.UnmarshalText([]byte(v))
	}

	setString("SERVER_ADDR", &cfg.Server.Addr)
	setString("JWT_SECRET", &cfg.Server.JWTSecret)
	setString("FRONTEND_URL", &cfg.Server.FrontendURL)
	if err := setDuration("TOKEN_TTL", &cfg.Server.TokenTTL); err != nil {
		return fmt.Errorf("TOKEN_TTL: %w", err)
	}

	setString("DB_DRIVER", &cfg.Database.Driver)
	setString("DB_USER", &cfg.Database.User)
	setString("DB_PASS", &cfg.Database.Pass)
	setString("DB_HOST", &cfg.Database.Host)
	setString("DB_PORT", &cfg.Database.Port)
	setString("DB_NAME", &cfg.Database.Name)
	setString("DB_PATH", &cfg.Database.Path)

	setString("API_BASE_URL", &cfg.Client.APIBaseURL)
	setString("THEONE_CREDENTIALS", &cfg.Client.CredentialsPath)
	setString("THEONE_TOKEN", &cfg.Client.Token)
	setString("THEONE_LOCAL_DB", &cfg.Client.LocalDBPath)
	setString("THEONE_USER", &cfg.Client.LocalUser)
	if err := setDuration("REMOTE_TIMEOUT", &cfg.Client.RemoteTimeout); err != nil {
		return fmt.Errorf("REMOTE_TIMEOUT: %w", err)
	}

	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
	return nil
}

// DSN はドライバーに応じた接続文字列 (DSN) を構築します。
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case "sqlite3":
		return c.Path
	default:
		// 例: user:pass@tcp(db:3306)/dbname
		// clientFoundRows: 値が変わらないUPDATEでも RowsAffected を 1 にする
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&clientFoundRows=true",
			c.User, c.Pass, c.Host, c.Port, c.Name)
	}
}
