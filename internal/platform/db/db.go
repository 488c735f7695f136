package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	driverName     = "mysql"
	ConfigFilePath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type SchedulerConfig struct {
	// 空なら低在庫チェックは無効
	LowStockCron string `yaml:"low_stock_cron"`
}

type Config struct {
	Version     string          `yaml:"version"`
	Mode        string          `yaml:"mode"`
	LogLevel    string          `yaml:"log_level"`
	Server      ServerConfig    `yaml:"server"`
	DB          DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Certificate Certs           `yaml:"certificate"`
}

// LoadConfig は YAML を読み込んだ後、.env / 環境変数 (EWIS_*) で上書きする。
func LoadConfig(path string) (*Config, error) {
	// .env が無いのは正常
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Mode:     "dev",
		LogLevel: "info",
		Server: ServerConfig{
			Addr:        ":8443",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		DB: DatabaseConfig{
			Host: "127.0.0.1",
			Port: 3306,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Mode, "EWIS_MODE")
	setString(&cfg.LogLevel, "EWIS_LOG_LEVEL")
	setString(&cfg.Server.Addr, "EWIS_ADDR")
	setString(&cfg.DB.Host, "EWIS_DB_HOST")
	setString(&cfg.DB.Username, "EWIS_DB_USER")
	setString(&cfg.DB.Password, "EWIS_DB_PASSWORD")
	setString(&cfg.DB.DBName, "EWIS_DB_NAME")
	setString(&cfg.Auth.JWTSecret, "EWIS_JWT_SECRET")
	setString(&cfg.Scheduler.LowStockCron, "EWIS_LOW_STOCK_CRON")
	if v := os.Getenv("EWIS_DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DB.Port = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	if c.DB.DBName == "" {
		return errors.New("database.dbname must be provided")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (EWIS_JWT_SECRET) must be provided")
	}
	return nil
}

// DSN: clientFoundRows=true で、値が変わらない UPDATE も一致行数を返す。
// 条件付き UPDATE の affected != 1 を同時更新とみなしているため必須。
func DSN(c DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC&clientFoundRows=true",
		c.Username, c.Password, c.Host, c.Port, c.DBName)
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, DSN(c))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect db: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
