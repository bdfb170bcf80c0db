// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（JWT 密钥、MinIO 凭证、SendGrid API Key）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	MinIO  MinIOConfig  `yaml:"minio"`
	Auth   AuthConfig   `yaml:"auth"`
	Mail   MailConfig   `yaml:"mail"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

// MinIOConfig 对象存储配置（商品图片 / 用户头像）
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"` // 图片外链基地址，如 http://localhost:9000
	AccessKey string `yaml:"-"`          // 从 MINIO_ACCESS_KEY 环境变量读取
	SecretKey string `yaml:"-"`          // 从 MINIO_SECRET_KEY 环境变量读取
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret      string        `yaml:"-"` // 从 JWT_SECRET 环境变量读取
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

// MailConfig 询盘邮件配置
type MailConfig struct {
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
	APIKey      string `yaml:"-"` // 从 SENDGRID_API_KEY 环境变量读取
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env           Environment
	APIPort       string
	Mongo         MongoConfig
	MinIO         MinIOConfig
	Auth          AuthConfig
	Mail          MailConfig
	AdminEmail    string // 启动时确保存在的管理员账号（可选）
	AdminPassword string
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息和覆盖项
	yamlCfg.Mongo.URI = getEnv("MONGO_URI", yamlCfg.Mongo.URI)
	yamlCfg.Mongo.Name = getEnv("MONGO_DB", yamlCfg.Mongo.Name)
	yamlCfg.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", yamlCfg.MinIO.Endpoint)
	yamlCfg.MinIO.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	yamlCfg.MinIO.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	yamlCfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	yamlCfg.Mail.APIKey = os.Getenv("SENDGRID_API_KEY")

	cfg := &Config{
		Env:           env,
		APIPort:       getEnv("PORT", yamlCfg.Server.Port),
		Mongo:         yamlCfg.Mongo,
		MinIO:         yamlCfg.MinIO,
		Auth:          yamlCfg.Auth,
		Mail:          yamlCfg.Mail,
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	// 1. 初始化默认值
	cfg := &YAMLConfig{
		Server: ServerConfig{Port: "3002"},
		Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Name: "student_market"},
		MinIO: MinIOConfig{
			Endpoint:  "localhost:9000",
			Bucket:    "student-market",
			UseSSL:    false,
			PublicURL: "http://localhost:9000",
		},
		Auth: AuthConfig{AccessTokenTTL: 7 * 24 * time.Hour},
		Mail: MailConfig{FromAddress: "noreply@studentfastfind.example", FromName: "Student Fast Find"},
	}

	// 2. 加载 common.yaml（公共配置）
	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	// 3. 加载 {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏凭证）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Mongo: %s/%s, MinIO: %s/%s}",
		c.Env, maskPassword(c.Mongo.URI), c.Mongo.Name, c.MinIO.Endpoint, c.MinIO.Bucket)
}

// maskPassword 隐藏连接串中的密码
func maskPassword(uri string) string {
	re := regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
	return re.ReplaceAllString(uri, "${1}***${3}")
}
