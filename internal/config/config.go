// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件和环境变量加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Session       SessionConfig       `mapstructure:"session"`
	Audio         AudioConfig         `mapstructure:"audio"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Google        GoogleConfig        `mapstructure:"google"`
	JWT           JWTConfig           `mapstructure:"jwt"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // mysql | sqlite；为空表示未配置
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时使用内存存储。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig controls how long welcome and audio sessions live in Redis.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AudioConfig selects where synthesized audio is written.
type AudioConfig struct {
	Backend string `mapstructure:"backend"` // local | minio
	Dir     string `mapstructure:"dir"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空表示关闭搜索。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空表示直接同步索引。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// LLMConfig 存储大语言模型相关的配置（OpenAI 兼容接口）。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// GoogleConfig holds the Google Cloud project and credentials used by the
// Speech-to-Text and Text-to-Speech clients.
type GoogleConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	LanguageCode    string `mapstructure:"language_code"`
	VoiceGender     string `mapstructure:"voice_gender"`
	SpeechEndpoint  string `mapstructure:"speech_endpoint"`
	TTSEndpoint     string `mapstructure:"tts_endpoint"`
}

// JWTConfig 存储访客 token 的配置。Secret 为空时不签发 token。
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	GuestTokenHours int    `mapstructure:"guest_token_hours"`
}

// legacyEnv maps the environment variable names used by earlier deployments
// onto config keys.
var legacyEnv = map[string][]string{
	"server.port":             {"PORT"},
	"google.project_id":       {"GOOGLE_CLOUD_PROJECT"},
	"google.credentials_file": {"GOOGLE_APPLICATION_CREDENTIALS"},
	"google.credentials_json": {"GOOGLE_APPLICATION_CREDENTIALS_JSON"},
	"llm.api_key":             {"LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 25)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("audio.backend", "local")
	v.SetDefault("audio.dir", "audio")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "tutor-audio")

	v.SetDefault("elasticsearch.addresses", "")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.index_name", "roadmaps")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "roadmap-events")
	v.SetDefault("kafka.group_id", "voice-tutor-indexer")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.model", "gemini-2.5-flash-lite")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.generation.temperature", 0.0)
	v.SetDefault("llm.generation.top_p", 0.0)
	v.SetDefault("llm.generation.max_tokens", 0)

	v.SetDefault("google.project_id", "")
	v.SetDefault("google.credentials_file", "")
	v.SetDefault("google.credentials_json", "")
	v.SetDefault("google.language_code", "en-US")
	v.SetDefault("google.voice_gender", "NEUTRAL")
	v.SetDefault("google.speech_endpoint", "")
	v.SetDefault("google.tts_endpoint", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.guest_token_hours", 24)
}

// Load 从指定的 YAML 文件（可选）、.env 和环境变量构建配置。
// 配置文件不存在时只使用默认值和环境变量。
func Load(configPath string) (Config, error) {
	// .env 不存在是正常情况
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	for key, names := range legacyEnv {
		for _, name := range names {
			if val, ok := os.LookupEnv(name); ok && val != "" {
				v.Set(key, val)
				break
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 加载配置到全局变量 Conf，失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
