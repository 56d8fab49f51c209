package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "BRIDGE"

type EchoServer struct {
	Debug                          bool
	ListenAddress                  string
	HideInternalServerErrorDetails bool
	RequestTimeout                 time.Duration
}

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	PrettyPrintConsole bool
}

// Storage 持久化后端：memory | redis | postgres | badger
type Storage struct {
	Driver      string
	RedisAddr   string
	PostgresDSN string
	BadgerPath  string
}

type Approval struct {
	// Timeout 等待持有者决定的上限，超时视为拒绝
	Timeout time.Duration
	// HolderToken 审批接口的 Bearer 令牌，为空时启动时生成
	HolderToken string
}

type Chains struct {
	EthereumChainID int64
	BitcoinNetwork  string
	// ProbeNetworks 校验网络时通过 RPC 确认链ID
	ProbeNetworks bool
}

type Management struct {
	ProbeURL     string
	ProbeTimeout time.Duration
}

type Server struct {
	Version    string
	Echo       EchoServer
	Logger     LoggerServer
	Storage    Storage
	Approval   Approval
	Chains     Chains
	Management Management
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")

	v.SetDefault("echo.debug", false)
	v.SetDefault("echo.listen_address", ":8080")
	v.SetDefault("echo.hide_internal_server_error_details", true)
	v.SetDefault("echo.request_timeout", "10m")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.request_level", "info")
	v.SetDefault("logger.pretty_print_console", false)

	v.SetDefault("storage.driver", "badger")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.badger_path", "data/bridge")

	v.SetDefault("approval.timeout", "5m")
	v.SetDefault("approval.holder_token", "")

	v.SetDefault("chains.ethereum_chain_id", 1)
	v.SetDefault("chains.bitcoin_network", "mainnet")
	v.SetDefault("chains.probe_networks", false)

	v.SetDefault("management.probe_url", "http://127.0.0.1:8080")
	v.SetDefault("management.probe_timeout", "5s")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load 读取默认值、可选的配置文件和 BRIDGE_ 前缀的环境变量，环境变量优先
func Load(configFile string) (Server, error) {
	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Server{}, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}
	return fromViper(v)
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined above.
func DefaultServiceConfigFromEnv() Server {
	cfg, err := Load("")
	if err != nil {
		log.Panic().Err(err).Msg("Failed to load config from environment")
	}
	return cfg
}

func fromViper(v *viper.Viper) (Server, error) {
	level, err := parseLevel(v.GetString("logger.level"))
	if err != nil {
		return Server{}, err
	}
	requestLevel, err := parseLevel(v.GetString("logger.request_level"))
	if err != nil {
		return Server{}, err
	}

	driver := strings.ToLower(v.GetString("storage.driver"))
	switch driver {
	case "memory", "redis", "postgres", "badger":
	default:
		return Server{}, errors.Errorf("unsupported storage driver %q", driver)
	}

	return Server{
		Version: v.GetString("version"),
		Echo: EchoServer{
			Debug:                          v.GetBool("echo.debug"),
			ListenAddress:                  v.GetString("echo.listen_address"),
			HideInternalServerErrorDetails: v.GetBool("echo.hide_internal_server_error_details"),
			RequestTimeout:                 v.GetDuration("echo.request_timeout"),
		},
		Logger: LoggerServer{
			Level:              level,
			RequestLevel:       requestLevel,
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
		Storage: Storage{
			Driver:      driver,
			RedisAddr:   v.GetString("storage.redis_addr"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			BadgerPath:  v.GetString("storage.badger_path"),
		},
		Approval: Approval{
			Timeout:     v.GetDuration("approval.timeout"),
			HolderToken: v.GetString("approval.holder_token"),
		},
		Chains: Chains{
			EthereumChainID: v.GetInt64("chains.ethereum_chain_id"),
			BitcoinNetwork:  v.GetString("chains.bitcoin_network"),
			ProbeNetworks:   v.GetBool("chains.probe_networks"),
		},
		Management: Management{
			ProbeURL:     v.GetString("management.probe_url"),
			ProbeTimeout: v.GetDuration("management.probe_timeout"),
		},
	}, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	return level, nil
}
