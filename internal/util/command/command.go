package command

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/config"
)

const (
	// ConfigFlag 根命令上的持久参数，所有子命令共享
	ConfigFlag = "config"

	shutdownTimeout = 30 * time.Second
)

// NewSubcommandGroup 创建只负责分组的父命令
func NewSubcommandGroup(name string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: name + " related subcommands",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}
	cmd.AddCommand(subcommands...)
	return cmd
}

// LoadConfig 读取 --config 指定的文件，环境变量覆盖文件中的值
func LoadConfig(cmd *cobra.Command) (config.Server, error) {
	file, err := cmd.Flags().GetString(ConfigFlag)
	if err != nil {
		// 未挂到根命令上（例如测试中单独执行）时只用环境变量
		file = ""
	}
	return config.Load(file)
}

// ConfigureLogger 按配置设置全局日志级别和输出格式
func ConfigureLogger(cfg config.Server) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Logger.Level)
	if cfg.Logger.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
			w.Out = os.Stderr
		}))
	}
}

// WithServer 初始化完整的服务组件但不监听端口，f 返回后关闭
func WithServer(ctx context.Context, cfg config.Server, f func(ctx context.Context, s *api.Server) error) error {
	ConfigureLogger(cfg)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize server")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdown_errors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	return f(ctx, s)
}
