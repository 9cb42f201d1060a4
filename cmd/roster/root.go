package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/database"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/logger"
)

var (
	cfgPath string
	appCfg  *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "roster",
	Short:         "月度排班引擎",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.App.Version == "dev" {
			cfg.App.Version = Version
		}
		appCfg = cfg
		logger.Init(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "应用配置文件（yaml/json），环境变量 ROSTER_* 优先")
	rootCmd.Version = Version
}

// signalContext 收到中断信号时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openTailStore 按数据库配置打开末尾状态存储并建表
func openTailStore(ctx context.Context, cfg *config.Config) (*database.DB, *repository.TailRepository, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repository.NewTailRepository(db), nil
}
