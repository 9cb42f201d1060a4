// roster 月度排班引擎
// 命令行入口：solve 求解，validate 复核，serve 启动HTTP服务

package main

import (
	"os"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
