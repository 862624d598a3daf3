// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/proc"
	"github.com/zeromicro/go-zero/rest"

	"tradeboard-api/internal/cli"
	"tradeboard-api/internal/config"
	"tradeboard-api/internal/handler"
	"tradeboard-api/internal/svc"
)

var configFile = flag.String("f", "etc/tradeboard.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.MustNewServiceContext(*cfg)
	proc.AddShutdownListener(func() {
		if err := ctx.Close(); err != nil {
			logx.Errorf("close service context: %v", err)
		}
	})
	handler.RegisterHandlers(server, ctx)

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
