package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/pktwire/internal/node"
	"github.com/danmuck/pktwire/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "node config.toml (defaults when empty)")
	flag.Parse()

	observability.InitLogger("pktnode")

	cfg := node.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pktnode: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc, err := node.NewServiceWithConfig(cfg)
	if err == nil {
		err = svc.Run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pktnode: %v\n", err)
		os.Exit(1)
	}
}
