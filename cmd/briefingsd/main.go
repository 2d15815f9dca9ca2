// Command briefingsd runs the briefings daemon in the foreground. It is the
// container entrypoint; `briefings daemon` is equivalent.
package main

import (
	"context"
	"flag"
	"log"

	"briefings/internal/config"
	"briefings/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("briefingsd: %v", err)
	}
}
