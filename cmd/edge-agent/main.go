// Command edge-agent polls the edge service's notification feed the way an
// installed client would, keeping the client-local read state on disk.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cpl-edge-go/internal/config"
	"cpl-edge-go/internal/pushclient"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	var configPath, server, stateDir string
	flag.StringVar(&configPath, "config", getenvDefault("EDGE_CONFIG", "edge.yaml"), "path to edge.yaml")
	flag.StringVar(&server, "server", getenvDefault("EDGE_SERVER", "http://localhost:8080"), "edge service base URL")
	flag.StringVar(&stateDir, "state", getenvDefault("AGENT_STATE_DIR", ".edge-agent"), "read-state directory")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	reads, err := pushclient.OpenReadState(stateDir)
	if err != nil {
		log.Fatalf("open read state: %v", err)
	}
	defer reads.Close()

	api := pushclient.NewHTTPAPI(server, nil)

	// No push service here: the agent is a headless poller, so the
	// subscription capability is reported absent.
	manager := pushclient.NewManager(nil, nil, api, "", "cpl-edge-agent/1.0", reads)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("edge-agent polling %s every %s", server, cfg.PollDuration())
	manager.Run(ctx, cfg.PollDuration())
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
