package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/Tyrowin/roomchat/internal/server"
)

const banner = `
                           _           _
 _ __ ___   ___  _ __ ___ | |__   __ _| |_
| '__/ _ \ / _ \| '_ ' _ \| '_ \ / _' | __|
| | | (_) | (_) | | | | | | | | | (_| | |_
|_|  \___/ \___/|_| |_| |_|_| |_|\__,_|\__|
`

func main() {
	fmt.Println(color.New(color.FgCyan, color.Bold).Sprint(banner))

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	sanitized := cfg.Sanitize()

	logger := logging.New(sanitized.LogLevel, sanitized.LogFormat, os.Stdout)
	srv := server.New(sanitized, logger)
	httpServer := server.CreateServer(sanitized.Port, srv.Handler())

	info := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s ws://localhost%s/ws?user=<name>&room_name=<room>&create=true\n", info("Chat endpoint:"), sanitized.Port)
	fmt.Printf("%s http://localhost%s/health\n", info("Health check: "), sanitized.Port)
	fmt.Printf("%s http://localhost%s/api/rooms\n", info("Rooms API:    "), sanitized.Port)
	fmt.Println("Press Ctrl+C to shutdown")

	go func() {
		if err := srv.Start(httpServer); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		sanitized.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.ShutdownServer(ctx, httpServer)
			},
			"hub": func(context.Context) error {
				return srv.Hub().Shutdown(sanitized.ShutdownTimeout)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Server exited", "code", exitCode)
	os.Exit(exitCode)
}
