package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/morentharia/rambler-technical-test/server"
)

// defaultPort prefers the PORT environment variable so deployments can set
// the port without flags.
func defaultPort() int {
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		return p
	}
	return 2323
}

func main() {
	// A .env file is optional.
	_ = godotenv.Load()

	port := flag.Int("port", defaultPort(), "chat port")
	wsAddr := flag.String("ws-addr", "", "optional listen address for the websocket gateway, e.g. localhost:8080")
	level := flag.String("log-level", "INFO", "log level to print logs at")
	flag.Parse()

	srv := server.NewChatServer(*level)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Run(fmt.Sprintf(":%d", *port), *wsAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to run server: %s\n", err)
			os.Exit(1)
		}
		return
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %s\n", err)
		os.Exit(1)
	}
}
