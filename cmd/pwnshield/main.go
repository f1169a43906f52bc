package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	dotenv "github.com/joho/godotenv"
)

func main() {
	_ = dotenv.Load()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		cancel()
		log.Fatal(err)
	}

	cancel()
}
