package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/atsub/cli"
	"github.com/ardnew/atsub/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cli.Run(ctx, func(code int) { stop(); os.Exit(code) }, os.Args[1:]...)

	stop()

	if err != nil {
		log.Error("atsub failed", slog.Any("error", err))
		os.Exit(1)
	}
}
