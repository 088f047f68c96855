package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"skin-sync/cmd"
	"skin-sync/internal/events"
	"skin-sync/internal/util"
)

func main() {
	util.SaveTerminal()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Components may ask for shutdown through the bus, payload: reason string.
	_ = events.GlobalBus.Subscribe(events.EventShutdownRequested, func(reason string) {
		cancel()
	})

	err := cmd.ExecuteContext(ctx)
	_ = util.RestoreGlobal()
	if err != nil {
		util.Default.Println(util.ErrStyle.Render("✖ " + err.Error()))
		os.Exit(1)
	}
}
