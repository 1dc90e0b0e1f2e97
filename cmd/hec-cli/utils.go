package main

import (
	"os"
	"os/signal"
	"syscall"
)

func handleKills(done chan struct{}) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigc
		close(done)
	}()
}
