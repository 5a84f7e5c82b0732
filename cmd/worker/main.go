package main

import (
	"log"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/app"
)

func main() {
	cfg := app.LoadWorkerConfig()

	w, err := app.NewWorker(cfg)
	if err != nil {
		log.Fatalf("failed to initialize worker: %v", err)
	}

	if err := w.Run(); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}
