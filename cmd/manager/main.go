package main

import (
	"log"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize manager: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("manager error: %v", err)
	}
}
