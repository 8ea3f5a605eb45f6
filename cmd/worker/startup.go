package main

import (
	"context"
	"log"
	"time"

	"podcast-backend/pkg/container"
)

// startServices performs startup health checks and logs configuration.
func startServices(c *container.Container) error {
	log.Println("============================================")
	log.Println("Podcast Worker Starting...")
	log.Println("============================================")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Println("Checking Redis connection...")
	if err := c.Cache.Ping(ctx); err != nil {
		log.Printf("Redis check failed: %v", err)
		return err
	}
	log.Println("Redis OK")

	if c.GitHub.Enabled() {
		log.Println("Remote episode store: configured")
	} else {
		log.Println("Remote episode store: disabled (local-only mode)")
	}
	if c.Config.ObjectStorageReady() {
		log.Println("Object storage: configured")
	} else {
		log.Println("Object storage: disabled (local disk)")
	}

	return nil
}
