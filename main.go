package main

import (
	"log"
	"os"

	"github.com/TamannaDash/QueueCTLpy/cmd"
	"github.com/TamannaDash/QueueCTLpy/internal/queue"
	"github.com/TamannaDash/QueueCTLpy/internal/store"
)

func main() {
	dbPath := os.Getenv("QUEUECTL_DB_PATH")
	if dbPath == "" {
		dbPath = "queuectl.db"
	}

	s, err := store.New(dbPath)
	if err != nil {
		log.Fatal("Failed to initialize store:", err)
	}
	defer s.Close()

	q := queue.New(s)
	cmd.Execute(q, dbPath)
}
