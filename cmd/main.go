package main

import (
	"context"
	"errors"
	"io/fs"
	"log"

	"github.com/farellandr/ticketgate/internal/server"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to a .env file, loaded when present")
	port := flag.String("port", "", "port to listen on, overrides PORT")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading %s: %v", *envFile, err)
	}

	if err := server.Start(context.Background(), server.Options{Port: *port}); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
