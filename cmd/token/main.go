// Command token prints a signed bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	userID := flag.String("user", "", "user id (a random one is generated when empty)")
	name := flag.String("name", "", "display name")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	id := uuid.New()
	if *userID != "" {
		if id, err = uuid.Parse(*userID); err != nil {
			fmt.Fprintf(os.Stderr, "invalid user id: %v\n", err)
			os.Exit(1)
		}
		if id == uuid.Nil {
			fmt.Fprintln(os.Stderr, "invalid user id: the nil id is reserved for system calls")
			os.Exit(1)
		}
	}

	token, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL).Issue(auth.User{ID: id, Name: *name})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "user %s\n", id)
	fmt.Println(token)
}
