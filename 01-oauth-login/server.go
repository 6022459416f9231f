// Package main serves the member sign-in demo with the flow initiator on /login.
package main

import (
	"log/slog"
	"os"

	"github.com/go-training/oauth-member-demo/pkg/app"
)

func main() {
	if err := app.Run("/login"); err != nil {
		slog.Error("Server error", "err", err)
		os.Exit(1)
	}
}
