// Package main serves the member sign-in demo with the flow initiator on
// /begin-oauth-flow.
package main

import (
	"log/slog"
	"os"

	"github.com/go-training/oauth-member-demo/pkg/app"
)

func main() {
	if err := app.Run("/begin-oauth-flow"); err != nil {
		slog.Error("Server error", "err", err)
		os.Exit(1)
	}
}
