package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	app := mustBootstrapCargoAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("cargo-api stopped", "err", err)
		app.Close()
		os.Exit(1)
	}
}
