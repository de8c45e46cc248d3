package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lumikids/radiogen-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	// Clean up scratch dirs left behind by a previous crash before taking
	// traffic.
	a.Services.Scratch.SweepStale(a.Cfg.ScratchMaxAge)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := a.Services.Mixing.AssertReady(ctx); err != nil {
		a.Log.Warn("ffmpeg not ready at startup", "error", err)
	}
	cancel()

	a.Log.Info("Starting server...", "port", a.Cfg.Port)
	if err := a.Router.Run(":" + a.Cfg.Port); err != nil {
		a.Log.Fatal("Server exited", "error", err)
	}
}
