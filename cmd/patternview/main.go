// patternview serves a renderer-ready view of live pattern executions:
// it subscribes to the orchestration backend's event stream, folds it
// into per-pattern projections, and exposes projection plus computed
// topology geometry as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v3"

	"github.com/matrixagents/patternview/internal/channel"
	"github.com/matrixagents/patternview/internal/client"
	"github.com/matrixagents/patternview/internal/stream"
	"github.com/matrixagents/patternview/internal/viewer"
)

func main() {
	var (
		listen     = flag.String("listen", envOr("LISTEN_ADDR", ":8090"), "address to serve the view API on")
		backendURL = flag.String("backend", envOr("BACKEND_URL", "http://localhost:8080"), "orchestration backend base URL")
		eventsURL  = flag.String("events", envOr("EVENTS_URL", ""), "event stream URL (default <backend>/api/events/stream)")
	)
	flag.Parse()

	if *eventsURL == "" {
		*eventsURL = *backendURL + "/api/events/stream"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventLog := stream.NewLog()
	backend := client.New(*backendURL, nil)

	adapter := channel.New(
		channel.NewSSETransport(*eventsURL, nil),
		eventLog.Ingest,
	)
	go func() {
		if err := adapter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("channel stopped: %v", err)
		}
	}()

	registry := viewer.NewRegistry(eventLog, backend, adapter.Connected)
	if err := registry.LoadCatalogue(ctx); err != nil {
		log.Fatalf("load pattern catalogue: %v", err)
	}

	app := fiber.New()

	app.Get("/api/patterns", func(c fiber.Ctx) error {
		return c.JSON(registry.Patterns())
	})

	app.Get("/api/view/:patternId", func(c fiber.Ctx) error {
		session, err := registry.Session(c.Context(), c.Params("patternId"))
		if err != nil && session == nil {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			// pending-prompt recovery failed; the projected view is still valid
			log.Printf("attach %s: %v", c.Params("patternId"), err)
		}
		if w, h := queryFloat(c, "width"), queryFloat(c, "height"); w > 0 || h > 0 {
			session.SetCanvas(w, h)
		}
		return c.JSON(session.Snapshot())
	})

	app.Post("/api/view/:patternId/execute", func(c fiber.Ctx) error {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		session, err := registry.Session(c.Context(), c.Params("patternId"))
		if err != nil && session == nil {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		result, err := session.Execute(c.Context(), body.Prompt)
		if err != nil {
			return c.Status(502).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(result)
	})

	app.Post("/api/view/:patternId/human-input/:requestId", func(c fiber.Ctx) error {
		var body struct {
			Input string `json:"input"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		session, err := registry.Session(c.Context(), c.Params("patternId"))
		if err != nil && session == nil {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		if err := session.SubmitHumanInput(c.Context(), c.Params("requestId"), body.Input); err != nil {
			// submission failed remotely; the prompt stays pending locally
			return c.Status(502).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"handled": true})
	})

	log.Printf("patternview listening on %s (backend %s)", *listen, *backendURL)
	if err := app.Listen(*listen); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func queryFloat(c fiber.Ctx, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return v
}
