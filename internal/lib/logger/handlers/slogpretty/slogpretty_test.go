package slogpretty

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler_WritesMessageAndAttrs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.With(slog.String("op", "service.CartService.AddToCart")).
		Error("failed to add line item", slog.Any("error", errors.New("boom")), slog.Int64("orderID", 3))

	out := buf.String()
	assert.Contains(t, out, "ERROR:")
	assert.Contains(t, out, "failed to add line item")
	assert.Contains(t, out, `"op": "service.CartService.AddToCart"`)
	assert.Contains(t, out, `"error": "boom"`)
	assert.Contains(t, out, `"orderID": 3`)
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestPrettyHandler_Group(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf)).WithGroup("http")

	log.Info("request", slog.Int("status", 200))
	assert.Contains(t, buf.String(), `"http.status": 200`)
}
