package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and applies globally for all tests in the package.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	exitVal := m.Run()
	os.Exit(exitVal)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, app, "127.0.0.1:0", slog.Default()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenError(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	err := serve(context.Background(), app, "127.0.0.1:-1", slog.Default())
	assert.Error(t, err)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_FORMAT", "xml")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load application configuration")
}
