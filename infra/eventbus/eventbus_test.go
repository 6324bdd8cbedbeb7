package eventbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/monetary/pkg/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestEvent struct {
	Message string `json:"message"`
}

func (e *TestEvent) Type() string {
	return "test.event"
}

type OtherEvent struct {
	N int `json:"n"`
}

func (e *OtherEvent) Type() string {
	return "other.event"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryBus_Dispatch(t *testing.T) {
	bus := NewWithMemory(discardLogger())
	ctx := context.Background()

	var got []string
	bus.Register("test.event", func(_ context.Context, e eventbus.Event) error {
		got = append(got, e.(*TestEvent).Message)
		return nil
	})
	bus.Register("test.event", func(context.Context, eventbus.Event) error {
		return errors.New("second handler fails")
	})
	bus.Register("test.event", func(context.Context, eventbus.Event) error {
		panic("third handler panics")
	})

	require.NoError(t, bus.Emit(ctx, &TestEvent{Message: "hello"}))
	require.NoError(t, bus.Emit(ctx, &OtherEvent{N: 1}))

	assert.Equal(t, []string{"hello"}, got)
	assert.Len(t, bus.Published(), 2)

	bus.ClearPublished()
	assert.Empty(t, bus.Published())
}

func TestMemoryBus_BoundedHistory(t *testing.T) {
	bus := NewWithMemory(nil)
	for i := range maxPublished + 10 {
		require.NoError(t, bus.Emit(context.Background(), &OtherEvent{N: i}))
	}
	published := bus.Published()
	require.Len(t, published, maxPublished)
	assert.Equal(t, 10, published[0].(*OtherEvent).N)
}

func TestNewWithRedis_Validation(t *testing.T) {
	_, err := NewWithRedis("", "stream", "group", nil, nil)
	assert.Error(t, err)
	_, err = NewWithRedis("not a url", "stream", "group", nil, nil)
	assert.Error(t, err)
}

// setupRedisBus starts a Redis container using testcontainers-go and returns a
// RedisEventBus and a cleanup function.
func setupRedisBus(tb testing.TB) (*RedisEventBus, func()) {
	tb.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0.5",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		tb.Fatalf("Failed to start container: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		tb.Fatalf("Failed to get mapped port: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		tb.Fatalf("Failed to get container host: %v", err)
	}

	url := "redis://" + host + ":" + port.Port()
	types := map[string]func() eventbus.Event{
		"test.event":  func() eventbus.Event { return &TestEvent{} },
		"other.event": func() eventbus.Event { return &OtherEvent{} },
	}
	bus, err := NewWithRedis(url, "monetary:test", "monetary", types, discardLogger())
	if err != nil {
		tb.Fatalf("Failed to create Redis event bus: %v", err)
	}

	cleanup := func() {
		_ = bus.Close()
		_ = container.Terminate(ctx)
	}
	return bus, cleanup
}

func TestRedisBus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	bus, cleanup := setupRedisBus(t)
	defer cleanup()
	ctx := context.Background()

	var mu sync.Mutex
	var messages []string
	bus.Register("test.event", func(_ context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, e.(*TestEvent).Message)
		return nil
	})
	others := make(chan int, 1)
	bus.Register("other.event", func(_ context.Context, e eventbus.Event) error {
		others <- e.(*OtherEvent).N
		return nil
	})

	for i := range 3 {
		require.NoError(t, bus.Emit(ctx, &TestEvent{Message: fmt.Sprintf("msg %d", i)}))
	}
	require.NoError(t, bus.Emit(ctx, &OtherEvent{N: 7}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(messages) == 3
	}, 5*time.Second, 50*time.Millisecond)

	select {
	case n := <-others:
		assert.Equal(t, 7, n)
	case <-time.After(5 * time.Second):
		t.Fatal("other.event handler did not receive event in time")
	}
}

func TestRedisBus_DLQ(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	bus, cleanup := setupRedisBus(t)
	defer cleanup()
	ctx := context.Background()

	// Register a handler that always fails
	bus.Register("test.event", func(context.Context, eventbus.Event) error {
		return fmt.Errorf("simulated failure")
	})
	require.NoError(t, bus.Emit(ctx, &TestEvent{Message: "should go to DLQ"}))

	assert.Eventually(t, func() bool {
		n, err := bus.client.XLen(ctx, bus.DLQStream()).Result()
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	res, err := bus.client.XRange(ctx, bus.DLQStream(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Contains(t, res[0].Values["event"], "should go to DLQ")
}
