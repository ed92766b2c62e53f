// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package supervisor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type blockingService struct {
	started atomic.Bool
	name    string
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 {
		t.Errorf("Expected failure threshold 5, got %f", cfg.FailureThreshold)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %s", cfg.ShutdownTimeout)
	}
}

func TestNewTree_AppliesDefaults(t *testing.T) {
	tree := NewTree(slog.Default(), TreeConfig{})
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("Expected zero threshold to default to 5, got %f", tree.config.FailureThreshold)
	}
	if tree.Root() == nil {
		t.Fatal("Expected non-nil root supervisor")
	}
}

func TestTree_RunsServicesInBothLayers(t *testing.T) {
	tree := NewTree(slog.Default(), DefaultTreeConfig())

	messaging := &blockingService{name: "fake-hub"}
	api := &blockingService{name: "fake-http"}
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for !messaging.started.Load() || !api.started.Load() {
		select {
		case <-deadline:
			t.Fatal("Services did not start under supervision")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Error("Supervisor did not stop after cancellation")
	}
}
