package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empirical-ra/riskengine/pkg/models"
)

func TestPublishStoresLatest(t *testing.T) {
	h := NewHub()
	assert.Nil(t, h.Latest())

	report := &models.AnalysisReport{GeneratedAt: time.Now()}
	require.NoError(t, h.Publish(report))
	assert.Same(t, report, h.Latest())
}

func TestDisconnectAfterShutdown(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := &client{hub: h, send: make(chan []byte, 1), id: "test"}
	require.True(t, h.add(c))

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// A client tearing down after the hub has exited must not block on the
	// unregister channel.
	dropped := make(chan struct{})
	go func() {
		h.drop(c)
		close(dropped)
	}()
	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatal("drop blocked after hub shutdown")
	}

	assert.False(t, h.add(&client{hub: h, id: "late"}))
}
