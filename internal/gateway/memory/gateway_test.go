package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/gateway"
)

func TestPushWithFullBufferDoesNotBlockScripting(t *testing.T) {
	gw := New()
	t.Cleanup(gw.Close)

	for range cap(gw.events) {
		gw.Push(gateway.CommandInvoked{CommunityID: "guild-1", Text: "!approval status"})
	}

	// One pusher parks on the full buffer; the fake must stay usable.
	pushed := make(chan struct{})
	go func() {
		gw.Push(gateway.CommandInvoked{CommunityID: "guild-1", Text: "!approval status"})
		close(pushed)
	}()

	scripted := make(chan struct{})
	go func() {
		gw.SetAdmin("op-1")
		close(scripted)
	}()

	select {
	case <-scripted:
	case <-time.After(time.Second):
		t.Fatal("scripting stuck behind a full event buffer")
	}

	ok, err := gw.IsReviewer(context.Background(), "guild-1", "op-1")
	require.NoError(t, err)
	assert.True(t, ok)

	for range cap(gw.events) + 1 {
		<-gw.Events()
	}
	<-pushed
}

func TestPushRacingCloseDoesNotPanic(t *testing.T) {
	gw := New()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range gw.Events() {
		}
	}()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				gw.Push(gateway.CommandInvoked{CommunityID: "guild-1", Text: "!approval help"})
			}
		}()
	}

	gw.Close()
	wg.Wait()
	<-drained

	// Late pushes after Close are dropped.
	gw.Push(gateway.CommandInvoked{CommunityID: "guild-1", Text: "!approval help"})
}
