package events

import (
	"context"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBridge_DeliversByStore(t *testing.T) {
	b := NewLocalBridge()
	var settings, other []Event

	b.Subscribe("settings", func(ev Event) { settings = append(settings, ev) })
	b.Subscribe("other", func(ev Event) { other = append(other, ev) })

	id := ksuid.New()
	err := b.Notify(context.Background(), []Event{
		{Store: "settings", Key: "theme", CommitID: id},
		{Store: "settings", Key: "old", Removed: true, CommitID: id},
	})
	require.NoError(t, err)

	require.Len(t, settings, 2)
	assert.Equal(t, "theme", settings[0].Key)
	assert.True(t, settings[1].Removed)
	assert.Equal(t, id, settings[1].CommitID)
	assert.Empty(t, other)
}

func TestLocalBridge_SubscriptionOrder(t *testing.T) {
	b := NewLocalBridge()
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe("s", func(Event) { order = append(order, i) })
	}
	require.NoError(t, b.Notify(context.Background(), []Event{{Store: "s", Key: "k"}}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLocalBridge_Unsubscribe(t *testing.T) {
	b := NewLocalBridge()
	calls := 0

	unsubscribe := b.Subscribe("s", func(Event) { calls++ })
	keep := b.Subscribe("s", func(Event) {})
	assert.Equal(t, 2, b.Listeners("s"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, b.Listeners("s"))

	require.NoError(t, b.Notify(context.Background(), []Event{{Store: "s", Key: "k"}}))
	assert.Equal(t, 0, calls)

	keep()
	assert.Equal(t, 0, b.Listeners("s"))
}

func TestLocalBridge_UnsubscribeDuringNotify(t *testing.T) {
	b := NewLocalBridge()
	calls := 0

	var unsubscribe func()
	unsubscribe = b.Subscribe("s", func(Event) {
		calls++
		unsubscribe()
	})

	events := []Event{{Store: "s", Key: "a"}, {Store: "s", Key: "b"}}
	require.NoError(t, b.Notify(context.Background(), events))
	assert.Equal(t, 1, calls)
}
