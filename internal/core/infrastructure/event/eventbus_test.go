package event

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	eventconfig "github.com/weisyn/scriptindex/internal/config/event"
	"github.com/weisyn/scriptindex/pkg/interfaces/infrastructure/event"
)

func TestEventBus(t *testing.T) {
	eventBus := New(eventconfig.New(nil))

	// 同步事件处理
	var receivedData string
	handler := func(data string) {
		receivedData = data
	}
	require.NoError(t, eventBus.Subscribe(event.EventType("test-event"), handler))
	eventBus.Publish(event.EventType("test-event"), "hello world")
	assert.Equal(t, "hello world", receivedData)
	assert.True(t, eventBus.HasCallback(event.EventType("test-event")))

	// 异步事件处理
	var asyncData string
	var asyncWg sync.WaitGroup
	asyncWg.Add(1)
	asyncHandler := func(data string) {
		asyncData = data
		asyncWg.Done()
	}
	require.NoError(t, eventBus.SubscribeAsync(event.EventType("async-event"), asyncHandler, true))
	eventBus.Publish(event.EventType("async-event"), "async data")
	eventBus.WaitAsync()
	asyncWg.Wait()
	assert.Equal(t, "async data", asyncData)

	// 取消订阅后不再接收
	require.NoError(t, eventBus.Unsubscribe(event.EventType("test-event"), handler))
	receivedData = ""
	eventBus.Publish(event.EventType("test-event"), "should not receive")
	assert.Empty(t, receivedData)
}

func TestSubscribeWithIDIndependentUnsubscribe(t *testing.T) {
	eventBus := New(eventconfig.New(nil))
	topic := event.EventType("block")

	var first, second int32
	newHandler := func(counter *int32) event.EventHandler {
		return func(eventType event.EventType, data interface{}) {
			assert.Equal(t, topic, eventType)
			assert.Equal(t, 7, data)
			atomic.AddInt32(counter, 1)
		}
	}

	id1, err := eventBus.SubscribeWithID(topic, newHandler(&first))
	require.NoError(t, err)
	id2, err := eventBus.SubscribeWithID(topic, newHandler(&second))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	eventBus.Publish(topic, 7)
	require.NoError(t, eventBus.UnsubscribeByID(id1))
	eventBus.Publish(topic, 7)

	assert.Equal(t, int32(1), atomic.LoadInt32(&first))
	assert.Equal(t, int32(2), atomic.LoadInt32(&second))

	assert.Error(t, eventBus.UnsubscribeByID(id1))
}

func TestSubscribeWithIDLimit(t *testing.T) {
	eventBus := New(eventconfig.New(&eventconfig.EventOptions{Enabled: true, MaxSubscribers: 1}))
	noop := func(event.EventType, interface{}) {}

	_, err := eventBus.SubscribeWithID("t", noop)
	require.NoError(t, err)
	_, err = eventBus.SubscribeWithID("t", noop)
	assert.Error(t, err)
}

func TestDisabledBusIsSilent(t *testing.T) {
	eventBus := New(eventconfig.New(&eventconfig.EventOptions{Enabled: false}))

	called := false
	require.NoError(t, eventBus.Subscribe("t", func(int) { called = true }))
	eventBus.Publish("t", 1)
	assert.False(t, called)
	assert.False(t, eventBus.HasCallback("t"))
}
