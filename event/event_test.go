// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/lootcrate/event"
	"go.uber.org/goleak"
)

func TestEventBusSingleSubscriber(t *testing.T) {
	var testEvtData int = 999
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, testEvtData))
	select {
	case evt, ok := <-subCh:
		if !ok {
			t.Fatalf("event channel closed unexpectedly")
		}
		switch v := evt.Data.(type) {
		case int:
			if v != testEvtData {
				t.Fatalf("did not get expected event")
			}
		default:
			t.Fatalf(
				"event data was not of expected type, expected int, got %T",
				evt.Data,
			)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	var testEvtData int = 999
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil)
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, testEvtData))
	for _, subCh := range []<-chan event.Event{sub1Ch, sub2Ch} {
		select {
		case evt, ok := <-subCh:
			if !ok {
				t.Fatalf("event channel closed unexpectedly")
			}
			if evt.Data.(int) != testEvtData {
				t.Fatalf("did not get expected event")
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for event")
		}
	}
}

func TestEventBusSubscribeFunc(t *testing.T) {
	var counter atomic.Int64
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil)
	eb.SubscribeFunc(testEvtType, func(_ event.Event) {
		counter.Add(1)
	})
	for range 3 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, nil))
	}
	deadline := time.Now().Add(1 * time.Second)
	for counter.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf(
				"timeout waiting for handler, got %d events",
				counter.Load(),
			)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil)
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	if _, ok := <-subCh; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
	// Publish after unsubscribe must not block or panic
	eb.Publish(testEvtType, event.NewEvent(testEvtType, nil))
}

func TestEventBusStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil)
	_, subCh := eb.Subscribe(testEvtType)
	// SubscribeFunc spawns a handler goroutine that must exit on Stop
	eb.SubscribeFunc(testEvtType, func(_ event.Event) {})
	eb.Stop()
	if _, ok := <-subCh; ok {
		t.Fatalf("expected closed channel after stop")
	}
}
