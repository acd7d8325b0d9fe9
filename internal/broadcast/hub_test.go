package broadcast

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/clipvibe/api/internal/model"
)

func recvEvent(t *testing.T, ch <-chan model.ProgressEvent) model.ProgressEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return model.ProgressEvent{}
}

func expectNoEvent(t *testing.T, ch <-chan model.ProgressEvent) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	events, cancel := hub.Subscribe("job-1")
	defer cancel()

	for i := 0; i < 10; i++ {
		hub.Publish(model.ProgressEvent{
			JobID:     "job-1",
			Stage:     model.StageAnalyzing,
			ClipIndex: i,
			Total:     10,
		})
	}

	for i := 0; i < 10; i++ {
		got := recvEvent(t, events)
		if got.ClipIndex != i {
			t.Fatalf("event %d: got clip index %d", i, got.ClipIndex)
		}
	}
}

func TestHubIsolatesJobs(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	one, cancelOne := hub.Subscribe("job-1")
	defer cancelOne()
	two, cancelTwo := hub.Subscribe("job-2")
	defer cancelTwo()

	hub.Publish(model.ProgressEvent{JobID: "job-1", Stage: model.StageComplete, Total: 1})

	if got := recvEvent(t, one); got.JobID != "job-1" {
		t.Fatalf("wrong event: %+v", got)
	}
	expectNoEvent(t, two)
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var chans []<-chan model.ProgressEvent
	for i := 0; i < 3; i++ {
		ch, cancel := hub.Subscribe("job-1")
		defer cancel()
		chans = append(chans, ch)
	}

	hub.Publish(model.ProgressEvent{JobID: "job-1", Stage: model.StageGrading, ClipIndex: 1, Total: 2})

	for i, ch := range chans {
		got := recvEvent(t, ch)
		if got.Stage != model.StageGrading || got.ClipIndex != 1 {
			t.Fatalf("subscriber %d: wrong event %+v", i, got)
		}
	}
}

func TestHubLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Publish before anyone is listening and let the hub loop drop it.
	hub.Publish(model.ProgressEvent{JobID: "job-1", Stage: model.StageAnalyzing, Total: 1})
	time.Sleep(50 * time.Millisecond)

	events, cancel := hub.Subscribe("job-1")
	defer cancel()

	expectNoEvent(t, events)

	hub.Publish(model.ProgressEvent{JobID: "job-1", Stage: model.StageComplete, Total: 1})
	if got := recvEvent(t, events); got.Stage != model.StageComplete {
		t.Fatalf("expected only the event published after subscribing, got %+v", got)
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	events, cancel := hub.Subscribe("job-1")
	cancel()
	cancel() // second cancel must be a no-op

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the last subscriber left must not block or panic.
	hub.Publish(model.ProgressEvent{JobID: "job-1", Stage: model.StageComplete, Total: 1})
}

// TestHandleConnectionPongDuringEventStream drives a live connection with
// client pings while the hub streams progress events. Every frame the
// client reads must be intact JSON: pong replies share the writer
// goroutine with event frames, so neither may corrupt the other.
func TestHandleConnectionPongDuringEventStream(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	defer app.Shutdown()

	url := "ws://" + ln.Addr().String() + "/ws/jobs/job-1"
	var conn *fws.Conn
	for i := 0; i < 40; i++ {
		conn, _, err = fws.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// let the server side finish subscribing before events flow
	time.Sleep(100 * time.Millisecond)

	const eventCount = 20
	go func() {
		for i := 0; i < eventCount; i++ {
			hub.Publish(model.ProgressEvent{
				JobID:     "job-1",
				Stage:     model.StageAnalyzing,
				ClipIndex: i,
				Total:     eventCount,
			})
		}
	}()

	ping, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePing})
	for i := 0; i < 5; i++ {
		if err := conn.WriteMessage(fws.TextMessage, ping); err != nil {
			t.Fatalf("write ping: %v", err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	events, pongs, next := 0, 0, 0
	for events < eventCount || pongs == 0 {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d events, %d pongs: %v", events, pongs, err)
		}
		var head model.WSMessage
		if err := json.Unmarshal(data, &head); err != nil {
			t.Fatalf("received corrupt frame: %q", data)
		}
		switch head.Type {
		case model.WSMessageTypeProgress:
			var msg model.WSProgressMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("corrupt progress frame: %q", data)
			}
			if msg.Event.ClipIndex != next {
				t.Fatalf("events out of order: got clip index %d, want %d", msg.Event.ClipIndex, next)
			}
			next++
			events++
		case model.WSMessageTypePong:
			pongs++
		default:
			t.Fatalf("unexpected frame type %q", head.Type)
		}
	}
}

func TestHubEvictsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	events, cancel := hub.Subscribe("job-1")
	defer cancel()

	// Overflow the subscriber buffer without draining it, then give the
	// hub loop time to hit the full channel and evict.
	for i := 0; i < 70; i++ {
		hub.Publish(model.ProgressEvent{
			JobID:     "job-1",
			Stage:     model.StageAnalyzing,
			ClipIndex: i,
			Total:     70,
		})
	}
	time.Sleep(100 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	received := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				if received >= 70 {
					t.Fatalf("received all %d events; subscriber was never evicted", received)
				}
				// evicting the last subscriber must also reap the job entry
				hub.mu.RLock()
				_, ok := hub.subs["job-1"]
				hub.mu.RUnlock()
				if ok {
					t.Error("empty subscriber map left behind after eviction")
				}
				return
			}
			received++
		case <-deadline:
			t.Fatalf("channel never closed; received %d events", received)
		}
	}
}
