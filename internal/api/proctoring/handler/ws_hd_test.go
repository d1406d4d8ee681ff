package proctoringHandler

import (
	"ProctorGolang/internal/api/proctoring"
	"ProctorGolang/internal/entity"
	"ProctorGolang/pkg/redis"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

type fakeFeed struct {
	events []entity.ProctorEvent
}

func (f *fakeFeed) PublishEvent(context.Context, entity.ProctorEvent) error { return nil }

func (f *fakeFeed) Subscribe(ctx context.Context) <-chan entity.ProctorEvent {
	out := make(chan entity.ProctorEvent)
	go func() {
		defer close(out)
		for _, e := range f.events {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out
}

func (f *fakeFeed) Close() error { return nil }

func serve(t *testing.T, svc *fakeService) string {
	return serveWithFeed(t, svc, nil)
}

func serveWithFeed(t *testing.T, svc *fakeService, feed redis.IRedis) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	app := newTestAppWithFeed(svc, feed)
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return "ws://" + ln.Addr().String()
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestEventWebSocketAcks(t *testing.T) {
	conn := dial(t, serve(t, &fakeService{})+"/api/v1/proctor/ws")

	for _, msg := range []string{`{"type":"tab_switch"}`, "plain text"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}

		var ack proctoring.EventAck
		if err := conn.ReadJSON(&ack); err != nil {
			t.Fatal(err)
		}
		if !ack.Ack || ack.ID != 1 || ack.RiskScore == nil || *ack.RiskScore != 0.1 {
			t.Errorf("ack = %+v", ack)
		}
	}
}

func TestEventWebSocketFailureKeepsConnection(t *testing.T) {
	conn := dial(t, serve(t, &fakeService{err: proctoring.ErrRecordEvent})+"/api/v1/proctor/ws")

	for i := 0; i < 2; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"x"}`)); err != nil {
			t.Fatal(err)
		}

		raw := map[string]interface{}{}
		if err := conn.ReadJSON(&raw); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if raw["ack"] != false || raw["error"] != "failed to record event" {
			t.Errorf("ack = %v", raw)
		}
		if _, ok := raw["id"]; ok {
			t.Errorf("failed ack carries an id: %v", raw)
		}
	}
}

func TestFrameWebSocket(t *testing.T) {
	svc := &fakeService{analysis: entity.FrameAnalysis{
		Status:    entity.PresenceMultipleFaces,
		FaceCount: 2,
		Gaze:      entity.GazeLeft,
		Objects:   []string{},
		Signals:   []string{entity.EventMultipleFaces, entity.EventGazeAway},
		RiskScore: 0.1,
	}}
	conn := dial(t, serve(t, svc)+"/api/v1/proctor/frames/ws")

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("not an image")); err != nil {
		t.Fatal(err)
	}
	var frameErr proctoring.FrameError
	if err := conn.ReadJSON(&frameErr); err != nil {
		t.Fatal(err)
	}
	if frameErr.Error != proctoring.ErrInvalidImage.Error() {
		t.Errorf("error = %q", frameErr.Error)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, pngBytes(t)); err != nil {
		t.Fatal(err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var analysis entity.FrameAnalysis
	if err := jsoniter.Unmarshal(raw, &analysis); err != nil {
		t.Fatal(err)
	}
	if analysis.Status != entity.PresenceMultipleFaces || analysis.Gaze != entity.GazeLeft {
		t.Errorf("analysis = %+v", analysis)
	}
}

func TestFrameWebSocketDetectorError(t *testing.T) {
	conn := dial(t, serve(t, &fakeService{err: errors.New("detector unavailable")})+"/api/v1/proctor/frames/ws")

	if err := conn.WriteMessage(websocket.BinaryMessage, pngBytes(t)); err != nil {
		t.Fatal(err)
	}
	var frameErr proctoring.FrameError
	if err := conn.ReadJSON(&frameErr); err != nil {
		t.Fatal(err)
	}
	if frameErr.Error != "detector unavailable" {
		t.Errorf("error = %q", frameErr.Error)
	}
}

func TestLiveWebSocketStreamsEvents(t *testing.T) {
	feed := &fakeFeed{events: []entity.ProctorEvent{
		{ID: 7, EventType: "visibilityhidden", RiskScore: 0.7},
		{ID: 8, EventType: "face_missing", RiskScore: 0.1},
	}}
	conn := dial(t, serveWithFeed(t, &fakeService{}, feed)+"/api/v1/proctor/live/ws")

	for _, want := range feed.events {
		var got proctoring.EventResponse
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatal(err)
		}
		if got.ID != want.ID || got.EventType != want.EventType || got.RiskScore != want.RiskScore {
			t.Errorf("live event = %+v, want %+v", got, want)
		}
	}
}

func TestEventWebSocketRootAlias(t *testing.T) {
	conn := dial(t, serve(t, &fakeService{})+"/ws/proctor")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"client_connected","ts":1}`)); err != nil {
		t.Fatal(err)
	}
	var ack proctoring.EventAck
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatal(err)
	}
	if !ack.Ack || ack.ID != 1 {
		t.Errorf("ack = %+v", ack)
	}
}
