package websocketPkg

import (
	"ProctorGolang/internal/entity"
	"ProctorGolang/pkg/vision"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	TaskFaces   = "faces"
	TaskEyes    = "eyes"
	TaskObjects = "objects"
)

type Encoder func(frame *entity.Frame, quality int) ([]byte, error)

type visionRequest struct {
	Task   string            `json:"task"`
	Image  string            `json:"image"`
	Region *entity.Detection `json:"region,omitempty"`
}

type visionResponse struct {
	Detections []entity.Detection `json:"detections"`
	Error      string             `json:"error,omitempty"`
}

// visionClient talks to an external vision service over one websocket
// connection. A request and its response are exchanged under mu, so
// concurrent callers are serialized on the connection.
type visionClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	encode       Encoder
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	closed       bool
	done         chan struct{}
}

// NewVisionClient returns a Detector backed by the service at url. The first
// connection is attempted in the background and retried on demand.
func NewVisionClient(url string, encode Encoder, log *logrus.Logger) vision.Detector {
	if url == "" {
		url = getVisionURL()
	}

	client := &visionClient{
		url:          url,
		encode:       encode,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}

	go client.connectInBackground()

	return client
}

func (c *visionClient) connectInBackground() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reconnectLocked(); err != nil {
		c.log.Warnf("Initial connection to vision service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Infof("Connected to vision service at %s", c.url)
}

func (c *visionClient) reconnectLocked() error {
	if c.closed {
		return vision.ErrDetectorClosed
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *visionClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping to vision service failed, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *visionClient) DetectFaces(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	dets, err := c.request(ctx, TaskFaces, frame, nil)
	if err != nil {
		return nil, err
	}
	return clip(dets, frame), nil
}

func (c *visionClient) DetectEyes(ctx context.Context, frame *entity.Frame, face entity.Detection) ([]entity.Detection, error) {
	dets, err := c.request(ctx, TaskEyes, frame, &face)
	if err != nil {
		return nil, err
	}

	eyes := make([]entity.Detection, 0, len(dets))
	for _, d := range clip(dets, frame) {
		if face.Contains(d) {
			eyes = append(eyes, d)
		}
	}
	return eyes, nil
}

func (c *visionClient) DetectProhibitedItems(ctx context.Context, frame *entity.Frame) ([]string, error) {
	dets, err := c.request(ctx, TaskObjects, frame, nil)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(dets))
	for _, d := range dets {
		labels = append(labels, d.Label)
	}
	return vision.UniqueLabels(labels), nil
}

func (c *visionClient) request(ctx context.Context, task string, frame *entity.Frame, region *entity.Detection) ([]entity.Detection, error) {
	if frame == nil {
		return nil, errors.New("frame is nil")
	}

	img, err := c.encode(frame, 85)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	body, err := jsoniter.Marshal(visionRequest{
		Task:   task,
		Image:  base64.StdEncoding.EncodeToString(img),
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.reconnectLocked(); err != nil {
			return nil, fmt.Errorf("cannot connect to vision service: %w", err)
		}
	}
	conn := c.conn

	writeDeadline := time.Now().Add(c.writeTimeout)
	readDeadline := time.Now().Add(c.readTimeout)
	if dl, ok := ctx.Deadline(); ok {
		if dl.Before(writeDeadline) {
			writeDeadline = dl
		}
		if dl.Before(readDeadline) {
			readDeadline = dl
		}
	}

	conn.SetWriteDeadline(writeDeadline)
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		c.dropLocked(conn)
		return nil, fmt.Errorf("error sending %s request: %w", task, err)
	}

	conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked(conn)
		return nil, fmt.Errorf("error reading %s response: %w", task, err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var resp visionResponse
	if err := jsoniter.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling %s response: %w", task, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("vision service %s error: %s", task, resp.Error)
	}

	c.log.WithFields(logrus.Fields{
		"task":       task,
		"detections": len(resp.Detections),
	}).Debug("Received response from vision service")

	return resp.Detections, nil
}

func (c *visionClient) dropLocked(conn *websocket.Conn) {
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func (c *visionClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func clip(dets []entity.Detection, frame *entity.Frame) []entity.Detection {
	out := make([]entity.Detection, 0, len(dets))
	for _, d := range dets {
		if c, ok := d.ClipTo(frame.Width, frame.Height); ok {
			out = append(out, c)
		}
	}
	return out
}

func getVisionURL() string {
	url := os.Getenv("AI_VISION_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/vision/ws"
	}
	return url
}
