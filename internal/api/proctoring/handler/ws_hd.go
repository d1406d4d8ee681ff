package proctoringHandler

import (
	"ProctorGolang/internal/api/proctoring"
	proctoringService "ProctorGolang/internal/api/proctoring/service"
	"ProctorGolang/internal/entity"
	contextPkg "ProctorGolang/pkg/context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	maxReadTimeout = 60 * time.Second
	writeTimeout   = 10 * time.Second
	frameTimeout   = 10 * time.Second
)

func (h *ProctoringHandler) setPingHandler(c *websocket.Conn) {
	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})
}

func (h *ProctoringHandler) writeJSON(c *websocket.Conn, v interface{}) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := c.WriteJSON(v); err != nil {
		return err
	}
	return c.SetWriteDeadline(time.Time{})
}

// handleEventWebSocket records every text or binary message as a client
// event and acknowledges it with the assigned id and risk score.
func (h *ProctoringHandler) handleEventWebSocket(c *websocket.Conn) {
	ctx := contextPkg.FromConn(c)
	requestID := contextPkg.GetRequestID(ctx)

	h.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"client_addr": contextPkg.GetClientAddr(ctx),
	}).Info("Proctor event WebSocket client connected")
	defer h.log.WithField("request_id", requestID).Info("Proctor event WebSocket client disconnected")

	h.setPingHandler(c)

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("Proctor event WebSocket error: %v", err)
			} else {
				h.log.Info("Proctor event WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		var ack proctoring.EventAck
		event, err := h.proctoringService.RecordClientEvent(ctx, message)
		if err != nil {
			ack = proctoring.EventAck{Ack: false, Error: err.Error()}
		} else {
			score := event.RiskScore
			ack = proctoring.EventAck{Ack: true, ID: event.ID, RiskScore: &score}
		}

		if err := h.writeJSON(c, ack); err != nil {
			h.log.Errorf("Error writing ack: %v", err)
			break
		}
	}
}

// handleFrameWebSocket analyzes each binary JPEG or PNG frame and replies
// with the analysis. Bad frames get an error reply and the loop continues.
func (h *ProctoringHandler) handleFrameWebSocket(c *websocket.Conn) {
	base := contextPkg.FromConn(c)
	requestID := contextPkg.GetRequestID(base)

	h.log.WithField("request_id", requestID).Info("Frame WebSocket client connected")
	defer h.log.WithField("request_id", requestID).Info("Frame WebSocket client disconnected")

	h.setPingHandler(c)

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("Frame WebSocket error: %v", err)
			} else {
				h.log.Info("Frame WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			if err := h.writeJSON(c, proctoring.FrameError{Error: "frames must be sent as binary messages"}); err != nil {
				break
			}
			continue
		}

		frame, err := h.utils.DecodeImage(message)
		if err != nil {
			if err := h.writeJSON(c, proctoring.FrameError{Error: imageError(err).Error()}); err != nil {
				h.log.Errorf("Error sending error response: %v", err)
				break
			}
			continue
		}

		ctx, cancel := context.WithTimeout(base, frameTimeout)
		analysis, err := h.proctoringService.Analyze(ctx, frame)
		cancel()
		if err != nil {
			h.log.Errorf("Error analyzing frame: %v", err)
			if err := h.writeJSON(c, proctoring.FrameError{Error: err.Error()}); err != nil {
				h.log.Errorf("Error sending error response: %v", err)
				break
			}
			continue
		}

		if err := h.writeJSON(c, analysis); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}

// handleLiveWebSocket streams every published event to the client until
// either side closes.
func (h *ProctoringHandler) handleLiveWebSocket(c *websocket.Conn) {
	h.log.Info("Live feed WebSocket client connected")
	defer h.log.Info("Live feed WebSocket client disconnected")

	h.streamLive(c, h.feed.Subscribe, func(v interface{}) error {
		return h.writeJSON(c, v)
	})
}

type liveConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// streamLive returns only after its reader goroutine has exited; the
// connection is released back to a pool once the handler returns.
func (h *ProctoringHandler) streamLive(
	conn liveConn,
	subscribe func(ctx context.Context) <-chan entity.ProctorEvent,
	write func(v interface{}) error,
) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		cancel()
		if err := conn.Close(); err != nil {
			h.log.Debugf("Error closing live feed connection: %v", err)
		}
		<-readerDone
	}()

	for event := range subscribe(ctx) {
		if err := write(proctoringService.MakeEventResponse(event)); err != nil {
			h.log.Errorf("Error writing live event: %v", err)
			return
		}
	}
}
