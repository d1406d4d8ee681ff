package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	clientAddrKey
)

const (
	requestIDHeader = "X-Request-ID"
	unknown         = "unknown"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return value(ctx, requestIDKey)
}

// WithClientAddr records the remote address of the caller.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey, addr)
}

func GetClientAddr(ctx context.Context) string {
	return value(ctx, clientAddrKey)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return unknown
	}
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return unknown
	}
	return v
}

// FromFiberCtx detaches request-scoped values from fasthttp so they survive
// past the handler's return.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, ok := c.Locals(requestIDHeader).(string)
	if !ok || requestID == "" {
		requestID = c.Get(requestIDHeader)
	}

	ctx := WithRequestID(context.Background(), requestID)
	return WithClientAddr(ctx, c.IP())
}

// FromConn is FromFiberCtx for an upgraded websocket connection.
func FromConn(c *websocket.Conn) context.Context {
	requestID, _ := c.Locals(requestIDHeader).(string)

	ctx := WithRequestID(context.Background(), requestID)
	if addr := c.RemoteAddr(); addr != nil {
		ctx = WithClientAddr(ctx, addr.String())
	}
	return ctx
}
