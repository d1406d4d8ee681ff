package log

import (
	"bytes"
	"context"
	"testing"

	contextPkg "ProctorGolang/pkg/context"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		wantID   string
		wantAddr string
	}{
		{
			name:     "request scoped",
			ctx:      contextPkg.WithClientAddr(contextPkg.WithRequestID(context.Background(), "req-42"), "10.1.2.3:5555"),
			wantID:   "req-42",
			wantAddr: "10.1.2.3:5555",
		},
		{name: "bare context", ctx: context.Background(), wantID: "unknown", wantAddr: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := logrus.New()
			l.SetOutput(&buf)
			l.SetFormatter(&logrus.JSONFormatter{})

			FromContext(l, tt.ctx).Info("event recorded")

			var line map[string]interface{}
			if err := jsoniter.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("log line %q: %v", buf.String(), err)
			}
			if line[RequestIDKey] != tt.wantID {
				t.Errorf("request_id = %v, want %s", line[RequestIDKey], tt.wantID)
			}
			if line["client_addr"] != tt.wantAddr {
				t.Errorf("client_addr = %v, want %s", line["client_addr"], tt.wantAddr)
			}
		})
	}
}
