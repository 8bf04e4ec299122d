package slogx

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttrs(t *testing.T) {
	tests := []struct {
		name      string
		attr      slog.Attr
		wantKey   string
		wantValue string
	}{
		{name: "error", attr: Error(errors.New("upstream closed")), wantKey: "error", wantValue: "upstream closed"},
		{name: "bytes", attr: ByteString("body", []byte(`{"ok":true}`)), wantKey: "body", wantValue: `{"ok":true}`},
		{name: "stringer", attr: Stringer("delay", 1500*time.Millisecond), wantKey: "delay", wantValue: "1.5s"},
		{name: "logger", attr: LoggerName("resilience"), wantKey: KeyLoggerName, wantValue: "resilience"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.attr.Key)
			assert.Equal(t, tt.wantValue, tt.attr.Value.String())
		})
	}
}
