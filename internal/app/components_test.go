package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/config"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSearchEngine_FallsBackToMemory(t *testing.T) {
	engine, p, err := newSearchEngine(context.Background(), &config.Config{}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &memory.Engine{}, engine)
	assert.Nil(t, p)
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		transport string
		want      string
	}{
		{config.NotifyLog, "log"},
		{"", "log"},
		{config.NotifyHTTP, "http"},
	}

	for _, tc := range tests {
		t.Run(tc.want+"/"+tc.transport, func(t *testing.T) {
			cfg := &config.Config{NotifyTransport: tc.transport, EmailAPIURL: "http://mail.local/send"}
			s, err := newSender(cfg, discardLogger())
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Name())
			_, isLog := s.(*notification.LogSender)
			assert.Equal(t, tc.want == "log", isLog)
		})
	}
}

func TestCloseResources_PartialApp(t *testing.T) {
	a := &App{logger: discardLogger()}
	assert.NoError(t, a.closeResources())
}
