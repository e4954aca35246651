package alerts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_Name(t *testing.T) {
	n := alerts.NewTelegramNotifier("", "token", "chat", time.Second)
	assert.Equal(t, "telegram", n.Name())
}

func TestTelegramNotifier_Send(t *testing.T) {
	var received map[string]any
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := alerts.NewTelegramNotifier(server.URL+"/", "123:abc", "42", time.Second)
	err := n.Send(context.Background(), alerts.Message{Text: "*50% Usage Alert*"})
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", received["chat_id"])
	assert.Equal(t, "*50% Usage Alert*", received["text"])
	assert.Equal(t, "Markdown", received["parse_mode"])
}

func TestTelegramNotifier_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	n := alerts.NewTelegramNotifier(server.URL, "123:abc", "42", time.Second)
	err := n.Send(context.Background(), alerts.Message{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramNotifier_Send_TransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	n := alerts.NewTelegramNotifier(url, "secret-token", "42", time.Second)
	err := n.Send(context.Background(), alerts.Message{Text: "hi"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}
