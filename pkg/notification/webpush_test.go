package notification

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscription(t *testing.T, endpoint string) Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return Subscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	publicKey, privateKey, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	transport, err := NewTransport(VAPIDConfig{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subject:    "mailto:owner@example.com",
	}, DefaultTransportOptions())
	require.NoError(t, err)
	return transport
}

func TestNewTransport_RequiresVAPID(t *testing.T) {
	_, err := NewTransport(VAPIDConfig{PublicKey: "pub"}, DefaultTransportOptions())
	assert.Error(t, err)
}

func TestTransport_Send(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantErr      bool
		shouldRemove bool
	}{
		{"created", http.StatusCreated, false, false},
		{"gone", http.StatusGone, true, true},
		{"not found", http.StatusNotFound, true, true},
		{"server error", http.StatusInternalServerError, true, false},
		{"too many requests", http.StatusTooManyRequests, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotEncoding string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotEncoding = r.Header.Get("Content-Encoding")
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			transport := newTestTransport(t)
			payload, err := Payload{Title: "hello", Message: "world", Icon: "/i.png", URL: "/", Badge: "/i.png"}.Marshal()
			require.NoError(t, err)

			err = transport.Send(context.Background(), newTestSubscription(t, server.URL+"/push/abc"), payload)

			assert.Contains(t, gotAuth, "vapid")
			assert.Equal(t, "aes128gcm", gotEncoding)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.shouldRemove, statusErr.ShouldRemove())
		})
	}
}

func TestTransport_SendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	err := newTestTransport(t).Send(context.Background(), newTestSubscription(t, endpoint), []byte(`{}`))
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestDetectClient(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want ClientInfo
	}{
		{
			"chrome on windows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			ClientInfo{Browser: "Chrome", OS: "Windows", Device: "desktop"},
		},
		{
			"safari on iphone",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			ClientInfo{Browser: "Safari", OS: "iOS", Device: "mobile"},
		},
		{
			"firefox on linux",
			"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			ClientInfo{Browser: "Firefox", OS: "Linux", Device: "desktop"},
		},
		{
			"edge on macos",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			ClientInfo{Browser: "Edge", OS: "macOS", Device: "desktop"},
		},
		{
			"chrome on android",
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			ClientInfo{Browser: "Chrome", OS: "Android", Device: "mobile"},
		},
		{"empty", "", ClientInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectClient(tt.ua))
		})
	}
}
