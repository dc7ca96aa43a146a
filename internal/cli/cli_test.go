package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-bridge/pkg/models"
)

func run(t *testing.T, gateway string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--gateway", gateway}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"notify", "register", "events", "export"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	gateway := cmd.PersistentFlags().Lookup("gateway")
	require.NotNil(t, gateway)
	assert.Equal(t, "http://localhost:8080", gateway.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "--format", "yaml", "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestNotifySendsRequest(t *testing.T) {
	var got models.NotificationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(models.APIResponse{
			Success: true,
			Message: "Notification dispatched",
			Data:    map[string]interface{}{"target": "push-opened"},
		})
	}))
	defer server.Close()

	out, err := run(t, server.URL, "notify", "device-1", "--state", "background", "--payload", `{"id":"42"}`)
	require.NoError(t, err)

	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, "background", got.LifecycleState)
	assert.Equal(t, "42", got.Payload["id"])
	assert.Contains(t, out, "Notification dispatched")
	assert.Contains(t, out, "target: push-opened")
}

func TestNotifyRejectsBadPayload(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "notify", "device-1", "--payload", "{")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --payload JSON")
}

func TestRegisterReportsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.TokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.WithCallback)
		assert.Equal(t, "authorized", req.AuthorizationStatus)

		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.APIResponse{Message: "Invalid device token", Error: "invalid token format"})
	}))
	defer server.Close()

	_, err := run(t, server.URL, "register", "device-1", "zz", "--status", "authorized", "--callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid token format")
}

func TestEventsAndExport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/debug/events":
			json.NewEncoder(w).Encode(models.APIResponse{
				Success: true,
				Data: map[string]interface{}{
					"enabled": true,
					"events": []map[string]interface{}{
						{"id": "e1", "event_type": "Push Open", "summary": "authorizationStatus: authorized"},
					},
				},
			})
		case "/api/v1/debug/export":
			w.Write([]byte("Total Events: 1\n"))
		case "/api/v1/debug/events/e1/export":
			w.Write([]byte("Push Open\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.APIResponse{Error: "debug event not found"})
		}
	}))
	defer server.Close()

	out, err := run(t, server.URL, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "1 debug events (enabled: true)")
	assert.Contains(t, out, "e1  Push Open")

	out, err = run(t, server.URL, "export")
	require.NoError(t, err)
	assert.Equal(t, "Total Events: 1\n", out)

	out, err = run(t, server.URL, "export", "--event", "e1")
	require.NoError(t, err)
	assert.Equal(t, "Push Open\n", out)

	_, err = run(t, server.URL, "export", "--event", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debug event not found")
}
