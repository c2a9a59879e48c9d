package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestWebSocketConn dials a throwaway server and returns the client side
func createTestWebSocketConn(t *testing.T) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Keep the server side open for the duration of the test
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// TestNewClient tests client creation
func TestNewClient(t *testing.T) {
	hub := NewHub()
	conn := createTestWebSocketConn(t)

	client := NewClient("user-123", conn, hub, "analyst")

	assert.NotNil(t, client)
	assert.Equal(t, "user-123", client.ID)
	assert.Equal(t, "analyst", client.Role)
	assert.Equal(t, hub, client.Hub)
	assert.NotNil(t, client.Send)
	assert.Empty(t, client.Channels())
}

// TestClientChannelSubscriptions tests channel bookkeeping on the client
func TestClientChannelSubscriptions(t *testing.T) {
	hub := NewHub()
	conn := createTestWebSocketConn(t)
	client := NewClient("user-123", conn, hub, "analyst")

	client.AddChannel("fraud")
	client.AddChannel("risk")

	channels := client.Channels()
	assert.Len(t, channels, 2)
	assert.Contains(t, channels, "fraud")
	assert.Contains(t, channels, "risk")

	client.RemoveChannel("fraud")
	channels = client.Channels()
	assert.Len(t, channels, 1)
	assert.NotContains(t, channels, "fraud")
}

// TestClientSendMessage tests sending message to client
func TestClientSendMessage(t *testing.T) {
	hub := NewHub()
	conn := createTestWebSocketConn(t)
	client := NewClient("user-123", conn, hub, "analyst")

	msg := &Message{
		Type: "alert",
		Data: map[string]interface{}{
			"key": "value",
		},
		Timestamp: time.Now(),
	}

	client.SendMessage(msg)

	// Message should be in channel
	select {
	case receivedMsg := <-client.Send:
		assert.Equal(t, msg.Type, receivedMsg.Type)
		assert.Equal(t, "value", receivedMsg.Data["key"])
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Message not received in channel")
	}
}

// TestClientSendMessageChannelFull tests handling of full send channel
func TestClientSendMessageChannelFull(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := createTestWebSocketConn(t)
	client := NewClient("user-123", conn, hub, "analyst")

	// Use small channel
	client.Send = make(chan *Message, 2)

	hub.Register <- client
	time.Sleep(10 * time.Millisecond)

	// Fill channel
	for i := 0; i < 2; i++ {
		msg := &Message{
			Type: "alert",
			Data: map[string]interface{}{
				"count": i,
			},
		}
		client.SendMessage(msg)
	}

	// This should trigger channel close due to overflow
	msg := &Message{
		Type: "overflow",
		Data: map[string]interface{}{},
	}
	client.SendMessage(msg)

	time.Sleep(10 * time.Millisecond)
}

// TestClientConcurrentChannelAccess tests thread-safe channel subscription access
func TestClientConcurrentChannelAccess(t *testing.T) {
	hub := NewHub()
	conn := createTestWebSocketConn(t)
	client := NewClient("user-123", conn, hub, "analyst")

	done := make(chan bool)

	// Concurrent writes
	for i := 0; i < 10; i++ {
		go func(id int) {
			client.AddChannel("channel-" + string(rune('a'+id)))
			done <- true
		}(i)
	}

	// Concurrent reads
	for i := 0; i < 10; i++ {
		go func() {
			_ = client.Channels()
			done <- true
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 20; i++ {
		<-done
	}

	assert.Len(t, client.Channels(), 10)
}

// TestMessageMarshalJSON tests custom JSON marshaling
func TestMessageMarshalJSON(t *testing.T) {
	msg := &Message{
		Type:      "alert",
		Channel:   "fraud",
		UserID:    "user-456",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Data: map[string]interface{}{
			"key": "value",
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	require.NoError(t, err)

	assert.Equal(t, "alert", result["type"])
	assert.Equal(t, "fraud", result["channel"])
	assert.Equal(t, "user-456", result["user_id"])
	assert.Equal(t, "2024-01-01T12:00:00Z", result["timestamp"])

	dataMap := result["data"].(map[string]interface{})
	assert.Equal(t, "value", dataMap["key"])
}

// TestMessageUnmarshalJSON tests custom JSON unmarshaling
func TestMessageUnmarshalJSON(t *testing.T) {
	jsonData := `{
		"type": "alert",
		"channel": "fraud",
		"user_id": "user-456",
		"timestamp": "2024-01-01T12:00:00Z",
		"data": {
			"key": "value"
		}
	}`

	var msg Message
	err := json.Unmarshal([]byte(jsonData), &msg)
	require.NoError(t, err)

	assert.Equal(t, "alert", msg.Type)
	assert.Equal(t, "fraud", msg.Channel)
	assert.Equal(t, "user-456", msg.UserID)
	assert.Equal(t, "value", msg.Data["key"])

	expectedTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, expectedTime, msg.Timestamp)
}

// TestMessageUnmarshalJSONInvalidTimestamp tests handling invalid timestamp
func TestMessageUnmarshalJSONInvalidTimestamp(t *testing.T) {
	jsonData := `{
		"type": "alert",
		"timestamp": "invalid-timestamp",
		"data": {}
	}`

	var msg Message
	err := json.Unmarshal([]byte(jsonData), &msg)

	assert.Error(t, err)
}

// TestMessageMarshalUnmarshalRoundTrip tests full round trip
func TestMessageMarshalUnmarshalRoundTrip(t *testing.T) {
	original := &Message{
		Type:      "fraud_alert",
		Channel:   "fraud",
		UserID:    "analyst-456",
		Timestamp: time.Now().Round(time.Second), // Round to avoid nanosecond precision issues
		Data: map[string]interface{}{
			"assessment_id": "a1b2c3",
			"score":         92.5,
			"level":         "critical",
		},
	}

	// Marshal
	data, err := json.Marshal(original)
	require.NoError(t, err)

	// Unmarshal
	var decoded Message
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	// Compare
	assert.Equal(t, original.Type, decoded.Type)
	assert.Equal(t, original.Channel, decoded.Channel)
	assert.Equal(t, original.UserID, decoded.UserID)
	assert.Equal(t, original.Timestamp.Unix(), decoded.Timestamp.Unix())
	assert.Equal(t, original.Data["assessment_id"], decoded.Data["assessment_id"])
	assert.Equal(t, original.Data["score"], decoded.Data["score"])
	assert.Equal(t, original.Data["level"], decoded.Data["level"])
}

// TestHubSubscribeAndBroadcast tests channel subscription and channel broadcast
func TestHubSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	subscriber := NewClient("analyst-1", createTestWebSocketConn(t), hub, "analyst")
	bystander := NewClient("analyst-2", createTestWebSocketConn(t), hub, "analyst")

	hub.Register <- subscriber
	hub.Register <- bystander
	time.Sleep(10 * time.Millisecond)

	hub.Subscribe("analyst-1", "fraud")
	assert.Equal(t, 1, hub.GetChannelCount())
	assert.Len(t, hub.GetChannelClients("fraud"), 1)

	hub.SendToChannel("fraud", &Message{
		Type:    "alert",
		Channel: "fraud",
		Data:    map[string]interface{}{"score": 95.0},
	})

	select {
	case msg := <-subscriber.Send:
		assert.Equal(t, "alert", msg.Type)
		assert.Equal(t, 95.0, msg.Data["score"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber did not receive channel broadcast")
	}

	select {
	case <-bystander.Send:
		t.Fatal("bystander received message without subscription")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unsubscribe("analyst-1", "fraud")
	assert.Equal(t, 0, hub.GetChannelCount())
}

// TestHubSendToUser tests direct user delivery
func TestHubSendToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient("admin-1", createTestWebSocketConn(t), hub, "admin")
	hub.Register <- client
	time.Sleep(10 * time.Millisecond)

	hub.SendToUser("admin-1", &Message{
		Type: "ack",
		Data: map[string]interface{}{"alert_id": "al-1"},
	})

	select {
	case msg := <-client.Send:
		assert.Equal(t, "ack", msg.Type)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("client did not receive direct message")
	}
}

// TestMultipleClients tests handling multiple concurrent clients
func TestMultipleClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	numClients := 20
	clients := make([]*Client, numClients)

	// Create multiple clients
	for i := 0; i < numClients; i++ {
		conn := createTestWebSocketConn(t)
		client := NewClient("user-"+string(rune('a'+i)), conn, hub, "analyst")
		clients[i] = client

		hub.Register <- client
	}

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, numClients, hub.GetClientCount())

	// Send message to each client
	for i, client := range clients {
		msg := &Message{
			Type: "personal",
			Data: map[string]interface{}{
				"id": i,
			},
		}
		client.SendMessage(msg)
	}

	// Each client should receive their message
	for i, client := range clients {
		select {
		case msg := <-client.Send:
			assert.Equal(t, "personal", msg.Type)
			assert.Equal(t, i, msg.Data["id"])
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Client %d did not receive message", i)
		}
	}
}

// TestClientRoleTypes tests different client roles
func TestClientRoleTypes(t *testing.T) {
	hub := NewHub()
	conn := createTestWebSocketConn(t)

	roles := []string{"analyst", "admin"}

	for _, role := range roles {
		client := NewClient("user-"+role, conn, hub, role)
		assert.Equal(t, role, client.Role)
	}
}

// TestMessageOptionalFields tests handling of optional message fields
func TestMessageOptionalFields(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		wantType string
	}{
		{
			name: "All fields present",
			jsonData: `{
				"type": "alert",
				"channel": "fraud",
				"user_id": "user-456",
				"timestamp": "2024-01-01T12:00:00Z",
				"data": {"key": "value"}
			}`,
			wantType: "alert",
		},
		{
			name: "Only required fields",
			jsonData: `{
				"type": "alert",
				"data": {"key": "value"}
			}`,
			wantType: "alert",
		},
		{
			name: "With channel only",
			jsonData: `{
				"type": "subscribe",
				"channel": "risk",
				"data": {}
			}`,
			wantType: "subscribe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			err := json.Unmarshal([]byte(tt.jsonData), &msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, msg.Type)
		})
	}
}
