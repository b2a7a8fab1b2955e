package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/auth"
	"bazaar/pkg/jwt"
)

func newWSTestServer(t *testing.T, repo Repository) (*httptest.Server, *Hub, *jwt.JWT) {
	t.Helper()
	secret := []byte("test-secret")
	hub := newTestHub(repo)
	handler := NewHandler(hub, auth.NewJWTVerifier(secret))
	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	t.Cleanup(srv.Close)
	return srv, hub, jwt.NewJWT(secret, 3600)
}

func wsURL(srv *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dialWS(t *testing.T, srv *httptest.Server, tokens *jwt.JWT, userID string) *websocket.Conn {
	t.Helper()
	token, err := tokens.GenerateToken(userID)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	srv, _, _ := newWSTestServer(t, newFakeRepository())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server closes with a policy-violation code before any frame.
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	srv, hub, _ := newWSTestServer(t, newFakeRepository())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-token"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, 0, hub.registry.Len())
}

func TestHandshakeEstablishesAuthenticatedConnection(t *testing.T) {
	srv, hub, tokens := newWSTestServer(t, newFakeRepository())

	conn := dialWS(t, srv, tokens, "alice")

	frame := readFrame(t, conn)
	assert.Equal(t, string(FrameConnectionEstablished), frame["type"])
	assert.Equal(t, "alice", frame["userId"])

	require.Eventually(t, func() bool {
		_, ok := hub.registry.Lookup("alice")
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestMalformedFrameGetsErrorWithoutDisconnect(t *testing.T) {
	srv, _, tokens := newWSTestServer(t, newFakeRepository())

	conn := dialWS(t, srv, tokens, "alice")
	readFrame(t, conn) // connection_established

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame := readFrame(t, conn)
	assert.Equal(t, string(FrameError), frame["type"])
	assert.Equal(t, "malformed frame", frame["message"])

	// Still alive: a valid frame round-trips afterwards.
	require.NoError(t, conn.WriteJSON(&InboundFrame{Type: FrameLeaveConversation, ConversationID: "conv-1"}))
	frame = readFrame(t, conn)
	assert.Equal(t, string(FrameLeftConversation), frame["type"])
}

// The end-to-end scenario: A joins C and receives B's message live with
// isRead=false; B, unsubscribed, gets no echo; A's re-join marks the stored
// message read.
func TestJoinMessageRejoinScenario(t *testing.T) {
	repo := newFakeRepository()
	repo.addConversation("conv-C", "alice", "bob")
	srv, _, tokens := newWSTestServer(t, repo)

	aliceConn := dialWS(t, srv, tokens, "alice")
	readFrame(t, aliceConn)
	bobConn := dialWS(t, srv, tokens, "bob")
	readFrame(t, bobConn)

	require.NoError(t, aliceConn.WriteJSON(&InboundFrame{Type: FrameJoinConversation, ConversationID: "conv-C"}))
	joined := readFrame(t, aliceConn)
	require.Equal(t, string(FrameJoinedConversation), joined["type"])
	require.Equal(t, "conv-C", joined["conversationId"])

	require.NoError(t, bobConn.WriteJSON(&InboundFrame{Type: FrameChatMessage, ConversationID: "conv-C", Content: "hi", Attachments: []string{}}))

	delivered := readFrame(t, aliceConn)
	require.Equal(t, string(FrameNewMessage), delivered["type"])
	payload := delivered["message"].(map[string]any)
	assert.Equal(t, "bob", payload["sender"])
	assert.Equal(t, "hi", payload["content"])
	assert.Equal(t, false, payload["isRead"])

	// Bob is not subscribed: no echo comes back.
	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bobConn.ReadMessage()
	require.Error(t, err)

	// A second join marks the stored message read.
	require.NoError(t, aliceConn.WriteJSON(&InboundFrame{Type: FrameJoinConversation, ConversationID: "conv-C"}))
	rejoined := readFrame(t, aliceConn)
	require.Equal(t, string(FrameJoinedConversation), rejoined["type"])

	messages := repo.messageSnapshot()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsRead)
}

func TestReconnectReplacesHandle(t *testing.T) {
	srv, hub, tokens := newWSTestServer(t, newFakeRepository())

	first := dialWS(t, srv, tokens, "alice")
	readFrame(t, first)

	second := dialWS(t, srv, tokens, "alice")
	readFrame(t, second)

	// The first socket is closed by the server; the registry keeps exactly
	// one handle for the principal.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, 1, hub.registry.Len())
}
