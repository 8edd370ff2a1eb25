package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/resultrelay.net/internal/adapter/logging"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/ws/registry"
)

// staticTokens resolves fixed token strings to user ids.
type staticTokens map[string]string

func (s staticTokens) Resolve(ctx context.Context, token string) (string, bool) {
	userID, ok := s[token]
	return userID, ok
}

type staticJobs struct {
	owners   map[string]string
	lookupEr error
}

func (s *staticJobs) CreateIntent(ctx context.Context, job *domain.Job) error { return nil }

func (s *staticJobs) GetOwner(ctx context.Context, jobID string) (*string, error) {
	if s.lookupEr != nil {
		return nil, s.lookupEr
	}
	owner, ok := s.owners[jobID]
	if !ok {
		return nil, nil
	}
	return &owner, nil
}

func (s *staticJobs) GetRecord(ctx context.Context, jobID string) (*domain.Job, error) {
	return nil, nil
}

func (s *staticJobs) WriteResult(ctx context.Context, jobID string, status domain.JobStatus, primaryKey string, keys []string) (secondary.WriteTier, error) {
	return secondary.WriteTierFull, nil
}

type wsFixture struct {
	server   *httptest.Server
	registry *registry.Registry
}

func newFixture(t *testing.T, jobs *staticJobs) *wsFixture {
	t.Helper()

	logger := logging.NewZapLogger()
	reg := registry.New(logger)
	handler := NewHandler(reg, staticTokens{"alice-token": "alice", "bob-token": "bob"}, jobs, logger,
		WithHandshakeReadTimeout(2*time.Second))

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &wsFixture{server: server, registry: reg}
}

func (f *wsFixture) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/result/ws/analysis"
}

func dial(t *testing.T, rawURL string, header http.Header, subprotocols ...string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: subprotocols}
	conn, resp, err := dialer.Dial(rawURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func register(t *testing.T, conn *websocket.Conn, jobID string) {
	t.Helper()
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "register", "job_id": jobID}))
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()
	var msg map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// expectClose drains until the close frame arrives and returns its code.
func expectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr, "expected a close frame, got %v", err)
		return closeErr.Code
	}
}

func TestRegisterWithQueryToken(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	register(t, conn, "J1")

	ack := readJSON(t, conn)
	assert.Equal(t, "registered", ack["status"])
	assert.Equal(t, "J1", ack["job_id"])

	assert.True(t, f.registry.Registered("J1"))
	owner, ok := f.registry.Owner("J1")
	require.True(t, ok)
	assert.Equal(t, "alice", owner)
}

func TestRegisterWithSubprotocolToken(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url(), nil, "alice-token")
	assert.Equal(t, "alice-token", conn.Subprotocol())

	register(t, conn, "J1")
	ack := readJSON(t, conn)
	assert.Equal(t, "registered", ack["status"])
}

func TestSubprotocolTokenTakesPriorityOverQuery(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	// the query token belongs to the wrong user, the subprotocol to the owner
	conn := dial(t, f.url()+"?token=bob-token", nil, "alice-token")
	register(t, conn, "J1")

	ack := readJSON(t, conn)
	assert.Equal(t, "registered", ack["status"])
}

func TestRegisterWithCookieToken(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: "id_token", Value: "alice-token"}).String())

	conn := dial(t, f.url(), header)
	register(t, conn, "J1")

	ack := readJSON(t, conn)
	assert.Equal(t, "registered", ack["status"])
}

func TestMalformedRegistrationClosesUnsupportedData(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	msg := readJSON(t, conn)
	assert.Equal(t, "invalid_json", msg["error"])
	assert.Equal(t, websocket.CloseUnsupportedData, expectClose(t, conn))
	assert.False(t, f.registry.Registered("J1"))
}

func TestMissingJobIDClosesUnsupportedData(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "register"}))

	msg := readJSON(t, conn)
	assert.Equal(t, "expected register with job_id", msg["error"])
	assert.Equal(t, websocket.CloseUnsupportedData, expectClose(t, conn))
}

func TestUnknownJobClosesPolicyViolation(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{}})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	register(t, conn, "missing")

	msg := readJSON(t, conn)
	assert.Equal(t, "job_not_found", msg["error"])
	assert.Equal(t, websocket.ClosePolicyViolation, expectClose(t, conn))
}

func TestNonOwnerClosesPolicyViolation(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url()+"?token=bob-token", nil)
	register(t, conn, "J1")

	msg := readJSON(t, conn)
	assert.Equal(t, "forbidden", msg["error"])
	assert.Equal(t, websocket.ClosePolicyViolation, expectClose(t, conn))
	assert.False(t, f.registry.Registered("J1"))
}

func TestMissingTokenClosesPolicyViolation(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url(), nil)
	register(t, conn, "J1")

	msg := readJSON(t, conn)
	assert.Equal(t, "forbidden", msg["error"])
	assert.Equal(t, websocket.ClosePolicyViolation, expectClose(t, conn))
}

func TestOwnerLookupFailureClosesInternalError(t *testing.T) {
	f := newFixture(t, &staticJobs{lookupEr: errors.New("db down")})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	register(t, conn, "J1")

	msg := readJSON(t, conn)
	assert.Equal(t, "internal_error", msg["error"])
	assert.Equal(t, websocket.CloseInternalServerErr, expectClose(t, conn))
}

func TestPushReachesRegisteredClient(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	register(t, conn, "J1")
	readJSON(t, conn) // ack

	delivered := f.registry.Push("J1", map[string]string{"job_id": "J1", "status": "COMPLETED"})
	assert.True(t, delivered)

	msg := readJSON(t, conn)
	assert.Equal(t, "COMPLETED", msg["status"])
}

func TestDisconnectUnregistersTheJob(t *testing.T) {
	f := newFixture(t, &staticJobs{owners: map[string]string{"J1": "alice"}})

	conn := dial(t, f.url()+"?token=alice-token", nil)
	register(t, conn, "J1")
	readJSON(t, conn) // ack

	require.True(t, f.registry.Registered("J1"))
	conn.Close()

	require.Eventually(t, func() bool {
		return !f.registry.Registered("J1")
	}, 2*time.Second, 10*time.Millisecond)
}
