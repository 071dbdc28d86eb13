package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store/memory"
)

const testPassword = "correct-horse"

// recordingPublisher remembers every topic it was asked to publish.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// testEnv is a server over an in-memory store with an admin already signed
// in.
type testEnv struct {
	srv     *Server
	store   *memory.Store
	pub     *recordingPublisher
	handler http.Handler

	admin     string // bearer token
	adminUser *model.SystemUser
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	st := memory.New()
	pub := &recordingPublisher{}
	srv := New(st, pub, tokens)
	e := &testEnv{srv: srv, store: st, pub: pub, handler: srv.NewHTTPHandler()}
	e.admin, e.adminUser = e.tokenFor(t, "admin", model.PermissionAll)
	return e
}

// addUser creates an active user whose role grants perms. The password is
// testPassword.
func (e *testEnv) addUser(t *testing.T, username string, perms ...string) *model.SystemUser {
	t.Helper()
	ctx := context.Background()
	role := &model.Role{Name: username + "-role", Permissions: perms}
	require.NoError(t, e.store.Roles().Create(ctx, role))
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	u := &model.SystemUser{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		RoleID:       role.ID,
		IsActive:     true,
		PasswordHash: hash,
	}
	require.NoError(t, e.store.Users().Create(ctx, u))
	return u
}

// tokenFor creates a user with perms and returns a token for it.
func (e *testEnv) tokenFor(t *testing.T, username string, perms ...string) (string, *model.SystemUser) {
	t.Helper()
	u := e.addUser(t, username, perms...)
	role, err := e.store.Roles().Get(context.Background(), u.RoleID)
	require.NoError(t, err)
	token, _, err := e.srv.tokens.Issue(u, role)
	require.NoError(t, err)
	return token, u
}

// do sends a request through the full handler. body may be nil, a raw
// string, or a value to encode as JSON.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// requireStatus asserts the recorder has the expected HTTP status code.
func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected status %d, got %d; body: %s", code, rec.Code, rec.Body.String())
	}
}

// decodeJSON decodes the recorder's response body into v.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// errorOf returns the "error" field of a JSON error response.
func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decodeJSON(t, rec, &body)
	msg, _ := body["error"].(string)
	return msg
}

func auditTopics(t *testing.T, e *testEnv) []string {
	t.Helper()
	page, err := e.store.AuditEvents().ApplyPagination(context.Background(), query.PaginationSpec{GetAll: true})
	require.NoError(t, err)
	out := make([]string, len(page.Data))
	for i, evt := range page.Data {
		out[i] = evt.Topic
	}
	return out
}

func TestRecordAndPublish(t *testing.T) {
	e := newTestServer(t)
	client := e.srv.sseHub.subscribe(nil)
	defer e.srv.sseHub.unsubscribe(client)

	ctx := auth.WithClaims(context.Background(), &auth.Claims{Username: "amira"})
	topic := events.Topic("branches", events.VerbCreated)
	e.srv.recordAndPublish(ctx, topic, "Branch", "b1", events.EntityChanged{Entity: "Branch", ID: "b1"})

	page, err := e.store.AuditEvents().ApplyPagination(context.Background(), query.PaginationSpec{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	evt := page.Data[0]
	assert.Equal(t, topic, evt.Topic)
	assert.Equal(t, "Branch", evt.EntityType)
	assert.Equal(t, "b1", evt.EntityID)
	assert.Equal(t, "amira", evt.Actor)
	assert.JSONEq(t, `{"entity":"Branch","id":"b1"}`, string(evt.Payload))

	assert.Equal(t, 1, e.pub.count(topic))

	select {
	case got := <-client.ch:
		assert.Equal(t, topic, got.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SSE event")
	}
}

func TestRecordAndPublish_PublisherFailureIsNotFatal(t *testing.T) {
	e := newTestServer(t)
	e.pub.err = errors.New("bus down")

	rec := e.do(t, "POST", "/v1/branches", e.admin, map[string]any{"code": "HQ", "name": "Head office"})
	requireStatus(t, rec, http.StatusCreated)
	assert.Contains(t, auditTopics(t, e), "pharmacy.branches.created")
}

func TestRecordAndPublish_SystemActor(t *testing.T) {
	e := newTestServer(t)
	e.srv.recordAndPublish(context.Background(), events.TopicBackupCompleted, "Backup", "", events.BackupCompleted{})

	page, err := e.store.AuditEvents().ApplyPagination(context.Background(), query.PaginationSpec{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "system", page.Data[0].Actor)
}

func TestNew_NilPublisher(t *testing.T) {
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	srv := New(memory.New(), nil, tokens)
	assert.IsType(t, &events.NoopPublisher{}, srv.publisher)
}
