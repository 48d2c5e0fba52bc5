// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/model"
)

const testSecret = "test-secret-0123456789"

func seededStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := OpenStore(ctx, MemoryPath, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	seeded, err := store.SeedIfEmpty(ctx)
	require.NoError(t, err)
	require.True(t, seeded)
	return store
}

func newTestServer(t *testing.T, secret string) *Server {
	t.Helper()
	return New(Config{JWTSecret: secret}, seededStore(t), zaptest.NewLogger(t))
}

func chatRequest(t *testing.T, token string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, ChatPath, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeChat(t *testing.T, resp *http.Response) aiclient.ChatResponse {
	t.Helper()
	defer resp.Body.Close()
	var out aiclient.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// STORE
// =============================================================================

func TestStore_SeedOnce(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(SeedNotices), n)

	seeded, err := store.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestStore_SearchByType(t *testing.T) {
	store := seededStore(t)

	got, err := store.Search(context.Background(), Query{Types: []string{TypeChangeOfName}}, 0)
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, "GN-2024-0203", got[0].ID, "newest first")
	for _, n := range got {
		assert.Equal(t, TypeChangeOfName, n.NoticeType)
	}
}

func TestStore_SearchByTerm(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	got, err := store.Search(ctx, Query{Terms: []string{"okafor"}}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = store.Search(ctx, Query{Types: []string{TypeProbate}, Terms: []string{"okafor"}}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Emeka Okafor", got[0].PersonName)

	got, err = store.Search(ctx, Query{Terms: []string{"%"}}, 0)
	require.NoError(t, err)
	assert.Empty(t, got, "LIKE wildcards are escaped")

	got, err = store.Search(ctx, Query{}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_FilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "notices.db")

	store, err := OpenStore(ctx, path, nil)
	require.NoError(t, err)
	_, err = store.SeedIfEmpty(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenStore(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(SeedNotices), n)
}

func TestStore_InsertRequiresFields(t *testing.T) {
	store := seededStore(t)
	err := store.Insert(context.Background(), Notice{ID: "x"})
	assert.Error(t, err)
}

func TestStore_Closed(t *testing.T) {
	store, err := OpenStore(context.Background(), MemoryPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Count(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Search(context.Background(), Query{}, 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestNotice_RecordIsSparse(t *testing.T) {
	rec := Notice{ID: "N-1", NoticeType: TypeLand, Title: "Plot 9"}.Record()
	assert.Equal(t, "N-1", rec.ID())
	assert.False(t, rec.Has("person_name"))
	_, present := rec["gazette_number"]
	assert.False(t, present)
}

// =============================================================================
// QUERY
// =============================================================================

func TestParseQuery(t *testing.T) {
	tests := []struct {
		in    string
		types []string
		terms []string
	}{
		{"Show me all change of name entries", []string{TypeChangeOfName}, nil},
		{"Name changes in Lagos?", []string{TypeChangeOfName}, []string{"lagos"}},
		{"find marriage and probate notices", []string{TypeMarriage, TypeProbate}, nil},
		{"Okafor", nil, []string{"okafor"}},
		{"René Okafor", nil, []string{"rené", "okafor"}},
		{"land in Abuja, Abuja", []string{TypeLand}, []string{"abuja"}},
		{"show me all entries", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			q := ParseQuery(tc.in)
			assert.Equal(t, tc.types, q.Types)
			assert.Equal(t, tc.terms, q.Terms)
		})
	}
}

func TestQuery_Key(t *testing.T) {
	assert.Equal(t, ParseQuery("Okafor probate").Key(), ParseQuery("probate   OKAFOR!").Key())
	assert.True(t, ParseQuery("show all").Empty())
}

func TestReply(t *testing.T) {
	assert.Equal(t, "Found 0 entries", Reply(0))
	assert.Equal(t, "Found 1 entry", Reply(1))
	assert.Equal(t, "Found 5 entries", Reply(5))
}

// =============================================================================
// AUTH
// =============================================================================

func TestMintAndVerifyToken(t *testing.T) {
	token, err := MintToken(testSecret, "clerk", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "clerk", claims.Subject)
	assert.Equal(t, TokenIssuer, claims.Issuer)

	_, err = VerifyToken("some-other-secret", token)
	assert.Error(t, err)

	expired, err := MintToken(testSecret, "clerk", -time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken(testSecret, expired)
	assert.Error(t, err)

	_, err = MintToken("", "clerk", time.Hour)
	assert.Error(t, err)
}

// =============================================================================
// HANDLERS
// =============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testSecret)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, len(SeedNotices), body["notices"])
}

func TestChat_RequiresToken(t *testing.T) {
	srv := newTestServer(t, testSecret)
	body := aiclient.ChatRequest{Message: "Show me all change of name entries", History: []aiclient.HistoryEntry{}}

	resp, err := srv.App().Test(chatRequest(t, "", body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = srv.App().Test(chatRequest(t, "not-a-jwt", body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	assert.Zero(t, srv.Stats().ChatRequests)
}

func TestChat_ChangeOfNameSearch(t *testing.T) {
	srv := newTestServer(t, testSecret)
	token, err := MintToken(testSecret, "clerk", time.Hour)
	require.NoError(t, err)

	body := aiclient.ChatRequest{Message: "Show me all change of name entries", History: []aiclient.HistoryEntry{}}
	resp, err := srv.App().Test(chatRequest(t, token, body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeChat(t, resp)
	assert.True(t, out.Success)
	assert.Equal(t, "Found 5 entries", out.Reply)
	require.Len(t, out.Results, 5)
	assert.Equal(t, TypeChangeOfName, out.Results[0]["notice_type"])

	// Same question again comes from the cache.
	resp, err = srv.App().Test(chatRequest(t, token, body), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int64(1), srv.Stats().CacheHits)
	assert.Equal(t, int64(2), srv.Stats().ChatRequests)
}

func TestChat_NoHitsClearsResults(t *testing.T) {
	srv := newTestServer(t, "")

	body := aiclient.ChatRequest{Message: "zzyzx", History: []aiclient.HistoryEntry{}}
	resp, err := srv.App().Test(chatRequest(t, "", body), -1)
	require.NoError(t, err)

	defer resp.Body.Close()
	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `"Found 0 entries"`, string(raw["reply"]))
	assert.JSONEq(t, `[]`, string(raw["results"]), "an empty batch is sent, not omitted")
}

func TestChat_Validation(t *testing.T) {
	srv := newTestServer(t, "")

	longHistory := make([]aiclient.HistoryEntry, 201)
	for i := range longHistory {
		longHistory[i] = aiclient.HistoryEntry{Role: "user", Content: "x"}
	}

	tests := []struct {
		name string
		body any
		want string
	}{
		{"empty message", aiclient.ChatRequest{Message: ""}, RejectEmptyMessage},
		{"long message", aiclient.ChatRequest{Message: strings.Repeat("a", 4001)}, RejectMessageTooLong},
		{"bad role", aiclient.ChatRequest{Message: "hi", History: []aiclient.HistoryEntry{{Role: "system", Content: "x"}}}, RejectHistoryInvalid},
		{"long history", aiclient.ChatRequest{Message: "hi", History: longHistory}, RejectHistoryTooLong},
		{"not json", "just a string", RejectBadBody},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := srv.App().Test(chatRequest(t, "", tc.body), -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			out := decodeChat(t, resp)
			assert.False(t, out.Success)
			assert.Equal(t, tc.want, out.Error)
			assert.NotContains(t, out.Error, "ChatRequest")
		})
	}
	assert.Equal(t, int64(len(tests)), srv.Stats().Rejected)
}

// =============================================================================
// CLIENT ROUND TRIP
// =============================================================================

func TestClientAgainstServer(t *testing.T) {
	srv := newTestServer(t, testSecret)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.App().Listener(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	endpoint := "http://" + ln.Addr().String() + ChatPath
	token, err := MintToken(testSecret, "clerk", time.Hour)
	require.NoError(t, err)

	cfg := aiclient.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Token = token
	cfg.MaxRetries = -1
	client := aiclient.NewClientWithConfig(cfg)

	prior := []model.ChatMessage{model.NewMessage(model.RoleUser, "hello")}
	resp, err := client.SendChatTurn(context.Background(), "Okafor", prior)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Found 3 entries", resp.ReplyText)
	assert.Len(t, resp.Results, 3)

	cfg.Token = "wrong"
	_, err = aiclient.NewClientWithConfig(cfg).SendChatTurn(context.Background(), "Okafor", nil)
	assert.True(t, aiclient.IsUnauthorized(err))
}
