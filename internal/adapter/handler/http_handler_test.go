package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

func newTestServer(t *testing.T) (*testStack, *httptest.Server) {
	t.Helper()
	stack := newTestStack(t)

	mux := http.NewServeMux()
	NewHTTPHandler(stack.exchanges, stack.notifications, stack.logger).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return stack, srv
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func requestExchange(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var created StatusHTTPResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/exchanges",
		`{"offered_item_id":"book-a","requested_item_id":"book-b","requester_id":"alice","owner_email":"bob@example.com"}`,
		&created)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, created.Success)
	require.NotEmpty(t, created.ExchangeID)
	return created.ExchangeID
}

func TestHTTP_HealthCheck(t *testing.T) {
	_, srv := newTestServer(t)

	var body map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/health", "", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHTTP_ExchangeLifecycle(t *testing.T) {
	stack, srv := newTestServer(t)
	exchangeID := requestExchange(t, srv)

	var exchange ExchangeHTTPResponse
	status := doJSON(t, http.MethodGet, srv.URL+"/api/exchanges/"+exchangeID, "", &exchange)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", exchange.OwnerID)
	assert.Equal(t, "pending", exchange.Status)
	assert.Nil(t, exchange.RespondedAt)

	var inbox []NotificationHTTPResponse
	status = doJSON(t, http.MethodGet, srv.URL+"/api/users/bob/notifications", "", &inbox)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, inbox, 1)
	assert.Equal(t, "exchange_requested", inbox[0].Type)
	assert.False(t, inbox[0].IsRead)

	var responded StatusHTTPResponse
	status = doJSON(t, http.MethodPost, srv.URL+"/api/exchanges/"+exchangeID+"/respond",
		`{"action":"accepted","responder_id":"bob"}`, &responded)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, responded.Success)

	assert.Equal(t, "bob", stack.owner(t, "book-a"))
	assert.Equal(t, "alice", stack.owner(t, "book-b"))

	var list []ExchangeHTTPResponse
	status = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/exchanges", "", &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0].Status)
	assert.NotNil(t, list[0].RespondedAt)

	var marked StatusHTTPResponse
	status = doJSON(t, http.MethodPut, srv.URL+"/api/notifications/"+inbox[0].ID+"/read", "", &marked)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, marked.Success)
}

func TestHTTP_RespondErrors(t *testing.T) {
	_, srv := newTestServer(t)
	exchangeID := requestExchange(t, srv)
	respondURL := srv.URL + "/api/exchanges/" + exchangeID + "/respond"

	tests := []struct {
		name   string
		url    string
		body   string
		status int
	}{
		{"bad body", respondURL, `{`, http.StatusBadRequest},
		{"bad action", respondURL, `{"action":"maybe","responder_id":"bob"}`, http.StatusBadRequest},
		{"wrong responder", respondURL, `{"action":"accepted","responder_id":"alice"}`, http.StatusForbidden},
		{"unknown exchange", srv.URL + "/api/exchanges/missing/respond", `{"action":"accepted","responder_id":"bob"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp StatusHTTPResponse
			status := doJSON(t, http.MethodPost, tt.url, tt.body, &resp)
			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}

	var rejected StatusHTTPResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, respondURL, `{"action":"rejected","responder_id":"bob"}`, &rejected))

	var again StatusHTTPResponse
	assert.Equal(t, http.StatusConflict, doJSON(t, http.MethodPost, respondURL, `{"action":"accepted","responder_id":"bob"}`, &again))
}

func TestHTTP_RequestErrors(t *testing.T) {
	_, srv := newTestServer(t)

	var resp StatusHTTPResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/exchanges",
		`{"offered_item_id":"book-a","requested_item_id":"book-b","requester_id":"alice","owner_email":"nobody@example.com"}`, &resp)
	assert.Equal(t, http.StatusNotFound, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/exchanges",
		`{"offered_item_id":"book-a","requested_item_id":"book-a","requester_id":"alice","owner_id":"bob"}`, &resp)
	assert.Equal(t, http.StatusBadRequest, status)

	status = doJSON(t, http.MethodPut, srv.URL+"/api/notifications/missing/read", "", &resp)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrDuplicateRequest, http.StatusConflict},
		{fmt.Errorf("%w: bad", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrInvalidState, http.StatusConflict},
		{domain.ErrOwnershipMismatch, http.StatusConflict},
		{fmt.Errorf("%w: swap: %w", domain.ErrTimeout, errors.New("deadline")), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, _, message := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.NotEmpty(t, message)
	}
}
