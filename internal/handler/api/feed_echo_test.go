package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseFeed/internal/domain/models"
	"PulseFeed/internal/service/biometrics"
	"PulseFeed/internal/usecase"
	xlogger "PulseFeed/pkg/logger"
)

const testAddress = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

type stubSource struct {
	page []models.SignatureInfo
	err  error
}

func (s *stubSource) FetchPage(context.Context, string, int, *string) ([]models.SignatureInfo, error) {
	return s.page, s.err
}

type stubResolver struct{ v *int }

func (r *stubResolver) AverageAround(context.Context, time.Time) *int { return r.v }

type stubMetrics struct{}

func (stubMetrics) RecordPage(string, int)        {}
func (stubMetrics) RecordFetchError(string)       {}
func (stubMetrics) RecordBiometric(string)        {}
func (stubMetrics) RecordLatency(string, float64) {}
func (stubMetrics) RecordNotice()                 {}

func newTestServer(t *testing.T, src *stubSource, metric *int) (*echo.Echo, *usecase.Feed) {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	feed := usecase.NewFeed(src, &stubResolver{v: metric}, nil, stubMetrics{}, 25)
	h := NewFeedHandler(l, feed, biometrics.NewAuthorizer(false), &stubResolver{v: metric}, nil)

	e := echo.New()
	h.RegisterRoutes(e)
	return e, feed
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFetchReturnsSnapshot(t *testing.T) {
	bt := time.Now().Unix()
	seventy := 70
	src := &stubSource{page: []models.SignatureInfo{
		{Signature: "sigA", Slot: 100, BlockTime: &bt},
	}}
	e, _ := newTestServer(t, src, &seventy)

	rec := doJSON(e, http.MethodPost, "/api/feed/fetch", `{"address": "`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int                 `json:"status"`
		Data   models.FeedSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	require.Len(t, resp.Data.Records, 1)
	assert.Equal(t, "sigA", resp.Data.Records[0].Signature)
	require.NotNil(t, resp.Data.Records[0].Metric)
	assert.Equal(t, 70, *resp.Data.Records[0].Metric)
	require.NotNil(t, resp.Data.Cursor)
	assert.Equal(t, "sigA", *resp.Data.Cursor)
	assert.False(t, resp.Data.LoadingInitial)
}

func TestFetchValidatesAddress(t *testing.T) {
	e, _ := newTestServer(t, &stubSource{}, nil)

	rec := doJSON(e, http.MethodPost, "/api/feed/fetch", `{"address": "too-short"}`)
	require.Equal(t, http.StatusOK, rec.Code) // envelope carries the real status

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestFetchMapsLedgerError(t *testing.T) {
	src := &stubSource{err: models.NewRemoteRejectedError(-32005, "node is behind")}
	e, _ := newTestServer(t, src, nil)

	rec := doJSON(e, http.MethodPost, "/api/feed/fetch", `{"address": "`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int `json:"status"`
		Data   []struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ERR_LEDGER_REMOTE_REJECTED", resp.Data[0].Code)
}

func TestMoreWithoutCursorIsNoOp(t *testing.T) {
	e, feed := newTestServer(t, &stubSource{}, nil)

	rec := doJSON(e, http.MethodPost, "/api/feed/more", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int                 `json:"status"`
		Data   models.FeedSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Data.Records)
	assert.Empty(t, feed.Records())
}

func TestSnapshotLimit(t *testing.T) {
	src := &stubSource{page: []models.SignatureInfo{
		{Signature: "sigA", Slot: 3},
		{Signature: "sigB", Slot: 2},
		{Signature: "sigC", Slot: 1},
	}}
	e, _ := newTestServer(t, src, nil)
	doJSON(e, http.MethodPost, "/api/feed/fetch", `{"address": "`+testAddress+`"}`)

	rec := doJSON(e, http.MethodGet, "/api/feed?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.FeedSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Records, 2)
	assert.Equal(t, "sigA", resp.Data.Records[0].Signature)
}

func TestGrantFlipsAuthorization(t *testing.T) {
	e, _ := newTestServer(t, &stubSource{}, nil)

	rec := doJSON(e, http.MethodPost, "/api/biometrics/grant", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
