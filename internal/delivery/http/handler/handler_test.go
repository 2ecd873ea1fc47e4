package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/delivery/http/response"
	"github.com/user/metroverse-pipeline/internal/entity"
	"github.com/user/metroverse-pipeline/internal/usecase"
)

type fakeCaptureManager struct {
	submitErr error
	statuses  map[string]*entity.CaptureStatus
	submitted []string
}

func (f *fakeCaptureManager) Submit(_ context.Context, cityID string, _ bool) (string, error) {
	f.submitted = append(f.submitted, cityID)
	return "req-" + cityID, f.submitErr
}

func (f *fakeCaptureManager) Capture(_ context.Context, _ string, _ bool) error { return nil }

func (f *fakeCaptureManager) GetStatus(_ context.Context, cityID string) (*entity.CaptureStatus, error) {
	if s, ok := f.statuses[cityID]; ok {
		return s, nil
	}
	return &entity.CaptureStatus{CityID: cityID, CurrentStatus: "not_found"}, nil
}

func (f *fakeCaptureManager) Start() {}
func (f *fakeCaptureManager) Stop()  {}

func TestHandleSubmitCapture(t *testing.T) {
	fake := &fakeCaptureManager{}
	h := NewHandler(fake, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/capture",
		strings.NewReader(`{"city_ids":["3444","1840"]}`))
	rec := httptest.NewRecorder()

	h.HandleSubmitCapture(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body response.SubmitCaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body.Status)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "queued", body.Results[0].Status)
	assert.Equal(t, "req-3444", body.Results[0].RequestID)
	assert.Equal(t, []string{"3444", "1840"}, fake.submitted)
}

func TestHandleSubmitCaptureSkipsRecent(t *testing.T) {
	fake := &fakeCaptureManager{submitErr: usecase.ErrRecentlyCaptured}
	h := NewHandler(fake, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/capture",
		strings.NewReader(`{"city_ids":["3444"]}`))
	rec := httptest.NewRecorder()

	h.HandleSubmitCapture(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body response.SubmitCaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "skipped", body.Results[0].Status)
}

func TestHandleSubmitCaptureBadRequest(t *testing.T) {
	h := NewHandler(&fakeCaptureManager{}, zap.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"city_ids": [`},
		{"empty list", `{"city_ids": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/capture", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.HandleSubmitCapture(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleCaptureStatus(t *testing.T) {
	fake := &fakeCaptureManager{statuses: map[string]*entity.CaptureStatus{
		"3444": {CityID: "3444", CurrentStatus: "completed", ResponseCount: 12},
	}}
	h := NewHandler(fake, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/status?city=3444", nil)
	rec := httptest.NewRecorder()

	h.HandleCaptureStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body response.CaptureStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "completed", body.CurrentStatus)
	assert.Equal(t, 12, body.ResponseCount)
}

func TestHandleCaptureStatusNotFound(t *testing.T) {
	h := NewHandler(&fakeCaptureManager{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/status?city=999999", nil)
	rec := httptest.NewRecorder()

	h.HandleCaptureStatus(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCaptureStatusMissingParam(t *testing.T) {
	h := NewHandler(&fakeCaptureManager{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()

	h.HandleCaptureStatus(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewHandler(&fakeCaptureManager{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
