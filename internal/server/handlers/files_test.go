package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	apperrors "github.com/3leaps/bucketdeck/internal/errors"
	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

type fakeService struct {
	mu        sync.Mutex
	snap      filelist.Snapshot
	cfg       provider.StorageConfig
	fetchErr  error
	deleteErr error
	fetches   int
	deleted   []string
	confirmed []bool
}

func (f *fakeService) Snapshot() filelist.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeService) Config() provider.StorageConfig { return f.cfg }

func (f *fakeService) FetchFiles(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.fetchErr
}

func (f *fakeService) DeleteFile(ctx context.Context, obj provider.ObjectDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, Confirmed(ctx))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, obj.Key)
	return nil
}

func photosService() *fakeService {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &fakeService{
		cfg: provider.StorageConfig{Name: "photos", Type: provider.ProviderS3, Bucket: "photos", Path: "2024"},
		snap: filelist.Snapshot{
			State:     filelist.StateReady,
			Supported: true,
			Type:      provider.ProviderS3,
			Version:   3,
			Items: []provider.ObjectDescriptor{
				{Key: "2024/a.png", Size: 2048, LastModified: t0.Add(time.Hour), URL: "https://photos.s3.amazonaws.com/2024/a.png", IsImage: true},
				{Key: "2024/notes.txt", Size: 10, LastModified: t0, URL: "https://photos.s3.amazonaws.com/2024/notes.txt"},
				{Key: "2024/dir with space/b.jpg", Size: 4096, LastModified: t0.Add(-time.Hour), URL: "https://photos.s3.amazonaws.com/2024/dir%20with%20space/b.jpg", IsImage: true},
			},
		},
	}
}

func router(h *FilesHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/files", h.List)
	r.Post("/api/v1/files/refresh", h.Refresh)
	r.Delete("/api/v1/files/*", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeFiles(t *testing.T, rec *httptest.ResponseRecorder) FilesResponse {
	t.Helper()
	var resp FilesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestFilesHandler_List(t *testing.T) {
	svc := photosService()
	rec := do(t, router(NewFilesHandler(svc, false, nil)), http.MethodGet, "/api/v1/files")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeFiles(t, rec)
	assert.Equal(t, "photos", resp.Name)
	assert.Equal(t, "s3", resp.Type)
	assert.Equal(t, "2024/", resp.Prefix)
	assert.Equal(t, "ready", resp.State)
	assert.True(t, resp.Supported)
	assert.Equal(t, uint64(3), resp.Version)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "2024/a.png", resp.Items[0].Key)
}

func TestFilesHandler_ListFilters(t *testing.T) {
	h := router(NewFilesHandler(photosService(), false, nil))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"images only", "?images=true", []string{"2024/a.png", "2024/dir with space/b.jpg"}},
		{"include", "?include=**/*.txt", []string{"2024/notes.txt"}},
		{"exclude", "?exclude=**/*.png&exclude=**/*.jpg", []string{"2024/notes.txt"}},
		{"brace include", "?include=**/*.{png,txt}", []string{"2024/a.png", "2024/notes.txt"}},
		{"min size", "?min_size=1KB", []string{"2024/a.png", "2024/dir with space/b.jpg"}},
		{"after", "?after=2024-03-01T00:00:00Z", []string{"2024/a.png", "2024/notes.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/v1/files"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decodeFiles(t, rec)
			var keys []string
			for _, it := range resp.Items {
				keys = append(keys, it.Key)
			}
			assert.Equal(t, tt.want, keys)
			assert.Equal(t, 3, resp.Total)
			assert.Equal(t, len(tt.want), resp.Count)
		})
	}
}

func TestFilesHandler_ListBadFilter(t *testing.T) {
	rec := do(t, router(NewFilesHandler(photosService(), false, nil)), http.MethodGet, "/api/v1/files?min_size=lots")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilesHandler_ListReportsError(t *testing.T) {
	svc := photosService()
	svc.snap.State = filelist.StateErrored
	svc.snap.Err = &provider.ProviderError{Op: "List", Provider: provider.ProviderS3, Bucket: "photos", Err: provider.ErrAccessDenied}

	resp := decodeFiles(t, do(t, router(NewFilesHandler(svc, false, nil)), http.MethodGet, "/api/v1/files"))
	assert.Equal(t, "errored", resp.State)
	assert.Contains(t, resp.Error, "access denied")
	assert.Len(t, resp.Items, 3, "previous items are kept")
}

func TestFilesHandler_Refresh(t *testing.T) {
	svc := photosService()
	rec := do(t, router(NewFilesHandler(svc, false, nil)), http.MethodPost, "/api/v1/files/refresh")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.fetches)
}

func TestFilesHandler_RefreshError(t *testing.T) {
	svc := photosService()
	svc.fetchErr = &provider.ProviderError{Op: "List", Provider: provider.ProviderS3, Err: provider.ErrBucketNotFound}

	rec := do(t, router(NewFilesHandler(svc, false, nil)), http.MethodPost, "/api/v1/files/refresh")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, rec))
}

func TestFilesHandler_RefreshRateLimited(t *testing.T) {
	svc := photosService()
	h := router(NewFilesHandler(svc, false, rate.NewLimiter(rate.Every(time.Hour), 1)))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/files/refresh").Code)

	rec := do(t, h, http.MethodPost, "/api/v1/files/refresh")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, svc.fetches)
}

func TestFilesHandler_Delete(t *testing.T) {
	svc := photosService()
	rec := do(t, router(NewFilesHandler(svc, false, nil)), http.MethodDelete, "/api/v1/files/2024/a.png?confirm=true")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeleteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "2024/a.png", resp.Deleted)
	assert.Equal(t, []string{"2024/a.png"}, svc.deleted)
	assert.Equal(t, []bool{true}, svc.confirmed)
}

func TestFilesHandler_DeleteEscapedKey(t *testing.T) {
	svc := photosService()
	rec := do(t, router(NewFilesHandler(svc, false, nil)), http.MethodDelete, "/api/v1/files/2024/dir%20with%20space/b.jpg?confirm=true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2024/dir with space/b.jpg"}, svc.deleted)
}

func TestFilesHandler_DeleteRejections(t *testing.T) {
	tests := []struct {
		name       string
		readOnly   bool
		target     string
		mutate     func(*fakeService)
		wantStatus int
		wantCode   string
	}{
		{"readonly", true, "/api/v1/files/2024/a.png?confirm=true", nil, http.StatusForbidden, apperrors.CodeForbidden},
		{"missing confirm", false, "/api/v1/files/2024/a.png", nil, http.StatusBadRequest, apperrors.CodeBadRequest},
		{"confirm false", false, "/api/v1/files/2024/a.png?confirm=false", nil, http.StatusBadRequest, apperrors.CodeBadRequest},
		{"unknown key", false, "/api/v1/files/2024/zzz.png?confirm=true", nil, http.StatusNotFound, apperrors.CodeNotFound},
		{"unsupported storage", false, "/api/v1/files/2024/a.png?confirm=true", func(f *fakeService) { f.snap.Supported = false }, http.StatusNotImplemented, apperrors.CodeUnsupported},
		{"in progress", false, "/api/v1/files/2024/a.png?confirm=true", func(f *fakeService) { f.deleteErr = filelist.ErrDeleteInProgress }, http.StatusConflict, apperrors.CodeConflict},
		{"access denied", false, "/api/v1/files/2024/a.png?confirm=true", func(f *fakeService) {
			f.deleteErr = &provider.ProviderError{Op: "Delete", Provider: provider.ProviderS3, Err: provider.ErrAccessDenied}
		}, http.StatusForbidden, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := photosService()
			if tt.mutate != nil {
				tt.mutate(svc)
			}
			rec := do(t, router(NewFilesHandler(svc, tt.readOnly, nil)), http.MethodDelete, tt.target)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
			assert.Empty(t, svc.deleted)
		})
	}
}

func TestRequestConfirmer(t *testing.T) {
	ok, err := RequestConfirmer.Confirm(context.Background(), provider.ObjectDescriptor{Key: "a"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = RequestConfirmer.Confirm(WithConfirmation(context.Background()), provider.ObjectDescriptor{Key: "a"})
	require.NoError(t, err)
	assert.True(t, ok)
}
