package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	apperrors "github.com/3leaps/bucketdeck/internal/errors"
	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/match"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

// FileService is the file list the handlers drive. *filelist.Manager
// satisfies it.
type FileService interface {
	Snapshot() filelist.Snapshot
	Config() provider.StorageConfig
	FetchFiles(ctx context.Context) error
	DeleteFile(ctx context.Context, obj provider.ObjectDescriptor) error
}

var _ FileService = (*filelist.Manager)(nil)

type confirmedKey struct{}

// WithConfirmation marks ctx as carrying the caller's explicit consent.
func WithConfirmation(ctx context.Context) context.Context {
	return context.WithValue(ctx, confirmedKey{}, true)
}

// Confirmed reports whether WithConfirmation marked ctx.
func Confirmed(ctx context.Context) bool {
	ok, _ := ctx.Value(confirmedKey{}).(bool)
	return ok
}

// RequestConfirmer approves a delete only when the request carried consent.
var RequestConfirmer filelist.Confirmer = filelist.ConfirmFunc(func(ctx context.Context, _ provider.ObjectDescriptor) (bool, error) {
	return Confirmed(ctx), nil
})

// FilesResponse is the body of the file list endpoints.
type FilesResponse struct {
	Name      string                      `json:"name,omitempty"`
	Type      string                      `json:"type"`
	Bucket    string                      `json:"bucket,omitempty"`
	Prefix    string                      `json:"prefix,omitempty"`
	State     string                      `json:"state"`
	Loading   bool                        `json:"loading"`
	Supported bool                        `json:"supported"`
	Version   uint64                      `json:"version"`
	Error     string                      `json:"error,omitempty"`
	Total     int                         `json:"total"`
	Count     int                         `json:"count"`
	Items     []provider.ObjectDescriptor `json:"items"`
}

// DeleteResponse is the body of a successful delete.
type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

// FilesHandler serves the file list API.
type FilesHandler struct {
	svc      FileService
	readOnly bool
	limiter  *rate.Limiter
}

// NewFilesHandler creates a FilesHandler. limiter bounds refreshes; nil
// disables the limit.
func NewFilesHandler(svc FileService, readOnly bool, limiter *rate.Limiter) *FilesHandler {
	return &FilesHandler{svc: svc, readOnly: readOnly, limiter: limiter}
}

// List returns the current snapshot, optionally narrowed by query filters:
// include, exclude (repeatable globs), images, hidden, min_size, max_size,
// after, before.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorFromQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, r, apperrors.NewBadRequest(err.Error()))
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, h.response(h.svc.Snapshot(), sel))
}

// Refresh fetches a new listing and returns it.
func (h *FilesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		respondWithError(w, r, apperrors.NewTooManyRequests("refresh rate limit exceeded"))
		return
	}
	if err := h.svc.FetchFiles(r.Context()); err != nil {
		respondWithError(w, r, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, h.response(h.svc.Snapshot(), nil))
}

// Delete removes the object named by the wildcard path segment. The request
// must carry confirm=true.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.readOnly {
		respondWithError(w, r, apperrors.NewForbidden("readonly mode enabled: deletes are disabled"))
		return
	}

	key, err := wildcardKey(r)
	if err != nil || strings.TrimSpace(key) == "" {
		respondWithError(w, r, apperrors.NewBadRequest("object key is required"))
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		respondWithError(w, r, apperrors.NewBadRequest("delete requires confirm=true"))
		return
	}

	snap := h.svc.Snapshot()
	if !snap.Supported {
		respondWithError(w, r, provider.ErrUnsupported)
		return
	}
	obj, ok := snap.Find(key)
	if !ok {
		respondWithError(w, r, apperrors.NewNotFound("object not in the current listing: "+key))
		return
	}

	if err := h.svc.DeleteFile(WithConfirmation(r.Context()), obj); err != nil {
		respondWithError(w, r, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, DeleteResponse{Deleted: key})
}

func (h *FilesHandler) response(snap filelist.Snapshot, sel *match.Selector) FilesResponse {
	cfg := h.svc.Config()
	items := snap.Items
	if sel != nil {
		items = sel.Apply(items)
	}
	if items == nil {
		items = []provider.ObjectDescriptor{}
	}
	resp := FilesResponse{
		Name:      cfg.Name,
		Type:      string(cfg.Type),
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix(),
		State:     snap.State.String(),
		Loading:   snap.Loading,
		Supported: snap.Supported,
		Version:   snap.Version,
		Total:     len(snap.Items),
		Count:     len(items),
		Items:     items,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	return resp
}

func selectorFromQuery(q url.Values) (*match.Selector, error) {
	cfg := match.SelectorConfig{
		Patterns: match.Config{
			Includes:      splitValues(q["include"]),
			Excludes:      splitValues(q["exclude"]),
			IncludeHidden: q.Get("hidden") != "false",
		},
		Filters: match.FilterConfig{
			ImagesOnly: q.Get("images") == "true",
		},
	}
	if minSize, maxSize := q.Get("min_size"), q.Get("max_size"); minSize != "" || maxSize != "" {
		cfg.Filters.Size = &match.SizeFilterConfig{Min: minSize, Max: maxSize}
	}
	if after, before := q.Get("after"), q.Get("before"); after != "" || before != "" {
		cfg.Filters.Modified = &match.DateFilterConfig{After: after, Before: before}
	}
	return match.NewSelector(cfg)
}

// wildcardKey returns the decoded key. chi matches on RawPath when the
// request path needed escaping, so only then is the parameter still encoded.
func wildcardKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return key, nil
	}
	return url.PathUnescape(key)
}

// splitValues drops blanks. Commas are kept because brace patterns use them.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
