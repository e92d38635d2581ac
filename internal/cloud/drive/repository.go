// Package drive implements the remote backup repository on top of the
// Google Drive v3 files API.
//
// All backups of one installation live in a single folder (the container)
// and are named "<prefix>-<YYYY-MM-DD>.json". Uploading twice on the same
// UTC day replaces the content of the existing file instead of creating a
// second one. Every call takes the bearer token explicitly; the repository
// keeps no token state between calls.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL           = "https://www.googleapis.com"
	DefaultNamePrefix        = "garage-backup"
	DefaultRequestsPerSecond = 5

	filesPath  = "/drive/v3/files"
	uploadPath = "/upload/drive/v3/files"

	fileFields = "id,name,modifiedTime"
	listFields = "files(id,name,modifiedTime)"

	jsonMimeType = "application/json"

	maxErrorBody    = 4 << 10
	maxSnapshotSize = 64 << 20
)

// Option configures a Repository.
type Option func(*Repository)

// WithBaseURL points the repository at another API host (tests, proxies).
func WithBaseURL(baseURL string) Option {
	return func(r *Repository) {
		r.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the client whose transport and timeout are used
// underneath the bearer-token transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Repository) {
		r.httpClient = httpClient
	}
}

// WithRateLimit caps outgoing API calls per second; zero or less disables
// the limit.
func WithRateLimit(requestsPerSecond int) Option {
	return func(r *Repository) {
		if requestsPerSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithNamePrefix changes the backup file name prefix.
func WithNamePrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

// WithClock replaces time.Now when computing the daily file name.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// Repository performs list/upload/download against one Drive account.
type Repository struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewRepository returns a Repository for the public Drive API unless
// options say otherwise.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		baseURL:    DefaultBaseURL,
		prefix:     DefaultNamePrefix,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FileName returns the backup file name for the UTC calendar day of t.
func (r *Repository) FileName(t time.Time) string {
	return fmt.Sprintf("%s-%s.json", r.prefix, t.UTC().Format("2006-01-02"))
}

// NamePrefix returns the prefix shared by all backup file names.
func (r *Repository) NamePrefix() string {
	return r.prefix
}

// List returns the backups in containerID, newest first. Trashed files and
// files not following the naming convention are excluded.
func (r *Repository) List(ctx context.Context, containerID, token string) ([]models.BackupRecord, error) {
	if containerID == "" {
		return nil, fmt.Errorf("%w: container id is empty", cloud.ErrNotConfigured)
	}

	params := url.Values{}
	params.Set("q", r.listQuery(containerID))
	params.Set("orderBy", "modifiedTime desc")
	params.Set("fields", listFields)
	params.Set("spaces", "drive")
	params.Set("pageSize", "1000")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+filesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloud.ErrList, err)
	}
	req.Header.Set("Accept", jsonMimeType)

	resp, err := r.do(ctx, token, req, "list backups", cloud.ErrList)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Files []models.BackupRecord `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", cloud.ErrList, err)
	}

	if body.Files == nil {
		return []models.BackupRecord{}, nil
	}
	return body.Files, nil
}

// GetLatest returns the most recently modified backup, or nil when the
// container holds none.
func (r *Repository) GetLatest(ctx context.Context, containerID, token string) (*models.BackupRecord, error) {
	records, err := r.List(ctx, containerID, token)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	latest := records[0]
	return &latest, nil
}

// Upload stores payload as today's backup. An existing file with today's
// name is overwritten in place; otherwise a new file is created in the
// container. The list-then-write sequence is not atomic.
func (r *Repository) Upload(ctx context.Context, containerID, token string, payload []byte) (*models.BackupRecord, error) {
	if containerID == "" {
		return nil, fmt.Errorf("%w: container id is empty", cloud.ErrNotConfigured)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", cloud.ErrUpload)
	}

	name := r.FileName(r.now())

	existing, err := r.List(ctx, containerID, token)
	if err != nil {
		return nil, fmt.Errorf("%w: checking for existing %s: %w", cloud.ErrUpload, name, err)
	}

	for _, rec := range existing {
		if rec.Name == name {
			return r.replace(ctx, token, rec, payload)
		}
	}

	return r.create(ctx, containerID, token, name, payload)
}

// Download fetches the raw content of fileID and checks that it is JSON.
// containerID is not needed to address the file and is accepted for
// symmetry with the other operations.
func (r *Repository) Download(ctx context.Context, containerID, token, fileID string) (json.RawMessage, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is empty", cloud.ErrDownload)
	}

	params := url.Values{}
	params.Set("alt", "media")

	endpoint := r.baseURL + filesPath + "/" + url.PathEscape(fileID) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloud.ErrDownload, err)
	}

	resp, err := r.do(ctx, token, req, "download backup", cloud.ErrDownload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize+1))
	if err != nil {
		return nil, cloud.NetworkError("download backup", err)
	}
	if len(data) > maxSnapshotSize {
		return nil, fmt.Errorf("%w: backup %s exceeds %d bytes", cloud.ErrDownload, fileID, maxSnapshotSize)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: backup %s is not valid JSON", cloud.ErrDownload, fileID)
	}

	return json.RawMessage(data), nil
}

func (r *Repository) create(ctx context.Context, containerID, token, name string, payload []byte) (*models.BackupRecord, error) {
	meta := fileMetadata{Name: name, Parents: []string{containerID}, MimeType: jsonMimeType}

	body, contentType, err := multipartRelated(meta, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: building request body: %v", cloud.ErrUpload, err)
	}

	params := url.Values{}
	params.Set("uploadType", "multipart")
	params.Set("fields", fileFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+uploadPath+"?"+params.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloud.ErrUpload, err)
	}
	req.Header.Set("Content-Type", contentType)

	return r.sendUpload(ctx, token, req, models.BackupRecord{Name: name})
}

func (r *Repository) replace(ctx context.Context, token string, existing models.BackupRecord, payload []byte) (*models.BackupRecord, error) {
	params := url.Values{}
	params.Set("uploadType", "media")
	params.Set("fields", fileFields)

	endpoint := r.baseURL + uploadPath + "/" + url.PathEscape(existing.ID) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloud.ErrUpload, err)
	}
	req.Header.Set("Content-Type", jsonMimeType)

	return r.sendUpload(ctx, token, req, existing)
}

// sendUpload executes an upload request and decodes the returned file
// resource; fields missing from the response are taken from fallback.
func (r *Repository) sendUpload(ctx context.Context, token string, req *http.Request, fallback models.BackupRecord) (*models.BackupRecord, error) {
	resp, err := r.do(ctx, token, req, "upload backup", cloud.ErrUpload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rec models.BackupRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decoding response: %v", cloud.ErrUpload, err)
	}

	if rec.ID == "" {
		rec.ID = fallback.ID
	}
	if rec.Name == "" {
		rec.Name = fallback.Name
	}
	if rec.ModifiedTime.IsZero() {
		rec.ModifiedTime = fallback.ModifiedTime
	}

	return &rec, nil
}

// do sends req with the bearer token and turns transport failures and
// non-2xx answers into cloud errors of the given kind.
func (r *Repository) do(ctx context.Context, token string, req *http.Request, op string, kind error) (*http.Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: rate limiter: %w", kind, op, err)
	}

	resp, err := r.authorizedClient(token).Do(req)
	if err != nil {
		return nil, cloud.NetworkError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &cloud.StatusError{Kind: kind, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

func (r *Repository) authorizedClient(token string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: r.httpClient.Transport},
		Timeout:   r.httpClient.Timeout,
	}
}

func (r *Repository) listQuery(containerID string) string {
	return fmt.Sprintf("'%s' in parents and name contains '%s' and mimeType='%s' and trashed=false",
		escapeQuery(containerID), escapeQuery(r.prefix), jsonMimeType)
}

// escapeQuery escapes a literal for use inside a single-quoted Drive query
// string.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
