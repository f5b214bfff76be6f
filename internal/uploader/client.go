// Package uploader implements the upload collaborator: a client for the
// document intake service that runs the request-target, transfer, confirm and
// analyze legs of one side upload.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"veridoc/internal/capture/models"
	"veridoc/internal/capture/ports"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
)

const defaultTimeout = 60 * time.Second

// Client talks to the intake service. The control legs (request target,
// confirm, analyze) run behind a circuit breaker; the byte transfer does not,
// since a slow large transfer is not a service-health signal.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New constructs an intake client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "intake base URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "intake",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if c.logger != nil {
				c.logger.Warn("circuit breaker state change",
					"operation", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return c, nil
}

// uploadTicket is the intake service's answer to a target request.
type uploadTicket struct {
	UploadID   string `json:"upload_id"`
	URL        string `json:"url"`
	StorageKey string `json:"storage_key"`
}

type confirmResponse struct {
	DocumentID string    `json:"document_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Upload runs the full flow for one side: request an upload target, transfer
// the bytes with progress reports, confirm, and optionally trigger analysis.
func (c *Client) Upload(ctx context.Context, req ports.UploadRequest) (models.Document, error) {
	report := func(stage models.Stage) {
		if req.OnStage != nil {
			req.OnStage(stage)
		}
	}

	report(models.StagePreparing)
	ticket, err := c.requestTarget(ctx, req)
	if err != nil {
		return models.Document{}, err
	}

	report(models.StageUploading)
	if err := c.transfer(ctx, ticket, req); err != nil {
		return models.Document{}, err
	}

	report(models.StageConfirming)
	confirmed, err := c.confirm(ctx, ticket.UploadID)
	if err != nil {
		return models.Document{}, err
	}

	if req.TriggerAnalysis {
		report(models.StageAnalyzing)
		if err := c.analyze(ctx, ticket.UploadID); err != nil {
			return models.Document{}, err
		}
	}

	docID, err := id.ParseDocumentID(confirmed.DocumentID)
	if err != nil {
		return models.Document{}, dErrors.Wrap(err, dErrors.CodeInternal, "intake returned a malformed document id")
	}
	return models.Document{
		ID:           docID,
		ApplicantID:  req.ApplicantID,
		DocumentType: req.DocumentType,
		FileName:     req.File.Name,
		ContentType:  req.File.DeclaredType,
		SizeBytes:    req.File.SizeBytes,
		StorageKey:   ticket.StorageKey,
		UploadedAt:   confirmed.UploadedAt,
	}, nil
}

func (c *Client) requestTarget(ctx context.Context, req ports.UploadRequest) (*uploadTicket, error) {
	body := map[string]any{
		"applicant_id":  req.ApplicantID.String(),
		"document_type": req.DocumentType,
		"file_name":     req.File.Name,
		"content_type":  req.File.DeclaredType,
		"size_bytes":    req.File.SizeBytes,
	}
	resp, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v1/uploads", body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Could not reach the upload service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError("request upload target", resp)
	}

	var ticket uploadTicket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "malformed upload target response")
	}
	if ticket.UploadID == "" || ticket.URL == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "upload target response missing fields")
	}
	return &ticket, nil
}

// transfer PUTs the file bytes to the target URL, reporting percentage
// progress as the body drains.
func (c *Client) transfer(ctx context.Context, ticket *uploadTicket, req ports.UploadRequest) error {
	file, err := req.File.Open()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not open file for upload")
	}
	defer file.Close()

	reader := &progressReader{
		r:     file,
		total: req.File.SizeBytes,
		onPct: req.OnProgress,
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, ticket.URL, reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build transfer request")
	}
	httpReq.Header.Set("Content-Type", req.File.DeclaredType)
	httpReq.ContentLength = req.File.SizeBytes

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Upload transfer failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("transfer", resp)
	}
	if req.OnProgress != nil {
		req.OnProgress(100)
	}
	return nil
}

func (c *Client) confirm(ctx context.Context, uploadID string) (*confirmResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v1/uploads/"+uploadID+"/confirm", nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Could not confirm the upload")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("confirm upload", resp)
	}

	var confirmed confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirmed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "malformed confirm response")
	}
	return &confirmed, nil
}

func (c *Client) analyze(ctx context.Context, uploadID string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v1/uploads/"+uploadID+"/analyze", nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Could not start document analysis")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return statusError("trigger analysis", resp)
	}
	return nil
}

// doJSON issues a control-leg request through the circuit breaker.
func (c *Client) doJSON(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	return c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, payload)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		// 5xx counts against the breaker; 4xx is a caller problem.
		if resp.StatusCode >= 500 {
			defer resp.Body.Close()
			return nil, fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
		}
		return resp, nil
	})
}

func statusError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	code := dErrors.CodeUnavailable
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		code = dErrors.CodeBadRequest
	}
	return dErrors.Newf(code, "%s failed with status %d: %s", operation, resp.StatusCode, bytes.TrimSpace(raw))
}

// progressReader reports percentage progress as the wrapped reader drains.
type progressReader struct {
	r       io.Reader
	total   int64
	read    int64
	lastPct int
	onPct   ports.ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 && p.onPct != nil {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.onPct(pct)
		}
	}
	return n, err
}
