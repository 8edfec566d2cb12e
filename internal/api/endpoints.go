package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// IssueToken exchanges credentials for a bearer token (POST /token, form-encoded).
// The request never carries the current session credential.
func (c *Client) IssueToken(ctx context.Context, username, password string) (*model.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok model.Token
	err := c.send(ctx, call{
		op:          "login",
		method:      http.MethodPost,
		path:        "/token",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}, &tok)
	if err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) && (opErr.Status == http.StatusUnauthorized || opErr.Status == http.StatusBadRequest) {
			opErr.Kind = ErrInvalidCredentials
		}
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &OpError{Op: "login", Kind: ErrMalformedResponse, Msg: "response has no access_token"}
	}
	return &tok, nil
}

// Verify submits a claim for fact-checking (POST /api/v1/verify)
func (c *Client) Verify(ctx context.Context, claim string) (*model.VerificationResponse, error) {
	body, err := json.Marshal(model.VerificationRequest{Claim: claim})
	if err != nil {
		return nil, fmt.Errorf("verify: marshal request: %w", err)
	}

	var resp model.VerificationResponse
	if err := c.send(ctx, call{
		op:          "verify",
		method:      http.MethodPost,
		path:        "/api/v1/verify",
		body:        body,
		contentType: "application/json",
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyLegacy uses the backward-compatible endpoint (POST /verify-news)
func (c *Client) VerifyLegacy(ctx context.Context, news string) (*model.VerificationResponse, error) {
	body, err := json.Marshal(model.LegacyVerificationRequest{News: news})
	if err != nil {
		return nil, fmt.Errorf("verify-news: marshal request: %w", err)
	}

	var resp model.VerificationResponse
	if err := c.send(ctx, call{
		op:          "verify-news",
		method:      http.MethodPost,
		path:        "/verify-news",
		body:        body,
		contentType: "application/json",
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadDocument uploads a policy document for ingestion (multipart POST /api/v1/ingest/upload).
// Callers validate the document type before calling.
func (c *Client) UploadDocument(ctx context.Context, name string, r io.Reader) (*model.IngestResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(name))))
	header.Set("Content-Type", "application/pdf")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("upload: create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("upload: read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: close form: %w", err)
	}

	var resp model.IngestResponse
	if err := c.send(ctx, call{
		op:          "upload",
		method:      http.MethodPost,
		path:        "/api/v1/ingest/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		timeout:     c.uploadTimeout,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestPath asks the backend to ingest a file already on the server (POST /api/v1/ingest)
func (c *Client) IngestPath(ctx context.Context, filePath string) (*model.IngestResponse, error) {
	body, err := json.Marshal(model.IngestRequest{FilePath: filePath})
	if err != nil {
		return nil, fmt.Errorf("ingest: marshal request: %w", err)
	}

	var resp model.IngestResponse
	if err := c.send(ctx, call{
		op:          "ingest",
		method:      http.MethodPost,
		path:        "/api/v1/ingest",
		body:        body,
		contentType: "application/json",
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestStatus returns the backend's free-form ingestion status (GET /api/v1/ingest/status).
// A transient failure is retried once.
func (c *Client) IngestStatus(ctx context.Context) (map[string]any, error) {
	status := make(map[string]any)
	if err := c.sendWithRetry(ctx, call{
		op:     "ingest-status",
		method: http.MethodGet,
		path:   "/api/v1/ingest/status",
	}, &status, 2); err != nil {
		return nil, err
	}
	return status, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
