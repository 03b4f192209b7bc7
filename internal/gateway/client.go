// Package gateway is the single chokepoint for all calls to the remote
// Workpal backend API. It attaches bearer credentials, converts failures
// into a typed error taxonomy, and transparently performs at most one
// coordinated token refresh per session when a call comes back 401.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sayonsom/workpal/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TokenStore is the slice of the session layer the gateway needs.
type TokenStore interface {
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	SaveAccessOnly(ctx context.Context, sessionID, access string) error
	ClearByID(ctx context.Context, sessionID string) error
}

// Client talks to the remote backend over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   TokenStore

	// refreshGroup guarantees at most one refresh call in flight per
	// session; concurrent 401s fan in to the same call and share its
	// resulting access token.
	refreshGroup singleflight.Group
}

// New creates a gateway client for the given backend base URL.
func New(baseURL string, sessions TokenStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		sessions: sessions,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Call issues an authenticated JSON request for the given session. A nil
// body sends no request body; a nil out discards the response body. On a
// 401 the client refreshes the session's access token (de-duplicated
// across concurrent callers) and retries the original request exactly
// once. A failed refresh clears the session and returns ErrSessionExpired.
func (c *Client) Call(ctx context.Context, sessionID, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	resp, err := c.doAuthed(ctx, sessionID, func(token string) (*http.Request, error) {
		return c.newRequest(ctx, method, path, token, payload, "application/json")
	})
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// CallPublic issues an unauthenticated JSON request (signup, login,
// contact-type endpoints on the backend).
func (c *Client) CallPublic(ctx context.Context, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, "", payload, "application/json")
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	return decodeResponse(resp, out)
}

// Upload sends one file as a multipart form under the given field name,
// with the same refresh-and-retry-once behavior as Call. The file is
// buffered so the request can be rebuilt for the retry.
func (c *Client) Upload(ctx context.Context, sessionID, path, field, filename, contentType string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("buffer upload: %w", err)
	}
	if contentType != "" {
		_ = mw.WriteField("content_type", contentType)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	payload := buf.Bytes()
	resp, err := c.doAuthed(ctx, sessionID, func(token string) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, path, token, payload, mw.FormDataContentType())
	})
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// Download streams an authenticated binary response (account export). The
// caller owns the returned body.
func (c *Client) Download(ctx context.Context, sessionID, path string) (io.ReadCloser, string, error) {
	resp, err := c.doAuthed(ctx, sessionID, func(token string) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, path, token, nil, "")
	})
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, "", errorFromResponse(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// doAuthed runs the request factory with the session's current access
// token and handles the single 401 → refresh → retry path.
func (c *Client) doAuthed(ctx context.Context, sessionID string, makeReq func(token string) (*http.Request, error)) (*http.Response, error) {
	sess, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.HasAccessToken() {
		return nil, ErrSessionExpired
	}

	req, err := makeReq(sess.AccessToken)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	newToken, err := c.refresh(ctx, sessionID, sess.RefreshToken)
	if err != nil {
		return nil, err
	}

	retryReq, err := makeReq(newToken)
	if err != nil {
		return nil, err
	}
	retryResp, err := c.httpClient.Do(retryReq)
	if err != nil {
		return nil, fmt.Errorf("backend retry: %w", err)
	}
	return retryResp, nil
}

// refresh performs the coordinated token refresh. All concurrent 401s for
// one session fan in to a single POST /refresh; every waiter receives the
// same new access token.
func (c *Client) refresh(ctx context.Context, sessionID, refreshToken string) (string, error) {
	token, err, shared := c.refreshGroup.Do(sessionID, func() (any, error) {
		var out refreshResponse
		if err := c.CallPublic(ctx, http.MethodPost, "/refresh", refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
			return nil, err
		}
		if out.AccessToken == "" {
			return nil, &APIError{Status: http.StatusUnauthorized, Message: "refresh returned no access token"}
		}
		if err := c.sessions.SaveAccessOnly(ctx, sessionID, out.AccessToken); err != nil {
			return nil, fmt.Errorf("store refreshed token: %w", err)
		}
		return out.AccessToken, nil
	})
	if err != nil {
		slog.Warn("Token refresh failed, ending session", "session_id", sessionID, "error", err)
		if clearErr := c.sessions.ClearByID(ctx, sessionID); clearErr != nil {
			slog.Error("Failed to clear session after refresh failure", "session_id", sessionID, "error", clearErr)
		}
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if shared {
		slog.Debug("Joined in-flight token refresh", "session_id", sessionID)
	}
	return token.(string), nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, payload []byte, contentType string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorFromResponse builds the typed error taxonomy from a failed
// response: {message, status, code?}, with the message parsed from the
// body when present, else derived from the status text.
func errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		if body.Error != "" {
			apiErr.Message = body.Error
		} else {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
