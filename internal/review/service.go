// Package review drives the admin human-in-the-loop review console:
// paginated queues of AI-generated replies, approve/reject transitions,
// and attachment management. All state lives in the remote backend; this
// package only reads it and requests transitions.
package review

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sayonsom/workpal/internal/domain"
	"github.com/sayonsom/workpal/internal/gateway"
)

// DefaultPageSize is the backend's default review page size.
const DefaultPageSize = 20

// Caller abstracts the gateway client for tests.
type Caller interface {
	Call(ctx context.Context, sessionID, method, path string, body, out any) error
	Upload(ctx context.Context, sessionID, path, field, filename, contentType string, r io.Reader, out any) error
}

// Service exposes the review operations of the backend admin API.
type Service struct {
	gw Caller
}

// NewService creates a review service over the gateway client.
func NewService(gw Caller) *Service {
	return &Service{gw: gw}
}

// Page is one page of review records plus the cursor for the next page.
// An empty cursor means no more pages.
type Page struct {
	Items  []domain.ReviewRecord `json:"items"`
	Cursor string                `json:"cursor,omitempty"`
}

// Detail is a single review record with its defensively-parsed pipeline
// trace. Trace is nil when the trace is absent or malformed; that is not
// an error condition.
type Detail struct {
	Record domain.ReviewRecord `json:"record"`
	Trace  map[string]any      `json:"parsed_trace,omitempty"`
}

// Summary is the admin dashboard counters, re-fetched after every
// approve/reject mutation.
type Summary struct {
	Pending       int `json:"pending"`
	ApprovedToday int `json:"approved_today"`
	RejectedToday int `json:"rejected_today"`
}

// DownloadLink is a time-scoped attachment download URL.
type DownloadLink struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// List fetches one page of reviews. An empty status means "all". The
// cursor must be passed back unmodified from a previous page. Item order
// is whatever the backend returned; no client-side re-sorting.
func (s *Service) List(ctx context.Context, sessionID string, status domain.ReviewStatus, pageSize int, cursor string) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if status != "" {
		q.Set("status", string(status))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page Page
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/admin/reviews?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one review and attempts to parse its pipeline trace. A
// malformed trace is swallowed: the detail still resolves with Trace nil.
func (s *Service) Get(ctx context.Context, sessionID, reviewID string) (*Detail, error) {
	var record domain.ReviewRecord
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/admin/reviews/"+url.PathEscape(reviewID), nil, &record); err != nil {
		return nil, err
	}
	detail := &Detail{Record: record}
	if trace, ok := record.ParseTrace(); ok {
		detail.Trace = trace
	}
	return detail, nil
}

type approveRequest struct {
	EditedOutput string `json:"edited_output"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Approve requests pending → approved. A non-nil edited output is sent and
// becomes the approved output; nil approves the original verbatim with no
// request body at all.
func (s *Service) Approve(ctx context.Context, sessionID, reviewID string, edited *string) error {
	var body any
	if edited != nil {
		body = approveRequest{EditedOutput: *edited}
	}
	return s.gw.Call(ctx, sessionID, http.MethodPost, "/admin/reviews/"+url.PathEscape(reviewID)+"/approve", body, nil)
}

// Reject requests pending → rejected. Reason is optional free text.
func (s *Service) Reject(ctx context.Context, sessionID, reviewID, reason string) error {
	return s.gw.Call(ctx, sessionID, http.MethodPost, "/admin/reviews/"+url.PathEscape(reviewID)+"/reject", rejectRequest{Reason: reason}, nil)
}

// Summary fetches the admin dashboard counters.
func (s *Service) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	var sum Summary
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/admin/dashboard", nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// AttachmentURL retrieves a time-scoped download URL for one attachment
// slot, addressed by position.
func (s *Service) AttachmentURL(ctx context.Context, sessionID, reviewID string, index int) (*DownloadLink, error) {
	var link DownloadLink
	path := fmt.Sprintf("/admin/reviews/%s/attachments/%d/download", url.PathEscape(reviewID), index)
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, path, nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// ReplaceAttachment uploads a replacement file for one attachment slot.
// Only permitted while the owning review is still pending; the updated
// record is re-fetched so the caller sees the new attachment metadata.
func (s *Service) ReplaceAttachment(ctx context.Context, sessionID, reviewID string, index int, filename, contentType string, file io.Reader) (*Detail, error) {
	detail, err := s.Get(ctx, sessionID, reviewID)
	if err != nil {
		return nil, err
	}
	if detail.Record.Status != domain.ReviewPending {
		return nil, &gateway.APIError{
			Status:  http.StatusConflict,
			Message: "attachments can only be replaced while the review is pending",
		}
	}
	if index < 0 || index >= len(detail.Record.Attachments) {
		return nil, &gateway.APIError{
			Status:  http.StatusBadRequest,
			Message: "attachment index out of range",
		}
	}

	path := fmt.Sprintf("/admin/reviews/%s/attachments/%d", url.PathEscape(reviewID), index)
	if err := s.gw.Upload(ctx, sessionID, path, "file", filename, contentType, file, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, sessionID, reviewID)
}

// Audit fetches one page of the immutable admin audit log.
func (s *Service) Audit(ctx context.Context, sessionID, cursor string) ([]domain.AuditEntry, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/admin/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page struct {
		Items  []domain.AuditEntry `json:"items"`
		Cursor string              `json:"cursor,omitempty"`
	}
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, path, nil, &page); err != nil {
		return nil, "", err
	}
	return page.Items, page.Cursor, nil
}
