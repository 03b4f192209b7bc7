package review

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/sayonsom/workpal/internal/domain"
	"github.com/sayonsom/workpal/internal/gateway"
)

// recordedCall is one request the fake gateway saw.
type recordedCall struct {
	Method string
	Path   string
	Body   any
}

// fakeGateway implements Caller with canned responses keyed by
// method+path prefix.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]any
	errors    map[string]error

	// block, when set, parks every Call until closed; entered, when set,
	// receives a signal as a Call starts waiting.
	block   chan struct{}
	entered chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		responses: make(map[string]any),
		errors:    make(map[string]error),
	}
}

func (f *fakeGateway) respond(method, path string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = v
}

func (f *fakeGateway) fail(method, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[method+" "+path] = err
}

func (f *fakeGateway) Call(_ context.Context, _, method, path string, body, out any) error {
	if f.block != nil {
		if f.entered != nil {
			f.entered <- struct{}{}
		}
		<-f.block
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: method, Path: path, Body: body})
	err := f.errors[method+" "+path]
	resp := f.responses[method+" "+path]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if resp == nil || out == nil {
		return nil
	}
	raw, merr := json.Marshal(resp)
	if merr != nil {
		return merr
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeGateway) Upload(_ context.Context, _, path, _, filename, _ string, r io.Reader, _ any) error {
	data, _ := io.ReadAll(r)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: "UPLOAD", Path: path, Body: filename + ":" + string(data)})
	err := f.errors["UPLOAD "+path]
	f.mu.Unlock()
	return err
}

func (f *fakeGateway) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func pendingRecord(id string) domain.ReviewRecord {
	return domain.ReviewRecord{
		ReviewID:   id,
		TaskID:     "task-" + id,
		Subject:    "Re: invoice",
		FullInput:  "original inbound email",
		FullOutput: "original drafted reply",
		Status:     domain.ReviewPending,
		Complexity: domain.ComplexityMedium,
	}
}

func TestApproveWithoutEditSendsNoBody(t *testing.T) {
	gw := newFakeGateway()
	svc := NewService(gw)

	if err := svc.Approve(context.Background(), "s1", "r1", nil); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	calls := gw.recorded()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].Path != "/admin/reviews/r1/approve" {
		t.Errorf("Unexpected path %q", calls[0].Path)
	}
	if calls[0].Body != nil {
		t.Errorf("Expected no body for verbatim approval, got %v", calls[0].Body)
	}
}

func TestApproveWithEditSendsEditedOutput(t *testing.T) {
	gw := newFakeGateway()
	svc := NewService(gw)

	edited := "a better reply"
	if err := svc.Approve(context.Background(), "s1", "r1", &edited); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	calls := gw.recorded()
	body, ok := calls[0].Body.(approveRequest)
	if !ok {
		t.Fatalf("Expected approveRequest body, got %T", calls[0].Body)
	}
	if body.EditedOutput != edited {
		t.Errorf("Expected edited output %q, got %q", edited, body.EditedOutput)
	}
}

func TestRejectSendsOptionalReason(t *testing.T) {
	gw := newFakeGateway()
	svc := NewService(gw)

	for _, reason := range []string{"", "tone is off"} {
		if err := svc.Reject(context.Background(), "s1", "r1", reason); err != nil {
			t.Fatalf("Reject(%q) failed: %v", reason, err)
		}
	}

	calls := gw.recorded()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 calls, got %d", len(calls))
	}
	for i, want := range []string{"", "tone is off"} {
		body, ok := calls[i].Body.(rejectRequest)
		if !ok {
			t.Fatalf("Expected rejectRequest body, got %T", calls[i].Body)
		}
		if body.Reason != want {
			t.Errorf("Call %d: expected reason %q, got %q", i, want, body.Reason)
		}
	}
}

func TestGetSwallowsMalformedTrace(t *testing.T) {
	gw := newFakeGateway()
	record := pendingRecord("r1")
	record.PipelineTrace = json.RawMessage(`"this is not { valid json"`)
	gw.respond(http.MethodGet, "/admin/reviews/r1", record)

	svc := NewService(gw)
	detail, err := svc.Get(context.Background(), "s1", "r1")
	if err != nil {
		t.Fatalf("Get must not fail on a malformed trace: %v", err)
	}
	if detail.Trace != nil {
		t.Errorf("Expected nil trace for malformed payload, got %v", detail.Trace)
	}
	if detail.Record.ReviewID != "r1" {
		t.Errorf("Expected record to round-trip, got %+v", detail.Record)
	}
}

func TestGetParsesValidTrace(t *testing.T) {
	gw := newFakeGateway()
	record := pendingRecord("r1")
	record.PipelineTrace = json.RawMessage(`{"steps":3,"model":"wp-large"}`)
	gw.respond(http.MethodGet, "/admin/reviews/r1", record)

	svc := NewService(gw)
	detail, err := svc.Get(context.Background(), "s1", "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if detail.Trace == nil || detail.Trace["model"] != "wp-large" {
		t.Errorf("Expected parsed trace, got %v", detail.Trace)
	}
}

func TestReplaceAttachmentRejectsNonPending(t *testing.T) {
	gw := newFakeGateway()
	record := pendingRecord("r1")
	record.Status = domain.ReviewApproved
	record.Attachments = []domain.AttachmentMeta{{Filename: "a.pdf"}}
	gw.respond(http.MethodGet, "/admin/reviews/r1", record)

	svc := NewService(gw)
	_, err := svc.ReplaceAttachment(context.Background(), "s1", "r1", 0, "b.pdf", "application/pdf", strings.NewReader("data"))
	apiErr, ok := gateway.AsAPIError(err)
	if !ok || apiErr.Status != http.StatusConflict {
		t.Fatalf("Expected 409 for non-pending review, got %v", err)
	}

	for _, call := range gw.recorded() {
		if call.Method == "UPLOAD" {
			t.Error("Upload must not be attempted for a non-pending review")
		}
	}
}

func TestReplaceAttachmentValidatesIndex(t *testing.T) {
	gw := newFakeGateway()
	record := pendingRecord("r1")
	record.Attachments = []domain.AttachmentMeta{{Filename: "a.pdf"}}
	gw.respond(http.MethodGet, "/admin/reviews/r1", record)

	svc := NewService(gw)
	_, err := svc.ReplaceAttachment(context.Background(), "s1", "r1", 3, "b.pdf", "application/pdf", strings.NewReader("data"))
	apiErr, ok := gateway.AsAPIError(err)
	if !ok || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("Expected 400 for out-of-range index, got %v", err)
	}
}

func TestListPassesCursorUnmodified(t *testing.T) {
	gw := newFakeGateway()
	cursor := "opaque-CURSOR==/with?chars"

	svc := NewService(gw)
	if _, err := svc.List(context.Background(), "s1", domain.ReviewPending, 0, cursor); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	calls := gw.recorded()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	want := "cursor=" + url.QueryEscape(cursor)
	if !strings.Contains(calls[0].Path, want) {
		t.Errorf("Expected cursor passed back unmodified, path %q", calls[0].Path)
	}
	if !strings.Contains(calls[0].Path, "page_size=20") {
		t.Errorf("Expected default page size, path %q", calls[0].Path)
	}
}

func TestAuditPagination(t *testing.T) {
	gw := newFakeGateway()
	gw.respond(http.MethodGet, "/admin/audit", map[string]any{
		"items":  []domain.AuditEntry{{AuditID: "a1", Action: "approve"}},
		"cursor": "next",
	})

	svc := NewService(gw)
	items, cursor, err := svc.Audit(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if len(items) != 1 || items[0].AuditID != "a1" {
		t.Errorf("Unexpected items %+v", items)
	}
	if cursor != "next" {
		t.Errorf("Expected cursor next, got %q", cursor)
	}
}

func TestSummaryPath(t *testing.T) {
	gw := newFakeGateway()
	gw.respond(http.MethodGet, "/admin/dashboard", Summary{Pending: 7})

	svc := NewService(gw)
	sum, err := svc.Summary(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Pending != 7 {
		t.Errorf("Expected pending 7, got %d", sum.Pending)
	}
}
