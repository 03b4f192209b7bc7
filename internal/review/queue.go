package review

import (
	"context"
	"sync"

	"github.com/sayonsom/workpal/internal/domain"
)

// Queue is a stateful controller over one filtered review list. It holds
// the pages loaded so far, the cursor for the next page, and an in-flight
// guard so overlapping load requests cannot append duplicate pages.
//
// A failed page fetch leaves the previously loaded items intact.
type Queue struct {
	svc       *Service
	sessionID string
	status    domain.ReviewStatus
	pageSize  int

	mu      sync.Mutex
	items   []domain.ReviewRecord
	cursor  string
	loaded  bool
	loading bool
	pending int
}

// NewQueue creates a queue for one status filter. An empty status means
// "all".
func NewQueue(svc *Service, sessionID string, status domain.ReviewStatus, pageSize int) *Queue {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Queue{
		svc:       svc,
		sessionID: sessionID,
		status:    status,
		pageSize:  pageSize,
	}
}

// Load fetches the first page, replacing any previously held items. It is
// a no-op while another load is in flight.
func (q *Queue) Load(ctx context.Context) error {
	if !q.beginLoad() {
		return nil
	}
	defer q.endLoad()

	page, err := q.svc.List(ctx, q.sessionID, q.status, q.pageSize, "")
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.items = page.Items
	q.cursor = page.Cursor
	q.loaded = true
	q.mu.Unlock()
	return nil
}

// LoadMore appends the next page. When no cursor is held, or a fetch is
// already in flight, it is a silent no-op: the item list and cursor are
// unchanged, and no network call is issued.
func (q *Queue) LoadMore(ctx context.Context) error {
	q.mu.Lock()
	if !q.loaded || q.cursor == "" || q.loading {
		q.mu.Unlock()
		return nil
	}
	cursor := q.cursor
	q.loading = true
	q.mu.Unlock()
	defer q.endLoad()

	page, err := q.svc.List(ctx, q.sessionID, q.status, q.pageSize, cursor)
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.items = append(q.items, page.Items...)
	q.cursor = page.Cursor
	q.mu.Unlock()
	return nil
}

// Approve approves one review and refreshes both the held copy of the
// item and the pending-count summary.
func (q *Queue) Approve(ctx context.Context, reviewID string, edited *string) error {
	if err := q.svc.Approve(ctx, q.sessionID, reviewID, edited); err != nil {
		return err
	}
	return q.refreshAfterMutation(ctx, reviewID)
}

// Reject rejects one review and refreshes both the held copy of the item
// and the pending-count summary.
func (q *Queue) Reject(ctx context.Context, reviewID, reason string) error {
	if err := q.svc.Reject(ctx, q.sessionID, reviewID, reason); err != nil {
		return err
	}
	return q.refreshAfterMutation(ctx, reviewID)
}

// Items returns a copy of the items loaded so far, in backend order.
func (q *Queue) Items() []domain.ReviewRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.ReviewRecord, len(q.items))
	copy(out, q.items)
	return out
}

// SessionID returns the admin session this queue is bound to.
func (q *Queue) SessionID() string {
	return q.sessionID
}

// Cursor returns the cursor for the next page; empty means no more pages.
func (q *Queue) Cursor() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// PendingCount returns the last summary's pending count.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// RefreshSummary re-fetches the pending-count summary.
func (q *Queue) RefreshSummary(ctx context.Context) error {
	sum, err := q.svc.Summary(ctx, q.sessionID)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.pending = sum.Pending
	q.mu.Unlock()
	return nil
}

func (q *Queue) refreshAfterMutation(ctx context.Context, reviewID string) error {
	detail, err := q.svc.Get(ctx, q.sessionID, reviewID)
	if err != nil {
		return err
	}

	q.mu.Lock()
	for i := range q.items {
		if q.items[i].ReviewID == reviewID {
			q.items[i] = detail.Record
			break
		}
	}
	q.mu.Unlock()

	return q.RefreshSummary(ctx)
}

func (q *Queue) beginLoad() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loading {
		return false
	}
	q.loading = true
	return true
}

func (q *Queue) endLoad() {
	q.mu.Lock()
	q.loading = false
	q.mu.Unlock()
}
