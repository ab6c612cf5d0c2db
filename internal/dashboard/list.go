package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/client"
	"github.com/aanand-mishra/student-dashboard/internal/config"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

const (
	msgLoadFailed    = "Failed to load students"
	msgDeleted       = "Student deleted successfully"
	msgDeleteFailed  = "Failed to delete student"
	defaultNoticeTTL = 3 * time.Second
)

// ListOptions configures a List.
type ListOptions struct {
	// OnSave is config.OnSaveRefetch or config.OnSaveMerge.
	OnSave string
	// NoticeTTL is how long delete notifications stay up.
	NoticeTTL time.Duration
	Now       Clock
}

// List is the client-side copy of the student collection with its search
// and course filters. The copy may be stale; it only changes on a fetch,
// a successful delete, or a merged save.
type List struct {
	mu       sync.Mutex
	students client.Students
	opts     ListOptions

	records    []types.Student
	loading    bool
	gen        uint64
	needsFetch bool
	closed     bool

	search string
	course string

	highlightID   string
	pendingDelete string
	notice        *Notification
}

// NewList builds a list that reacts to edit transitions on edit. The first
// Sync fetches the collection.
func NewList(students client.Students, edit *EditState, opts ListOptions) *List {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NoticeTTL == 0 {
		opts.NoticeTTL = defaultNoticeTTL
	}
	if opts.OnSave == "" {
		opts.OnSave = config.OnSaveRefetch
	}
	l := &List{students: students, opts: opts, needsFetch: true}
	edit.Subscribe(l.handleEdit)
	return l
}

// Sync runs a fetch if one is owed (first view, or after a saved edit).
func (l *List) Sync(ctx context.Context) {
	l.mu.Lock()
	due := l.needsFetch && !l.loading
	l.mu.Unlock()
	if due {
		_ = l.Load(ctx)
	}
}

// Load fetches the full collection. On failure the collection is emptied
// and a persistent error notification is shown.
func (l *List) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.gen++
	gen := l.gen
	l.loading = true
	l.needsFetch = false
	l.mu.Unlock()

	slog.Info("fetching students")
	students, err := l.students.List(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen || l.closed {
		// A newer load started, or the session went away.
		return err
	}
	l.loading = false
	if err != nil {
		slog.Error("error fetching students", slog.String("error", err.Error()))
		l.records = nil
		l.notice = &Notification{Kind: KindError, Message: msgLoadFailed}
		return err
	}
	l.records = students
	if l.notice != nil && l.notice.Message == msgLoadFailed {
		l.notice = nil
	}
	return nil
}

// SetSearch sets the free-text name filter.
func (l *List) SetSearch(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.search = q
}

// SetCourse sets the course filter; "" selects all courses.
func (l *List) SetCourse(course string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.course = course
}

// Visible returns the records matching both filters, in fetch order.
func (l *List) Visible() []types.Student {
	l.mu.Lock()
	defer l.mu.Unlock()
	return filterStudents(l.records, l.search, l.course)
}

// filterStudents keeps records whose name contains search (case-insensitive)
// and whose course equals course, when course is set.
func filterStudents(records []types.Student, search, course string) []types.Student {
	needle := strings.ToLower(search)
	out := make([]types.Student, 0, len(records))
	for _, s := range records {
		if !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		if course != "" && s.Course != course {
			continue
		}
		out = append(out, s)
	}
	return out
}

// CourseOptions lists the distinct courses present in the collection,
// in first-seen order.
func (l *List) CourseOptions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, s := range l.records {
		if !seen[s.Course] {
			seen[s.Course] = true
			out = append(out, s.Course)
		}
	}
	return out
}

// Find returns the cached record with id.
func (l *List) Find(id string) (types.Student, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.records {
		if s.ID == id {
			return s, true
		}
	}
	return types.Student{}, false
}

// RequestDelete asks for confirmation before deleting id. Nothing is sent
// until ConfirmDelete.
func (l *List) RequestDelete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loading {
		return ErrInFlight
	}
	if indexOf(l.records, id) < 0 {
		return ErrUnknownStudent
	}
	l.pendingDelete = id
	return nil
}

// PendingDelete returns the id awaiting confirmation, if any.
func (l *List) PendingDelete() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingDelete, l.pendingDelete != ""
}

// CancelDelete drops the pending confirmation without sending anything.
func (l *List) CancelDelete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingDelete = ""
}

// ConfirmDelete deletes the pending record. On success exactly that record
// is removed locally; no fetch follows.
func (l *List) ConfirmDelete(ctx context.Context) error {
	l.mu.Lock()
	id := l.pendingDelete
	if id == "" {
		l.mu.Unlock()
		return ErrNoPendingDelete
	}
	if l.loading {
		l.mu.Unlock()
		return ErrInFlight
	}
	l.pendingDelete = ""
	l.loading = true
	l.mu.Unlock()

	slog.Info("deleting a student", slog.String("id", id))
	err := l.students.Delete(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if l.closed {
		return err
	}
	now := l.opts.Now()
	if err != nil {
		slog.Error("error deleting student", slog.String("id", id), slog.String("error", err.Error()))
		l.notice = notice(KindError, msgDeleteFailed, now, l.opts.NoticeTTL)
		return err
	}
	if i := indexOf(l.records, id); i >= 0 {
		l.records = append(l.records[:i:i], l.records[i+1:]...)
	}
	l.notice = notice(KindSuccess, msgDeleted, now, l.opts.NoticeTTL)
	slog.Info("student deleted", slog.String("id", id))
	return nil
}

// Tick drops an expired notification.
func (l *List) Tick(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.notice.Expired(now) {
		l.notice = nil
	}
}

// Close discards results of requests still in flight.
func (l *List) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *List) handleEdit(ev EditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.Began {
		// Surface the target row: filter down to it and mark it for scrolling.
		l.search = ev.Target.Name
		l.course = ev.Target.Course
		l.highlightID = ev.Target.ID
		return
	}

	l.search = ""
	l.course = ""
	l.highlightID = ""

	if ev.Outcome != Saved {
		return
	}
	if l.opts.OnSave == config.OnSaveMerge {
		l.merge(ev)
		return
	}
	l.needsFetch = true
}

func (l *List) merge(ev EditEvent) {
	key := ev.Record.ID
	if ev.HadTarget {
		key = ev.Target.ID
	}
	if i := indexOf(l.records, key); i >= 0 {
		l.records[i] = ev.Record
		return
	}
	l.records = append(l.records, ev.Record)
}

// ListView is a render snapshot.
type ListView struct {
	Students      []types.Student
	Total         int
	CourseOptions []string
	Search        string
	Course        string
	Loading       bool
	HighlightID   string
	PendingDelete *types.Student
	Notice        *Notification
}

// View snapshots the list for rendering.
func (l *List) View() ListView {
	courses := l.CourseOptions()

	l.mu.Lock()
	defer l.mu.Unlock()
	v := ListView{
		Students:      filterStudents(l.records, l.search, l.course),
		Total:         len(l.records),
		CourseOptions: courses,
		Search:        l.search,
		Course:        l.course,
		Loading:       l.loading,
		HighlightID:   l.highlightID,
	}
	if i := indexOf(l.records, l.pendingDelete); l.pendingDelete != "" && i >= 0 {
		s := l.records[i]
		v.PendingDelete = &s
	}
	if l.notice != nil {
		n := *l.notice
		v.Notice = &n
	}
	return v
}

func (l *List) deadline() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.notice == nil {
		return time.Time{}
	}
	return l.notice.ExpiresAt
}

func indexOf(records []types.Student, id string) int {
	for i, s := range records {
		if s.ID == id {
			return i
		}
	}
	return -1
}
