package dashboard

import (
	"sync"

	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// Detail is the read-only student panel.
type Detail struct {
	mu      sync.Mutex
	visible bool
	student *types.Student
}

func NewDetail() *Detail {
	return &Detail{}
}

// Show opens the panel. A nil student renders the access-denied panel.
func (d *Detail) Show(s *types.Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = true
	d.student = nil
	if s != nil {
		cp := *s
		d.student = &cp
	}
}

func (d *Detail) Hide() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = false
	d.student = nil
}

// Shown returns the student on display.
func (d *Detail) Shown() (types.Student, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.visible || d.student == nil {
		return types.Student{}, false
	}
	return *d.student, true
}

// DetailView is a render snapshot. Nothing renders unless Visible.
type DetailView struct {
	Visible         bool
	AccessDenied    bool
	Student         types.Student
	ShowEditProfile bool
}

// Initial is the avatar letter.
func (v DetailView) Initial() string {
	for _, r := range v.Student.Name {
		return string(r)
	}
	return ""
}

// View snapshots the panel. The edit-profile action is offered to admins only.
func (d *Detail) View(admin bool) DetailView {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.visible {
		return DetailView{}
	}
	if d.student == nil {
		return DetailView{Visible: true, AccessDenied: true}
	}
	return DetailView{
		Visible:         true,
		Student:         *d.student,
		ShowEditProfile: admin,
	}
}
