// Package types holds the data structures shared by the dashboard, the
// REST client and the session storage. Keeping them in one place prevents
// import cycles between those packages.
package types

import "time"

// Courses is the fixed set of courses a student can be enrolled in.
// The order is the order the form's course select renders them in.
var Courses = []string{
	"Computer Science",
	"Data Science",
	"Web Development",
	"UX Design",
	"Digital Marketing",
	"Mobile Development",
	"Artificial Intelligence",
}

// IsCourse reports whether name is one of Courses.
func IsCourse(name string) bool {
	for _, c := range Courses {
		if c == name {
			return true
		}
	}
	return false
}

// Student is one student record as the backend stores it.
//
// Progress is computed by the backend (0–100). The dashboard never lets a
// user edit it; it is carried unchanged on update and omitted on create.
type Student struct {
	ID             string `json:"id"             validate:"required"`
	Name           string `json:"name"           validate:"required"`
	Email          string `json:"email"          validate:"required,studentemail"`
	Course         string `json:"course"         validate:"required,coursename"`
	EnrollmentDate string `json:"enrollmentDate" validate:"required,datetime=2006-01-02"`
	Progress       int    `json:"progress"       validate:"min=0,max=100"`
}

// StudentInput is the create payload: a Student minus Progress.
type StudentInput struct {
	ID             string `json:"id"             validate:"required"`
	Name           string `json:"name"           validate:"required"`
	Email          string `json:"email"          validate:"required,studentemail"`
	Course         string `json:"course"         validate:"required,coursename"`
	EnrollmentDate string `json:"enrollmentDate" validate:"required,datetime=2006-01-02"`
}

// Input strips the server-owned fields from s.
func (s Student) Input() StudentInput {
	return StudentInput{
		ID:             s.ID,
		Name:           s.Name,
		Email:          s.Email,
		Course:         s.Course,
		EnrollmentDate: s.EnrollmentDate,
	}
}

// Student builds a record from the input, keeping progress from the
// record it replaces (zero for new records).
func (in StudentInput) Student(progress int) Student {
	return Student{
		ID:             in.ID,
		Name:           in.Name,
		Email:          in.Email,
		Course:         in.Course,
		EnrollmentDate: in.EnrollmentDate,
		Progress:       progress,
	}
}

// AuthSession is what the dashboard remembers about a signed-in user.
// Admin comes from the verified ID token's role claim, never from a form.
type AuthSession struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	Admin        bool      `json:"admin"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the session's token lifetime has passed at now.
func (s AuthSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
