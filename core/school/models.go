package school

import (
	"context"
	"time"

	"github.com/trezcool/kazi/core"
)

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Class groups students under one teacher for one subject. Students holds the
// enrolled student ids; enrollment is a set, a student appears at most once.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	SubjectID string    `json:"subject_id"`
	Year      string    `json:"year,omitempty"`
	ClassCode string    `json:"class_code,omitempty"`
	Students  []string  `json:"students"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Class) StudentCount() int { return len(c.Students) }

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name string `json:"name" validate:"required"`
}

func (ns *NewSubject) Validate(ctx context.Context, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckSubjectUniqueness(ctx, ns.Name)
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name      string `json:"name" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
	Year      string `json:"year" validate:"omitempty"`
	ClassCode string `json:"class_code" validate:"omitempty,alphanum_"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Year = core.CleanString(nc.Year)
	nc.ClassCode = core.CleanString(nc.ClassCode)
	return core.Validate.Struct(nc)
}

// Enrollment adds one student to a class.
type Enrollment struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
}

func (e Enrollment) Validate() error { return core.Validate.Struct(e) }
