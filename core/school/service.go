package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

var (
	// errors

	// ErrNotFound covers both a missing class and a class owned by another
	// teacher; callers cannot tell the two apart.
	ErrNotFound        = errors.New("class not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSubjectExists   = errors.New("a subject with this name already exists")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectByName(ctx context.Context, name string) (Subject, error)

		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID string) ([]Class, error)
		// GetClass scopes the lookup to the owning teacher: a class owned by
		// another teacher yields ErrNotFound.
		GetClass(ctx context.Context, classID, teacherID string) (Class, error)
		AddStudent(ctx context.Context, classID, studentID string) error
		RemoveStudent(ctx context.Context, classID, studentID string) error
	}

	Service interface {
		CheckSubjectUniqueness(ctx context.Context, name string) error
		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		CreateClass(ctx context.Context, nc NewClass, teacherID string) (Class, error)
		QueryClasses(ctx context.Context, teacherID string) ([]Class, error)
		GetClass(ctx context.Context, classID, teacherID string) (Class, error)
		EnrollStudent(ctx context.Context, classID, teacherID, studentID string) error
		RemoveStudent(ctx context.Context, classID, teacherID, studentID string) error
		ResolveRoster(ctx context.Context, classID, teacherID string) ([]string, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckSubjectUniqueness(ctx context.Context, name string) error {
	if _, err := svc.repo.GetSubjectByName(ctx, name); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return nil
		}
		return err
	}
	return core.NewValidationError(ErrSubjectExists, core.FieldError{Field: "name", Error: ErrSubjectExists.Error()})
}

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QueryAllSubjects(ctx)
}

func (svc *service) CreateClass(ctx context.Context, nc NewClass, teacherID string) (Class, error) {
	if _, err := svc.repo.GetSubjectByID(ctx, nc.SubjectID); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: "selected subject does not exist"})
		}
		return Class{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		TeacherID: teacherID,
		SubjectID: nc.SubjectID,
		Year:      nc.Year,
		ClassCode: nc.ClassCode,
		Students:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QueryClasses(ctx context.Context, teacherID string) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(ctx, teacherID)
}

func (svc *service) GetClass(ctx context.Context, classID, teacherID string) (Class, error) {
	return svc.repo.GetClass(ctx, classID, teacherID)
}

func (svc *service) EnrollStudent(ctx context.Context, classID, teacherID, studentID string) error {
	if _, err := svc.repo.GetClass(ctx, classID, teacherID); err != nil {
		return err
	}
	// set semantics: enrolling an already-enrolled student is a no-op
	return svc.repo.AddStudent(ctx, classID, studentID)
}

func (svc *service) RemoveStudent(ctx context.Context, classID, teacherID, studentID string) error {
	if _, err := svc.repo.GetClass(ctx, classID, teacherID); err != nil {
		return err
	}
	return svc.repo.RemoveStudent(ctx, classID, studentID)
}

// ResolveRoster returns the deduplicated ids of students enrolled in the given
// class, provided it is owned by teacherID. An existing class with no students
// resolves to an empty roster; the caller decides whether that is an error.
func (svc *service) ResolveRoster(ctx context.Context, classID, teacherID string) ([]string, error) {
	cls, err := svc.repo.GetClass(ctx, classID, teacherID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(cls.Students))
	roster := make([]string, 0, len(cls.Students))
	for _, id := range cls.Students {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		roster = append(roster, id)
	}
	return roster, nil
}
