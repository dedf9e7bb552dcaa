package school_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
	dummydb "github.com/trezcool/kazi/storage/database/dummy"
)

func setup(t *testing.T) school.Service {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return school.NewService(dummydb.NewSchoolRepository(db))
}

func createSubject(t *testing.T, svc school.Service, name string) school.Subject {
	sub, err := svc.CreateSubject(context.Background(), school.NewSubject{Name: name})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func createClass(t *testing.T, svc school.Service, subjectID, teacherID string) school.Class {
	cls, err := svc.CreateClass(context.Background(), school.NewClass{Name: "Form 1A", SubjectID: subjectID}, teacherID)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func Test_service_CheckSubjectUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	createSubject(t, svc, "Mathematics")

	if err := svc.CheckSubjectUniqueness(ctx, "Physics"); err != nil {
		t.Errorf("CheckSubjectUniqueness() error = %v; want nil", err)
	}
	for _, name := range []string{"Mathematics", "mathematics", "MATHEMATICS"} {
		err := svc.CheckSubjectUniqueness(ctx, name)
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("CheckSubjectUniqueness(%q) error = %v; want ValidationError", name, err)
		}
	}
}

func Test_service_CreateClass(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	teacherID := uuid.New().String()

	t.Run("rejects an unknown subject", func(t *testing.T) {
		nc := school.NewClass{Name: "Form 1A", SubjectID: uuid.New().String()}
		_, err := svc.CreateClass(ctx, nc, teacherID)
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("CreateClass() error = %v; want ValidationError", err)
		}
		if len(vErr.Fields) == 0 || vErr.Fields[0].Field != "subject_id" {
			t.Errorf("CreateClass() fields = %v; want subject_id", vErr.Fields)
		}
	})

	t.Run("starts with an empty roster", func(t *testing.T) {
		sub := createSubject(t, svc, "Chemistry")
		cls := createClass(t, svc, sub.ID, teacherID)
		if cls.Students == nil || len(cls.Students) != 0 {
			t.Errorf("CreateClass() students = %v; want empty slice", cls.Students)
		}
	})
}

func Test_service_EnrollStudent(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	teacherID := uuid.New().String()
	sub := createSubject(t, svc, "Biology")
	cls := createClass(t, svc, sub.ID, teacherID)
	studentID := uuid.New().String()

	t.Run("requires class ownership", func(t *testing.T) {
		err := svc.EnrollStudent(ctx, cls.ID, uuid.New().String(), studentID)
		if errors.Cause(err) != school.ErrNotFound {
			t.Errorf("EnrollStudent() error = %v; want ErrNotFound", err)
		}
	})

	t.Run("enrolling twice keeps one enrollment", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := svc.EnrollStudent(ctx, cls.ID, teacherID, studentID); err != nil {
				t.Fatalf("EnrollStudent() failed: %v", err)
			}
		}
		got, err := svc.GetClass(ctx, cls.ID, teacherID)
		if err != nil {
			t.Fatalf("GetClass() failed: %v", err)
		}
		if got.StudentCount() != 1 {
			t.Errorf("StudentCount() = %d; want 1", got.StudentCount())
		}
	})

	t.Run("removal empties the roster", func(t *testing.T) {
		if err := svc.RemoveStudent(ctx, cls.ID, teacherID, studentID); err != nil {
			t.Fatalf("RemoveStudent() failed: %v", err)
		}
		got, err := svc.GetClass(ctx, cls.ID, teacherID)
		if err != nil {
			t.Fatalf("GetClass() failed: %v", err)
		}
		if got.StudentCount() != 0 {
			t.Errorf("StudentCount() = %d; want 0", got.StudentCount())
		}
	})
}

func Test_service_ResolveRoster(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	teacherID := uuid.New().String()
	sub := createSubject(t, svc, "History")
	cls := createClass(t, svc, sub.ID, teacherID)

	t.Run("requires class ownership", func(t *testing.T) {
		_, err := svc.ResolveRoster(ctx, cls.ID, uuid.New().String())
		if errors.Cause(err) != school.ErrNotFound {
			t.Errorf("ResolveRoster() error = %v; want ErrNotFound", err)
		}
	})

	t.Run("empty class resolves to an empty roster", func(t *testing.T) {
		roster, err := svc.ResolveRoster(ctx, cls.ID, teacherID)
		if err != nil {
			t.Fatalf("ResolveRoster() failed: %v", err)
		}
		if roster == nil || len(roster) != 0 {
			t.Errorf("ResolveRoster() = %v; want empty slice", roster)
		}
	})

	t.Run("returns the enrolled students", func(t *testing.T) {
		s1, s2 := uuid.New().String(), uuid.New().String()
		for _, id := range []string{s1, s2} {
			if err := svc.EnrollStudent(ctx, cls.ID, teacherID, id); err != nil {
				t.Fatalf("EnrollStudent() failed: %v", err)
			}
		}
		roster, err := svc.ResolveRoster(ctx, cls.ID, teacherID)
		if err != nil {
			t.Fatalf("ResolveRoster() failed: %v", err)
		}
		if len(roster) != 2 {
			t.Errorf("ResolveRoster() = %v; want 2 students", roster)
		}
	})
}
