package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
)

func Test_schoolApi_subjects(t *testing.T) {
	admin := createUser(t, "Subject Admin", "subjectadmin", "subjectadmin@kazi.cd", "LePassword", user.AdminRoles)
	teacher := createUser(t, "Subject Teacher", "subjectteacher", "subjectteacher@kazi.cd", "LePassword", user.TeacherRoles)
	adminToken := getToken(t, admin)

	t.Run("creation is admin-only", func(t *testing.T) {
		body := marchallObj(t, school.NewSubject{Name: "Geography"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/subjects", getToken(t, teacher), body)
		app.ServeHTTP(rec, request)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admin creates a subject", func(t *testing.T) {
		body := marchallObj(t, school.NewSubject{Name: "Geography"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/subjects", adminToken, body)
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		for _, name := range []string{"Geography", "geography"} {
			body := marchallObj(t, school.NewSubject{Name: name})
			request, rec := newAuthRequest(http.MethodPost, "/v1/subjects", adminToken, body)
			app.ServeHTTP(rec, request)
			tt := httpTest{
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{"name": "a subject with this name already exists"}),
			}
			checkCodeAndData(t, tt, rec)
		}
	})

	t.Run("any authed user can list subjects", func(t *testing.T) {
		request, rec := newAuthRequest(http.MethodGet, "/v1/subjects", getToken(t, teacher))
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var subs []school.Subject
		if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
			t.Fatalf("unmarshalling subjects: %v", err)
		}
		if len(subs) == 0 {
			t.Error("expected at least one subject")
		}
	})
}

func Test_schoolApi_classes(t *testing.T) {
	teacher := createUser(t, "Class Teacher", "classteacher", "classteacher@kazi.cd", "LePassword", user.TeacherRoles)
	rival := createUser(t, "Rival Teacher", "rivalteacher", "rivalteacher@kazi.cd", "LePassword", user.TeacherRoles)
	student := createUser(t, "Class Student", "classstudent", "classstudent@kazi.cd", "LePassword", user.StudentRoles)
	teacherToken := getToken(t, teacher)

	sub := createSubject(t, "Literature")

	t.Run("students have no access", func(t *testing.T) {
		request, rec := newAuthRequest(http.MethodGet, "/v1/classes", getToken(t, student))
		app.ServeHTTP(rec, request)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("unknown subject is rejected", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{Name: "Form 2B", SubjectID: uuid.New().String()})
		request, rec := newAuthRequest(http.MethodPost, "/v1/classes", teacherToken, body)
		app.ServeHTTP(rec, request)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"subject_id": "selected subject does not exist"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	var cls school.Class
	t.Run("teacher creates a class", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{Name: "Form 2B", SubjectID: sub.ID, Year: "2026", ClassCode: "LIT2B"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/classes", teacherToken, body)
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling class: %v", err)
		}
		if cls.TeacherID != teacher.ID {
			t.Errorf("class teacher = %v; want %v", cls.TeacherID, teacher.ID)
		}
		if cls.Students == nil || len(cls.Students) != 0 {
			t.Errorf("class students = %v; want empty", cls.Students)
		}
	})

	t.Run("classes are scoped to their teacher", func(t *testing.T) {
		request, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+cls.ID, getToken(t, rival))
		app.ServeHTTP(rec, request)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("enrollment has set semantics", func(t *testing.T) {
		body := marchallObj(t, school.Enrollment{StudentID: student.ID})
		for i := 0; i < 2; i++ {
			request, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/students", teacherToken, body)
			app.ServeHTTP(rec, request)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
			}
		}

		request, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+cls.ID, teacherToken)
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var got school.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling class: %v", err)
		}
		if got.StudentCount() != 1 {
			t.Errorf("StudentCount() = %d; want 1", got.StudentCount())
		}
	})

	t.Run("rival cannot enroll into the class", func(t *testing.T) {
		body := marchallObj(t, school.Enrollment{StudentID: student.ID})
		request, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/students", getToken(t, rival), body)
		app.ServeHTTP(rec, request)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("teacher removes a student", func(t *testing.T) {
		request, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID+"/students/"+student.ID, teacherToken)
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
	})
}

func createSubject(t *testing.T, name string) school.Subject {
	sub, err := schoolSvc.CreateSubject(context.Background(), school.NewSubject{Name: name})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}
