package assignment

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

type repoMock struct {
	mu          sync.Mutex
	assignments map[string]Assignment
	instances   map[instanceKey]StudentAssignment
	findErr     error
	bulkErr     error
}

type instanceKey struct{ assignmentID, studentID string }

func newRepoMock() *repoMock {
	return &repoMock{
		assignments: make(map[string]Assignment),
		instances:   make(map[instanceKey]StudentAssignment),
	}
}

func (m *repoMock) addAssignment(teacherID string) Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := Assignment{ID: uuid.New().String(), TeacherID: teacherID, Title: "Algebra homework"}
	m.assignments[a.ID] = a
	return a
}

func (m *repoMock) CreateAssignment(_ context.Context, a Assignment) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New().String()
	m.assignments[a.ID] = a
	return a, nil
}

func (m *repoMock) QueryAssignmentsByTeacher(_ context.Context, teacherID string) ([]Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Assignment
	for _, a := range m.assignments {
		if a.TeacherID == teacherID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *repoMock) GetAssignment(_ context.Context, id string) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return Assignment{}, ErrNotFound
}

func (m *repoMock) GetOwnedAssignment(_ context.Context, id, teacherID string) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assignments[id]; ok && a.TeacherID == teacherID {
		return a, nil
	}
	return Assignment{}, ErrNotFound
}

func (m *repoMock) FindAssigned(_ context.Context, assignmentID, _ string, studentIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	assigned := make([]string, 0)
	for _, studentID := range studentIDs {
		if _, ok := m.instances[instanceKey{assignmentID, studentID}]; ok {
			assigned = append(assigned, studentID)
		}
	}
	return assigned, nil
}

func (m *repoMock) BulkCreateInstances(_ context.Context, instances []StudentAssignment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulkErr != nil {
		return 0, m.bulkErr
	}
	var created int
	for _, inst := range instances {
		key := instanceKey{inst.AssignmentID, inst.StudentID}
		if _, ok := m.instances[key]; ok {
			continue
		}
		inst.ID = uuid.New().String()
		m.instances[key] = inst
		created++
	}
	return created, nil
}

func (m *repoMock) QueryInstancesByStudent(_ context.Context, studentID string) ([]StudentAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StudentAssignment, 0)
	for key, inst := range m.instances {
		if key.studentID == studentID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *repoMock) QueryInstancesByClass(_ context.Context, classID string) ([]StudentAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StudentAssignment, 0)
	for _, inst := range m.instances {
		if inst.ClassID == classID {
			out = append(out, inst)
		}
	}
	return out, nil
}

type rosterMock struct {
	teacherID   string
	rosters     map[string][]string
	resolveErrs map[string]error
}

func newRosterMock(teacherID string) *rosterMock {
	return &rosterMock{
		teacherID:   teacherID,
		rosters:     make(map[string][]string),
		resolveErrs: make(map[string]error),
	}
}

func (m *rosterMock) addClass(students ...string) string {
	id := uuid.New().String()
	m.rosters[id] = students
	return id
}

func (m *rosterMock) ResolveRoster(_ context.Context, classID, teacherID string) ([]string, error) {
	if err, ok := m.resolveErrs[classID]; ok {
		return nil, err
	}
	roster, ok := m.rosters[classID]
	if !ok || teacherID != m.teacherID {
		return nil, school.ErrNotFound
	}
	return roster, nil
}

type loggerMock struct{}

func (loggerMock) Enable(bool)                  {}
func (loggerMock) Debug(string, ...interface{}) {}
func (loggerMock) Info(string, ...interface{})  {}
func (loggerMock) Warn(string, ...interface{})  {}
func (loggerMock) Error(string, ...interface{}) {}
func (loggerMock) Fatal(string, ...interface{}) {}

var _ core.Logger = (*loggerMock)(nil)

func newTestService(repo *repoMock, roster *rosterMock) Service {
	return NewService(repo, roster, loggerMock{})
}

func distReq(assignmentID string, classIDs ...string) DistributionRequest {
	return DistributionRequest{
		AssignmentID: assignmentID,
		ClassIDs:     classIDs,
		DueDate:      time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	}
}

func countContaining(diags []string, substr string) int {
	var n int
	for _, d := range diags {
		if strings.Contains(d, substr) {
			n++
		}
	}
	return n
}

func Test_service_Distribute(t *testing.T) {
	ctx := context.Background()
	teacherID := uuid.New().String()
	s1, s2, s3 := uuid.New().String(), uuid.New().String(), uuid.New().String()

	t.Run("rejects an empty class list", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)

		req := distReq(a.ID)
		if _, err := svc.Distribute(ctx, req, teacherID); err == nil {
			t.Fatal("Distribute() expected a validation error, got nil")
		}
		if len(repo.instances) != 0 {
			t.Errorf("Distribute() created %d instances on invalid request", len(repo.instances))
		}
	})

	t.Run("rejects an invalid due date", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1)

		req := distReq(a.ID, c1)
		req.DueDate = "not-a-date"
		_, err := svc.Distribute(ctx, req, teacherID)
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("Distribute() error = %v; want ValidationError", err)
		}
		if len(vErr.Fields) == 0 || vErr.Fields[0].Field != "due_date" {
			t.Errorf("Distribute() fields = %v; want due_date", vErr.Fields)
		}
	})

	t.Run("aborts when the assignment is not owned", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(uuid.New().String()) // someone else's
		c1 := roster.addClass(s1, s2)

		_, err := svc.Distribute(ctx, distReq(a.ID, c1), teacherID)
		if errors.Cause(err) != ErrNotFound {
			t.Fatalf("Distribute() error = %v; want ErrNotFound", err)
		}
		if len(repo.instances) != 0 {
			t.Errorf("Distribute() created %d instances for unowned assignment", len(repo.instances))
		}
	})

	t.Run("assigns each student once across overlapping classes", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1, s2)
		c2 := roster.addClass(s2, s3) // s2 in both

		res, err := svc.Distribute(ctx, distReq(a.ID, c1, c2), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if !res.Success {
			t.Error("Distribute() success = false; want true")
		}
		if res.TotalAssigned != 3 {
			t.Errorf("Distribute() totalAssigned = %d; want 3", res.TotalAssigned)
		}
		if n := countContaining(res.Diagnostics, "already assigned"); n != 1 {
			t.Errorf("Distribute() already-assigned diagnostics = %d (%v); want 1", n, res.Diagnostics)
		}
		if len(repo.instances) != 3 {
			t.Errorf("instances = %d; want 3", len(repo.instances))
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1, s2)

		if _, err := svc.Distribute(ctx, distReq(a.ID, c1), teacherID); err != nil {
			t.Fatalf("first Distribute() failed: %v", err)
		}

		res, err := svc.Distribute(ctx, distReq(a.ID, c1), teacherID)
		if err != nil {
			t.Fatalf("second Distribute() failed: %v", err)
		}
		if !res.Success {
			t.Error("second run success = false; want true (skips are informational)")
		}
		if res.TotalAssigned != 0 {
			t.Errorf("second run totalAssigned = %d; want 0", res.TotalAssigned)
		}
		if n := countContaining(res.Diagnostics, "already assigned"); n != 1 {
			t.Errorf("second run diagnostics = %v; want one already-assigned note", res.Diagnostics)
		}
		if len(repo.instances) != 2 {
			t.Errorf("instances = %d; want 2", len(repo.instances))
		}
	})

	t.Run("isolates failing classes", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		x := roster.addClass(s1, s2, s3)
		y := uuid.New().String() // does not exist
		z := roster.addClass()   // empty

		res, err := svc.Distribute(ctx, distReq(a.ID, x, y, z), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if !res.Success {
			t.Error("Distribute() success = false; want true (one class succeeded)")
		}
		if res.TotalAssigned != 3 {
			t.Errorf("Distribute() totalAssigned = %d; want 3", res.TotalAssigned)
		}
		if len(res.Diagnostics) != 2 {
			t.Errorf("Distribute() diagnostics = %v; want 2", res.Diagnostics)
		}
		if n := countContaining(res.Diagnostics, "not found"); n != 1 {
			t.Errorf("Distribute() not-found diagnostics = %d (%v); want 1", n, res.Diagnostics)
		}
		if n := countContaining(res.Diagnostics, "no students"); n != 1 {
			t.Errorf("Distribute() empty-class diagnostics = %d (%v); want 1", n, res.Diagnostics)
		}
	})

	t.Run("fails when no class succeeds", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		y := uuid.New().String()
		z := roster.addClass()

		res, err := svc.Distribute(ctx, distReq(a.ID, y, z), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if res.Success {
			t.Error("Distribute() success = true; want false (all classes failed)")
		}
		if res.TotalAssigned != 0 {
			t.Errorf("Distribute() totalAssigned = %d; want 0", res.TotalAssigned)
		}
		if len(res.Diagnostics) != 2 {
			t.Errorf("Distribute() diagnostics = %v; want 2", res.Diagnostics)
		}
	})

	t.Run("reports persistence failures as class diagnostics", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1)
		repo.bulkErr = errors.New("connection reset")

		res, err := svc.Distribute(ctx, distReq(a.ID, c1), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if res.Success {
			t.Error("Distribute() success = true; want false")
		}
		if n := countContaining(res.Diagnostics, "failed to assign"); n != 1 {
			t.Errorf("Distribute() diagnostics = %v; want one failed-to-assign note", res.Diagnostics)
		}
	})

	t.Run("reports roster lookup failures without leaking internals", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1)
		roster.resolveErrs[c1] = errors.New("pq: connection refused")

		res, err := svc.Distribute(ctx, distReq(a.ID, c1), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if res.Success {
			t.Error("Distribute() success = true; want false")
		}
		if n := countContaining(res.Diagnostics, "could not resolve students"); n != 1 {
			t.Errorf("Distribute() diagnostics = %v; want one resolve-failure note", res.Diagnostics)
		}
		if n := countContaining(res.Diagnostics, "connection refused"); n != 0 {
			t.Errorf("Distribute() diagnostics leak driver error: %v", res.Diagnostics)
		}
	})

	t.Run("deduplicates repeated class ids", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1, s2)

		res, err := svc.Distribute(ctx, distReq(a.ID, c1, c1, c1), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if res.TotalAssigned != 2 {
			t.Errorf("Distribute() totalAssigned = %d; want 2", res.TotalAssigned)
		}
		if len(res.Diagnostics) != 0 {
			t.Errorf("Distribute() diagnostics = %v; want none", res.Diagnostics)
		}
	})

	t.Run("deduplicates students within a roster", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1, s1, s2)

		// duplicate enrollment rows must not duplicate instances; the
		// school roster resolver dedups, but the store guards too
		res, err := svc.Distribute(ctx, distReq(a.ID, c1), teacherID)
		if err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}
		if len(repo.instances) != 2 {
			t.Errorf("instances = %d; want 2", len(repo.instances))
		}
		if !res.Success {
			t.Error("Distribute() success = false; want true")
		}
	})

	t.Run("uses the publish date as assigned date", func(t *testing.T) {
		repo := newRepoMock()
		roster := newRosterMock(teacherID)
		svc := newTestService(repo, roster)
		a := repo.addAssignment(teacherID)
		c1 := roster.addClass(s1)

		req := distReq(a.ID, c1)
		req.PublishDate = "2026-09-07"
		if _, err := svc.Distribute(ctx, req, teacherID); err != nil {
			t.Fatalf("Distribute() failed: %v", err)
		}

		inst := repo.instances[instanceKey{a.ID, s1}]
		want := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
		if !inst.AssignedDate.Equal(want) {
			t.Errorf("AssignedDate = %v; want %v", inst.AssignedDate, want)
		}
		if inst.Status != StatusPending {
			t.Errorf("Status = %v; want %v", inst.Status, StatusPending)
		}
	})
}

func Test_service_Create_defaults(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	svc := newTestService(repo, newRosterMock(""))

	five := 5
	na := NewAssignment{
		Title:     "Fractions",
		SubjectID: uuid.New().String(),
		Questions: []NewQuestion{
			{Text: "What is 1/2 + 1/4?", Type: QuestionShortAnswer},
			{Text: "Pick the largest fraction", Type: QuestionMultipleChoice, Points: &five, Options: []NewQuestionOption{
				{Text: "1/2"}, {Text: "3/4", IsCorrect: true},
			}},
		},
	}

	a, err := svc.Create(ctx, na, uuid.New().String())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if got := a.Questions[0].Points; got != 10 {
		t.Errorf("Points = %d; want default 10", got)
	}
	if got := a.Questions[1].Points; got != 5 {
		t.Errorf("Points = %d; want 5", got)
	}
	for i, q := range a.Questions {
		if q.SortOrder != i {
			t.Errorf("SortOrder[%d] = %d; want %d", i, q.SortOrder, i)
		}
	}
	if len(a.Questions[0].Options) != 0 {
		t.Errorf("short answer question carries options: %v", a.Questions[0].Options)
	}
	if len(a.Questions[1].Options) != 2 {
		t.Errorf("Options = %d; want 2", len(a.Questions[1].Options))
	}
}
