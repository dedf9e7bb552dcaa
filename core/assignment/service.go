package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

var (
	// errors

	// ErrNotFound covers both a missing assignment and one owned by another
	// teacher; callers cannot tell the two apart.
	ErrNotFound = errors.New("assignment not found")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		QueryAssignmentsByTeacher(ctx context.Context, teacherID string) ([]Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// GetOwnedAssignment scopes the lookup to the owning teacher: an
		// assignment owned by another teacher yields ErrNotFound.
		GetOwnedAssignment(ctx context.Context, id, teacherID string) (Assignment, error)

		// FindAssigned returns the subset of studentIDs already holding an
		// instance of the assignment. The check is global per (assignment,
		// student); classID only scopes the lookup to the candidate set.
		FindAssigned(ctx context.Context, assignmentID, classID string, studentIDs []string) ([]string, error)
		// BulkCreateInstances inserts instances, skipping any that would
		// violate the (assignment_id, student_id) uniqueness constraint, and
		// returns the count actually inserted as reported by the store.
		BulkCreateInstances(ctx context.Context, instances []StudentAssignment) (int, error)
		QueryInstancesByStudent(ctx context.Context, studentID string) ([]StudentAssignment, error)
		QueryInstancesByClass(ctx context.Context, classID string) ([]StudentAssignment, error)
	}

	// RosterResolver is satisfied by school.Service.
	RosterResolver interface {
		ResolveRoster(ctx context.Context, classID, teacherID string) ([]string, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAssignment, teacherID string) (Assignment, error)
		QueryByTeacher(ctx context.Context, teacherID string) ([]Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		GetOwned(ctx context.Context, id, teacherID string) (Assignment, error)
		Distribute(ctx context.Context, req DistributionRequest, teacherID string) (DistributionResult, error)
		QueryForStudent(ctx context.Context, studentID string) ([]StudentAssignment, error)
		QueryForClass(ctx context.Context, classID, teacherID string) ([]StudentAssignment, error)
	}

	service struct {
		repo      Repository
		roster    RosterResolver
		logger    core.Logger
		ioTimeout time.Duration // per store/roster call
	}
)

var _ Service = (*service)(nil)

const defaultQuestionPoints = 10

func NewService(repo Repository, roster RosterResolver, logger core.Logger) Service {
	return &service{
		repo:      repo,
		roster:    roster,
		logger:    logger,
		ioTimeout: core.Conf.Database.Timeout,
	}
}

func (svc *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if svc.ioTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, svc.ioTimeout)
}

func (svc *service) Create(ctx context.Context, na NewAssignment, teacherID string) (Assignment, error) {
	now := time.Now().UTC()
	a := Assignment{
		TeacherID:   teacherID,
		SubjectID:   na.SubjectID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		Questions:   make([]Question, 0, len(na.Questions)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, nq := range na.Questions {
		points := defaultQuestionPoints
		if nq.Points != nil {
			points = *nq.Points
		}
		q := Question{
			Text:      nq.Text,
			Type:      nq.Type,
			Points:    points,
			SortOrder: i,
		}
		if nq.Type == QuestionMultipleChoice {
			q.Options = make([]QuestionOption, 0, len(nq.Options))
			for _, no := range nq.Options {
				q.Options = append(q.Options, QuestionOption{Text: no.Text, IsCorrect: no.IsCorrect})
			}
		}
		a.Questions = append(a.Questions, q)
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *service) QueryByTeacher(ctx context.Context, teacherID string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByTeacher(ctx, teacherID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *service) GetOwned(ctx context.Context, id, teacherID string) (Assignment, error) {
	return svc.repo.GetOwnedAssignment(ctx, id, teacherID)
}

func (svc *service) QueryForStudent(ctx context.Context, studentID string) ([]StudentAssignment, error) {
	return svc.repo.QueryInstancesByStudent(ctx, studentID)
}

func (svc *service) QueryForClass(ctx context.Context, classID, teacherID string) ([]StudentAssignment, error) {
	if _, err := svc.roster.ResolveRoster(ctx, classID, teacherID); err != nil {
		return nil, err
	}
	return svc.repo.QueryInstancesByClass(ctx, classID)
}

// classOutcome is the result of distributing to a single class. failed marks
// hard failures (class unresolved, insert error); informational skips such as
// already-assigned students leave it unset.
type classOutcome struct {
	created int
	notes   []string
	failed  bool
}

// Distribute fans req.AssignmentID out to the rosters of req.ClassIDs,
// creating one pending StudentAssignment per student not yet holding one.
//
// Only a malformed request or a failed ownership check on the assignment
// itself abort the operation. Each class is processed independently; a class
// that cannot be resolved, is empty, or fails to persist is reported as a
// diagnostic and never blocks its siblings. Re-running the same request is
// safe: students already assigned are skipped and counted in the diagnostics.
func (svc *service) Distribute(ctx context.Context, req DistributionRequest, teacherID string) (DistributionResult, error) {
	if err := req.Validate(); err != nil {
		return DistributionResult{}, err
	}

	// no partial distribution without a valid, owned template
	if _, err := svc.getOwned(ctx, req.AssignmentID, teacherID); err != nil {
		return DistributionResult{}, err
	}

	outcomes := make([]classOutcome, 0, len(req.ClassIDs))
	for _, classID := range req.ClassIDs {
		outcomes = append(outcomes, svc.distributeToClass(ctx, req, classID, teacherID))
	}

	res := DistributionResult{Diagnostics: []string{}}
	var failed int
	for _, out := range outcomes {
		res.TotalAssigned += out.created
		res.Diagnostics = append(res.Diagnostics, out.notes...)
		if out.failed {
			failed++
		}
	}
	res.Success = res.TotalAssigned > 0 || failed == 0
	return res, nil
}

func (svc *service) distributeToClass(ctx context.Context, req DistributionRequest, classID, teacherID string) (out classOutcome) {
	roster, err := svc.resolveRoster(ctx, classID, teacherID)
	if err != nil {
		out.failed = true
		if errors.Cause(err) == school.ErrNotFound {
			out.notes = append(out.notes, fmt.Sprintf("class %s not found or not managed by you", classID))
		} else {
			svc.logger.Error(fmt.Sprintf("resolving roster for class %s: %v", classID, err), err)
			out.notes = append(out.notes, fmt.Sprintf("could not resolve students of class %s", classID))
		}
		return out
	}

	if len(roster) == 0 {
		out.failed = true
		out.notes = append(out.notes, fmt.Sprintf("class %s has no students enrolled", classID))
		return out
	}

	existing, err := svc.findAssigned(ctx, req.AssignmentID, classID, roster)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("checking existing instances for class %s: %v", classID, err), err)
		out.failed = true
		out.notes = append(out.notes, fmt.Sprintf("could not check existing assignments of class %s", classID))
		return out
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}

	assignedDate := req.publishDate
	if assignedDate.IsZero() {
		assignedDate = time.Now().UTC()
	}

	now := time.Now().UTC()
	toCreate := make([]StudentAssignment, 0, len(roster)-len(existingSet))
	for _, studentID := range roster {
		if _, ok := existingSet[studentID]; ok {
			continue
		}
		toCreate = append(toCreate, StudentAssignment{
			AssignmentID: req.AssignmentID,
			StudentID:    studentID,
			ClassID:      classID,
			TeacherID:    teacherID,
			AssignedDate: assignedDate,
			DueDate:      req.dueDate,
			Status:       StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if len(toCreate) > 0 {
		// the store skips duplicates that raced past the pre-check and
		// reports the count it actually inserted; trust that, not len(toCreate)
		n, err := svc.bulkCreate(ctx, toCreate)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("inserting instances for class %s: %v", classID, err), err)
			out.failed = true
			out.notes = append(out.notes, fmt.Sprintf("failed to assign students in class %s", classID))
			return out
		}
		out.created = n
	}

	if skipped := len(roster) - out.created; skipped > 0 {
		out.notes = append(out.notes, fmt.Sprintf("%d student(s) in class %s were already assigned this work", skipped, classID))
	}
	return out
}

// per-call timeout wrappers

func (svc *service) getOwned(ctx context.Context, id, teacherID string) (Assignment, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()
	return svc.repo.GetOwnedAssignment(ctx, id, teacherID)
}

func (svc *service) resolveRoster(ctx context.Context, classID, teacherID string) ([]string, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()
	return svc.roster.ResolveRoster(ctx, classID, teacherID)
}

func (svc *service) findAssigned(ctx context.Context, assignmentID, classID string, studentIDs []string) ([]string, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()
	return svc.repo.FindAssigned(ctx, assignmentID, classID, studentIDs)
}

func (svc *service) bulkCreate(ctx context.Context, instances []StudentAssignment) (int, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()
	return svc.repo.BulkCreateInstances(ctx, instances)
}
