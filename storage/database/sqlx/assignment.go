package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core/assignment"
)

type (
	assignmentRow struct {
		ID          string    `db:"id"`
		TeacherID   string    `db:"teacher_id"`
		SubjectID   string    `db:"subject_id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		DueDate     null.Time `db:"due_date"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	questionRow struct {
		ID           string `db:"id"`
		AssignmentID string `db:"assignment_id"`
		Text         string `db:"text"`
		Type         string `db:"type"`
		Points       int    `db:"points"`
		SortOrder    int    `db:"sort_order"`
	}

	optionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Text       string `db:"text"`
		IsCorrect  bool   `db:"is_correct"`
	}

	instanceRow struct {
		ID              string       `db:"id"`
		AssignmentID    string       `db:"assignment_id"`
		StudentID       string       `db:"student_id"`
		ClassID         string       `db:"class_id"`
		TeacherID       string       `db:"teacher_id"`
		AssignedDate    time.Time    `db:"assigned_date"`
		DueDate         time.Time    `db:"due_date"`
		Status          string       `db:"status"`
		SubmittedAt     null.Time    `db:"submitted_at"`
		SubmissionText  string       `db:"submission_text"`
		Grade           null.Float64 `db:"grade"`
		TeacherFeedback string       `db:"teacher_feedback"`
		CreatedAt       time.Time    `db:"created_at"`
		UpdatedAt       time.Time    `db:"updated_at"`
	}
)

func (row assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:          row.ID,
		TeacherID:   row.TeacherID,
		SubjectID:   row.SubjectID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate.Ptr(),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (row instanceRow) toInstance() assignment.StudentAssignment {
	return assignment.StudentAssignment{
		ID:              row.ID,
		AssignmentID:    row.AssignmentID,
		StudentID:       row.StudentID,
		ClassID:         row.ClassID,
		TeacherID:       row.TeacherID,
		AssignedDate:    row.AssignedDate,
		DueDate:         row.DueDate,
		Status:          assignment.Status(row.Status),
		SubmittedAt:     row.SubmittedAt.Ptr(),
		SubmissionText:  row.SubmissionText,
		Grade:           row.Grade.Ptr(),
		TeacherFeedback: row.TeacherFeedback,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := psql.Insert("assignment").
		Columns("teacher_id", "subject_id", "title", "description", "due_date", "created_at", "updated_at").
		Values(a.TeacherID, a.SubjectID, a.Title, a.Description, null.TimeFromPtr(a.DueDate), a.CreatedAt, a.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "building query")
	}
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&a.ID); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}

	for i, q := range a.Questions {
		query, args, err := psql.Insert("assignment_question").
			Columns("assignment_id", "text", "type", "points", "sort_order").
			Values(a.ID, q.Text, string(q.Type), q.Points, q.SortOrder).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return assignment.Assignment{}, errors.Wrap(err, "building query")
		}
		if err = tx.QueryRowContext(ctx, query, args...).Scan(&a.Questions[i].ID); err != nil {
			return assignment.Assignment{}, errors.Wrap(err, "creating question")
		}

		for j, opt := range q.Options {
			query, args, err := psql.Insert("assignment_question_option").
				Columns("question_id", "text", "is_correct").
				Values(a.Questions[i].ID, opt.Text, opt.IsCorrect).
				Suffix("RETURNING id").
				ToSql()
			if err != nil {
				return assignment.Assignment{}, errors.Wrap(err, "building query")
			}
			if err = tx.QueryRowContext(ctx, query, args...).Scan(&a.Questions[i].Options[j].ID); err != nil {
				return assignment.Assignment{}, errors.Wrap(err, "creating question option")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "committing transaction")
	}
	return a, nil
}

func (repo *assignmentRepository) QueryAssignmentsByTeacher(ctx context.Context, teacherID string) ([]assignment.Assignment, error) {
	query, args, err := repo.baseSelect().Where(sq.Eq{"teacher_id": teacherID}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []assignmentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		a := row.toAssignment()
		if a.Questions, err = repo.queryQuestions(ctx, a.ID); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.getAssignment(ctx, sq.Eq{"id": id})
}

func (repo *assignmentRepository) GetOwnedAssignment(ctx context.Context, id, teacherID string) (assignment.Assignment, error) {
	return repo.getAssignment(ctx, sq.Eq{"id": id, "teacher_id": teacherID})
}

func (repo *assignmentRepository) getAssignment(ctx context.Context, cond sq.Eq) (assignment.Assignment, error) {
	query, args, err := repo.baseSelect().Where(cond).ToSql()
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "building query")
	}
	var row assignmentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	a := row.toAssignment()
	if a.Questions, err = repo.queryQuestions(ctx, a.ID); err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}

func (repo *assignmentRepository) FindAssigned(ctx context.Context, assignmentID, _ string, studentIDs []string) ([]string, error) {
	// global per (assignment, student); the class the instance came from is irrelevant
	query, args, err := psql.Select("student_id").
		From("student_assignment").
		Where(sq.Eq{"assignment_id": assignmentID, "student_id": studentIDs}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	assigned := make([]string, 0)
	if err = repo.db.SelectContext(ctx, &assigned, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assigned students")
	}
	return assigned, nil
}

func (repo *assignmentRepository) BulkCreateInstances(ctx context.Context, instances []assignment.StudentAssignment) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	q := psql.Insert("student_assignment").
		Columns("assignment_id", "student_id", "class_id", "teacher_id", "assigned_date", "due_date", "status", "submission_text", "teacher_feedback", "created_at", "updated_at")
	for _, inst := range instances {
		q = q.Values(inst.AssignmentID, inst.StudentID, inst.ClassID, inst.TeacherID, inst.AssignedDate, inst.DueDate, string(inst.Status), inst.SubmissionText, inst.TeacherFeedback, inst.CreatedAt, inst.UpdatedAt)
	}
	// duplicates that raced past the caller's pre-check are skipped, not errors
	q = q.Suffix("ON CONFLICT (assignment_id, student_id) DO NOTHING")

	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "creating student assignments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting created student assignments")
	}
	return int(n), nil
}

func (repo *assignmentRepository) QueryInstancesByStudent(ctx context.Context, studentID string) ([]assignment.StudentAssignment, error) {
	return repo.selectInstances(ctx, sq.Eq{"student_id": studentID})
}

func (repo *assignmentRepository) QueryInstancesByClass(ctx context.Context, classID string) ([]assignment.StudentAssignment, error) {
	return repo.selectInstances(ctx, sq.Eq{"class_id": classID})
}

func (repo *assignmentRepository) baseSelect() sq.SelectBuilder {
	return psql.Select("id", "teacher_id", "subject_id", "title", "description", "due_date", "created_at", "updated_at").
		From("assignment").
		OrderBy("created_at")
}

func (repo *assignmentRepository) queryQuestions(ctx context.Context, assignmentID string) ([]assignment.Question, error) {
	query, args, err := psql.Select("id", "assignment_id", "text", "type", "points", "sort_order").
		From("assignment_question").
		Where(sq.Eq{"assignment_id": assignmentID}).
		OrderBy("sort_order").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []questionRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}

	questions := make([]assignment.Question, 0, len(rows))
	for _, row := range rows {
		q := assignment.Question{
			ID:        row.ID,
			Text:      row.Text,
			Type:      assignment.QuestionType(row.Type),
			Points:    row.Points,
			SortOrder: row.SortOrder,
		}
		if q.Type == assignment.QuestionMultipleChoice {
			if q.Options, err = repo.queryOptions(ctx, q.ID); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (repo *assignmentRepository) queryOptions(ctx context.Context, questionID string) ([]assignment.QuestionOption, error) {
	query, args, err := psql.Select("id", "question_id", "text", "is_correct").
		From("assignment_question_option").
		Where(sq.Eq{"question_id": questionID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []optionRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying question options")
	}

	options := make([]assignment.QuestionOption, 0, len(rows))
	for _, row := range rows {
		options = append(options, assignment.QuestionOption{ID: row.ID, Text: row.Text, IsCorrect: row.IsCorrect})
	}
	return options, nil
}

func (repo *assignmentRepository) selectInstances(ctx context.Context, cond sq.Eq) ([]assignment.StudentAssignment, error) {
	query, args, err := psql.Select(
		"id", "assignment_id", "student_id", "class_id", "teacher_id", "assigned_date", "due_date",
		"status", "submitted_at", "submission_text", "grade", "teacher_feedback", "created_at", "updated_at").
		From("student_assignment").
		Where(cond).
		OrderBy("due_date").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []instanceRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying student assignments")
	}

	instances := make([]assignment.StudentAssignment, 0, len(rows))
	for _, row := range rows {
		instances = append(instances, row.toInstance())
	}
	return instances, nil
}
