package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core/school"
)

type (
	subjectRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	classRow struct {
		ID        string      `db:"id"`
		Name      string      `db:"name"`
		TeacherID string      `db:"teacher_id"`
		SubjectID string      `db:"subject_id"`
		Year      null.String `db:"year"`
		ClassCode null.String `db:"class_code"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}
)

func (row classRow) toClass(students []string) school.Class {
	if students == nil {
		students = []string{}
	}
	return school.Class{
		ID:        row.ID,
		Name:      row.Name,
		TeacherID: row.TeacherID,
		SubjectID: row.SubjectID,
		Year:      row.Year.String,
		ClassCode: row.ClassCode.String,
		Students:  students,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	query, args, err := psql.Insert("subject").
		Columns("name", "created_at", "updated_at").
		Values(sub.Name, sub.CreatedAt, sub.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.QueryRowContext(ctx, query, args...).Scan(&sub.ID); err != nil {
		return school.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo *schoolRepository) QueryAllSubjects(ctx context.Context) ([]school.Subject, error) {
	query, args, err := psql.Select("id", "name", "created_at", "updated_at").
		From("subject").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []subjectRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subs := make([]school.Subject, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, school.Subject(row))
	}
	return subs, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id string) (school.Subject, error) {
	return repo.getSubject(ctx, sq.Eq{"id": id})
}

func (repo *schoolRepository) GetSubjectByName(ctx context.Context, name string) (school.Subject, error) {
	return repo.getSubject(ctx, sq.Expr("name ILIKE ?", name))
}

func (repo *schoolRepository) getSubject(ctx context.Context, cond interface{}) (school.Subject, error) {
	query, args, err := psql.Select("id", "name", "created_at", "updated_at").
		From("subject").
		Where(cond).
		ToSql()
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "building query")
	}
	var row subjectRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return school.Subject{}, school.ErrSubjectNotFound
		}
		return school.Subject{}, errors.Wrap(err, "getting subject")
	}
	return school.Subject(row), nil
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	query, args, err := psql.Insert("class").
		Columns("name", "teacher_id", "subject_id", "year", "class_code", "created_at", "updated_at").
		Values(cls.Name, cls.TeacherID, cls.SubjectID, nullStr(cls.Year), nullStr(cls.ClassCode), cls.CreatedAt, cls.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return school.Class{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.QueryRowContext(ctx, query, args...).Scan(&cls.ID); err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *schoolRepository) QueryClassesByTeacher(ctx context.Context, teacherID string) ([]school.Class, error) {
	query, args, err := repo.baseClassSelect().
		Where(sq.Eq{"teacher_id": teacherID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []classRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		students, err := repo.queryStudents(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		classes = append(classes, row.toClass(students))
	}
	return classes, nil
}

func (repo *schoolRepository) GetClass(ctx context.Context, classID, teacherID string) (school.Class, error) {
	query, args, err := repo.baseClassSelect().
		Where(sq.Eq{"id": classID, "teacher_id": teacherID}).
		ToSql()
	if err != nil {
		return school.Class{}, errors.Wrap(err, "building query")
	}
	var row classRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return school.Class{}, school.ErrNotFound
		}
		return school.Class{}, errors.Wrap(err, "getting class")
	}
	students, err := repo.queryStudents(ctx, row.ID)
	if err != nil {
		return school.Class{}, err
	}
	return row.toClass(students), nil
}

func (repo *schoolRepository) AddStudent(ctx context.Context, classID, studentID string) error {
	// set semantics
	query, args, err := psql.Insert("class_student").
		Columns("class_id", "student_id").
		Values(classID, studentID).
		Suffix("ON CONFLICT (class_id, student_id) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *schoolRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	query, args, err := psql.Delete("class_student").
		Where(sq.Eq{"class_id": classID, "student_id": studentID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "removing student")
	}
	return nil
}

func (repo *schoolRepository) baseClassSelect() sq.SelectBuilder {
	return psql.Select("id", "name", "teacher_id", "subject_id", "year", "class_code", "created_at", "updated_at").
		From("class").
		OrderBy("created_at")
}

func (repo *schoolRepository) queryStudents(ctx context.Context, classID string) ([]string, error) {
	query, args, err := psql.Select("student_id").
		From("class_student").
		Where(sq.Eq{"class_id": classID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	students := make([]string, 0)
	if err = repo.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return students, nil
}
