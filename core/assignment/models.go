package assignment

import (
	"time"

	"github.com/trezcool/kazi/core"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
	QuestionFileUpload     QuestionType = "file_upload"
)

var questionTypes = []QuestionType{QuestionMultipleChoice, QuestionShortAnswer, QuestionEssay, QuestionFileUpload}

type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Type      QuestionType     `json:"type"`
	Points    int              `json:"points"`
	SortOrder int              `json:"sort_order"`
	Options   []QuestionOption `json:"options,omitempty"` // multiple_choice only
}

// Assignment is the reusable template a teacher authors once and then
// distributes to classes. The distribution flow never mutates it.
type Assignment struct {
	ID          string     `json:"id"`
	TeacherID   string     `json:"teacher_id"`
	SubjectID   string     `json:"subject_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	DueDate     *time.Time `json:"due_date,omitempty"` // master due date; distribution carries its own
	CreatedAt   time.Time  `json:"created_at"`         // UTC
	UpdatedAt   time.Time  `json:"updated_at"`         // UTC
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusGraded     Status = "graded"
	StatusReturned   Status = "returned"
)

// StudentAssignment is one student's copy of an assignment, created by
// distribution. At most one exists per (AssignmentID, StudentID), no matter how
// many classes the student belongs to or how often distribution is re-run.
type StudentAssignment struct {
	ID              string     `json:"id"`
	AssignmentID    string     `json:"assignment_id"`
	StudentID       string     `json:"student_id"`
	ClassID         string     `json:"class_id"` // the class it was distributed through
	TeacherID       string     `json:"teacher_id"`
	AssignedDate    time.Time  `json:"assigned_date"`
	DueDate         time.Time  `json:"due_date"`
	Status          Status     `json:"status"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	SubmissionText  string     `json:"submission_text,omitempty"`
	Grade           *float64   `json:"grade,omitempty"`
	TeacherFeedback string     `json:"teacher_feedback,omitempty"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
}

// NewQuestionOption contains information needed to create one multiple choice option.
type NewQuestionOption struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// NewQuestion contains information needed to create one Question.
type NewQuestion struct {
	Text    string              `json:"text" validate:"required"`
	Type    QuestionType        `json:"type" validate:"required,questiontype"`
	Points  *int                `json:"points" validate:"omitempty,gte=0"`
	Options []NewQuestionOption `json:"options" validate:"omitempty,dive"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	SubjectID   string        `json:"subject_id" validate:"required,uuid4"`
	DueDate     *time.Time    `json:"due_date"`
	Questions   []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	for i := range na.Questions {
		na.Questions[i].Text = core.CleanString(na.Questions[i].Text)
	}
	return core.Validate.Struct(na)
}

// accepted due/publish date layouts, most precise first
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// DistributionRequest asks for one assignment to be fanned out to the rosters
// of the given classes. It is ephemeral, never persisted.
type DistributionRequest struct {
	AssignmentID string   `json:"assignment_id" validate:"required,uuid4"`
	ClassIDs     []string `json:"class_ids" validate:"required,min=1,dive,uuid4"`
	DueDate      string   `json:"due_date" validate:"required"`
	PublishDate  string   `json:"publish_date"`

	dueDate     time.Time
	publishDate time.Time // zero value: publish immediately
}

// Validate checks the request shape and parses the dates; it performs no store
// access. ClassIDs are deduplicated in place.
func (dr *DistributionRequest) Validate() error {
	seen := make(map[string]struct{}, len(dr.ClassIDs))
	classIDs := dr.ClassIDs[:0]
	for _, id := range dr.ClassIDs {
		id = core.CleanString(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		classIDs = append(classIDs, id)
	}
	dr.ClassIDs = classIDs

	if err := core.Validate.Struct(dr); err != nil {
		return err
	}

	due, err := parseDate(dr.DueDate)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "due date must be a valid date"})
	}
	dr.dueDate = due

	if dr.PublishDate != "" {
		publish, err := parseDate(dr.PublishDate)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "publish_date", Error: "publish date must be a valid date"})
		}
		dr.publishDate = publish
	}
	return nil
}

func parseDate(val string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, val); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// DistributionResult aggregates a distribution run: the number of newly
// created instances, and one human-readable diagnostic per skipped or failed
// class. Success is false only when nothing was assigned AND at least one
// class hard-failed; informational skips (already assigned) alone do not fail
// the run.
type DistributionResult struct {
	Success       bool     `json:"success"`
	TotalAssigned int      `json:"total_assigned"`
	Diagnostics   []string `json:"diagnostics"`
}
