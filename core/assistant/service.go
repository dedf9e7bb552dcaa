package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

var (
	// errors
	ErrUnavailable   = errors.New("AI service is currently unavailable")
	ErrEmptyResponse = errors.New("AI returned an empty response")
	ErrBlocked       = errors.New("content blocked by safety filters")

	errContextRequired = errors.New("please provide sufficient context (e.g., title, description, or current question)")
)

// eduBotSystemPrompt frames the tutor chat; the assistant never just hands out
// final answers.
const eduBotSystemPrompt = `You are EduBot, a friendly and patient AI tutor for school students. ` +
	`Help the student understand concepts and work through problems step by step. ` +
	`Guide with hints and questions instead of giving away complete answers. ` +
	`Keep responses concise and age-appropriate.`

const defaultNumSuggestions = 3

type (
	// PromptService is any service that can complete a text prompt.
	// jsonOutput asks the backend for a raw JSON object response.
	PromptService interface {
		Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error)
	}

	ChatMessage struct {
		Role string `json:"role" validate:"required,oneof=user model"`
		Text string `json:"text" validate:"required"`
	}

	TutorRequest struct {
		Message string        `json:"message" validate:"required"`
		History []ChatMessage `json:"history" validate:"omitempty,dive"`
	}

	SuggestQuestionsRequest struct {
		AssignmentTitle       string `json:"assignment_title"`
		AssignmentDescription string `json:"assignment_description"`
		CurrentQuestionText   string `json:"current_question_text"`
		QuestionType          string `json:"question_type" validate:"omitempty,oneof=multiple_choice short_answer essay file_upload"`
		NumSuggestions        int    `json:"num_suggestions" validate:"omitempty,gte=1,lte=10"`
	}

	SuggestedQuestionOption struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"isCorrect"`
	}

	SuggestedQuestion struct {
		QuestionText string                    `json:"questionText"`
		QuestionType string                    `json:"questionType"`
		Points       *int                      `json:"points,omitempty"`
		Options      []SuggestedQuestionOption `json:"options,omitempty"`
	}

	Service interface {
		TutorReply(ctx context.Context, req TutorRequest) (string, error)
		SuggestQuestions(ctx context.Context, req SuggestQuestionsRequest) ([]SuggestedQuestion, error)
	}

	service struct {
		prompter PromptService
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(prompter PromptService, logger core.Logger) Service {
	return &service{
		prompter: prompter,
		logger:   logger,
	}
}

func (tr *TutorRequest) Validate() error {
	tr.Message = core.CleanString(tr.Message)
	return core.Validate.Struct(tr)
}

func (sr *SuggestQuestionsRequest) Validate() error {
	sr.AssignmentTitle = core.CleanString(sr.AssignmentTitle)
	sr.AssignmentDescription = core.CleanString(sr.AssignmentDescription)
	sr.CurrentQuestionText = core.CleanString(sr.CurrentQuestionText)
	if err := core.Validate.Struct(sr); err != nil {
		return err
	}
	if sr.AssignmentTitle == "" && sr.AssignmentDescription == "" && sr.CurrentQuestionText == "" {
		return core.NewValidationError(errContextRequired)
	}
	return nil
}

func (svc *service) TutorReply(ctx context.Context, req TutorRequest) (string, error) {
	var prompt strings.Builder
	prompt.WriteString(eduBotSystemPrompt)
	prompt.WriteString("\n\n## Conversation History:\n")
	for _, msg := range req.History {
		speaker := "Student"
		if msg.Role == "model" {
			speaker = "EduBot"
		}
		fmt.Fprintf(&prompt, "%s: %s\n", speaker, msg.Text)
	}
	fmt.Fprintf(&prompt, "\nStudent: %s\nEduBot:", req.Message)

	raw, err := svc.prompter.Generate(ctx, prompt.String(), false)
	if err != nil {
		return "", err
	}
	return extractActualText(raw), nil
}

// extractActualText unwraps responses the backend mistakenly wrapped in
// {"response": "..."} and falls back to the raw text otherwise.
func extractActualText(raw string) string {
	var wrapped struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Response != "" {
		return wrapped.Response
	}
	return raw
}

func (svc *service) SuggestQuestions(ctx context.Context, req SuggestQuestionsRequest) ([]SuggestedQuestion, error) {
	numSuggestions := req.NumSuggestions
	if numSuggestions == 0 {
		numSuggestions = defaultNumSuggestions
	}

	raw, err := svc.prompter.Generate(ctx, buildSuggestionPrompt(req, numSuggestions), true /* jsonOutput */)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Suggestions []SuggestedQuestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		svc.logger.Error("parsing AI suggestions", err)
		return nil, errors.Wrap(ErrEmptyResponse, "parsing suggestions")
	}
	return parsed.Suggestions, nil
}

func buildSuggestionPrompt(req SuggestQuestionsRequest, numSuggestions int) string {
	var prompt strings.Builder
	prompt.WriteString(`You are an AI assistant specializing in educational content creation. Your task is to generate question suggestions for a school assignment.

Strictly adhere to the following JSON output format. The entire response MUST be a single JSON object with a root key "suggestions".
The "suggestions" key must contain an array of question objects. Each question object must have:
1.  "questionText": A string for the question itself.
2.  "questionType": A string, one of "multiple_choice", "short_answer", "essay", "file_upload".
3.  "points": An optional number (e.g., 10). If omitted, a default will be used.
4.  "options": An array of option objects, ONLY if "questionType" is "multiple_choice". Each option object must have "text" (string) and "isCorrect" (boolean). For multiple choice, provide 3 to 4 options, and ensure exactly one option has "isCorrect": true. For other question types, "options" should be omitted or be an empty array.
`)
	fmt.Fprintf(&prompt, "\nGenerate %d question suggestions based on the following context:", numSuggestions)

	if req.AssignmentTitle != "" {
		fmt.Fprintf(&prompt, "\n- Assignment Title: %q", req.AssignmentTitle)
	}
	if req.AssignmentDescription != "" {
		fmt.Fprintf(&prompt, "\n- Assignment Description: %q", req.AssignmentDescription)
	}
	qType := strings.ReplaceAll(req.QuestionType, "_", " ")
	if req.CurrentQuestionText != "" {
		fmt.Fprintf(&prompt, "\n- Context of current question being worked on: %q", req.CurrentQuestionText)
		if req.QuestionType != "" {
			fmt.Fprintf(&prompt, "\n- Try to make suggestions for the question type: %s", qType)
		}
	} else if req.QuestionType != "" {
		fmt.Fprintf(&prompt, "\n- Generate questions specifically of type: %s", qType)
	}

	prompt.WriteString("\n\nProvide ONLY the JSON object as your response.")
	return prompt.String()
}

// stripCodeFences removes a markdown ```json fence the backend may wrap JSON in.
func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	return strings.TrimSpace(raw)
}
