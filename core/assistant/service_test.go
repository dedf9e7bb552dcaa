package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type prompterMock struct {
	reply string
	err   error

	prompt     string
	jsonOutput bool
}

func (m *prompterMock) Generate(_ context.Context, prompt string, jsonOutput bool) (string, error) {
	m.prompt = prompt
	m.jsonOutput = jsonOutput
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type loggerMock struct{}

func (loggerMock) Enable(bool)                  {}
func (loggerMock) Debug(string, ...interface{}) {}
func (loggerMock) Info(string, ...interface{})  {}
func (loggerMock) Warn(string, ...interface{})  {}
func (loggerMock) Error(string, ...interface{}) {}
func (loggerMock) Fatal(string, ...interface{}) {}

func newTestService(prompter *prompterMock) Service {
	return NewService(prompter, loggerMock{})
}

func Test_service_TutorReply(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a transcript prompt", func(t *testing.T) {
		prompter := &prompterMock{reply: "Think about the denominators first."}
		svc := newTestService(prompter)

		req := TutorRequest{
			Message: "How do I add fractions?",
			History: []ChatMessage{
				{Role: "user", Text: "Hi"},
				{Role: "model", Text: "Hello! What are we working on today?"},
			},
		}
		got, err := svc.TutorReply(ctx, req)
		if err != nil {
			t.Fatalf("TutorReply() failed: %v", err)
		}
		if got != prompter.reply {
			t.Errorf("TutorReply() = %q; want %q", got, prompter.reply)
		}
		if prompter.jsonOutput {
			t.Error("TutorReply() requested JSON output; want plain text")
		}
		for _, want := range []string{
			"You are EduBot",
			"Student: Hi\n",
			"EduBot: Hello! What are we working on today?\n",
			"Student: How do I add fractions?\nEduBot:",
		} {
			if !strings.Contains(prompter.prompt, want) {
				t.Errorf("TutorReply() prompt missing %q:\n%s", want, prompter.prompt)
			}
		}
	})

	t.Run("unwraps a JSON-wrapped reply", func(t *testing.T) {
		prompter := &prompterMock{reply: `{"response": "Break the problem into steps."}`}
		svc := newTestService(prompter)

		got, err := svc.TutorReply(ctx, TutorRequest{Message: "I am stuck"})
		if err != nil {
			t.Fatalf("TutorReply() failed: %v", err)
		}
		if got != "Break the problem into steps." {
			t.Errorf("TutorReply() = %q; want unwrapped text", got)
		}
	})

	t.Run("propagates backend errors", func(t *testing.T) {
		prompter := &prompterMock{err: ErrUnavailable}
		svc := newTestService(prompter)

		if _, err := svc.TutorReply(ctx, TutorRequest{Message: "Hello"}); errors.Cause(err) != ErrUnavailable {
			t.Errorf("TutorReply() error = %v; want ErrUnavailable", err)
		}
	})
}

func Test_service_SuggestQuestions(t *testing.T) {
	ctx := context.Background()

	suggestionsJSON := `{
		"suggestions": [
			{"questionText": "What is a fraction?", "questionType": "short_answer", "points": 5},
			{"questionText": "Pick the largest fraction", "questionType": "multiple_choice", "options": [
				{"text": "1/2", "isCorrect": false},
				{"text": "3/4", "isCorrect": true}
			]}
		]
	}`

	t.Run("parses suggestions", func(t *testing.T) {
		prompter := &prompterMock{reply: suggestionsJSON}
		svc := newTestService(prompter)

		got, err := svc.SuggestQuestions(ctx, SuggestQuestionsRequest{AssignmentTitle: "Fractions"})
		if err != nil {
			t.Fatalf("SuggestQuestions() failed: %v", err)
		}
		if !prompter.jsonOutput {
			t.Error("SuggestQuestions() did not request JSON output")
		}
		if len(got) != 2 {
			t.Fatalf("SuggestQuestions() = %d suggestions; want 2", len(got))
		}
		if got[0].Points == nil || *got[0].Points != 5 {
			t.Errorf("SuggestQuestions() points = %v; want 5", got[0].Points)
		}
		if len(got[1].Options) != 2 || !got[1].Options[1].IsCorrect {
			t.Errorf("SuggestQuestions() options = %v", got[1].Options)
		}
	})

	t.Run("strips markdown code fences", func(t *testing.T) {
		prompter := &prompterMock{reply: "```json\n" + suggestionsJSON + "\n```"}
		svc := newTestService(prompter)

		got, err := svc.SuggestQuestions(ctx, SuggestQuestionsRequest{AssignmentTitle: "Fractions"})
		if err != nil {
			t.Fatalf("SuggestQuestions() failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("SuggestQuestions() = %d suggestions; want 2", len(got))
		}
	})

	t.Run("defaults the suggestion count", func(t *testing.T) {
		prompter := &prompterMock{reply: suggestionsJSON}
		svc := newTestService(prompter)

		if _, err := svc.SuggestQuestions(ctx, SuggestQuestionsRequest{AssignmentTitle: "Fractions"}); err != nil {
			t.Fatalf("SuggestQuestions() failed: %v", err)
		}
		if !strings.Contains(prompter.prompt, "Generate 3 question suggestions") {
			t.Errorf("SuggestQuestions() prompt does not default to 3:\n%s", prompter.prompt)
		}

		if _, err := svc.SuggestQuestions(ctx, SuggestQuestionsRequest{AssignmentTitle: "Fractions", NumSuggestions: 5}); err != nil {
			t.Fatalf("SuggestQuestions() failed: %v", err)
		}
		if !strings.Contains(prompter.prompt, "Generate 5 question suggestions") {
			t.Errorf("SuggestQuestions() prompt ignores the requested count:\n%s", prompter.prompt)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		prompter := &prompterMock{reply: "I'd rather chat about the weather."}
		svc := newTestService(prompter)

		if _, err := svc.SuggestQuestions(ctx, SuggestQuestionsRequest{AssignmentTitle: "Fractions"}); errors.Cause(err) != ErrEmptyResponse {
			t.Errorf("SuggestQuestions() error = %v; want ErrEmptyResponse", err)
		}
	})
}

func TestSuggestQuestionsRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SuggestQuestionsRequest
		wantErr bool
	}{
		{name: "title only", req: SuggestQuestionsRequest{AssignmentTitle: "Fractions"}},
		{name: "question text only", req: SuggestQuestionsRequest{CurrentQuestionText: "What is 1/2 + 1/4?"}},
		{name: "no context", req: SuggestQuestionsRequest{}, wantErr: true},
		{name: "whitespace context", req: SuggestQuestionsRequest{AssignmentTitle: "   "}, wantErr: true},
		{name: "bad question type", req: SuggestQuestionsRequest{AssignmentTitle: "Fractions", QuestionType: "puzzle"}, wantErr: true},
		{name: "count too high", req: SuggestQuestionsRequest{AssignmentTitle: "Fractions", NumSuggestions: 11}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
