package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core/assistant"
	"github.com/trezcool/kazi/core/user"
)

func Test_assistantApi_tutor(t *testing.T) {
	student := createUser(t, "Tutor Student", "tutorstudent", "tutorstudent@kazi.cd", "LePassword", user.StudentRoles)
	teacher := createUser(t, "Tutor Teacher", "tutorteacher", "tutorteacher@kazi.cd", "LePassword", user.TeacherRoles)
	studentToken := getToken(t, student)

	t.Run("students only", func(t *testing.T) {
		body := marchallObj(t, assistant.TutorRequest{Message: "Help me revise"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/tutor", getToken(t, teacher), body)
		app.ServeHTTP(rec, request)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("message is required", func(t *testing.T) {
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/tutor", studentToken, []byte("{}"))
		app.ServeHTTP(rec, request)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"message": "this field is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("replies to the student", func(t *testing.T) {
		promptMock.SetReply(defaultPromptReply, nil)
		body := marchallObj(t, assistant.TutorRequest{
			Message: "How do plants make food?",
			History: []assistant.ChatMessage{{Role: "user", Text: "Hi"}},
		})
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/tutor", studentToken, body)
		app.ServeHTTP(rec, request)
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, TutorResponse{Response: "This is a canned reply."}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("model outage is a bad gateway", func(t *testing.T) {
		promptMock.SetReply("", assistant.ErrUnavailable)
		defer promptMock.SetReply(defaultPromptReply, nil)

		body := marchallObj(t, assistant.TutorRequest{Message: "Anyone there?"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/tutor", studentToken, body)
		app.ServeHTTP(rec, request)
		tt := httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: assistant.ErrUnavailable.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_assistantApi_suggestQuestions(t *testing.T) {
	teacher := createUser(t, "Suggest Teacher", "suggestteacher", "suggestteacher@kazi.cd", "LePassword", user.TeacherRoles)
	student := createUser(t, "Suggest Student", "suggeststudent", "suggeststudent@kazi.cd", "LePassword", user.StudentRoles)
	teacherToken := getToken(t, teacher)

	suggestionsJSON := `{"suggestions": [{"questionText": "Name the process plants use to make food", "questionType": "short_answer"}]}`

	t.Run("teachers only", func(t *testing.T) {
		body := marchallObj(t, assistant.SuggestQuestionsRequest{AssignmentTitle: "Plants"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/suggest-questions", getToken(t, student), body)
		app.ServeHTTP(rec, request)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("context is required", func(t *testing.T) {
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/suggest-questions", teacherToken, []byte("{}"))
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns suggestions", func(t *testing.T) {
		promptMock.SetReply(suggestionsJSON, nil)
		defer promptMock.SetReply(defaultPromptReply, nil)

		body := marchallObj(t, assistant.SuggestQuestionsRequest{AssignmentTitle: "Plants"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/suggest-questions", teacherToken, body)
		app.ServeHTTP(rec, request)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var resp SuggestionsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling suggestions: %v", err)
		}
		if len(resp.Suggestions) != 1 || resp.Suggestions[0].QuestionType != "short_answer" {
			t.Errorf("suggestions = %+v; want one short_answer question", resp.Suggestions)
		}
	})

	t.Run("blocked content is unprocessable", func(t *testing.T) {
		promptMock.SetReply("", assistant.ErrBlocked)
		defer promptMock.SetReply(defaultPromptReply, nil)

		body := marchallObj(t, assistant.SuggestQuestionsRequest{AssignmentTitle: "Plants"})
		request, rec := newAuthRequest(http.MethodPost, "/v1/assistant/suggest-questions", teacherToken, body)
		app.ServeHTTP(rec, request)
		tt := httpTest{
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, httpErr{Error: assistant.ErrBlocked.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})
}
