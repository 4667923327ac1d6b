package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abaev/quizdrill/internal/auth"
	appI18n "github.com/abaev/quizdrill/internal/i18n"
	"github.com/abaev/quizdrill/internal/model"
	"github.com/abaev/quizdrill/internal/store"
)

const (
	testEmail  = "owner@example.com"
	testSecret = "test-secret"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := model.ServerConfig{
		AllowedEmail: testEmail,
		TokenSecret:  testSecret,
		CacheTTL:     time.Minute,
	}
	h := New(store.NewCached(db, cfg.CacheTTL), auth.NewTokenVerifier(testSecret), cfg)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	}
	return resp
}

func login(t *testing.T, c *http.Client, baseURL, email string) *http.Response {
	t.Helper()
	token, err := auth.SignToken(testSecret, email, "Test User", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return doJSON(t, c, http.MethodPost, baseURL+"/auth/login", map[string]string{"token": token}, nil)
}

func uploadTestExam(t *testing.T, c *http.Client, baseURL string, n, perSession int) {
	t.Helper()
	var questions []model.QuestionUpload
	for i := 1; i <= n; i++ {
		questions = append(questions, model.QuestionUpload{
			Exam:     "AZ-900",
			Provider: "microsoft",
			Number:   i,
			Text:     fmt.Sprintf("Question %d", i),
			Options: []model.Option{
				{Letter: "A", Text: "first"},
				{Letter: "B", Text: "second"},
			},
			SuggestedAnswer: "A",
			VerifiedAnswer:  "A",
		})
	}
	resp := doJSON(t, c, http.MethodPost, baseURL+"/exams", uploadRequest{
		Questions:           questions,
		SessionTime:         30,
		TotalQuestions:      n,
		QuestionsPerSession: perSession,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload exam: got status %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestRequiresLogin(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	resp := doJSON(t, c, http.MethodGet, srv.URL+"/exams", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated list: got status %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestLoginAllowList(t *testing.T) {
	srv := newTestServer(t)

	resp := login(t, newClient(t), srv.URL, "intruder@example.com")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("login with wrong email: got status %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	c := newClient(t)
	resp = login(t, c, srv.URL, testEmail)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with allowed email: got status %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp = doJSON(t, c, http.MethodGet, srv.URL+"/exams", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated list: got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestPracticeFlow(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, testEmail)
	uploadTestExam(t, c, srv.URL, 4, 4)

	var started sessionView
	resp := doJSON(t, c, http.MethodPost, srv.URL+"/session", startSessionRequest{
		Exam:     "AZ-900",
		Provider: "microsoft",
		Batch:    1,
	}, &started)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session: got status %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if len(started.Questions) != 4 {
		t.Fatalf("got %d session questions, want 4", len(started.Questions))
	}
	if started.Batch.Label != "Questions 1 - 4" {
		t.Errorf("got batch label %q, want %q", started.Batch.Label, "Questions 1 - 4")
	}

	// Answer two of four correctly (lowercase exercises case folding).
	for i, ans := range []string{"a", "B"} {
		resp = doJSON(t, c, http.MethodPost, srv.URL+"/session/answer",
			map[string]any{"index": i, "answer": ans}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("record answer %d: got status %d", i, resp.StatusCode)
		}
	}

	var submitted submitResponse
	resp = doJSON(t, c, http.MethodPost, srv.URL+"/session/submit", nil, &submitted)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if submitted.Attempt.Score != 25 {
		t.Errorf("got score %v, want 25", submitted.Attempt.Score)
	}
	if submitted.Attempt.ID == "" {
		t.Error("submitted attempt has no ID")
	}

	// The session is gone; a second submit finds nothing.
	resp = doJSON(t, c, http.MethodPost, srv.URL+"/session/submit", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second submit: got status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	// The attempt landed in the ledger.
	var history struct {
		Attempts []model.Attempt `json:"attempts"`
	}
	resp = doJSON(t, c, http.MethodGet, srv.URL+"/exams/microsoft/AZ-900/attempts", nil, &history)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list attempts: got status %d", resp.StatusCode)
	}
	if len(history.Attempts) != 1 {
		t.Fatalf("got %d attempts, want 1", len(history.Attempts))
	}
	if history.Attempts[0].Score != 25 {
		t.Errorf("recorded attempt score = %v, want 25", history.Attempts[0].Score)
	}
}

func TestMarkedModeNeedsMarkedQuestions(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, testEmail)
	uploadTestExam(t, c, srv.URL, 3, 3)

	resp := doJSON(t, c, http.MethodPost, srv.URL+"/session", startSessionRequest{
		Exam:     "AZ-900",
		Provider: "microsoft",
		Mode:     "marked",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("marked mode with nothing marked: got status %d, want %d",
			resp.StatusCode, http.StatusBadRequest)
	}

	// Mark one question, then marked mode works and reports batch 0.
	resp = doJSON(t, c, http.MethodPut, srv.URL+"/exams/microsoft/AZ-900/questions/2",
		map[string]any{"verifiedAnswer": "B", "isMarked": true}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark question: got status %d", resp.StatusCode)
	}

	var started sessionView
	resp = doJSON(t, c, http.MethodPost, srv.URL+"/session", startSessionRequest{
		Exam:     "AZ-900",
		Provider: "microsoft",
		Mode:     "marked",
	}, &started)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("marked session: got status %d", resp.StatusCode)
	}
	if started.Batch.Number != 0 || started.Batch.Label != "Marked Questions" {
		t.Errorf("got batch %+v, want number 0 label %q", started.Batch, "Marked Questions")
	}
	if len(started.Questions) != 1 || started.Questions[0].Number != 2 {
		t.Errorf("marked session questions = %+v, want just question 2", started.Questions)
	}
}

func TestNoteRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, testEmail)
	uploadTestExam(t, c, srv.URL, 2, 2)

	var note model.Note
	resp := doJSON(t, c, http.MethodPut, srv.URL+"/exams/microsoft/AZ-900/questions/1/note",
		map[string]string{"text": "revisit subnetting"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save note: got status %d", resp.StatusCode)
	}
	resp = doJSON(t, c, http.MethodGet, srv.URL+"/exams/microsoft/AZ-900/questions/1/note", nil, &note)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get note: got status %d", resp.StatusCode)
	}
	if note.Text != "revisit subnetting" {
		t.Errorf("got note text %q, want %q", note.Text, "revisit subnetting")
	}
}
