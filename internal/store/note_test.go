package store

import (
	"testing"

	"github.com/abaev/quizdrill/internal/model"
)

func TestNoteUpsert(t *testing.T) {
	s := newTestStore(t)

	// Missing note is nil, not an error.
	n, err := s.GetNote(testEmail, "AZ-900", "microsoft", 7)
	if err != nil {
		t.Fatalf("GetNote miss: %v", err)
	}
	if n != nil {
		t.Fatal("expected nil for missing note")
	}

	note := model.Note{
		Email:          testEmail,
		Exam:           "AZ-900",
		Provider:       "microsoft",
		QuestionNumber: 7,
		Text:           "first draft",
	}
	if err := s.UpsertNote(note); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	note.Text = "second draft"
	if err := s.UpsertNote(note); err != nil {
		t.Fatalf("UpsertNote again: %v", err)
	}

	// Exactly one record, carrying the latest text.
	notes, err := s.ListNotes(testEmail)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note after double upsert, got %d", len(notes))
	}
	if notes[0].Text != "second draft" {
		t.Errorf("text = %q, want latest", notes[0].Text)
	}
}

func TestNoteEmptyTextIsStored(t *testing.T) {
	s := newTestStore(t)

	note := model.Note{Email: testEmail, Exam: "AZ-900", Provider: "microsoft", QuestionNumber: 1, Text: "something"}
	if err := s.UpsertNote(note); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	note.Text = ""
	if err := s.UpsertNote(note); err != nil {
		t.Fatalf("UpsertNote empty: %v", err)
	}

	// Writing empty text clears the content but keeps the record.
	got, err := s.GetNote(testEmail, "AZ-900", "microsoft", 1)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got == nil {
		t.Fatal("empty-text upsert deleted the note")
	}
	if got.Text != "" {
		t.Errorf("text = %q, want empty", got.Text)
	}
}

func TestListNotesOrderedAndScoped(t *testing.T) {
	s := newTestStore(t)

	for _, n := range []model.Note{
		{Email: testEmail, Exam: "SAA-C03", Provider: "aws", QuestionNumber: 2, Text: "b"},
		{Email: testEmail, Exam: "AZ-900", Provider: "microsoft", QuestionNumber: 9, Text: "c"},
		{Email: testEmail, Exam: "AZ-900", Provider: "microsoft", QuestionNumber: 1, Text: "a"},
		{Email: "other@example.com", Exam: "AZ-900", Provider: "microsoft", QuestionNumber: 1, Text: "not mine"},
	} {
		if err := s.UpsertNote(n); err != nil {
			t.Fatalf("UpsertNote: %v", err)
		}
	}

	notes, err := s.ListNotes(testEmail)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes for user, got %d", len(notes))
	}
	if notes[0].Exam != "AZ-900" || notes[0].QuestionNumber != 1 {
		t.Errorf("first note = %s q%d, want AZ-900 q1", notes[0].Exam, notes[0].QuestionNumber)
	}
	if notes[1].QuestionNumber != 9 {
		t.Errorf("second note q%d, want q9", notes[1].QuestionNumber)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	token, err := s.CreateAuthSession(testEmail, "Test User")
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.Email != testEmail {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected session gone after delete")
	}

	// Unknown token is nil, not an error.
	sess, err = s.GetAuthSession("bogus")
	if err != nil || sess != nil {
		t.Errorf("unknown token: (%+v, %v)", sess, err)
	}
}
