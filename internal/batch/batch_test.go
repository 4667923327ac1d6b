package batch

import (
	"testing"

	"github.com/abaev/quizdrill/internal/model"
)

func makeQuestions(numbers ...int) []model.Question {
	qs := make([]model.Question, 0, len(numbers))
	for _, n := range numbers {
		qs = append(qs, model.Question{Number: n})
	}
	return qs
}

func seqQuestions(n int) []model.Question {
	qs := make([]model.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, model.Question{Number: i})
	}
	return qs
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name       string
		uploaded   int
		perSession int
		wantCount  int
		wantLast   string
	}{
		{"even split", 100, 10, 10, "Questions 91 - 100"},
		{"short tail", 95, 10, 10, "Questions 91 - 95"},
		{"single batch", 7, 10, 0, ""}, // perSession > uploaded is invalid
		{"exact one", 10, 10, 1, "Questions 1 - 10"},
		{"size one", 3, 1, 3, "Questions 3 - 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := Plan(tt.uploaded, tt.perSession)
			if tt.wantCount == 0 {
				if err == nil {
					t.Fatalf("expected error, got %d batches", len(batches))
				}
				return
			}
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(batches) != tt.wantCount {
				t.Fatalf("expected %d batches, got %d", tt.wantCount, len(batches))
			}
			last := batches[len(batches)-1]
			if last.Label != tt.wantLast {
				t.Errorf("last label = %q, want %q", last.Label, tt.wantLast)
			}
			if batches[0].Number != 1 {
				t.Errorf("first batch number = %d, want 1", batches[0].Number)
			}
		})
	}
}

func TestPlanValidation(t *testing.T) {
	if _, err := Plan(0, 5); err == nil {
		t.Error("expected error for empty bank")
	}
	if _, err := Plan(10, 0); err != ErrBadPerSession {
		t.Errorf("expected ErrBadPerSession for perSession 0, got %v", err)
	}
	if _, err := Plan(10, 11); err != ErrBadPerSession {
		t.Errorf("expected ErrBadPerSession for perSession > uploaded, got %v", err)
	}
}

func TestSliceLastBatch(t *testing.T) {
	qs := seqQuestions(95)
	got, err := Slice(qs, 10, 10)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 questions in last batch, got %d", len(got))
	}
	if got[0].Number != 91 || got[4].Number != 95 {
		t.Errorf("last batch covers %d..%d, want 91..95", got[0].Number, got[4].Number)
	}
}

func TestSliceSortsByQuestionNumber(t *testing.T) {
	// Upload order deliberately scrambled; slice is positional, output sorted.
	qs := makeQuestions(5, 3, 9, 1, 7)
	got, err := Slice(qs, 1, 3)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	want := []int{3, 5, 9}
	for i, n := range want {
		if got[i].Number != n {
			t.Errorf("position %d: number = %d, want %d", i, got[i].Number, n)
		}
	}
}

func TestSliceNonContiguousKeepsDeclaredLabel(t *testing.T) {
	// Numbers 10,20,30,40: batch 2 of size 2 is positionally {30,40} even
	// though its declared label says "Questions 3 - 4".
	qs := makeQuestions(10, 20, 30, 40)
	batches, err := Plan(len(qs), 2)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if batches[1].Label != "Questions 3 - 4" {
		t.Errorf("label = %q, want declared range", batches[1].Label)
	}
	got, err := Slice(qs, 2, 2)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got[0].Number != 30 || got[1].Number != 40 {
		t.Errorf("positional slice = %d,%d, want 30,40", got[0].Number, got[1].Number)
	}
}

func TestSliceOutOfRange(t *testing.T) {
	qs := seqQuestions(10)
	if _, err := Slice(qs, 3, 5); err == nil {
		t.Error("expected error for batch number past the end")
	}
	if _, err := Slice(qs, 0, 5); err == nil {
		t.Error("expected error for batch number 0")
	}
}

func TestMarked(t *testing.T) {
	qs := seqQuestions(5)
	qs[4].IsMarked = true
	qs[1].IsMarked = true

	got, b, err := Marked(qs)
	if err != nil {
		t.Fatalf("Marked: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 marked questions, got %d", len(got))
	}
	if got[0].Number != 2 || got[1].Number != 5 {
		t.Errorf("marked set = %d,%d, want 2,5", got[0].Number, got[1].Number)
	}
	if b.Number != 0 {
		t.Errorf("batch number = %d, want 0", b.Number)
	}
	if b.Label != MarkedLabel {
		t.Errorf("label = %q, want %q", b.Label, MarkedLabel)
	}
}

func TestMarkedSingleQuestion(t *testing.T) {
	qs := seqQuestions(3)
	qs[0].IsMarked = true
	got, _, err := Marked(qs)
	if err != nil {
		t.Fatalf("Marked: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected single-question batch, got %d", len(got))
	}
}

func TestMarkedEmpty(t *testing.T) {
	if _, _, err := Marked(seqQuestions(4)); err != ErrNoMarked {
		t.Errorf("expected ErrNoMarked, got %v", err)
	}
}
