// Package batch partitions an exam's uploaded questions into fixed-size
// practice batches, or selects the marked-questions subset.
package batch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/abaev/quizdrill/internal/model"
)

// MarkedLabel is the synthetic range label for marked-questions mode.
const MarkedLabel = "Marked Questions"

var (
	// ErrBadPerSession means questionsPerSession is out of range for the bank.
	ErrBadPerSession = errors.New("questions per session must be between 1 and the uploaded question count")
	// ErrNoMarked means no question in the exam carries the marked flag.
	ErrNoMarked = errors.New("no marked questions in this exam")
)

// Batch describes one selectable slice of an exam.
type Batch struct {
	// Number is 1-based for positional batches; 0 is reserved for marked mode.
	Number int `json:"number"`
	// Label is the declared question range, e.g. "Questions 91 - 95".
	Label string `json:"label"`
	// Start and End are the inclusive declared bounds of the range.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Plan produces ceil(uploaded/perSession) batches covering the bank.
// Batch i (0-indexed) is labeled with the declared range
// [i*perSession+1, min((i+1)*perSession, uploaded)].
func Plan(uploaded, perSession int) ([]Batch, error) {
	if uploaded < 1 {
		return nil, errors.New("exam has no uploaded questions")
	}
	if perSession < 1 || perSession > uploaded {
		return nil, ErrBadPerSession
	}
	count := (uploaded + perSession - 1) / perSession
	batches := make([]Batch, 0, count)
	for i := 0; i < count; i++ {
		start := i*perSession + 1
		end := (i + 1) * perSession
		if end > uploaded {
			end = uploaded
		}
		batches = append(batches, Batch{
			Number: i + 1,
			Label:  fmt.Sprintf("Questions %d - %d", start, end),
			Start:  start,
			End:    end,
		})
	}
	return batches, nil
}

// Slice extracts the questions for a 1-based batch number by position in
// upload order, then sorts the result by question number ascending.
//
// Selection is positional, not by question number: when uploaded numbers are
// non-contiguous the declared range label may not match the numbers actually
// contained. That matches the upstream behavior and is kept deliberately;
// callers get the label from Plan and the content from here.
func Slice(questions []model.Question, number, perSession int) ([]model.Question, error) {
	batches, err := Plan(len(questions), perSession)
	if err != nil {
		return nil, err
	}
	if number < 1 || number > len(batches) {
		return nil, fmt.Errorf("batch %d out of range (have %d batches)", number, len(batches))
	}
	lo := (number - 1) * perSession
	hi := number * perSession
	if hi > len(questions) {
		hi = len(questions)
	}
	out := make([]model.Question, hi-lo)
	copy(out, questions[lo:hi])
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Marked returns every question with the marked flag set, as the single
// synthetic batch number 0. Fails when nothing is marked so the caller never
// starts an empty session.
func Marked(questions []model.Question) ([]model.Question, Batch, error) {
	var out []model.Question
	for _, q := range questions {
		if q.IsMarked {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, Batch{}, ErrNoMarked
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, Batch{Number: 0, Label: MarkedLabel}, nil
}
