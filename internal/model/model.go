package model

import (
	"context"
	"time"
)

// Principal is the authenticated identity the external provider hands us.
// Authorization is an exact email match against the configured allow list,
// not role based.
type Principal struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"-"`
}

// AuthSession is a server-side login session created after a successful
// identity exchange.
type AuthSession struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type principalCtxKey struct{}

// ContextWithPrincipal stores the authenticated principal in the request context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal from context, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}

// ExamRef identifies an exam by its composite natural key.
type ExamRef struct {
	Exam     string `json:"exam"`
	Provider string `json:"provider"`
}

// Metadata holds per-exam session parameters and bank completeness info.
// MissingQuestions is always {1..TotalQuestions} minus the numbers actually
// uploaded, recomputed whenever either side changes.
type Metadata struct {
	SessionTime         int   `json:"sessionTime"`
	TotalQuestions      int   `json:"totalQuestions"`
	UploadedQuestions   int   `json:"uploadedQuestions"`
	QuestionsPerSession int   `json:"questionsPerSession"`
	MissingQuestions    []int `json:"missingQuestions"`
	HasMissingQuestions bool  `json:"hasMissingQuestions"`
}

// Option is one answer choice of a multiple-choice question.
type Option struct {
	Letter string `json:"optionLetter"`
	Text   string `json:"optionText"`
}

// Comment is a crowd-sourced discussion entry attached to a question.
type Comment struct {
	Head           string `json:"commentHead"`
	Content        string `json:"commentContent"`
	SelectedAnswer string `json:"commentSelectedAnswer,omitempty"`
}

// Question is one uploaded question. Number is unique within an exam but not
// necessarily contiguous. VerifiedAnswer and IsMarked are mutable curator
// annotations; everything else is fixed at upload.
type Question struct {
	Number           int               `json:"questionNumber"`
	Text             string            `json:"questionText"`
	Options          []Option          `json:"options"`
	SuggestedAnswer  string            `json:"suggestedAnswer"`
	VerifiedAnswer   string            `json:"verifiedAnswer"`
	IsMarked         bool              `json:"isMarked"`
	Comments         []Comment         `json:"comments"`
	VoteDistribution map[string]string `json:"voteDistribution"`

	// UserAnswer lives only on session snapshots, never in the stored bank.
	UserAnswer string `json:"userAnswer,omitempty"`
}

// Exam is a named, provider-scoped ordered collection of questions.
type Exam struct {
	Exam      string     `json:"exam"`
	Provider  string     `json:"provider"`
	Questions []Question `json:"questions"`
	Metadata  Metadata   `json:"metadata"`
}

// QuestionUpload is the wire shape of one question in an uploaded bank file.
// Each element carries the exam identity; verifiedAnswer and isMarked are
// optional and default to empty/false.
type QuestionUpload struct {
	Exam             string            `json:"exam"`
	Provider         string            `json:"provider"`
	Number           int               `json:"questionNumber"`
	Text             string            `json:"questionText"`
	Options          []Option          `json:"options"`
	SuggestedAnswer  string            `json:"suggestedAnswer"`
	VerifiedAnswer   string            `json:"verifiedAnswer"`
	IsMarked         bool              `json:"isMarked"`
	Comments         []Comment         `json:"comments"`
	VoteDistribution map[string]string `json:"voteDistribution"`
}

// Question converts the upload shape to the domain shape.
func (u QuestionUpload) Question() Question {
	return Question{
		Number:           u.Number,
		Text:             u.Text,
		Options:          u.Options,
		SuggestedAnswer:  u.SuggestedAnswer,
		VerifiedAnswer:   u.VerifiedAnswer,
		IsMarked:         u.IsMarked,
		Comments:         u.Comments,
		VoteDistribution: u.VoteDistribution,
	}
}

// AttemptAnswer is the per-question outcome recorded with an attempt.
type AttemptAnswer struct {
	QuestionNumber int    `json:"questionNumber"`
	VerifiedAnswer string `json:"verifiedAnswer"`
	UserAnswer     string `json:"userAnswer"`
	Correct        bool   `json:"correct"`
}

// Attempt is one completed, scored pass through a batch. Immutable once
// written; a user may accumulate any number of attempts per exam and batch.
// BatchNumber 0 means marked-questions mode.
type Attempt struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	Exam            string          `json:"exam"`
	Provider        string          `json:"provider"`
	Score           float64         `json:"score"`
	CompletedAt     time.Time       `json:"completed_at"`
	DurationMinutes float64         `json:"duration_minutes"`
	BatchNumber     int             `json:"batch_number"`
	BatchRange      string          `json:"batch_range"`
	Answers         []AttemptAnswer `json:"answers"`
}

// Note is a free-text per-user annotation on one question, unique per
// (email, exam, provider, questionNumber). Empty text is a legitimate
// stored value, not a deletion signal.
type Note struct {
	Email          string    `json:"email"`
	Exam           string    `json:"exam"`
	Provider       string    `json:"provider"`
	QuestionNumber int       `json:"questionNumber"`
	Text           string    `json:"text"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VerificationStats summarizes curation progress over an exam's questions.
type VerificationStats struct {
	Total    int     `json:"total"`
	Verified int     `json:"verified"`
	Marked   int     `json:"marked"`
	Percent  float64 `json:"percent"`
}

// Stats computes verification progress for a question set.
func Stats(questions []Question) VerificationStats {
	st := VerificationStats{Total: len(questions)}
	for _, q := range questions {
		if q.VerifiedAnswer != "" {
			st.Verified++
		}
		if q.IsMarked {
			st.Marked++
		}
	}
	if st.Total > 0 {
		st.Percent = 100 * float64(st.Verified) / float64(st.Total)
	}
	return st
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	AllowedEmail  string // the single authorized email
	TokenSecret   string // shared secret for identity token verification
	CacheTTL      time.Duration
	SecureCookies bool
}
