package model

import "time"

// Submission carries reviewer-entered scores from the HTTP layer to the
// scoring workers.
type Submission struct {
	SubmissionID string    // idempotency key
	EvaluationID string    // evaluation being scored
	ReviewerID   string    // optional; overrides the evaluation's reviewer when set
	Scores       []Score   // raw reviewer scores, validated upstream
	Comments     string    // optional reviewer comments
	ReceivedAt   time.Time // time the submission was accepted
}
