package domain

import "time"

// AnswerOption is one selectable answer of a question.
type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// QuestionRecord is a question owned by one user inside one named dataset.
type QuestionRecord struct {
	ID      int64          `json:"id"`
	UserID  int64          `json:"userId"`
	Dataset string         `json:"dataset"`
	Text    string         `json:"text"`
	Answers []AnswerOption `json:"answers"`
}

// CorrectIDs returns the ids of all options flagged correct, in option order.
func (q QuestionRecord) CorrectIDs() []int64 {
	ids := make([]int64, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.Correct {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// QueueEntry is one pending occurrence of a question in a user's quiz queue.
// Lower positions are served first.
type QueueEntry struct {
	UserID     int64 `json:"userId"`
	QuestionID int64 `json:"questionId"`
	Position   int   `json:"position"`
}

// ScoreLedger accumulates a user's results across all quiz sessions.
type ScoreLedger struct {
	UserID    int64 `json:"userId"`
	Score     int   `json:"score"`
	Correct   int   `json:"correct"`
	Incorrect int   `json:"incorrect"`
	TimeSpent int64 `json:"timeSpent"`
}

// LeaderboardEntry is a public view of a user's score.
type LeaderboardEntry struct {
	UserID int64 `json:"userId"`
	Score  int   `json:"score"`
}

// OptionView is an answer option with its correctness withheld.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionView is what a quiz taker sees for the next question.
type QuestionView struct {
	ID       int64        `json:"id"`
	Text     string       `json:"questionText"`
	Answers  []OptionView `json:"answers"`
	Finished bool         `json:"finished"`
}

// QuizStatus summarizes a user's active queue.
type QuizStatus struct {
	Remaining int    `json:"remainingQuestions"`
	Active    bool   `json:"quizActive"`
	Dataset   string `json:"datasetName,omitempty"`
}

// DebugEntry is one row of the full queue dump.
type DebugEntry struct {
	QuestionID int64  `json:"id"`
	Text       string `json:"questionText"`
	Position   int    `json:"position"`
}

// AnswerSubmission is a user's answer to a queued question.
type AnswerSubmission struct {
	QuestionID int64
	AnswerIDs  []int64
	TimeSpent  int64
}

// AnswerOutcome reports the effect of a submission.
type AnswerOutcome struct {
	Correct        bool    `json:"correct"`
	NewScore       int     `json:"newScore"`
	Remaining      int     `json:"remainingQuestions"`
	Finished       bool    `json:"quizFinished"`
	CorrectAnswers []int64 `json:"correctAnswers"`
}

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
