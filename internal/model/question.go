package model

import "time"

// Question is a titled post owned by a user. CreatedAt is set by the store
// when the row is inserted and never changes afterwards.
type Question struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Answer is a reply to a question.
type Answer struct {
	ID         int64     `json:"id"`
	Body       string    `json:"body"`
	UserID     int64     `json:"userId"`
	QuestionID int64     `json:"questionId"`
	CreatedAt  time.Time `json:"createdAt"`
}
