package model

// Category and Tag are the two seeded vocabularies a question can be filed
// under. Names are unique within each vocabulary.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// QuestionCategory is one row of the question_categories join table.
type QuestionCategory struct {
	QuestionID int64
	CategoryID int64
}

// QuestionTag is one row of the question_tags join table.
type QuestionTag struct {
	QuestionID int64
	TagID      int64
}
