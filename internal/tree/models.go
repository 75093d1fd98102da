package tree

// QuestionNode represents a row in the questions table
type QuestionNode struct {
	ID       int64   `json:"id"`
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
	ParentID *int64  `json:"parent_id"`
	Priority float64 `json:"priority"`
}

// Answered reports whether the node has an answer set.
func (n QuestionNode) Answered() bool {
	return n.Answer != nil
}
