package models

// Question is one multiple-choice quiz question.
type Question struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// Valid reports whether q has text, at least two options, and an in-range correct index.
func (q Question) Valid() bool {
	if q.Question == "" || len(q.Options) < 2 {
		return false
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}
