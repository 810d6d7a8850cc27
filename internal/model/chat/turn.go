package chat

import "time"

// Turn is one question/answer exchange inside the live session. Answer is
// nil while the request is in flight; error text is written in place on
// failure so the turn always resolves.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	Question  string    `json:"question"`
	Answer    *string   `json:"answer"`
	Emotion   string    `json:"emotion"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pending reports whether the turn's answer has not arrived yet.
func (t Turn) Pending() bool {
	return t.Answer == nil
}

// Resolve returns a copy of the turn with the answer written in place.
func (t Turn) Resolve(answer string) Turn {
	t.Answer = &answer
	return t
}

// Record is a persisted turn scoped to an identity. The store assigns ID and
// CreatedAt; the server-assigned time supersedes the local one.
type Record struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Emotion   string    `json:"emotion"`
	CreatedAt time.Time `json:"createdAt"`
}
