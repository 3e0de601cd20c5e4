package model

import "time"

// Goal visibility. A Private goal is visible only to its owner; a Public
// goal shows up for everyone.
const (
	StatusPublic  = "Public"
	StatusPrivate = "Private"
)

// CreationGoal is a user-owned narrative record: the user writes out a
// goal and the chain of statements supporting it (why, what they want,
// what they believe, what they know, the plan, the action, the victory).
//
// CreationNumber is a positive integer unique per owner, assigned at
// create time as the smallest unused number for that owner ("gap-filling"
// — deleting goal 2 of {1,2,3} means the next goal created becomes 2, not
// 4). The DB enforces uniqueness with a (user_id, creation_number) index;
// the assignment policy lives in the goal service.
type CreationGoal struct {
	ID             string    `json:"id"             db:"id"`
	UserID         string    `json:"userId"         db:"user_id"`
	CreationNumber int       `json:"creationNumber" db:"creation_number"`
	CreationDate   time.Time `json:"creationDate"   db:"creation_date"`
	Goal           string    `json:"goal"           db:"goal"`
	Motivator      string    `json:"motivator"      db:"motivator"`
	Desire         string    `json:"desire"         db:"desire"`
	Belief         string    `json:"belief"         db:"belief"`
	Knowledge      string    `json:"knowledge"      db:"knowledge"`
	Plan           string    `json:"plan"           db:"plan"`
	Action         string    `json:"action"         db:"action"`
	Victory        string    `json:"victory"        db:"victory"`
	Status         string    `json:"status"         db:"status"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// ValidStatus reports whether s is one of the two allowed status values.
func ValidStatus(s string) bool {
	return s == StatusPublic || s == StatusPrivate
}
