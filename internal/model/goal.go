package model

import "strings"

// Goal category constants accepted by the API.
const (
	CategoryGrowth      = "growth"
	CategoryMaintenance = "maintenance"
	CategoryOther       = "other"
)

// protectedGoalTitles are the default goals the client refuses to delete.
var protectedGoalTitles = []string{"Other", "Routine"}

// Goal is a user-defined list that owns zero or more tasks.
type Goal struct {
	ID           int64  `json:"id" db:"id"`
	Title        string `json:"title" db:"title"`
	Color        string `json:"color" db:"color"`
	CategoryType string `json:"category_type" db:"category_type"`
	IsArchived   bool   `json:"is_archived" db:"is_archived"`
	CreatedAt    string `json:"created_at" db:"created_at"`
}

// IsProtected reports whether the goal is one of the default goals that
// must never be deleted by the client.
func (g Goal) IsProtected() bool {
	return IsProtectedGoalTitle(g.Title)
}

// IsProtectedGoalTitle reports whether title names a protected goal.
func IsProtectedGoalTitle(title string) bool {
	title = strings.TrimSpace(title)
	for _, p := range protectedGoalTitles {
		if title == p {
			return true
		}
	}
	return false
}
