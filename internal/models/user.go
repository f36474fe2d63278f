package models

// User is the directory entry for a platform member. Profile editing and
// credentials live outside this service.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName    string `gorm:"size:100" json:"firstName"`
	LastName     string `gorm:"size:100" json:"lastName"`
	University   string `gorm:"size:150" json:"university,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// UserSummary represents the user data that is safe to show to another member.
type UserSummary struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	University   string `json:"university,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Summary creates a UserSummary from a User model, excluding contact data.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		University:   u.University,
		ProfileImage: u.ProfileImage,
	}
}

// DisplayName is used in notification texts.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return "Someone"
	}
}
