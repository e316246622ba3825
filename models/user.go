package models

import "time"

// UserAccount is the signed-in user as last seen by Google sign-in.
// Guests never get a row.
type UserAccount struct {
	JsonModel
	UID        string     `gorm:"uniqueIndex;not null" json:"uid"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Banned     bool       `gorm:"default:false" json:"-"`
	LastIp     string     `json:"-"`
	Platform   Platform   `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	AvatarURL  string     `json:"avatar_url"`
	LastSeenAt *time.Time `json:"-"`
}

func (u UserAccount) Identity() Identity {
	return Identity{UID: u.UID, Name: u.Name, Picture: u.AvatarURL}
}
