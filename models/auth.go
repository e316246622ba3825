package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuestUID is the identity every guest login shares. It carries no storage rights.
const GuestUID = "guest_user"

type Identity struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Guest   bool   `json:"guest"`
	// SessionID tells concurrent guests apart since they share GuestUID.
	SessionID string `json:"session_id,omitempty"`
}

func (i Identity) IsGuest() bool {
	return i.Guest || i.UID == GuestUID
}

// IsAnonymous reports whether there is no identity at all.
func (i Identity) IsAnonymous() bool {
	return i.UID == ""
}

// SessionKey is the key under which the live session of this identity is kept.
func (i Identity) SessionKey() string {
	if i.IsGuest() {
		return "guest:" + i.SessionID
	}
	return i.UID
}

type GoogleAuthSignIn struct {
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type SignInOut struct {
	AccessToken string   `json:"access_token"`
	User        Identity `json:"user"`
}
