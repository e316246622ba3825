package services

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

type GoogleServiceProvider interface {
	ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type GoogleService struct {
}

func (gs GoogleService) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return idtoken.Validate(ctx, idToken, audience)
}

// GoogleProfile is what sign-in keeps from a verified id token.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleProfileOf reads the profile claims of a verified token. A token
// without a subject is rejected.
func GoogleProfileOf(payload *idtoken.Payload) (GoogleProfile, error) {
	if payload == nil {
		return GoogleProfile{}, fmt.Errorf("empty id token payload")
	}
	subject, _ := payload.Claims["sub"].(string)
	if subject == "" {
		subject = payload.Subject
	}
	if subject == "" {
		return GoogleProfile{}, fmt.Errorf("id token has no subject: %v", payload.Claims)
	}
	profile := GoogleProfile{Subject: subject}
	profile.Email, _ = payload.Claims["email"].(string)
	profile.Name, _ = payload.Claims["name"].(string)
	profile.Picture, _ = payload.Claims["picture"].(string)
	return profile, nil
}
