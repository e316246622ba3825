package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// ImageData is a transport-ready image: a data URI of the form
// "data:<mime>;base64,<payload>". A bare base64 payload is tolerated on input.
type ImageData string

var ErrMalformedImage = errors.New("malformed image data")

func NewImageData(mimeType string, raw []byte) ImageData {
	return ImageData(fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)))
}

func (d ImageData) IsZero() bool {
	return strings.TrimSpace(string(d)) == ""
}

// MIMEType returns the declared mime type, or an empty string for a bare payload.
func (d ImageData) MIMEType() string {
	s := string(d)
	if !strings.HasPrefix(s, "data:") {
		return ""
	}
	header, _, found := strings.Cut(s[len("data:"):], ",")
	if !found {
		return ""
	}
	mime, _, _ := strings.Cut(header, ";")
	return mime
}

// MIMETypeOr returns MIMEType or fallback when none is declared.
func (d ImageData) MIMETypeOr(fallback string) string {
	if m := d.MIMEType(); m != "" {
		return m
	}
	return fallback
}

// Payload strips the data URI header if present.
func (d ImageData) Payload() string {
	s := string(d)
	if _, after, found := strings.Cut(s, ","); found && strings.HasPrefix(s, "data:") {
		return after
	}
	return s
}

func (d ImageData) Bytes() ([]byte, error) {
	if d.IsZero() {
		return nil, ErrMalformedImage
	}
	raw, err := base64.StdEncoding.DecodeString(d.Payload())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if len(raw) == 0 {
		return nil, ErrMalformedImage
	}
	return raw, nil
}

// ValidateDataURI is registered as the "datauri" validation tag.
func ValidateDataURI(fl validator.FieldLevel) bool {
	d := ImageData(fl.Field().String())
	return strings.HasPrefix(d.MIMEType(), "image/")
}
