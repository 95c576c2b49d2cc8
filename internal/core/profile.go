package core

import (
	"fmt"
	"strings"
)

// Profile field names as stored under users/{userId}.
const (
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldEmail        = "email"
	FieldProfileImage = "profileImage"
)

type (
	// UserProfile is the account owner's displayable identity.
	UserProfile struct {
		ID           string
		FirstName    string
		LastName     string
		Email        string
		ProfileImage string // optional URI
	}

	// ProfileCandidate is unvalidated profile edit input.
	ProfileCandidate struct {
		FirstName    string
		LastName     string
		Email        string
		ProfileImage string
	}
)

// DisplayName joins first and last name.
func (p UserProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ValidateProfile checks a profile edit for the given user.
func ValidateProfile(userID string, c ProfileCandidate) (UserProfile, error) {
	p := UserProfile{
		ID:           userID,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		Email:        strings.TrimSpace(c.Email),
		ProfileImage: strings.TrimSpace(c.ProfileImage),
	}
	switch {
	case p.FirstName == "":
		return UserProfile{}, missing(FieldFirstName)
	case p.LastName == "":
		return UserProfile{}, missing(FieldLastName)
	case p.Email == "":
		return UserProfile{}, missing(FieldEmail)
	}
	if at := strings.Index(p.Email, "@"); at <= 0 || at == len(p.Email)-1 || strings.Count(p.Email, "@") != 1 {
		return UserProfile{}, fmt.Errorf("%w: %q", ErrInvalidEmail, p.Email)
	}
	return p, nil
}

// EncodeProfile renders the stored field set for a profile.
func EncodeProfile(p UserProfile) map[string]string {
	return map[string]string{
		FieldFirstName:    p.FirstName,
		FieldLastName:     p.LastName,
		FieldEmail:        p.Email,
		FieldProfileImage: p.ProfileImage,
	}
}

// DecodeProfile builds a profile from stored fields. Missing fields stay empty.
func DecodeProfile(id string, fields map[string]string) UserProfile {
	return UserProfile{
		ID:           id,
		FirstName:    fields[FieldFirstName],
		LastName:     fields[FieldLastName],
		Email:        fields[FieldEmail],
		ProfileImage: fields[FieldProfileImage],
	}
}
