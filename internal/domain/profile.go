// Package domain holds the records stored in the tree and the fixed values
// the application agrees on.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

const (
	GenderMale   = "Homme"
	GenderFemale = "Femme"

	SeekingMen   = "Hommes"
	SeekingWomen = "Femmes"
	SeekingAll   = "Tous"

	// AllCountries is the country filter that matches every country.
	AllCountries = "Tous"

	DefaultInterest = "Général"
	DefaultReligion = "Non spécifié"

	MinAge = 18
	MaxAge = 99
)

// Settings are the privacy switches of a profile.
type Settings struct {
	IsPublic      bool `json:"isPublic"`
	IncognitoMode bool `json:"incognitoMode"`
	Notifications bool `json:"notifications"`
}

// DefaultSettings is what an absent settings record means.
func DefaultSettings() Settings {
	return Settings{IsPublic: true, IncognitoMode: false, Notifications: true}
}

// Profile is the public record stored at users/{uid}.
//
// Decoding resolves every default exactly once: a missing settings flag takes
// its DefaultSettings value, a missing isComplete is false, and an age stored
// as a numeric string is accepted.
type Profile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Email      string   `json:"email,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	Seeking    string   `json:"seeking,omitempty"`
	Location   string   `json:"location,omitempty"`
	Country    string   `json:"country,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Interests  []string `json:"interests,omitempty"`
	Interest   string   `json:"interest,omitempty"`
	Goal       string   `json:"goal,omitempty"`
	Religion   string   `json:"religion,omitempty"`
	IsComplete bool     `json:"isComplete"`
	Settings   Settings `json:"settings"`
}

type rawSettings struct {
	IsPublic      *bool `json:"isPublic"`
	IncognitoMode *bool `json:"incognitoMode"`
	Notifications *bool `json:"notifications"`
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	type plain Profile
	aux := struct {
		*plain
		Age      any          `json:"age"`
		Settings *rawSettings `json:"settings"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	age, err := flexInt(aux.Age)
	if err != nil {
		return fmt.Errorf("profile age: %w", err)
	}
	p.Age = age

	p.Settings = DefaultSettings()
	if s := aux.Settings; s != nil {
		if s.IsPublic != nil {
			p.Settings.IsPublic = *s.IsPublic
		}
		if s.IncognitoMode != nil {
			p.Settings.IncognitoMode = *s.IncognitoMode
		}
		if s.Notifications != nil {
			p.Settings.Notifications = *s.Notifications
		}
	}
	return nil
}

func flexInt(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(t), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

// DecodeProfile reads a profile snapshot. The id falls back to the path key.
func DecodeProfile(snap tree.Snapshot) (Profile, error) {
	var p Profile
	if !snap.Exists() {
		return p, fmt.Errorf("profile %s does not exist", snap.Key())
	}
	if err := snap.Unmarshal(&p); err != nil {
		return p, fmt.Errorf("decode profile %s: %w", snap.Key(), err)
	}
	if p.ID == "" {
		p.ID = snap.Key()
	}
	return p, nil
}

// DecodeProfiles reads every child of users/, skipping records that do not decode.
func DecodeProfiles(users tree.Snapshot) []Profile {
	children := users.Children()
	out := make([]Profile, 0, len(children))
	for _, c := range children {
		p, err := DecodeProfile(c)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PrimaryInterest returns the first interest, or DefaultInterest.
func PrimaryInterest(interests []string) string {
	for _, i := range interests {
		if s := strings.TrimSpace(i); s != "" {
			return s
		}
	}
	return DefaultInterest
}

// DisplayName is the name shown to others, with the anonymous fallback.
func (p Profile) DisplayName() string {
	if s := strings.TrimSpace(p.Name); s != "" {
		return s
	}
	return AnonymousName
}
