// Package profile holds the respondent profile recorded alongside every clip.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"clipkeeper/internal/faults"
)

// Key is the persisted location of the profile document.
const Key = "user_meta"

// Gender is the respondent's self-reported gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts the canonical values plus single-letter shortcuts.
func ParseGender(value string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("unknown gender %q (want male or female)", value)
	}
}

// Profile is the respondent metadata snapshot embedded in queue items.
type Profile struct {
	Name   string `json:"name" validate:"required,max=120"`
	Age    string `json:"age" validate:"required,numeric,max=3"`
	Gender Gender `json:"gender" validate:"required,oneof=male female"`
}

var validate = validator.New()

// Validate reports the first missing or malformed field.
func (p Profile) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("profile %s: failed %q check", strings.ToLower(fe.Field()), fe.Tag())
	}
	return err
}

// Persister is the key/value surface the profile store writes through.
type Persister interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store loads and saves the single respondent profile.
type Store struct {
	kv Persister
}

// NewStore wraps a key/value persister.
func NewStore(kv Persister) *Store {
	return &Store{kv: kv}
}

// Load returns the saved profile. ok is false when none has been saved.
func (s *Store) Load(ctx context.Context) (Profile, bool, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return Profile{}, false, faults.Wrap(faults.ErrStorage, "profile", "load", "", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Profile{}, false, nil
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, false, faults.Wrap(faults.ErrStorage, "profile", "decode", "", err)
	}
	return p, true, nil
}

// Save validates and persists p.
func (s *Store) Save(ctx context.Context, p Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Age = strings.TrimSpace(p.Age)
	if err := p.Validate(); err != nil {
		return faults.Wrap(faults.ErrPrecondition, "profile", "save", "", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return faults.Wrap(faults.ErrStorage, "profile", "encode", "", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return faults.Wrap(faults.ErrStorage, "profile", "save", "", err)
	}
	return nil
}

// Reset removes the saved profile.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return faults.Wrap(faults.ErrStorage, "profile", "reset", "", err)
	}
	return nil
}
