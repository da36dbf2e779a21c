package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/relaysocial/orchestrator/ent"
	"github.com/relaysocial/orchestrator/ent/profile"
	"github.com/relaysocial/orchestrator/pkg/database"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

var reservedHandles = map[string]bool{
	"admin": true, "root": true, "system": true, "api": true, "orchestrator": true,
}

// ProfileService manages onboarding and mutation of the one Profile per
// real user.
type ProfileService struct {
	client *ent.Client
}

// NewProfileService builds a ProfileService.
func NewProfileService(db *database.Client) *ProfileService {
	return &ProfileService{client: db.Client}
}

// CreateProfileRequest is the input to CreateProfile.
type CreateProfileRequest struct {
	Handle      string
	DisplayName string
	Bio         string
}

// CreateProfile onboards a new user profile. Handle uniqueness and format
// are validated here; the database's unique index is the final guard
// against a race between two concurrent signups with the same handle.
func (s *ProfileService) CreateProfile(ctx context.Context, req CreateProfileRequest) (*ent.Profile, error) {
	if !handlePattern.MatchString(req.Handle) {
		return nil, NewValidationError("handle", "must be 3-20 chars of [a-z0-9_]")
	}
	if reservedHandles[req.Handle] {
		return nil, NewValidationError("handle", "reserved")
	}
	if req.DisplayName == "" {
		return nil, NewValidationError("display_name", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := s.client.Profile.Create().
		SetID(uuid.NewString()).
		SetHandle(req.Handle).
		SetDisplayName(req.DisplayName).
		SetBio(req.Bio).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("services: create profile: %w", err)
	}

	return p, nil
}

// GetProfile loads a profile by ID.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*ent.Profile, error) {
	p, err := s.client.Profile.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get profile: %w", err)
	}
	return p, nil
}

// GetProfileByHandle loads a profile by its unique handle.
func (s *ProfileService) GetProfileByHandle(ctx context.Context, handle string) (*ent.Profile, error) {
	p, err := s.client.Profile.Query().Where(profile.HandleEQ(handle)).Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: get profile by handle: %w", err)
	}
	return p, nil
}

// UpdateProfileRequest is the input to UpdateProfile. Empty fields are left
// unchanged; AvatarURL uses a pointer so it can be explicitly cleared.
type UpdateProfileRequest struct {
	DisplayName string
	Bio         *string
	AvatarURL   *string
}

// UpdateProfile applies an owner-initiated edit to a profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*ent.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := s.client.Profile.UpdateOneID(id)
	if req.DisplayName != "" {
		update = update.SetDisplayName(req.DisplayName)
	}
	if req.Bio != nil {
		update = update.SetBio(*req.Bio)
	}
	if req.AvatarURL != nil {
		if *req.AvatarURL == "" {
			update = update.ClearAvatarURL()
		} else {
			update = update.SetAvatarURL(*req.AvatarURL)
		}
	}

	p, err := update.Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("services: update profile: %w", err)
	}
	return p, nil
}
