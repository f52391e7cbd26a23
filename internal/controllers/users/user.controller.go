package userController

import (
	"context"
	"medwatch/config"
	"medwatch/internal/database"
	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"medwatch/internal/repositories"
	"medwatch/internal/services"
	"strings"
)

type UserController struct {
	userRepo repositories.UserRepository
	db       database.DB
	Config   config.Config
	log      logger.Logger
}

type UserControllerInterface interface {
	GetProfile(ctx context.Context, user *User) (*UserProfile, error)
	UpdateProfile(ctx context.Context, user *User, req UpdateProfileRequest) (*UserProfile, error)
}

type UpdateProfileRequest struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	District    string `json:"district,omitempty"`
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) UserControllerInterface {
	return &UserController{
		userRepo: repos.User,
		db:       db,
		Config:   config,
		log:      logger.New("userController"),
	}
}

func (uc *UserController) GetProfile(ctx context.Context, user *User) (*UserProfile, error) {
	profile := user.ToProfile()
	return &profile, nil
}

// UpdateProfile writes the mutable profile fields. The district field scopes
// which inspections the dashboard shows by default.
func (uc *UserController) UpdateProfile(
	ctx context.Context,
	user *User,
	req UpdateProfileRequest,
) (*UserProfile, error) {
	log := uc.log.Function("UpdateProfile")

	if req.FirstName != "" {
		user.FirstName = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		user.LastName = strings.TrimSpace(req.LastName)
	}
	if req.FirstName != "" || req.LastName != "" {
		user.FullName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	if req.DisplayName != "" {
		user.DisplayName = strings.TrimSpace(req.DisplayName)
	}
	if req.District != "" {
		user.District = strings.TrimSpace(req.District)
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, log.Err("failed to update user profile", err, "userID", user.ID)
	}

	log.Info("user profile updated", "userID", user.ID)

	profile := user.ToProfile()
	return &profile, nil
}
