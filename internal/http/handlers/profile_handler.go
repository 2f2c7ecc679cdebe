// User profile HTTP handlers.
//
// This file exposes REST endpoints for the authenticated user's profile:
//   - GET   /me                        (current profile and credit balance)
//   - PATCH /update_profile           (partial update)
//   - GET   /check_email_availability (email ownership check)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashslides/go-credits-backend/internal/services"
)

//
// DTOs
//

// UpdateProfileResponse reports the outcome of a profile update.
type UpdateProfileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty" example:"User profile updated successfully."`
}

// CheckEmailAvailabilityResponse reports whether an email can be claimed.
type CheckEmailAvailabilityResponse struct {
	IsAvailable bool   `json:"is_available"`
	Message     string `json:"message,omitempty" example:"Email is available"`
}

// MeResponse is the authenticated user's profile view. The password hash and
// other internal columns never leave the service.
type MeResponse struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	ProfileImageURL *string        `json:"profile_image_url,omitempty"`
	CreditsBalance  int64          `json:"credits_balance"`
	Preferences     map[string]any `json:"preferences,omitempty"`
}

//
// Handlers
//

// Me godoc
// @ID          getMe
// @Summary     Get the current user's profile
// @Description Returns the authenticated user's profile and credit balance.
// @Tags        User Profile
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.MeResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	u, err := h.profileSvc.Get(c.Request.Context(), uid)
	if errors.Is(err, services.ErrUserNotFound) {
		fail(c, http.StatusNotFound, ErrCodeUserNotFound, "no user found with the provided ID")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load profile")
		return
	}

	ok(c, http.StatusOK, MeResponse{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		CreditsBalance:  u.CreditsBalance,
		Preferences:     u.Preferences,
	})
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the current user's profile
// @Description Partial update of name, avatar, and company. Company is merged into the preferences JSON.
// @Tags        User Profile
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  services.ProfileUpdate  true  "Fields to update (omitted fields are left as is)"
//
// @Success     200  {object}  handlers.UpdateProfileResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or invalid update"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /update_profile [patch]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var upd services.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	err := h.profileSvc.Update(c.Request.Context(), uid, upd)
	switch {
	case errors.Is(err, services.ErrEmptyUpdate):
		fail(c, http.StatusBadRequest, ErrCodeEmptyUpdate, "no data provided for update")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeUserNotFound, "no user found with the provided ID")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to update user profile")
	default:
		ok(c, http.StatusOK, UpdateProfileResponse{
			Success: true,
			Message: "User profile updated successfully.",
		})
	}
}

// CheckEmailAvailability godoc
// @ID          checkEmailAvailability
// @Summary     Check email availability
// @Description Reports whether an email is free to use. The caller's own address counts as available.
// @Tags        User Profile
// @Produce     json
// @Security    BearerAuth
//
// @Param       email  query  string  true  "Email address to check"
//
// @Success     200  {object}  handlers.CheckEmailAvailabilityResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing email parameter"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /check_email_availability [get]
func (h *Handlers) CheckEmailAvailability(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email query parameter is required")
		return
	}

	available, err := h.profileSvc.CheckEmailAvailability(c.Request.Context(), uid, email)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to check email availability")
		return
	}

	msg := "Email is available"
	if !available {
		msg = "Email is already taken"
	}
	ok(c, http.StatusOK, CheckEmailAvailabilityResponse{IsAvailable: available, Message: msg})
}
