package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

// ProfileHandler serves guardian and professional profile endpoints.
type ProfileHandler struct {
	profiles repositories.ProfileRepository
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profiles repositories.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile returns the viewer's own profile for their resolved role.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor := actorFromContext(c)

	switch actor.Role {
	case models.RoleGuardian:
		profile, err := h.profiles.GetGuardian(c.Request.Context(), actor.UserID)
		if err != nil {
			profileError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	case models.RoleProfessional:
		profile, err := h.profiles.GetProfessional(c.Request.Context(), actor.UserID)
		if err != nil {
			profileError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "no profile"})
	}
}

// UpdateProfile updates the viewer's profile for their resolved role.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	actor := actorFromContext(c)

	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
		AvatarURL   string `json:"avatar_url"`
		Specialty   string `json:"specialty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch actor.Role {
	case models.RoleGuardian:
		profile, err := h.profiles.UpsertGuardian(c.Request.Context(), models.GuardianProfile{
			UserID:      actor.UserID,
			DisplayName: req.DisplayName,
			AvatarURL:   req.AvatarURL,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
			return
		}
		c.JSON(http.StatusOK, profile)
	case models.RoleProfessional:
		profile, err := h.profiles.UpsertProfessional(c.Request.Context(), models.ProfessionalProfile{
			UserID:      actor.UserID,
			DisplayName: req.DisplayName,
			AvatarURL:   req.AvatarURL,
			Specialty:   req.Specialty,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
			return
		}
		c.JSON(http.StatusOK, profile)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "no role resolved"})
	}
}

// GetProfessional returns a professional's public profile.
func (h *ProfileHandler) GetProfessional(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	profile, err := h.profiles.GetProfessional(c.Request.Context(), userID)
	if err != nil {
		profileError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func profileError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
}
