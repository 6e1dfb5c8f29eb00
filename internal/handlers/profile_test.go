package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/mocks"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

func setupProfileRouter(handler *ProfileHandler, userID int64, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", string(role))
		c.Next()
	})
	r.GET("/me/profile", handler.GetProfile)
	r.PUT("/me/profile", handler.UpdateProfile)
	r.GET("/professionals/:user_id", handler.GetProfessional)
	return r
}

func TestGetProfileGuardian(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(NewProfileHandler(profiles), 1, models.RoleGuardian)

	profiles.On("GetGuardian", mock.Anything, int64(1)).Return(models.GuardianProfile{UserID: 1, DisplayName: "Ana"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/me/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.GuardianProfile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, "Ana", profile.DisplayName)
}

func TestGetProfileNoRole(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(NewProfileHandler(profiles), 1, models.RoleNone)

	req := httptest.NewRequest(http.MethodGet, "/me/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfileProfessional(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(NewProfileHandler(profiles), 2, models.RoleProfessional)

	profiles.On("UpsertProfessional", mock.Anything, models.ProfessionalProfile{
		UserID:      2,
		DisplayName: "Dr. Field",
		Specialty:   "behaviour",
	}).Return(models.ProfessionalProfile{UserID: 2, DisplayName: "Dr. Field", Specialty: "behaviour"}, nil).Once()

	body := bytes.NewBufferString(`{"display_name":"Dr. Field","specialty":"behaviour"}`)
	req := httptest.NewRequest(http.MethodPut, "/me/profile", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	profiles.AssertExpectations(t)
}

func TestGetProfessionalNotFound(t *testing.T) {
	profiles := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(NewProfileHandler(profiles), 1, models.RoleGuardian)

	profiles.On("GetProfessional", mock.Anything, int64(9)).Return(models.ProfessionalProfile{}, repositories.ErrProfileNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/professionals/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
