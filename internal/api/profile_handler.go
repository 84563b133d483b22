package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"jobtrack/internal/database"
)

// ProfileHandler 返回与更新当前用户的个人资料。
type ProfileHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewProfileHandler 构造 ProfileHandler。
func NewProfileHandler(db *gorm.DB, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{db: db, logger: logger}
}

type profileResponse struct {
	Username    string         `json:"username"`
	FirstName   string         `json:"firstname"`
	LastName    string         `json:"lastname"`
	Email       string         `json:"email,omitempty"`
	Preferences datatypes.JSON `json:"preferences,omitempty"`
}

// GetProfile 返回当前用户的资料与界面偏好。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		loggerFromContext(c, h.logger).Error("load profile failed", slog.Any("error", err))
		Internal(c, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Preferences: user.Preferences,
	})
}

type updatePreferencesRequest struct {
	Preferences datatypes.JSON `json:"preferences" binding:"required"`
}

// UpdatePreferences 整体覆盖用户的界面偏好 JSON。
func (h *ProfileHandler) UpdatePreferences(c *gin.Context) {
	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Model(&database.User{}).
		Where("id = ?", userID).
		Update("preferences", req.Preferences)
	if result.Error != nil {
		loggerFromContext(c, h.logger).Error("update preferences failed", slog.Any("error", result.Error))
		Internal(c, "failed to update preferences")
		return
	}
	if result.RowsAffected == 0 {
		Unauthorized(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "preferences updated"})
}
