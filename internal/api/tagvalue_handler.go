package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrack/internal/database"
)

// TagValueHandler 负责用户自定义标签值（链接/文本）的 CRUD。
type TagValueHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewTagValueHandler 构造 TagValueHandler。
func NewTagValueHandler(db *gorm.DB, logger *slog.Logger) *TagValueHandler {
	return &TagValueHandler{db: db, logger: logger}
}

type tagValueRequest struct {
	Tag   string `json:"tag" binding:"required,max=128"`
	Value string `json:"value" binding:"required,max=2048"`
	Type  string `json:"type" binding:"required,oneof=link text"`
}

type tagValueResponse struct {
	ID        uint      `json:"id"`
	Tag       string    `json:"tag"`
	Value     string    `json:"value"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTagValueResponse(tv database.TagValue) tagValueResponse {
	return tagValueResponse{
		ID:        tv.ID,
		Tag:       tv.Tag,
		Value:     tv.Value,
		Type:      tv.Type,
		CreatedAt: tv.CreatedAt,
		UpdatedAt: tv.UpdatedAt,
	}
}

// ListTagValues 列出当前用户的全部标签值，按创建时间排序。
func (h *TagValueHandler) ListTagValues(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var tagValues []database.TagValue
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&tagValues).Error; err != nil {
		loggerFromContext(c, h.logger).Error("list tag values failed", slog.Any("error", err))
		Internal(c, "failed to list tag values")
		return
	}

	items := make([]tagValueResponse, 0, len(tagValues))
	for _, tv := range tagValues {
		items = append(items, newTagValueResponse(tv))
	}

	c.JSON(http.StatusOK, gin.H{"tag_values": items})
}

// CreateTagValue 新增标签值，标签名按用户唯一。
func (h *TagValueHandler) CreateTagValue(c *gin.Context) {
	var req tagValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	tagValue := database.TagValue{
		UserID: userID,
		Tag:    strings.TrimSpace(req.Tag),
		Value:  strings.TrimSpace(req.Value),
		Type:   req.Type,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&tagValue).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "tag already exists for this user")
			return
		}
		loggerFromContext(c, h.logger).Error("create tag value failed", slog.Any("error", err))
		Internal(c, "failed to create tag value")
		return
	}

	c.JSON(http.StatusCreated, newTagValueResponse(tagValue))
}

// UpdateTagValue 修改标签值。
func (h *TagValueHandler) UpdateTagValue(c *gin.Context) {
	var req tagValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	tagValueID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid tag value id")
		return
	}

	ctx := c.Request.Context()
	var tagValue database.TagValue
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(tagValueID), userID).
		First(&tagValue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "tag value not found")
			return
		}
		loggerFromContext(c, h.logger).Error("tag value lookup failed", slog.Any("error", err))
		Internal(c, "failed to update tag value")
		return
	}

	if err := h.db.WithContext(ctx).Model(&tagValue).Updates(map[string]any{
		"tag":   strings.TrimSpace(req.Tag),
		"value": strings.TrimSpace(req.Value),
		"type":  req.Type,
	}).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "tag already exists for this user")
			return
		}
		loggerFromContext(c, h.logger).Error("update tag value failed", slog.Any("error", err))
		Internal(c, "failed to update tag value")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tag_value": newTagValueResponse(tagValue)})
}

// DeleteTagValue 删除标签值。
func (h *TagValueHandler) DeleteTagValue(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	tagValueID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid tag value id")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uint(tagValueID), userID).
		Delete(&database.TagValue{})
	if result.Error != nil {
		loggerFromContext(c, h.logger).Error("delete tag value failed", slog.Any("error", result.Error))
		Internal(c, "failed to delete tag value")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "tag value not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tag value deleted"})
}
