package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrack/internal/database"
)

// JobBoardHandler 负责招聘平台记录的 CRUD，所有权语义与 CompanyHandler 相同。
type JobBoardHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewJobBoardHandler 构造 JobBoardHandler。
func NewJobBoardHandler(db *gorm.DB, logger *slog.Logger) *JobBoardHandler {
	return &JobBoardHandler{db: db, logger: logger}
}

type jobBoardResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	IsUserAdded bool   `json:"is_user_added"`
}

func newJobBoardResponse(board database.JobBoard, userID uint) jobBoardResponse {
	return jobBoardResponse{
		ID:          board.ID,
		Name:        board.Name,
		URL:         board.URL,
		IsUserAdded: board.UserID != nil && *board.UserID == userID,
	}
}

// ListJobBoards 列出种子平台与当前用户的私有平台，按名称排序。
func (h *JobBoardHandler) ListJobBoards(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var boards []database.JobBoard
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id IS NULL OR user_id = ?", userID).
		Order("name ASC").
		Find(&boards).Error; err != nil {
		loggerFromContext(c, h.logger).Error("list job boards failed", slog.Any("error", err))
		Internal(c, "failed to list job boards")
		return
	}

	items := make([]jobBoardResponse, 0, len(boards))
	for _, board := range boards {
		items = append(items, newJobBoardResponse(board, userID))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(items),
		"job_boards": items,
	})
}

type jobBoardRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	URL  string `json:"url" binding:"max=512"`
}

// CreateJobBoard 新增用户私有平台，名称在该用户范围内唯一。
func (h *JobBoardHandler) CreateJobBoard(c *gin.Context) {
	var req jobBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSpace(req.Name)

	var existing database.JobBoard
	err := h.db.WithContext(ctx).
		Where("(user_id IS NULL OR user_id = ?) AND name = ?", userID, name).
		First(&existing).Error
	if err == nil {
		Conflict(c, "job board already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		loggerFromContext(c, h.logger).Error("job board lookup failed", slog.Any("error", err))
		Internal(c, "failed to create job board")
		return
	}

	board := database.JobBoard{
		Name:   name,
		URL:    strings.TrimSpace(req.URL),
		UserID: &userID,
	}
	if err := h.db.WithContext(ctx).Create(&board).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "job board already exists")
			return
		}
		loggerFromContext(c, h.logger).Error("create job board failed", slog.Any("error", err))
		Internal(c, "failed to create job board")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"job_board": newJobBoardResponse(board, userID)})
}

// UpdateJobBoard 修改用户私有平台，种子平台不可修改。
func (h *JobBoardHandler) UpdateJobBoard(c *gin.Context) {
	var req jobBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	boardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job board id")
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSpace(req.Name)

	var board database.JobBoard
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(boardID), userID).
		First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job board not found or not owned by you")
			return
		}
		loggerFromContext(c, h.logger).Error("job board lookup failed", slog.Any("error", err))
		Internal(c, "failed to update job board")
		return
	}

	var duplicate database.JobBoard
	err = h.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND id != ?", userID, name, board.ID).
		First(&duplicate).Error
	if err == nil {
		Conflict(c, "you already have a job board with this name")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		loggerFromContext(c, h.logger).Error("job board duplicate check failed", slog.Any("error", err))
		Internal(c, "failed to update job board")
		return
	}

	if err := h.db.WithContext(ctx).Model(&board).Updates(map[string]any{
		"name": name,
		"url":  strings.TrimSpace(req.URL),
	}).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "you already have a job board with this name")
			return
		}
		loggerFromContext(c, h.logger).Error("update job board failed", slog.Any("error", err))
		Internal(c, "failed to update job board")
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_board": newJobBoardResponse(board, userID)})
}

// DeleteJobBoard 删除用户私有平台，种子平台不可删除。
func (h *JobBoardHandler) DeleteJobBoard(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	boardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job board id")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uint(boardID), userID).
		Delete(&database.JobBoard{})
	if result.Error != nil {
		loggerFromContext(c, h.logger).Error("delete job board failed", slog.Any("error", result.Error))
		Internal(c, "failed to delete job board")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "job board not found or not owned by you")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job board removed"})
}
