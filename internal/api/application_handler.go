package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrack/internal/database"
	"jobtrack/internal/status"
)

// ApplicationHandler 负责投递记录的增删查与状态转移。
type ApplicationHandler struct {
	db        *gorm.DB
	statusSvc *status.Service
	logger    *slog.Logger
}

// NewApplicationHandler 构造 ApplicationHandler。
func NewApplicationHandler(db *gorm.DB, statusSvc *status.Service, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		db:        db,
		statusSvc: statusSvc,
		logger:    logger,
	}
}

var errInvalidApplicationID = errors.New("invalid application id")

type createApplicationRequest struct {
	CompanyID    *uint  `json:"company_id"`
	CompanyName  string `json:"company_name"`
	JobBoardID   *uint  `json:"job_board_id"`
	JobBoardName string `json:"job_board_name"`
	JobTitle     string `json:"job_title" binding:"required,max=255"`
}

type applicationListItem struct {
	ID           uint      `json:"id"`
	CompanyID    *uint     `json:"company_id,omitempty"`
	CompanyName  string    `json:"company_name"`
	JobBoardID   uint      `json:"job_board_id"`
	JobBoardName string    `json:"job_board_name"`
	JobTitle     string    `json:"job_title"`
	Status       string    `json:"status"`
	AppliedAt    time.Time `json:"applied_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ListApplications 返回当前用户的全部投递记录，按投递时间倒序。
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var items []applicationListItem
	err := h.db.WithContext(ctx).
		Model(&database.Application{}).
		Select(`applications.id,
			applications.company_id,
			COALESCE(companies.name, applications.custom_company_name) AS company_name,
			applications.job_board_id,
			job_boards.name AS job_board_name,
			applications.job_title,
			applications.status,
			applications.applied_at,
			applications.last_updated`).
		Joins("LEFT JOIN companies ON companies.id = applications.company_id").
		Joins("JOIN job_boards ON job_boards.id = applications.job_board_id").
		Where("applications.user_id = ?", userID).
		Order("applications.applied_at DESC").
		Scan(&items).Error
	if err != nil {
		loggerFromContext(c, h.logger).Error("list applications failed", slog.Any("error", err))
		Internal(c, "failed to list applications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": items})
}

// CreateApplication 创建投递记录。
// 公司与招聘平台可引用已有记录，也可传名称由服务端补建用户私有记录；
// 新记录总是以 applied 状态诞生，并在同一事务内写入首条历史事件。
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if req.CompanyID == nil && strings.TrimSpace(req.CompanyName) == "" {
		BadRequest(c, "you must provide a company")
		return
	}
	if req.JobBoardID == nil && strings.TrimSpace(req.JobBoardName) == "" {
		BadRequest(c, "you must provide a job board")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	var app database.Application
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyID, customName, err := h.resolveCompany(ctx, tx, userID, req)
		if err != nil {
			return err
		}
		jobBoardID, err := h.resolveJobBoard(ctx, tx, userID, req)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		app = database.Application{
			UserID:            userID,
			CompanyID:         companyID,
			CustomCompanyName: customName,
			JobBoardID:        jobBoardID,
			JobTitle:          strings.TrimSpace(req.JobTitle),
			Status:            status.Applied,
			AppliedAt:         now,
			LastUpdated:       now,
		}
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		return status.RecordInitial(tx, &app)
	})
	if err != nil {
		var notVisible *referenceError
		if errors.As(err, &notVisible) {
			BadRequest(c, notVisible.Error())
			return
		}
		logger.Error("create application failed", slog.Any("error", err))
		Internal(c, "failed to create application")
		return
	}

	logger.Info("application created",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.String("status", app.Status),
	)
	c.JSON(http.StatusCreated, gin.H{"application_id": app.ID})
}

// referenceError 表示请求引用了不存在或不可见的公司/平台。
type referenceError struct {
	msg string
}

func (e *referenceError) Error() string { return e.msg }

func (h *ApplicationHandler) resolveCompany(ctx context.Context, tx *gorm.DB, userID uint, req createApplicationRequest) (*uint, string, error) {
	if req.CompanyID != nil {
		var company database.Company
		if err := tx.WithContext(ctx).
			Where("id = ? AND (user_id IS NULL OR user_id = ?)", *req.CompanyID, userID).
			First(&company).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", &referenceError{msg: "company not found"}
			}
			return nil, "", err
		}
		return &company.ID, "", nil
	}

	name := strings.TrimSpace(req.CompanyName)
	var company database.Company
	err := tx.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&company).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		company = database.Company{Name: name, UserID: &userID}
		if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
			return nil, "", err
		}
	default:
		return nil, "", err
	}
	// 已有公司记录时不再保留自由文本名，二者互斥。
	return &company.ID, "", nil
}

func (h *ApplicationHandler) resolveJobBoard(ctx context.Context, tx *gorm.DB, userID uint, req createApplicationRequest) (uint, error) {
	if req.JobBoardID != nil {
		var board database.JobBoard
		if err := tx.WithContext(ctx).
			Where("id = ? AND (user_id IS NULL OR user_id = ?)", *req.JobBoardID, userID).
			First(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, &referenceError{msg: "job board not found"}
			}
			return 0, err
		}
		return board.ID, nil
	}

	name := strings.TrimSpace(req.JobBoardName)
	var board database.JobBoard
	err := tx.WithContext(ctx).
		Where("(user_id IS NULL OR user_id = ?) AND name = ?", userID, name).
		First(&board).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		board = database.JobBoard{Name: name, UserID: &userID}
		if err := tx.WithContext(ctx).Create(&board).Error; err != nil {
			return 0, err
		}
	default:
		return 0, err
	}
	return board.ID, nil
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=1024"`
}

// UpdateStatus 处理状态转移请求，所有校验与原子性由状态服务保证。
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	applicationID, err := parseApplicationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid application id")
		return
	}

	logger := loggerFromContext(c, h.logger).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("application_id", uint64(applicationID)),
	)

	event, err := h.statusSvc.Transition(c.Request.Context(), userID, applicationID, req.Status, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrInvalidStatus):
			BadRequest(c, "invalid status, must be one of: "+strings.Join(status.All(), ", "))
		case errors.Is(err, status.ErrNotFound):
			NotFound(c, "application not found")
		default:
			logger.Error("status transition failed", slog.Any("error", err))
			Internal(c, "failed to update status")
		}
		return
	}

	logger.Info("status updated", slog.String("status", event.Status))
	c.JSON(http.StatusOK, gin.H{
		"message":      "status updated",
		"status":       event.Status,
		"last_updated": event.CreatedAt,
	})
}

type statusEventResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetHistory 返回投递记录的状态历史，最新在前。
func (h *ApplicationHandler) GetHistory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	applicationID, err := parseApplicationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid application id")
		return
	}

	events, err := h.statusSvc.History(c.Request.Context(), userID, applicationID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			NotFound(c, "application not found")
			return
		}
		loggerFromContext(c, h.logger).Error("query history failed", slog.Any("error", err))
		Internal(c, "failed to query history")
		return
	}

	items := make([]statusEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, statusEventResponse{
			Status:    e.Status,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": items})
}

// DeleteApplication 软删除投递记录，状态历史保留可查。
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	applicationID, err := parseApplicationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid application id")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", applicationID, userID).
		Delete(&database.Application{})
	if result.Error != nil {
		loggerFromContext(c, h.logger).Error("delete application failed", slog.Any("error", result.Error))
		Internal(c, "failed to delete application")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "application not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "application deleted"})
}

func parseApplicationID(idParam string) (uint, error) {
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidApplicationID
	}
	return uint(id), nil
}
