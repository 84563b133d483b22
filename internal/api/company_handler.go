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

// CompanyHandler 负责公司记录的 CRUD。
// 种子公司（无归属用户）全员可见但只读，私有公司名称按用户唯一。
type CompanyHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCompanyHandler 构造 CompanyHandler。
func NewCompanyHandler(db *gorm.DB, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{db: db, logger: logger}
}

type companyResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Website     string    `json:"website,omitempty"`
	Location    string    `json:"location,omitempty"`
	IsUserAdded bool      `json:"is_user_added"`
	CreatedAt   time.Time `json:"created_at"`
}

func newCompanyResponse(company database.Company, userID uint) companyResponse {
	return companyResponse{
		ID:          company.ID,
		Name:        company.Name,
		Website:     company.Website,
		Location:    company.Location,
		IsUserAdded: company.UserID != nil && *company.UserID == userID,
		CreatedAt:   company.CreatedAt,
	}
}

// ListCompanies 列出共享公司与当前用户的私有公司，按名称排序。
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var companies []database.Company
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id IS NULL OR user_id = ?", userID).
		Order("name ASC").
		Find(&companies).Error; err != nil {
		loggerFromContext(c, h.logger).Error("list companies failed", slog.Any("error", err))
		Internal(c, "failed to list companies")
		return
	}

	items := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		items = append(items, newCompanyResponse(company, userID))
	}

	c.JSON(http.StatusOK, gin.H{"companies": items})
}

type companyRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Website  string `json:"website" binding:"max=512"`
	Location string `json:"location" binding:"max=255"`
}

// CreateCompany 新增用户私有公司，名称在该用户范围内唯一。
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	var req companyRequest
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

	var existing database.Company
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&existing).Error
	if err == nil {
		Conflict(c, "you have already added this company")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		loggerFromContext(c, h.logger).Error("company lookup failed", slog.Any("error", err))
		Internal(c, "failed to create company")
		return
	}

	company := database.Company{
		Name:     name,
		Website:  strings.TrimSpace(req.Website),
		Location: strings.TrimSpace(req.Location),
		UserID:   &userID,
	}
	if err := h.db.WithContext(ctx).Create(&company).Error; err != nil {
		// 并发写入可能先于查重命中唯一索引。
		if isUniqueViolation(err) {
			Conflict(c, "you have already added this company")
			return
		}
		loggerFromContext(c, h.logger).Error("create company failed", slog.Any("error", err))
		Internal(c, "failed to create company")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"company": newCompanyResponse(company, userID)})
}

// UpdateCompany 修改用户私有公司，种子公司不可修改。
func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	companyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid company id")
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSpace(req.Name)

	var company database.Company
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(companyID), userID).
		First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "company not found or not owned by you")
			return
		}
		loggerFromContext(c, h.logger).Error("company lookup failed", slog.Any("error", err))
		Internal(c, "failed to update company")
		return
	}

	var duplicate database.Company
	err = h.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND id != ?", userID, name, company.ID).
		First(&duplicate).Error
	if err == nil {
		Conflict(c, "you already have a company with this name")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		loggerFromContext(c, h.logger).Error("company duplicate check failed", slog.Any("error", err))
		Internal(c, "failed to update company")
		return
	}

	if err := h.db.WithContext(ctx).Model(&company).Updates(map[string]any{
		"name":     name,
		"website":  strings.TrimSpace(req.Website),
		"location": strings.TrimSpace(req.Location),
	}).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "you already have a company with this name")
			return
		}
		loggerFromContext(c, h.logger).Error("update company failed", slog.Any("error", err))
		Internal(c, "failed to update company")
		return
	}

	c.JSON(http.StatusOK, gin.H{"company": newCompanyResponse(company, userID)})
}

// DeleteCompany 删除用户私有公司，种子公司不可删除。
func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	companyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid company id")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uint(companyID), userID).
		Delete(&database.Company{})
	if result.Error != nil {
		loggerFromContext(c, h.logger).Error("delete company failed", slog.Any("error", result.Error))
		Internal(c, "failed to delete company")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "company not found or not owned by you")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "company removed"})
}
