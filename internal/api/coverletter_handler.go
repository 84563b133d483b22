package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"jobtrack/internal/database"
)

// objectStorage 抽象求职信文件所需的对象存储操作，便于测试替换。
type objectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// CoverLetterHandler 负责求职信的上传、下载链接与删除。
// 文件先过 clamd 扫描再入对象存储，数据库只存对象键。
type CoverLetterHandler struct {
	db        *gorm.DB
	Storage   objectStorage
	Logger    *slog.Logger
	ClamdAddr string
	MaxBytes  int64
}

// NewCoverLetterHandler 构造 CoverLetterHandler。
func NewCoverLetterHandler(db *gorm.DB, storageClient objectStorage, logger *slog.Logger, clamdAddr string, maxBytes int64) *CoverLetterHandler {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &CoverLetterHandler{
		db:        db,
		Storage:   storageClient,
		Logger:    logger,
		ClamdAddr: clamdAddr,
		MaxBytes:  maxBytes,
	}
}

type coverLetterResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func newCoverLetterResponse(letter database.CoverLetter) coverLetterResponse {
	return coverLetterResponse{
		ID:        letter.ID,
		Name:      letter.Name,
		Size:      letter.Size,
		CreatedAt: letter.CreatedAt,
	}
}

// ListCoverLetters 列出当前用户的求职信，最新在前。
func (h *CoverLetterHandler) ListCoverLetters(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var letters []database.CoverLetter
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&letters).Error; err != nil {
		loggerFromContext(c, h.Logger).Error("list cover letters failed", slog.Any("error", err))
		Internal(c, "failed to list cover letters")
		return
	}

	items := make([]coverLetterResponse, 0, len(letters))
	for _, letter := range letters {
		items = append(items, newCoverLetterResponse(letter))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":         len(items),
		"cover_letters": items,
	})
}

var unsafeAliasChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// UploadCoverLetter 处理求职信上传：大小限制、病毒扫描、对象存储与落库。
func (h *CoverLetterHandler) UploadCoverLetter(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		BadRequest(c, "cover letter name is required")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > h.MaxBytes {
		BadRequest(c, fmt.Sprintf("file exceeds %d bytes", h.MaxBytes))
		return
	}

	logger := loggerFromContext(c, h.Logger).With(slog.Uint64("user_id", uint64(userID)))

	if h.ClamdAddr != "" {
		clean, err := h.scanUpload(file)
		if err != nil {
			logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".pdf"
	}
	alias := unsafeAliasChars.ReplaceAllString(name, "_")
	objectKey := fmt.Sprintf("cover-letters/%d/%s-%s%s", userID, alias, uuid.NewString(), ext)

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	if _, err := h.Storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		logger.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	letter := database.CoverLetter{
		UserID:    userID,
		Name:      name,
		ObjectKey: objectKey,
		Size:      file.Size,
	}
	if err := h.db.WithContext(ctx).Create(&letter).Error; err != nil {
		// 落库失败时清掉已上传的对象，避免悬挂文件。
		_ = h.Storage.DeleteObject(ctx, objectKey)
		logger.Error("create cover letter failed", slog.Any("error", err))
		Internal(c, "failed to save cover letter")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cover_letter": newCoverLetterResponse(letter)})
}

func (h *CoverLetterHandler) scanUpload(file *multipart.FileHeader) (bool, error) {
	clamdClient := clamd.NewClamd(h.ClamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

// GetDownloadLink 生成求职信的限时预签名下载链接。
func (h *CoverLetterHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	letterID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid cover letter id")
		return
	}

	ctx := c.Request.Context()
	var letter database.CoverLetter
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(letterID), userID).
		First(&letter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "cover letter not found")
			return
		}
		loggerFromContext(c, h.Logger).Error("cover letter lookup failed", slog.Any("error", err))
		Internal(c, "failed to query cover letter")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(ctx, letter.ObjectKey, 5*time.Minute)
	if err != nil {
		loggerFromContext(c, h.Logger).Error("generate presigned url", slog.String("error", err.Error()))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// DeleteCoverLetter 删除求职信记录及其存储对象。
func (h *CoverLetterHandler) DeleteCoverLetter(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	letterID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid cover letter id")
		return
	}

	ctx := c.Request.Context()
	var letter database.CoverLetter
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(letterID), userID).
		First(&letter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "cover letter not found")
			return
		}
		loggerFromContext(c, h.Logger).Error("cover letter lookup failed", slog.Any("error", err))
		Internal(c, "failed to query cover letter")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&letter).Error; err != nil {
		loggerFromContext(c, h.Logger).Error("delete cover letter failed", slog.Any("error", err))
		Internal(c, "failed to delete cover letter")
		return
	}

	// 对象删除失败只记日志，记录已移除即视为成功（对象删除幂等可重试）。
	if err := h.Storage.DeleteObject(ctx, letter.ObjectKey); err != nil {
		loggerFromContext(c, h.Logger).Error("delete cover letter object failed",
			slog.String("objectKey", letter.ObjectKey),
			slog.Any("error", err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"message": "cover letter deleted"})
}
