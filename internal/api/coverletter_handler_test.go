package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"jobtrack/internal/database"
)

type fakeStorage struct {
	uploaded map[string][]byte

	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func newCoverLetterUpload(t *testing.T, name, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("name", name); err != nil {
		t.Fatalf("write name field: %v", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func uploadCoverLetter(t *testing.T, h *CoverLetterHandler, userID uint, name, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := newCoverLetterUpload(t, name, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/v1/cover-letters", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	c := newAuthedContext(w, req, userID)
	h.UploadCoverLetter(c)
	return w
}

func TestUploadCoverLetter_StoresObjectAndRow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewCoverLetterHandler(db, storage, nil, "", 0)

	content := []byte("%PDF-1.4 dear hiring manager")
	w := uploadCoverLetter(t, h, 1, "Backend Roles", "letter.pdf", content)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var letter database.CoverLetter
	if err := db.Where("user_id = ?", uint(1)).First(&letter).Error; err != nil {
		t.Fatalf("load cover letter: %v", err)
	}
	if letter.Name != "Backend Roles" {
		t.Errorf("name = %q", letter.Name)
	}
	if letter.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", letter.Size, len(content))
	}
	if !strings.HasPrefix(letter.ObjectKey, "cover-letters/1/Backend_Roles-") || !strings.HasSuffix(letter.ObjectKey, ".pdf") {
		t.Errorf("unexpected object key %q", letter.ObjectKey)
	}

	stored, ok := storage.uploaded[letter.ObjectKey]
	if !ok {
		t.Fatalf("object %q not uploaded", letter.ObjectKey)
	}
	if !bytes.Equal(stored, content) {
		t.Error("stored object content differs from upload")
	}
}

func TestUploadCoverLetter_RequiresName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCoverLetterHandler(db, newFakeStorage(), nil, "", 0)

	w := uploadCoverLetter(t, h, 1, "  ", "letter.pdf", []byte("content"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUploadCoverLetter_RejectsOversizedFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewCoverLetterHandler(db, storage, nil, "", 16)

	w := uploadCoverLetter(t, h, 1, "Backend Roles", "letter.pdf", bytes.Repeat([]byte("a"), 64))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	if len(storage.uploaded) != 0 {
		t.Error("oversized file reached storage")
	}
}

func TestGetDownloadLink_OwnedOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCoverLetterHandler(db, newFakeStorage(), nil, "", 0)

	letter := database.CoverLetter{UserID: 1, Name: "Backend Roles", ObjectKey: "cover-letters/1/x.pdf", Size: 10}
	if err := db.Create(&letter).Error; err != nil {
		t.Fatalf("seed cover letter: %v", err)
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodGet, "/", nil), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(letter.ID), 10)}}
	h.GetDownloadLink(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.URL != "https://example.invalid/"+letter.ObjectKey {
		t.Errorf("unexpected url %q", body.URL)
	}

	// 他人拿不到下载链接。
	w = httptest.NewRecorder()
	c = newAuthedContext(w, httptest.NewRequest(http.MethodGet, "/", nil), 2)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(letter.ID), 10)}}
	h.GetDownloadLink(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign user, got %d", w.Code)
	}
}

func TestDeleteCoverLetter_RemovesRowAndObject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewCoverLetterHandler(db, storage, nil, "", 0)

	letter := database.CoverLetter{UserID: 1, Name: "Backend Roles", ObjectKey: "cover-letters/1/x.pdf", Size: 10}
	if err := db.Create(&letter).Error; err != nil {
		t.Fatalf("seed cover letter: %v", err)
	}
	storage.uploaded[letter.ObjectKey] = []byte("content")

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodDelete, "/", nil), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(letter.ID), 10)}}
	h.DeleteCoverLetter(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.CoverLetter{}).Where("id = ?", letter.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Error("cover letter row still present")
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != letter.ObjectKey {
		t.Errorf("object not deleted, got %v", storage.deleted)
	}
}

func TestListCoverLetters_OwnOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCoverLetterHandler(db, newFakeStorage(), nil, "", 0)

	letters := []database.CoverLetter{
		{UserID: 1, Name: "Backend Roles", ObjectKey: "cover-letters/1/a.pdf"},
		{UserID: 1, Name: "Platform Roles", ObjectKey: "cover-letters/1/b.pdf"},
		{UserID: 2, Name: "Other User", ObjectKey: "cover-letters/2/c.pdf"},
	}
	for i := range letters {
		if err := db.Create(&letters[i]).Error; err != nil {
			t.Fatalf("seed cover letter: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodGet, "/v1/cover-letters", nil), 1)
	h.ListCoverLetters(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		Count        int                   `json:"count"`
		CoverLetters []coverLetterResponse `json:"cover_letters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 2 || len(body.CoverLetters) != 2 {
		t.Fatalf("expected 2 own letters, got count=%d len=%d", body.Count, len(body.CoverLetters))
	}
	for _, item := range body.CoverLetters {
		if item.Name == "Other User" {
			t.Error("foreign cover letter leaked into listing")
		}
	}
}
