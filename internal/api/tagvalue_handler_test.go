package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"jobtrack/internal/database"
)

func createTagValueViaHandler(t *testing.T, h *TagValueHandler, userID uint, tag, value, typ string) (int, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c := newAuthedContext(w, newJSONRequest(t, http.MethodPost, "/v1/tag-values", map[string]any{
		"tag":   tag,
		"value": value,
		"type":  typ,
	}), userID)
	h.CreateTagValue(c)
	return w.Code, w
}

func TestCreateTagValue_DuplicateTagConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTagValueHandler(db, nil)

	if code, w := createTagValueViaHandler(t, h, 1, "github", "https://github.com/someone", "link"); code != http.StatusCreated {
		t.Fatalf("first create: expected 201 got %d body=%s", code, w.Body.String())
	}
	if code, w := createTagValueViaHandler(t, h, 1, "github", "https://github.com/elsewhere", "link"); code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409 got %d body=%s", code, w.Body.String())
	}

	// 同名标签在另一用户下不冲突。
	if code, w := createTagValueViaHandler(t, h, 2, "github", "https://github.com/other", "link"); code != http.StatusCreated {
		t.Fatalf("other user create: expected 201 got %d body=%s", code, w.Body.String())
	}
}

func TestCreateTagValue_RejectsUnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTagValueHandler(db, nil)

	if code, w := createTagValueViaHandler(t, h, 1, "github", "value", "markdown"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", code, w.Body.String())
	}
}

func TestUpdateTagValue_OwnedOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTagValueHandler(db, nil)

	tagValue := database.TagValue{UserID: 1, Tag: "github", Value: "https://github.com/someone", Type: "link"}
	if err := db.Create(&tagValue).Error; err != nil {
		t.Fatalf("seed tag value: %v", err)
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, newJSONRequest(t, http.MethodPatch, "/", map[string]any{
		"tag":   "github",
		"value": "https://github.com/updated",
		"type":  "link",
	}), 2)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(tagValue.ID), 10)}}
	h.UpdateTagValue(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign update: expected 404 got %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	c = newAuthedContext(w, newJSONRequest(t, http.MethodPatch, "/", map[string]any{
		"tag":   "github",
		"value": "https://github.com/updated",
		"type":  "link",
	}), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(tagValue.ID), 10)}}
	h.UpdateTagValue(c)
	if w.Code != http.StatusOK {
		t.Fatalf("own update: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var reloaded database.TagValue
	if err := db.First(&reloaded, tagValue.ID).Error; err != nil {
		t.Fatalf("reload tag value: %v", err)
	}
	if reloaded.Value != "https://github.com/updated" {
		t.Errorf("value = %q after update", reloaded.Value)
	}
}

func TestListTagValues_OwnOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTagValueHandler(db, nil)

	seed := []database.TagValue{
		{UserID: 1, Tag: "github", Value: "https://github.com/someone", Type: "link"},
		{UserID: 1, Tag: "salary_expectation", Value: "negotiable", Type: "text"},
		{UserID: 2, Tag: "github", Value: "https://github.com/other", Type: "link"},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed tag value: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodGet, "/v1/tag-values", nil), 1)
	h.ListTagValues(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		TagValues []tagValueResponse `json:"tag_values"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.TagValues) != 2 {
		t.Fatalf("expected 2 tag values, got %d", len(body.TagValues))
	}
}

func TestDeleteTagValue_NotFoundForForeignUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTagValueHandler(db, nil)

	tagValue := database.TagValue{UserID: 1, Tag: "github", Value: "https://github.com/someone", Type: "link"}
	if err := db.Create(&tagValue).Error; err != nil {
		t.Fatalf("seed tag value: %v", err)
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodDelete, "/", nil), 2)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(tagValue.ID), 10)}}
	h.DeleteTagValue(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}
