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

func createCompanyViaHandler(t *testing.T, h *CompanyHandler, userID uint, name string) (int, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c := newAuthedContext(w, newJSONRequest(t, http.MethodPost, "/v1/companies", map[string]any{
		"name": name,
	}), userID)
	h.CreateCompany(c)
	return w.Code, w
}

func TestCreateCompany_ScopedUniqueness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCompanyHandler(db, nil)

	if code, w := createCompanyViaHandler(t, h, 1, "Acme"); code != http.StatusCreated {
		t.Fatalf("first create: expected 201 got %d body=%s", code, w.Body.String())
	}

	// 同一用户重名冲突。
	if code, w := createCompanyViaHandler(t, h, 1, "Acme"); code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409 got %d body=%s", code, w.Body.String())
	}

	// 不同用户可以各自拥有同名公司。
	if code, w := createCompanyViaHandler(t, h, 2, "Acme"); code != http.StatusCreated {
		t.Fatalf("other user create: expected 201 got %d body=%s", code, w.Body.String())
	}
}

func TestListCompanies_SharedAndOwnOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCompanyHandler(db, nil)

	owner1, owner2 := uint(1), uint(2)
	seed := []database.Company{
		{Name: "Globex"},
		{Name: "Initech", UserID: &owner1},
		{Name: "Hooli", UserID: &owner2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed company: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodGet, "/v1/companies", nil), 1)
	h.ListCompanies(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		Companies []companyResponse `json:"companies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Companies) != 2 {
		t.Fatalf("expected shared + own = 2 companies, got %d", len(body.Companies))
	}
	for _, item := range body.Companies {
		switch item.Name {
		case "Globex":
			if item.IsUserAdded {
				t.Error("shared company flagged as user added")
			}
		case "Initech":
			if !item.IsUserAdded {
				t.Error("own company not flagged as user added")
			}
		default:
			t.Errorf("unexpected company %q in listing", item.Name)
		}
	}
}

func TestUpdateCompany_SharedRowsImmutable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCompanyHandler(db, nil)

	shared := database.Company{Name: "Globex"}
	if err := db.Create(&shared).Error; err != nil {
		t.Fatalf("seed shared company: %v", err)
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, newJSONRequest(t, http.MethodPut, "/", map[string]any{
		"name": "Globex Intl",
	}), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(shared.ID), 10)}}
	h.UpdateCompany(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for shared company, got %d body=%s", w.Code, w.Body.String())
	}

	var reloaded database.Company
	if err := db.First(&reloaded, shared.ID).Error; err != nil {
		t.Fatalf("reload company: %v", err)
	}
	if reloaded.Name != "Globex" {
		t.Errorf("shared company renamed to %q", reloaded.Name)
	}
}

func TestUpdateCompany_DuplicateName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCompanyHandler(db, nil)

	owner := uint(1)
	companies := []database.Company{
		{Name: "Acme", UserID: &owner},
		{Name: "Globex", UserID: &owner},
	}
	for i := range companies {
		if err := db.Create(&companies[i]).Error; err != nil {
			t.Fatalf("seed company: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, newJSONRequest(t, http.MethodPut, "/", map[string]any{
		"name": "Acme",
	}), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(companies[1].ID), 10)}}
	h.UpdateCompany(c)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteCompany_OwnedOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewCompanyHandler(db, nil)

	owner := uint(1)
	own := database.Company{Name: "Acme", UserID: &owner}
	shared := database.Company{Name: "Globex"}
	for _, company := range []*database.Company{&own, &shared} {
		if err := db.Create(company).Error; err != nil {
			t.Fatalf("seed company: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodDelete, "/", nil), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(shared.ID), 10)}}
	h.DeleteCompany(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete shared: expected 404 got %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	c = newAuthedContext(w, httptest.NewRequest(http.MethodDelete, "/", nil), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(own.ID), 10)}}
	h.DeleteCompany(c)
	if w.Code != http.StatusOK {
		t.Fatalf("delete own: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.Company{}).Where("id = ?", own.ID).Count(&count).Error; err != nil {
		t.Fatalf("count companies: %v", err)
	}
	if count != 0 {
		t.Error("owned company still present after delete")
	}
}
