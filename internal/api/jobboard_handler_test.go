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

func createJobBoardViaHandler(t *testing.T, h *JobBoardHandler, userID uint, name string) (int, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c := newAuthedContext(w, newJSONRequest(t, http.MethodPost, "/v1/job-boards", map[string]any{
		"name": name,
	}), userID)
	h.CreateJobBoard(c)
	return w.Code, w
}

func TestCreateJobBoard_ScopedUniqueness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewJobBoardHandler(db, nil)

	if code, w := createJobBoardViaHandler(t, h, 1, "Otta"); code != http.StatusCreated {
		t.Fatalf("first create: expected 201 got %d body=%s", code, w.Body.String())
	}

	// 同一用户重名冲突。
	if code, w := createJobBoardViaHandler(t, h, 1, "Otta"); code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409 got %d body=%s", code, w.Body.String())
	}

	// 不同用户可以各自拥有同名平台。
	if code, w := createJobBoardViaHandler(t, h, 2, "Otta"); code != http.StatusCreated {
		t.Fatalf("other user create: expected 201 got %d body=%s", code, w.Body.String())
	}
}

func TestCreateJobBoard_ConflictsWithSharedBoard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewJobBoardHandler(db, nil)

	shared := database.JobBoard{Name: "LinkedIn", URL: "https://www.linkedin.com/jobs"}
	if err := db.Create(&shared).Error; err != nil {
		t.Fatalf("seed shared board: %v", err)
	}

	// 与公司不同，平台查重覆盖共享种子行，避免用户私有副本遮蔽种子数据。
	if code, w := createJobBoardViaHandler(t, h, 1, "LinkedIn"); code != http.StatusConflict {
		t.Fatalf("expected 409 against shared board, got %d body=%s", code, w.Body.String())
	}
}

func TestListJobBoards_SharedAndOwnOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewJobBoardHandler(db, nil)

	owner1, owner2 := uint(1), uint(2)
	seed := []database.JobBoard{
		{Name: "Indeed"},
		{Name: "Otta", UserID: &owner1},
		{Name: "Wellfound", UserID: &owner2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed board: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodGet, "/v1/job-boards", nil), 1)
	h.ListJobBoards(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		JobBoards []jobBoardResponse `json:"job_boards"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.JobBoards) != 2 {
		t.Fatalf("expected shared + own = 2 boards, got %d", len(body.JobBoards))
	}
	for _, item := range body.JobBoards {
		switch item.Name {
		case "Indeed":
			if item.IsUserAdded {
				t.Error("shared board flagged as user added")
			}
		case "Otta":
			if !item.IsUserAdded {
				t.Error("own board not flagged as user added")
			}
		default:
			t.Errorf("unexpected board %q in listing", item.Name)
		}
	}
}

func TestDeleteJobBoard_SharedRowsImmutable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewJobBoardHandler(db, nil)

	shared := database.JobBoard{Name: "Indeed"}
	if err := db.Create(&shared).Error; err != nil {
		t.Fatalf("seed shared board: %v", err)
	}

	w := httptest.NewRecorder()
	c := newAuthedContext(w, httptest.NewRequest(http.MethodDelete, "/", nil), 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(shared.ID), 10)}}
	h.DeleteJobBoard(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for shared board, got %d body=%s", w.Code, w.Body.String())
	}
}
