package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"eco-schools-api/services"
)

// newReviewViewRouter mounts the selection and batch endpoints the same way
// the route table does, without auth so tests can hit them directly. None of
// the endpoints exercised here touch the database.
func newReviewViewRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	selection := services.NewSelectionService(time.Hour)
	batches := services.NewBatchService(nil, nil, selection, nil, nil)
	selectionCtl := NewSelectionController(selection)
	batchCtl := NewBatchController(batches)

	router := gin.New()
	views := router.Group("/api/v1/admin/review-views/:viewKey")
	{
		views.GET("/selection", selectionCtl.GetSelection)
		views.POST("/selection/toggle", selectionCtl.ToggleSelection)
		views.POST("/selection/select-all", selectionCtl.SelectAllVisible)
		views.DELETE("/selection", selectionCtl.ClearSelection)
		views.DELETE("", selectionCtl.CloseView)

		views.POST("/batch", batchCtl.OpenBatch)
		views.GET("/batch", batchCtl.GetBatch)
		views.DELETE("/batch/:intentId", batchCtl.CancelBatch)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var payload map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid json response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, payload
}

func TestToggleEndpointRoundTrip(t *testing.T) {
	router := newReviewViewRouter()
	base := "/api/v1/admin/review-views/pending-evidence"

	code, payload := doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{"submission_id":7}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", code, payload)
	}
	if payload["selected"] != true {
		t.Fatalf("expected selected true, got %v", payload["selected"])
	}
	if payload["count"] != float64(1) {
		t.Fatalf("expected count 1, got %v", payload["count"])
	}

	code, payload = doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{"submission_id":7}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if payload["selected"] != false || payload["count"] != float64(0) {
		t.Fatalf("expected second toggle to deselect, got %v", payload)
	}
}

func TestToggleEndpointValidation(t *testing.T) {
	router := newReviewViewRouter()
	base := "/api/v1/admin/review-views/pending-evidence"

	if code, _ := doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing submission_id, got %d", code)
	}
	if code, _ := doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{"submission_id":-3}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative submission_id, got %d", code)
	}

	longKey := strings.Repeat("k", 129)
	code, _ := doJSON(t, router, http.MethodPost,
		"/api/v1/admin/review-views/"+longKey+"/selection/toggle", `{"submission_id":1}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized view key, got %d", code)
	}
}

func TestSelectAllEndpointAcceptsEmptyList(t *testing.T) {
	router := newReviewViewRouter()
	base := "/api/v1/admin/review-views/pending-evidence"

	doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{"submission_id":7}`)

	// An empty page is a valid select-all target: it replaces the stale
	// selection with nothing.
	code, payload := doJSON(t, router, http.MethodPost, base+"/selection/select-all", `{"visible_ids":[]}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200 for empty visible_ids, got %d (%v)", code, payload)
	}
	if payload["count"] != float64(0) {
		t.Fatalf("expected count 0, got %v", payload["count"])
	}
}

func TestSelectionLifecycleEndpoints(t *testing.T) {
	router := newReviewViewRouter()
	base := "/api/v1/admin/review-views/pending-evidence"

	doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{"submission_id":3}`)
	doJSON(t, router, http.MethodPost, base+"/selection/toggle", `{"submission_id":5}`)

	code, payload := doJSON(t, router, http.MethodGet, base+"/selection", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	ids, ok := payload["selected_ids"].([]interface{})
	if !ok || len(ids) != 2 {
		t.Fatalf("expected 2 selected ids, got %v", payload["selected_ids"])
	}

	if code, _ := doJSON(t, router, http.MethodDelete, base+"/selection", ""); code != http.StatusOK {
		t.Fatalf("expected 200 clearing selection, got %d", code)
	}

	_, payload = doJSON(t, router, http.MethodGet, base+"/selection", "")
	if payload["count"] != float64(0) {
		t.Fatalf("expected empty selection after clear, got %v", payload["count"])
	}

	if code, _ := doJSON(t, router, http.MethodDelete, base, ""); code != http.StatusOK {
		t.Fatalf("expected 200 closing view, got %d", code)
	}
}

func TestBatchOpenCancelEndpoints(t *testing.T) {
	router := newReviewViewRouter()
	base := "/api/v1/admin/review-views/pending-evidence"

	code, payload := doJSON(t, router, http.MethodPost, base+"/batch",
		`{"kind":"approve","submission_ids":[3,1]}`)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", code, payload)
	}
	intent, ok := payload["intent"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected intent in response, got %v", payload)
	}
	targets, ok := intent["target_ids"].([]interface{})
	if !ok || len(targets) != 2 || targets[0] != float64(1) || targets[1] != float64(3) {
		t.Fatalf("unexpected target ids: %v", intent["target_ids"])
	}
	intentID, _ := intent["intent_id"].(string)
	if intentID == "" {
		t.Fatal("expected an intent id")
	}

	// A second open on the same view conflicts.
	if code, _ := doJSON(t, router, http.MethodPost, base+"/batch",
		`{"kind":"approve","submission_ids":[9]}`); code != http.StatusConflict {
		t.Fatalf("expected 409 for second open, got %d", code)
	}

	code, payload = doJSON(t, router, http.MethodGet, base+"/batch", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200 fetching intent, got %d (%v)", code, payload)
	}

	if code, _ := doJSON(t, router, http.MethodDelete, base+"/batch/"+intentID, ""); code != http.StatusOK {
		t.Fatalf("expected 200 cancelling, got %d", code)
	}
	if code, _ := doJSON(t, router, http.MethodGet, base+"/batch", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 after cancel, got %d", code)
	}
}

func TestBatchOpenValidationEndpoints(t *testing.T) {
	router := newReviewViewRouter()
	base := "/api/v1/admin/review-views/pending-evidence"

	if code, _ := doJSON(t, router, http.MethodPost, base+"/batch",
		`{"kind":"reject","submission_ids":[1],"notes":"  "}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reject without notes, got %d", code)
	}
	if code, _ := doJSON(t, router, http.MethodPost, base+"/batch",
		`{"kind":"archive","submission_ids":[1]}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", code)
	}
	if code, _ := doJSON(t, router, http.MethodPost, base+"/batch",
		`{"kind":"approve"}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", code)
	}
	if code, _ := doJSON(t, router, http.MethodDelete, base+"/batch/unknown-intent", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 cancelling unknown intent, got %d", code)
	}
}
