package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/logger"
	"github.com/dfwgrid/parcelsearch/api/internal/middleware"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPresetTestRouter wires the preset handler against a real file store in
// a temp directory, behind a stubbed registered identity.
func setupPresetTestRouter(t *testing.T, userID string) (*gin.Engine, *store.FilePresetStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	log := logger.New("test")

	presetStore := store.NewFilePresetStore(filepath.Join(t.TempDir(), "preferences.json"), log)
	handler := NewPresetHandler(presetStore)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	v1 := router.Group("/api/v1")
	{
		preferences := v1.Group("/preferences", stubAuth(userID, auth.AccessRegistered))
		{
			preferences.GET("", handler.List)
			preferences.POST("", handler.Create)
			preferences.GET("/default", handler.GetDefault)
			preferences.GET("/:id", handler.Get)
			preferences.PUT("/:id", handler.Update)
			preferences.DELETE("/:id", handler.Delete)
		}
	}

	return router, presetStore
}

func postJSON(router *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreatePreference(t *testing.T) {
	router, _ := setupPresetTestRouter(t, "user-1")

	w := postJSON(router, "/api/v1/preferences", `{
		"name": "Starter homes",
		"filters": {"priceRange": {"max": 300000}},
		"isDefault": true
	}`)

	assert.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data models.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.ID)
	assert.Equal(t, "Starter homes", body.Data.Name)
	assert.True(t, body.Data.IsDefault)
	require.NotNil(t, body.Data.Filters.PriceRange)
	assert.Equal(t, 300000.0, *body.Data.Filters.PriceRange.Max)
}

func TestCreatePreference_NameRequired(t *testing.T) {
	router, _ := setupPresetTestRouter(t, "user-1")

	w := postJSON(router, "/api/v1/preferences", `{"filters": {}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPreferences(t *testing.T) {
	router, presetStore := setupPresetTestRouter(t, "user-1")

	_, err := presetStore.Create("user-1", "Mine", models.FilterSpec{}, false)
	require.NoError(t, err)
	_, err = presetStore.Create("someone-else", "Theirs", models.FilterSpec{}, false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Mine", body.Data[0].Name)
}

func TestGetPreference_NotFound(t *testing.T) {
	router, _ := setupPresetTestRouter(t, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences/missing-id", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Preference not found", body["error"]["message"])
}

func TestGetDefaultPreference(t *testing.T) {
	router, presetStore := setupPresetTestRouter(t, "user-1")

	created, err := presetStore.Create("user-1", "Default one", models.FilterSpec{}, true)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences/default", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, created.ID, body.Data.ID)
}

func TestGetDefaultPreference_NoneSet(t *testing.T) {
	router, _ := setupPresetTestRouter(t, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences/default", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "No default preference set", body["error"]["message"])
}

func TestUpdatePreference(t *testing.T) {
	router, presetStore := setupPresetTestRouter(t, "user-1")

	created, err := presetStore.Create("user-1", "Original", models.FilterSpec{}, false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/preferences/"+created.ID,
		bytes.NewBufferString(`{"name": "Renamed"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.Preset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Renamed", body.Data.Name)
}

func TestUpdatePreference_NotFound(t *testing.T) {
	router, _ := setupPresetTestRouter(t, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/preferences/missing-id",
		bytes.NewBufferString(`{"name": "Renamed"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePreference(t *testing.T) {
	router, presetStore := setupPresetTestRouter(t, "user-1")

	created, err := presetStore.Create("user-1", "Doomed", models.FilterSpec{}, false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/preferences/"+created.ID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Preference deleted successfully", body["message"])

	assert.Nil(t, presetStore.Get("user-1", created.ID))
}

func TestDeletePreference_NotFound(t *testing.T) {
	router, _ := setupPresetTestRouter(t, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/preferences/missing-id", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
