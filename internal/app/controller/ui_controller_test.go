package controller

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUIControllerTest(t *testing.T) (*gin.Engine, repository.SnapshotRepository) {
	repo := repository.NewSnapshotRepository(storage.NewMemoryStorage(0))
	uiController := NewUIController(service.NewUIService(repo, time.Second))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ui", uiController.GetUI)
	router.PUT("/ui/dark-mode", uiController.SetDarkMode)
	router.POST("/ui/dark-mode/toggle", uiController.ToggleDarkMode)
	router.POST("/ui/sidebar/toggle", uiController.ToggleSidebar)

	return router, repo
}

func decodeUI(t *testing.T, body []byte) model.UIState {
	t.Helper()

	var resp struct {
		UI model.UIState `json:"ui"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.UI
}

func TestUIController_GetUI_Defaults(t *testing.T) {
	router, _ := setupUIControllerTest(t)

	w := doJSON(t, router, http.MethodGet, "/ui", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	ui := decodeUI(t, w.Body.Bytes())
	assert.False(t, ui.DarkMode)
	assert.False(t, ui.SidebarOpen)
}

func TestUIController_SetDarkMode_Persists(t *testing.T) {
	router, repo := setupUIControllerTest(t)

	w := doJSON(t, router, http.MethodPut, "/ui/dark-mode", gin.H{"dark_mode": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeUI(t, w.Body.Bytes()).DarkMode)

	enabled, err := repo.LoadDarkMode(t.Context())
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestUIController_SetDarkMode_MissingValue(t *testing.T) {
	router, _ := setupUIControllerTest(t)

	w := doJSON(t, router, http.MethodPut, "/ui/dark-mode", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUIController_Toggles(t *testing.T) {
	router, repo := setupUIControllerTest(t)

	w := doJSON(t, router, http.MethodPost, "/ui/dark-mode/toggle", nil)
	assert.True(t, decodeUI(t, w.Body.Bytes()).DarkMode)

	w = doJSON(t, router, http.MethodPost, "/ui/dark-mode/toggle", nil)
	assert.False(t, decodeUI(t, w.Body.Bytes()).DarkMode)

	enabled, err := repo.LoadDarkMode(t.Context())
	require.NoError(t, err)
	assert.False(t, enabled)

	w = doJSON(t, router, http.MethodPost, "/ui/sidebar/toggle", nil)
	assert.True(t, decodeUI(t, w.Body.Bytes()).SidebarOpen)
}
