package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"elevator-memo/internal/models"
	"elevator-memo/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signatureUpload builds a multipart body carrying a signature image.
func signatureUpload(t *testing.T, filename, mimeType string, isDefault bool) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="signature"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-image-bytes"))
	require.NoError(t, err)
	if isDefault {
		require.NoError(t, w.WriteField("is_default", "true"))
	}
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func TestUsersRoutes(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := services.NewAuthService(cfg)

	adminUser := createTestUser(t, authService, "admin", "admin123", "admin")
	regularUser := createTestUser(t, authService, "worker", "worker123", "user")

	t.Run("POST /api/users/login - Success", func(t *testing.T) {
		router := setupTestRouter(t, cfg)

		body, _ := json.Marshal(map[string]string{"username": "worker", "password": "worker123"})
		req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Token string       `json:"token"`
			User  *models.User `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, regularUser.ID, response.User.ID)
		assert.NotContains(t, w.Body.String(), "password_hash")
	})

	t.Run("POST /api/users/login - Wrong password", func(t *testing.T) {
		router := setupTestRouter(t, cfg)

		body, _ := json.Marshal(map[string]string{"username": "worker", "password": "nope"})
		req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("POST /api/users/register - Success (admin)", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, adminUser)

		body, _ := json.Marshal(map[string]string{
			"username":  "newtester",
			"password":  "tester123",
			"full_name": "New Tester",
			"role":      "user",
		})
		req, _ := http.NewRequest("POST", "/api/users/register", bytes.NewBuffer(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("POST /api/users/register - Forbidden (regular user)", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, regularUser)

		body, _ := json.Marshal(map[string]string{
			"username":  "sneaky",
			"password":  "sneaky123",
			"full_name": "Sneaky",
		})
		req, _ := http.NewRequest("POST", "/api/users/register", bytes.NewBuffer(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("POST /api/users/register - Conflict (duplicate username)", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, adminUser)

		body, _ := json.Marshal(map[string]string{
			"username":  "worker",
			"password":  "other123",
			"full_name": "Duplicate Worker",
		})
		req, _ := http.NewRequest("POST", "/api/users/register", bytes.NewBuffer(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GET /api/users/me - Success", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, regularUser)

		req, _ := http.NewRequest("GET", "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			User *models.User `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, regularUser.ID, response.User.ID)
	})

	t.Run("GET /api/users - Forbidden (regular user)", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, regularUser)

		req, _ := http.NewRequest("GET", "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("PUT /api/users/:id/role - Admin promotes user", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		promoted := createTestUser(t, authService, "promoted", "promoted123", "user")
		token := createTestToken(t, cfg, adminUser)

		body, _ := json.Marshal(map[string]string{"role": "admin"})
		req, _ := http.NewRequest("PUT", "/api/users/"+strconv.FormatUint(uint64(promoted.ID), 10)+"/role", bytes.NewBuffer(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			User *models.User `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "admin", response.User.Role)
	})

	t.Run("DELETE /api/users/:id - Self-deactivation rejected", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, adminUser)

		req, _ := http.NewRequest("DELETE", "/api/users/"+strconv.FormatUint(uint64(adminUser.ID), 10), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DELETE /api/users/:id - Deactivated tokens stop working", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		victim := createTestUser(t, authService, "victim", "victim123", "user")
		victimToken := createTestToken(t, cfg, victim)
		adminToken := createTestToken(t, cfg, adminUser)

		req, _ := http.NewRequest("DELETE", "/api/users/"+strconv.FormatUint(uint64(victim.ID), 10), nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		// The outstanding token fails the per-request active check.
		req, _ = http.NewRequest("GET", "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+victimToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("POST /api/users/signatures - Upload and default handoff", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, regularUser)

		body, contentType := signatureUpload(t, "first.png", "image/png", true)
		req, _ := http.NewRequest("POST", "/api/users/signatures", body)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)

		body, contentType = signatureUpload(t, "second.png", "image/png", true)
		req, _ = http.NewRequest("POST", "/api/users/signatures", body)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", contentType)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)

		req, _ = http.NewRequest("GET", "/api/users/signatures", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Signatures []models.Signature `json:"signatures"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Signatures, 2)

		defaults := 0
		for _, s := range response.Signatures {
			if s.IsDefault {
				defaults++
			}
		}
		assert.Equal(t, 1, defaults)
		assert.True(t, response.Signatures[0].IsDefault)
	})

	t.Run("POST /api/users/signatures - Unsupported type rejected", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		token := createTestToken(t, cfg, regularUser)

		body, contentType := signatureUpload(t, "notes.txt", "text/plain", false)
		req, _ := http.NewRequest("POST", "/api/users/signatures", body)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DELETE /api/users/signatures/:signatureId - Not Found for foreign signature", func(t *testing.T) {
		router := setupTestRouter(t, cfg)
		signatureService := services.NewSignatureService(cfg)

		foreign, err := signatureService.Add(adminUser.ID, "admin.png", "/uploads/signatures/admin.png", false)
		require.NoError(t, err)

		token := createTestToken(t, cfg, regularUser)
		req, _ := http.NewRequest("DELETE", "/api/users/signatures/"+strconv.FormatUint(uint64(foreign.ID), 10), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
