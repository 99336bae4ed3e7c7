package ginserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/dto"
	authsvc "hostelhunt/internal/app/services/auth"
	"hostelhunt/internal/app/wiring"
	domainhostels "hostelhunt/internal/domain/hostels"
	"hostelhunt/internal/infra/config"
	"hostelhunt/internal/infra/obs"
	"hostelhunt/internal/infra/security"
	"hostelhunt/internal/infra/storage/memory"
	"hostelhunt/internal/infra/storage/memory/memtest"
)

type testServer struct {
	router *gin.Engine
	fx     *memtest.Fixture
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fx := memtest.New(t)
	signer, err := security.NewJWT("test-secret", "hostelhunt")
	require.NoError(t, err)
	sessions := memory.NewSessionStore()
	auth := &authsvc.Service{
		UoWFactory: fx.Factory,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     signer,
		SessionIDs: security.SessionIDGenerator{},
	}
	buses := wiring.Build(wiring.Deps{
		UoWFactory:  fx.Factory,
		Sessions:    sessions,
		Idempotency: memory.NewIdempotencyStore(0),
	})
	handlers := Handlers{
		Auth:           AuthHandler{Service: auth, Queries: buses.Queries},
		Users:          UsersHandler{Commands: buses.Commands, Queries: buses.Queries, Auth: auth},
		Landlords:      LandlordsHandler{Commands: buses.Commands, Queries: buses.Queries},
		Hostels:        HostelsHandler{Commands: buses.Commands, Queries: buses.Queries},
		Search:         SearchHandler{Queries: buses.Queries},
		Bookings:       BookingsHandler{Commands: buses.Commands, Queries: buses.Queries},
		Reviews:        ReviewsHandler{Commands: buses.Commands, Queries: buses.Queries},
		Payments:       PaymentsHandler{Commands: buses.Commands, Queries: buses.Queries},
		Admin:          AdminHandler{Commands: buses.Commands, Queries: buses.Queries},
		AuthMiddleware: AuthMiddleware{Service: auth}.Handle,
	}
	router := NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, handlers)
	return &testServer{router: router, fx: fx}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "secret123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, ok := body["message"].(string)
	require.True(t, ok, "error body must carry a message: %s", rec.Body.String())
	return msg
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/bookings", "/api/v1/auth/me", "/api/v1/payments/history"} {
		rec := srv.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.NotEmpty(t, decodeMessage(t, rec))
	}
	rec := srv.do(t, http.MethodGet, "/api/v1/bookings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterLoginAndMe(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "amina@example.com")

	rec := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "amina@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "amina@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login dto.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = srv.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me dto.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "amina@example.com", me.Email)
	assert.Equal(t, "student", me.Role)

	rec = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "amina@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "not-an-email", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeMessage(t, rec))

	rec = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "a@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchFiltersAndPaginates(t *testing.T) {
	srv := newTestServer(t)
	_, landlord := srv.fx.Landlord("owner@example.com", "Campus Homes")
	for i := 0; i < 25; i++ {
		srv.fx.Hostel(landlord, fmt.Sprintf("Single %02d", i), 6000, 1)
	}
	for i := 0; i < 5; i++ {
		srv.fx.Hostel(landlord, fmt.Sprintf("Double %02d", i), 6000, 2, func(h *domainhostels.Hostel) {
			h.RoomType = domainhostels.RoomDouble
		})
	}
	srv.fx.Hostel(landlord, "Cheap single", 2000, 1)

	rec := srv.do(t, http.MethodGet, "/api/v1/hostels?min_price=5000&room_type=single&page=2&per_page=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page dto.HostelPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Hostels, 10)
	for _, h := range page.Hostels {
		assert.Equal(t, "single", h.RoomType)
	}

	rec = srv.do(t, http.MethodGet, "/api/v1/search/suggestions?q=dou", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Double")
}

func TestUnknownHostelIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/v1/hostels/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeMessage(t, rec))
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ownerToken := srv.register(t, "owner@example.com")
	rec := srv.do(t, http.MethodPost, "/api/v1/landlord/profile", ownerToken, gin.H{"business_name": "Campus Homes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/v1/hostels", ownerToken, gin.H{
		"name":        "Riverside Hostel",
		"location":    "Nairobi",
		"description": "Ten minutes from the main campus gate.",
		"price":       5000,
		"capacity":    4,
		"room_type":   "single",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hostel dto.Hostel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hostel))

	studentToken := srv.register(t, "student@example.com")
	checkIn := time.Now().UTC().AddDate(0, 0, 7)
	rec = srv.do(t, http.MethodPost, "/api/v1/bookings", studentToken, gin.H{
		"hostel_id":    hostel.ID,
		"check_in":     checkIn.Format(dateLayout),
		"check_out":    checkIn.AddDate(0, 0, 3).Format(dateLayout),
		"phone_number": "0712345678",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var booking dto.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))

	path := "/api/v1/bookings/" + booking.ID + "/status"
	rec = srv.do(t, http.MethodPut, path, studentToken, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for i := 0; i < 2; i++ {
		rec = srv.do(t, http.MethodPut, path, ownerToken, gin.H{"status": "confirmed"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated dto.Booking
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "confirmed", updated.Status)
	}

	rec = srv.do(t, http.MethodGet, "/api/v1/landlord/bookings", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), booking.ID)
}

func TestPaymentCallbackAlwaysAcknowledges(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["ResultCode"])
	assert.Equal(t, "Accepted", body["ResultDesc"])
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "student@example.com")

	rec := srv.do(t, http.MethodGet, "/api/v1/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/v1/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
