package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/memory"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
	"github.com/SAP-F-2025/login-approval-service/internal/validator"
)

const testToken = "professor-token"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier map[string]*models.Identity

func (f fakeVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if identity, ok := f[token]; ok {
		return identity, nil
	}
	return nil, errors.New("invalid token")
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)

	identity := memory.NewStaticIdentity(&models.Identity{ID: "p-1", Name: "professor", Role: models.RoleProfessor})
	store := memory.NewStore(identity)

	sm := services.NewDefaultServiceManager(store, nil, nil, slogger, validator.New())
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	auth := NewAuthMiddleware(fakeVerifier{
		testToken:       {ID: "p-1", Name: "professor", Role: models.RoleProfessor},
		"student-token": {ID: "s-1", Name: "someone", Role: models.RoleStudent},
		"admin-token":   {ID: "a-1", Name: "admin", Role: models.RoleAdmin},
	})

	router := gin.New()
	SetupMiddleware(router, logger, []string{"*"})
	NewHandlerManager(sm, identity, auth, logger).SetupRoutes(router)

	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (s *testServer) login(username, provider string) uint {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/login", "", map[string]string{
		"username":     username,
		"password":     "pw",
		"authProvider": provider,
	})
	if w.Code != http.StatusOK {
		s.t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	body := decode(s.t, w)
	if body["status"] != "pending" || body["success"] != true {
		s.t.Fatalf("unexpected login response %v", body)
	}
	return uint(body["requestId"].(float64))
}

func TestAppleFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.login("alice", "apple")

	w := s.do(http.MethodGet, "/api/student/request-status/alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("request-status: %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	request := decode(t, w)["request"].(map[string]interface{})
	if request["status"] != "pending" {
		t.Errorf("status = %v", request["status"])
	}

	if w := s.do(http.MethodGet, "/api/protected/playlist", "", nil, "X-Username", "alice"); w.Code != http.StatusForbidden {
		t.Errorf("playlist before approval = %d, want 403", w.Code)
	}

	approve := map[string]interface{}{"requestId": id, "username": "alice"}
	if w := s.do(http.MethodPost, "/api/professor/approve", "", approve); w.Code != http.StatusUnauthorized {
		t.Errorf("approve without token = %d, want 401", w.Code)
	}
	w = s.do(http.MethodPost, "/api/professor/approve", testToken, approve)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	if decode(t, w)["accessGranted"] != true {
		t.Error("apple approval should grant access")
	}

	w = s.do(http.MethodGet, "/api/student/access-status/alice", "", nil)
	if decode(t, w)["granted"] != true {
		t.Errorf("access-status = %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/protected/playlist?username=alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("playlist after approval = %d", w.Code)
	}
	if tracks := decode(t, w)["tracks"].([]interface{}); len(tracks) == 0 {
		t.Error("empty playlist")
	}
}

func TestGoogleFinalVerificationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.login("bob", "google")

	w := s.do(http.MethodPost, "/api/student/final-verification/request", "", map[string]string{"username": "bob"})
	if w.Code != http.StatusConflict {
		t.Errorf("final verification before approval = %d, want 409", w.Code)
	}

	w = s.do(http.MethodPost, "/api/professor/approve", testToken, map[string]interface{}{"requestId": id, "username": "bob"})
	body := decode(t, w)
	if body["accessGranted"] != false || body["requiresFinalVerification"] != true {
		t.Fatalf("google approval = %v", body)
	}

	w = s.do(http.MethodGet, "/api/student/final-verification/status/bob", "", nil)
	if decode(t, w)["status"] != models.PollStatusNotFound {
		t.Errorf("final status before request = %s", w.Body.String())
	}

	if w := s.do(http.MethodPost, "/api/student/final-verification/request", "", map[string]string{"username": "bob"}); w.Code != http.StatusOK {
		t.Fatalf("final verification request = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, "/api/professor/final-verification/approve", testToken, map[string]string{"username": "bob"})
	if decode(t, w)["accessGranted"] != true {
		t.Errorf("final approve = %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/student/final-verification/status/bob", "", nil)
	if decode(t, w)["status"] != "approved" {
		t.Errorf("final status = %s", w.Body.String())
	}
}

func TestStatusCodes(t *testing.T) {
	s := newTestServer(t)
	carol := s.login("carol", "apple")
	s.login("dave", "apple")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"malformed login", http.MethodPost, "/api/login", "", "not-an-object", http.StatusBadRequest},
		{"login without provider", http.MethodPost, "/api/login", "", map[string]string{"username": "x", "password": "y"}, http.StatusBadRequest},
		{"bad code format", http.MethodPost, "/api/verify", "", map[string]string{"username": "carol", "verificationCode": "12a456"}, http.StatusBadRequest},
		{"code for unknown user", http.MethodPost, "/api/verify", "", map[string]string{"username": "nobody", "verificationCode": "123456"}, http.StatusNotFound},
		{"code with foreign request id", http.MethodPost, "/api/verify", "", map[string]interface{}{"username": "dave", "verificationCode": "123456", "requestId": carol}, http.StatusBadRequest},
		{"request status unknown", http.MethodGet, "/api/student/request-status/nobody", "", nil, http.StatusNotFound},
		{"approve wrong owner", http.MethodPost, "/api/professor/approve", testToken, map[string]interface{}{"requestId": carol, "username": "dave"}, http.StatusBadRequest},
		{"approve missing request", http.MethodPost, "/api/professor/approve", testToken, map[string]interface{}{"requestId": 9999, "username": "dave"}, http.StatusNotFound},
		{"reject code without row", http.MethodPost, "/api/professor/reject-code", testToken, map[string]string{"username": "carol", "verificationCode": "000000"}, http.StatusNotFound},
		{"validate without approved request", http.MethodPost, "/api/professor/validate-code", testToken, map[string]string{"username": "carol", "verificationCode": "000000"}, http.StatusNotFound},
		{"student role forbidden", http.MethodGet, "/api/professor/pending-requests", "student-token", nil, http.StatusForbidden},
		{"admin allowed", http.MethodGet, "/api/professor/pending-requests", "admin-token", nil, http.StatusOK},
		{"bad token", http.MethodGet, "/api/professor/pending-requests", "nope", nil, http.StatusUnauthorized},
		{"invalid final status filter", http.MethodGet, "/api/professor/final-verifications?status=done", testToken, nil, http.StatusBadRequest},
		{"unknown feature flag", http.MethodPut, "/api/professor/features/dark_mode", testToken, map[string]bool{"enabled": true}, http.StatusNotFound},
		{"playlist without username", http.MethodGet, "/api/protected/playlist", "", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRejectAfterApproveConflicts(t *testing.T) {
	s := newTestServer(t)
	id := s.login("erin", "apple")
	body := map[string]interface{}{"requestId": id, "username": "erin"}

	if w := s.do(http.MethodPost, "/api/professor/approve", testToken, body); w.Code != http.StatusOK {
		t.Fatalf("approve = %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/professor/approve", testToken, body); w.Code != http.StatusOK {
		t.Errorf("repeated approve = %d, want 200", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/professor/reject", testToken, body); w.Code != http.StatusConflict {
		t.Errorf("reject after approve = %d, want 409", w.Code)
	}
}

func TestCodeFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.login("frank", "apple")

	w := s.do(http.MethodPost, "/api/verify", "", map[string]interface{}{"username": "frank", "verificationCode": "123456", "requestId": id})
	if w.Code != http.StatusOK {
		t.Fatalf("verify = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/student/code-status/frank/123456", "", nil)
	if decode(t, w)["status"] != "pending" {
		t.Errorf("code status = %s", w.Body.String())
	}
	w = s.do(http.MethodGet, "/api/student/code-status/frank/999999", "", nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != models.PollStatusNotFound {
		t.Errorf("unknown code status = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/professor/pending-requests", testToken, nil)
	var pending []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0]["code"] != "123456" {
		t.Errorf("pending = %s", w.Body.String())
	}

	s.do(http.MethodPost, "/api/professor/approve", testToken, map[string]interface{}{"requestId": id, "username": "frank"})

	w = s.do(http.MethodPost, "/api/professor/validate-code", testToken, map[string]string{"username": "frank", "verificationCode": "654321"})
	if w.Code != http.StatusOK || decode(t, w)["success"] != false {
		t.Errorf("wrong code = %d %s, want 200 success=false", w.Code, w.Body.String())
	}
}

func TestFeatureFlagsOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/config/features", "", nil)
	if decode(t, w)[models.FlagGoogleProvider] != true {
		t.Errorf("features = %s", w.Body.String())
	}

	if w := s.do(http.MethodPut, "/api/professor/features/"+models.FlagGoogleProvider, testToken, map[string]bool{"enabled": false}); w.Code != http.StatusOK {
		t.Fatalf("set flag = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, "/api/login", "", map[string]string{"username": "gina", "password": "pw", "authProvider": "google"})
	if w.Code != http.StatusConflict {
		t.Errorf("google login with flag off = %d, want 409", w.Code)
	}
	s.login("gina", "apple")
}

func TestPollingConfigAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/config/polling", "", nil)
	loops := decode(t, w)["loops"].([]interface{})
	if len(loops) != 4 {
		t.Fatalf("loops = %d", len(loops))
	}
	first := loops[0].(map[string]interface{})
	if first["intervalMs"] != float64(2000) || first["timeoutMs"] != float64(0) {
		t.Errorf("request loop = %v", first)
	}

	if w := s.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestExportAndListings(t *testing.T) {
	s := newTestServer(t)
	id := s.login("hank", "apple")
	s.do(http.MethodPost, "/api/professor/reject", testToken, map[string]interface{}{"requestId": id, "username": "hank"})

	w := s.do(http.MethodGet, "/api/professor/rejected-requests", testToken, nil)
	var rejected []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &rejected); err != nil {
		t.Fatal(err)
	}
	if len(rejected) != 1 || rejected[0]["username"] != "hank" {
		t.Errorf("rejected = %s", w.Body.String())
	}
	if _, leaked := rejected[0]["password"]; leaked {
		t.Error("password must not be serialized")
	}

	w = s.do(http.MethodGet, "/api/professor/export/requests?status=rejected", testToken, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("export = %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	w = s.do(http.MethodGet, "/api/professor/me", testToken, nil)
	if decode(t, w)["name"] != "professor" {
		t.Errorf("me = %s", w.Body.String())
	}
	w = s.do(http.MethodGet, "/api/professor/staff", testToken, nil)
	if decode(t, w)["total"] != float64(1) {
		t.Errorf("staff = %s", w.Body.String())
	}
}

func TestStaticTokenVerifier(t *testing.T) {
	identity := memory.NewStaticIdentity(&models.Identity{ID: "p-1", Name: "professor", Role: models.RoleProfessor})
	ctx := context.Background()

	v := &staticTokenVerifier{token: "s3cret", identity: identity, name: "professor"}
	if got, err := v.Verify(ctx, "s3cret"); err != nil || got.Role != models.RoleProfessor {
		t.Errorf("Verify(valid) = %v, %v", got, err)
	}
	if _, err := v.Verify(ctx, "wrong"); !errors.Is(err, errInvalidToken) {
		t.Errorf("Verify(wrong) err = %v", err)
	}

	empty := &staticTokenVerifier{identity: identity, name: "professor"}
	if _, err := empty.Verify(ctx, ""); err == nil {
		t.Error("empty configured token must reject everything")
	}
}
