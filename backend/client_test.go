package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestRegisterReturnsCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/devices/register/" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["device_id"] != "dev-1" {
			t.Errorf("Expected device_id dev-1, got %q", body["device_id"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"device_id":       "dev-1",
			"activation_code": " AB12CD ",
			"registered":      false,
		})
	}))

	code, err := client.Register(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if code != "AB12CD" {
		t.Errorf("Expected trimmed code AB12CD, got %q", code)
	}
}

func TestRegisterEmptyCodeFails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"activation_code": ""})
	}))

	if _, err := client.Register(context.Background(), "dev-1"); err == nil {
		t.Fatal("Expected error for empty activation_code")
	}
}

func TestRegisterNonSuccessFails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"device_id is required"}`, http.StatusBadRequest)
	}))

	if _, err := client.Register(context.Background(), "dev-1"); err == nil {
		t.Fatal("Expected error for 400 response")
	}
}

func TestStatus(t *testing.T) {
	// The backend reports branch_id as a JSON number; older payloads
	// carried strings, and unassigned devices get null.
	tests := []struct {
		name       string
		body       map[string]any
		wantActive bool
		wantBranch BranchID
		wantLogo   string
	}{
		{"numeric branch", map[string]any{"is_active": true, "branch_id": 7, "client_logo_url": "https://cdn.example.com/logo.png"}, true, "7", "https://cdn.example.com/logo.png"},
		{"string branch", map[string]any{"is_active": true, "branch_id": "B7"}, true, "B7", ""},
		{"null branch", map[string]any{"is_active": false, "branch_id": nil, "client_logo_url": ""}, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("code") != "AB12CD" {
					t.Errorf("Expected code query param, got %q", r.URL.Query().Get("code"))
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(tt.body)
			}))

			reply, err := client.Status(context.Background(), "AB12CD")
			if err != nil {
				t.Fatalf("Status failed: %v", err)
			}
			if reply.IsActive != tt.wantActive {
				t.Errorf("Expected is_active %v, got %v", tt.wantActive, reply.IsActive)
			}
			if reply.BranchID != tt.wantBranch {
				t.Errorf("Expected branch %q, got %q", tt.wantBranch, reply.BranchID)
			}
			if reply.ClientLogoURL != tt.wantLogo {
				t.Errorf("Expected logo %q, got %q", tt.wantLogo, reply.ClientLogoURL)
			}
		})
	}
}

func TestHeartbeat(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "online": true})
	}))

	if err := client.Heartbeat(context.Background(), "dev-1", "AB12CD"); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if got["device_id"] != "dev-1" || got["code"] != "AB12CD" {
		t.Errorf("Unexpected heartbeat body: %v", got)
	}
}

func TestHeartbeatForbidden(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Device disabled"}`, http.StatusForbidden)
	}))

	if err := client.Heartbeat(context.Background(), "dev-1", "AB12CD"); err == nil {
		t.Fatal("Expected error for 403 response")
	}
}

func TestFetchResultsPaths(t *testing.T) {
	tests := []struct {
		category string
		date     string
		wantPath string
		wantDate string
	}{
		{CategoryTriples, "", "/api/results/", ""},
		{CategoryAnimalitos, "", "/api/animalitos/", ""},
		{CategoryAnimalitos, "2026-08-29", "/api/animalitos/", "2026-08-29"},
	}

	for _, tt := range tests {
		var gotPath, gotDate string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotDate = r.URL.Query().Get("date")
			w.Write([]byte(`[{"provider":"Zulia","time":"08:00 AM","number":"123"}]`))
		}))

		raw, err := client.FetchResults(context.Background(), "AB12CD", tt.category, tt.date)
		if err != nil {
			t.Fatalf("FetchResults(%s) failed: %v", tt.category, err)
		}
		if gotPath != tt.wantPath {
			t.Errorf("FetchResults(%s): path %q, want %q", tt.category, gotPath, tt.wantPath)
		}
		if gotDate != tt.wantDate {
			t.Errorf("FetchResults(%s): date %q, want %q", tt.category, gotDate, tt.wantDate)
		}

		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			t.Errorf("FetchResults(%s): payload not JSON: %v", tt.category, err)
		}
	}
}

func TestFetchResultsUnknownCategory(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	if _, err := client.FetchResults(context.Background(), "AB12CD", "bingo", ""); err == nil {
		t.Fatal("Expected error for unknown category")
	}
}
