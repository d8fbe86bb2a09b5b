package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/yok-tottii/EzRec/internal/api"
	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/config"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/storage"
)

// TestServerAPIIntegration registers the API on the server's mux before
// Start, the same way the serve command does
func TestServerAPIIntegration(t *testing.T) {
	serverConfig := DefaultConfig()
	serverConfig.Port = 0
	server := New(serverConfig, nil)

	appConfig := config.DefaultConfig()
	store := storage.New(afero.NewMemMapFs(), "/recordings")
	engine := recording.New(audio.NewDummyDriver(), store, recording.DefaultConfig(), nil)
	defer func() {
		engine.Shutdown()
		for range engine.Events() {
		}
	}()

	apiHandler := api.New(appConfig, "", engine, nil, nil)
	apiHandler.RegisterRoutes(server.GetMux())

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	resp, err := http.Get(server.URL() + "/api/settings")
	if err != nil {
		t.Fatalf("Failed to make request to API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var settings config.Config
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		t.Errorf("Failed to decode settings response: %v", err)
	}
	if settings.Storage.Mode != "byte" {
		t.Errorf("Expected storage mode 'byte', got '%s'", settings.Storage.Mode)
	}

	body, _ := json.Marshal(map[string]interface{}{"min_record_time": 10})
	req, err := http.NewRequest(http.MethodPut, server.URL()+"/api/settings", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to update settings: %v", err)
	}
	putResp.Body.Close()

	if putResp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", putResp.StatusCode)
	}
	if engine.MinDuration() != 10*time.Second {
		t.Errorf("Expected engine minimum 10s, got %v", engine.MinDuration())
	}

	statusResp, err := http.Get(server.URL() + "/api/status")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	defer statusResp.Body.Close()

	var status api.StatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.State != "Idle" {
		t.Errorf("Expected Idle, got %s", status.State)
	}
}
