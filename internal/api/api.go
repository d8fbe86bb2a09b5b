package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/config"
	"github.com/yok-tottii/EzRec/internal/hotkey"
	"github.com/yok-tottii/EzRec/internal/i18n"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/notification"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/session"
	"github.com/yok-tottii/EzRec/internal/storage"
)

// Handler manages API endpoints
type Handler struct {
	config          *config.Config
	configPath      string
	engine          *recording.Engine
	presenter       *notification.Presenter
	log             *logger.Logger
	onHotkeyChanged func() error // Callback to reload hotkey in main app

	mu          sync.Mutex
	lastMessage string
	lastKind    string
}

// New creates a new API handler. configPath may be empty to keep settings
// in memory only.
func New(cfg *config.Config, configPath string, engine *recording.Engine, presenter *notification.Presenter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	if presenter == nil {
		presenter = notification.NewPresenter(nil, nil, cfg.MinDuration())
	}
	return &Handler{
		config:     cfg,
		configPath: configPath,
		engine:     engine,
		presenter:  presenter,
		log:        log,
	}
}

// OnHotkeyChanged sets the callback run after the hotkey settings change
func (h *Handler) OnHotkeyChanged(fn func() error) {
	h.onHotkeyChanged = fn
}

// Observe records the latest engine event so /api/status can show it
func (h *Handler) Observe(ev notification.Event) {
	if ev.Kind == notification.Progress {
		return
	}
	msg := h.presenter.Message(ev)
	h.mu.Lock()
	h.lastMessage = msg
	h.lastKind = ev.Kind.String()
	h.mu.Unlock()
}

// RegisterRoutes registers all API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/hotkey/validate", h.handleHotkeyValidate)
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/recordings", h.handleRecordings)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/record/start", h.handleRecordStart)
	mux.HandleFunc("/api/record/stop", h.handleRecordStop)
	mux.HandleFunc("/api/play", h.handlePlay)
}

// Routes returns a mux with all API routes registered
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with a JSON body carrying the message
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleSettings handles GET and PUT /api/settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w, r)
	case http.MethodPut:
		h.putSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getSettings returns the current configuration
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config.Clone())
}

// putSettings updates the configuration
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.config.Update(updates); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to update config: %v", err))
		return
	}

	minDuration := h.config.MinDuration()
	h.engine.SetMinDuration(minDuration)
	h.presenter.SetMinDuration(minDuration)

	if _, ok := updates["ui_language"]; ok {
		h.presenter.SetLanguage(i18n.Resolve(h.config.Clone().UILanguage))
	}

	if level, ok := updates["log_level"].(string); ok {
		if lvl, err := logger.ParseLevel(level); err == nil {
			h.log.SetLevel(lvl)
		}
	}

	if h.configPath != "" {
		if err := h.config.Save(h.configPath); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save config: %v", err))
			return
		}
	}

	if _, ok := updates["hotkey"]; ok && h.onHotkeyChanged != nil {
		if err := h.onHotkeyChanged(); err != nil {
			// Config is already saved
			h.log.Warn("Failed to reload hotkey: %v", err)
			writeJSON(w, http.StatusOK, map[string]string{
				"status":  "partial",
				"message": fmt.Sprintf("Hotkey saved but reload failed: %v. Please restart the application.", err),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleHotkeyValidate handles POST /api/hotkey/validate
func (h *Handler) handleHotkeyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request config.HotkeyConfig
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := hotkey.FromConfig(request, hotkey.Toggle)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":   false,
			"message": err.Error(),
		})
		return
	}

	conflictNames := []string{}
	for _, c := range hotkey.CheckConflicts(cfg.Modifiers, cfg.Key) {
		conflictNames = append(conflictNames, c.Name)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     true,
		"display":   cfg.String(),
		"conflicts": conflictNames,
	})
}

// Device represents an audio device
type Device struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	IsDefault      bool   `json:"is_default"`
	InputChannels  int    `json:"input_channels"`
	OutputChannels int    `json:"output_channels"`
}

// convertAudioDevices converts audio.Device slice to api.Device slice
func convertAudioDevices(audioDevices []audio.Device) []Device {
	devices := make([]Device, 0, len(audioDevices))
	for _, dev := range audioDevices {
		devices = append(devices, Device{
			ID:             dev.ID,
			Name:           dev.Name,
			IsDefault:      dev.IsDefault,
			InputChannels:  dev.InputChannels,
			OutputChannels: dev.OutputChannels,
		})
	}
	return devices
}

// handleDevices handles GET /api/devices
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	audioDevices, err := h.engine.Devices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list audio devices: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": convertAudioDevices(audioDevices),
	})
}

// handleRecordings handles GET /api/recordings
func (h *Handler) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list, err := h.engine.Recordings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list recordings: %v", err))
		return
	}
	if list == nil {
		list = []storage.Recording{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recordings": list,
	})
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	State       string  `json:"state"`
	Direction   string  `json:"direction,omitempty"`
	Mode        string  `json:"mode,omitempty"`
	Label       string  `json:"label"`
	File        string  `json:"file,omitempty"`
	Elapsed     float64 `json:"elapsed_seconds,omitempty"`
	LastFile    string  `json:"last_file,omitempty"`
	RecordLabel string  `json:"record_label"`
	PlayLabel   string  `json:"play_label"`
	PlayEnabled bool    `json:"play_enabled"`
	Message     string  `json:"message,omitempty"`
	Event       string  `json:"event,omitempty"`
}

func (h *Handler) status() StatusResponse {
	st := h.engine.Status()
	record, play, playEnabled := h.presenter.Buttons(st.Snapshot, st.LastFile != "")

	resp := StatusResponse{
		State:       st.State.String(),
		Label:       h.presenter.Status(st.Snapshot),
		RecordLabel: record,
		PlayLabel:   play,
		PlayEnabled: playEnabled,
	}
	if st.LastFile != "" {
		resp.LastFile = filepath.Base(st.LastFile)
	}
	if st.State != session.Idle {
		resp.Direction = st.Direction.String()
		resp.Mode = st.Mode.String()
		if st.File != "" {
			resp.File = filepath.Base(st.File)
		}
		if !st.Started.IsZero() {
			resp.Elapsed = time.Since(st.Started).Seconds()
		}
	}

	h.mu.Lock()
	resp.Message = h.lastMessage
	resp.Event = h.lastKind
	h.mu.Unlock()

	return resp
}

// handleStatus handles GET /api/status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

// handleRecordStart handles POST /api/record/start
func (h *Handler) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Mode string `json:"mode"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if request.Mode == "" {
		request.Mode = h.config.Clone().Storage.Mode
	}

	mode, ok := session.ParseMode(request.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mode: %s (must be 'byte' or 'container')", request.Mode))
		return
	}

	if !h.engine.RequestStart(mode) {
		writeError(w, http.StatusConflict, h.presenter.Text("error.busy"))
		return
	}

	writeJSON(w, http.StatusAccepted, h.status())
}

// handleRecordStop handles POST /api/record/stop
func (h *Handler) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.engine.RequestStop() {
		writeError(w, http.StatusConflict, h.presenter.Status(h.engine.Status().Snapshot))
		return
	}

	writeJSON(w, http.StatusAccepted, h.status())
}

// handlePlay handles POST /api/play. An empty name plays the last recording.
func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var path string
	if request.Name != "" {
		p, err := h.engine.Store().Resolve(request.Name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		path = p
	} else if h.engine.LastFile() == "" {
		writeError(w, http.StatusNotFound, h.presenter.Text("error.no_recording"))
		return
	}

	if !h.engine.RequestPlay(path) {
		writeError(w, http.StatusConflict, h.presenter.Text("error.busy"))
		return
	}

	writeJSON(w, http.StatusAccepted, h.status())
}
