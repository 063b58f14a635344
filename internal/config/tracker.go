// Package config holds the tracker's startup configuration file and the
// runtime parameters adjusted while the tracking loop runs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TrackerConfig is the optional JSON startup file. Every field is a pointer
// so an omitted key falls back to the default returned by its Get* accessor;
// partial files are safe.
type TrackerConfig struct {
	// Geometry and alignment
	Width         *int  `json:"width,omitempty"`
	MiddlePercent *int  `json:"middle_percent,omitempty"`
	FlipX         *bool `json:"flip_x,omitempty"`
	FlipY         *bool `json:"flip_y,omitempty"`
	SingleObject  *bool `json:"single_object,omitempty"`

	// Segmentation
	BGRColor      *string `json:"bgr_color,omitempty"` // "b,g,r"
	HSVRange      *int    `json:"hsv_range,omitempty"`
	MinimumPixels *int    `json:"minimum_pixels,omitempty"`

	// Collaborators
	Camera      *string `json:"camera,omitempty"`
	GRPCListen  *string `json:"grpc_listen,omitempty"`
	MaxClients  *int    `json:"max_clients,omitempty"`
	HTTPListen  *string `json:"http_listen,omitempty"`
	LEDs        *bool   `json:"leds,omitempty"`
	LEDPort     *string `json:"led_port,omitempty"`
	DBPath      *string `json:"db_path,omitempty"`
	SnapshotDir *string `json:"snapshot_dir,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyTrackerConfig returns a TrackerConfig with all fields set to nil.
func EmptyTrackerConfig() *TrackerConfig {
	return &TrackerConfig{}
}

// DefaultTrackerConfig returns a TrackerConfig with every field populated.
func DefaultTrackerConfig() *TrackerConfig {
	c := EmptyTrackerConfig()
	return &TrackerConfig{
		Width:         ptrInt(c.GetWidth()),
		MiddlePercent: ptrInt(c.GetMiddlePercent()),
		FlipX:         ptrBool(c.GetFlipX()),
		FlipY:         ptrBool(c.GetFlipY()),
		SingleObject:  ptrBool(c.GetSingleObject()),
		BGRColor:      ptrString(c.GetBGRColor()),
		HSVRange:      ptrInt(c.GetHSVRange()),
		MinimumPixels: ptrInt(c.GetMinimumPixels()),
		Camera:        ptrString(c.GetCamera()),
		GRPCListen:    ptrString(c.GetGRPCListen()),
		MaxClients:    ptrInt(c.GetMaxClients()),
		HTTPListen:    ptrString(c.GetHTTPListen()),
		LEDs:          ptrBool(c.GetLEDs()),
		LEDPort:       ptrString(c.GetLEDPort()),
		DBPath:        ptrString(c.GetDBPath()),
		SnapshotDir:   ptrString(c.GetSnapshotDir()),
	}
}

// LoadTrackerConfig loads a TrackerConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTrackerConfig(path string) (*TrackerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TrackerConfig) Validate() error {
	if c.Width != nil && (*c.Width < MinWidth || *c.Width > MaxWidth) {
		return fmt.Errorf("width must be between %d and %d, got %d", MinWidth, MaxWidth, *c.Width)
	}
	if c.MiddlePercent != nil && (*c.MiddlePercent < MinTolerance || *c.MiddlePercent > MaxTolerance) {
		return fmt.Errorf("middle_percent must be between %d and %d, got %d", MinTolerance, MaxTolerance, *c.MiddlePercent)
	}
	if c.BGRColor != nil {
		if _, err := ParseBGR(*c.BGRColor); err != nil {
			return fmt.Errorf("invalid bgr_color: %w", err)
		}
	}
	if c.HSVRange != nil && (*c.HSVRange < 1 || *c.HSVRange > 90) {
		return fmt.Errorf("hsv_range must be between 1 and 90, got %d", *c.HSVRange)
	}
	if c.MinimumPixels != nil && *c.MinimumPixels < 0 {
		return fmt.Errorf("minimum_pixels must be non-negative, got %d", *c.MinimumPixels)
	}
	if c.MaxClients != nil && *c.MaxClients < 0 {
		return fmt.Errorf("max_clients must be non-negative, got %d", *c.MaxClients)
	}
	return nil
}

// ParseBGR parses "b,g,r" (spaces allowed) into three 0-255 channels.
func ParseBGR(s string) ([3]uint8, error) {
	var out [3]uint8
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 comma separated values, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("channel %d: %w", i, err)
		}
		if v < 0 || v > 255 {
			return out, fmt.Errorf("channel %d out of range: %d", i, v)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

// GetWidth returns the width value or the default.
func (c *TrackerConfig) GetWidth() int {
	if c.Width == nil {
		return 400
	}
	return *c.Width
}

// GetMiddlePercent returns the middle_percent value or the default.
func (c *TrackerConfig) GetMiddlePercent() int {
	if c.MiddlePercent == nil {
		return 15
	}
	return *c.MiddlePercent
}

func (c *TrackerConfig) GetFlipX() bool {
	if c.FlipX == nil {
		return false
	}
	return *c.FlipX
}

func (c *TrackerConfig) GetFlipY() bool {
	if c.FlipY == nil {
		return false
	}
	return *c.FlipY
}

// GetSingleObject returns true when one blob (not a pair) is tracked.
func (c *TrackerConfig) GetSingleObject() bool {
	if c.SingleObject == nil {
		return false
	}
	return *c.SingleObject
}

// GetBGRColor returns the target colour or the default.
func (c *TrackerConfig) GetBGRColor() string {
	if c.BGRColor == nil || *c.BGRColor == "" {
		return "174,56,5"
	}
	return *c.BGRColor
}

func (c *TrackerConfig) GetHSVRange() int {
	if c.HSVRange == nil {
		return 20
	}
	return *c.HSVRange
}

func (c *TrackerConfig) GetMinimumPixels() int {
	if c.MinimumPixels == nil {
		return 100
	}
	return *c.MinimumPixels
}

// GetCamera returns the camera spec ("synthetic", "dir:<path>", "screen").
func (c *TrackerConfig) GetCamera() string {
	if c.Camera == nil || *c.Camera == "" {
		return "synthetic"
	}
	return *c.Camera
}

func (c *TrackerConfig) GetGRPCListen() string {
	if c.GRPCListen == nil || *c.GRPCListen == "" {
		return "[::]:50051"
	}
	return *c.GRPCListen
}

// GetMaxClients returns the concurrent stream limit; 0 means unlimited.
func (c *TrackerConfig) GetMaxClients() int {
	if c.MaxClients == nil {
		return 16
	}
	return *c.MaxClients
}

// GetHTTPListen returns the preview address; empty disables the preview.
func (c *TrackerConfig) GetHTTPListen() string {
	if c.HTTPListen == nil {
		return ""
	}
	return *c.HTTPListen
}

func (c *TrackerConfig) GetLEDs() bool {
	if c.LEDs == nil {
		return false
	}
	return *c.LEDs
}

func (c *TrackerConfig) GetLEDPort() string {
	if c.LEDPort == nil || *c.LEDPort == "" {
		return "/dev/ttyACM0"
	}
	return *c.LEDPort
}

// GetDBPath returns the position log path; empty disables the log.
func (c *TrackerConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

func (c *TrackerConfig) GetSnapshotDir() string {
	if c.SnapshotDir == nil || *c.SnapshotDir == "" {
		return "snapshots"
	}
	return *c.SnapshotDir
}

// Runtime builds the mutable runtime parameters from the startup values.
func (c *TrackerConfig) Runtime() *RuntimeConfig {
	return NewRuntimeConfig(c.GetWidth(), c.GetMiddlePercent(), c.GetFlipX(), c.GetFlipY())
}
