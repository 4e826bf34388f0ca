package headshape

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportPayload is the persisted form of a session: the visible point set
// plus the fixed-resolution reference set, with provenance.
type ExportPayload struct {
	SessionID    string `json:"sessionId"`
	ExportedAt   int64  `json:"exportedAt"`
	ResolutionMM int    `json:"resolutionMM"`
	Points       Cloud  `json:"hsp"`
	Reference    Cloud  `json:"hspHD"`
}

// BuildExport assembles the export payload from the session's current state.
// Fails with ErrEmptyExport when the visible set is empty and with
// ErrNotReady before a cloud has been loaded.
func BuildExport(s *Session) (*ExportPayload, error) {
	ok, err := s.CanPersist()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEmptyExport
	}

	visible, err := s.Visible()
	if err != nil {
		return nil, err
	}
	reference, err := s.Reference()
	if err != nil {
		return nil, err
	}

	return &ExportPayload{
		SessionID:    s.ID(),
		ExportedAt:   time.Now().Unix(),
		ResolutionMM: s.Resolution(),
		Points:       visible,
		Reference:    reference,
	}, nil
}

// ExportJSON writes the visible and reference sets as JSON.
func ExportJSON(s *Session, path string) error {
	payload, err := BuildExport(s)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ExportText writes the visible set in the plain-text digitizer format.
func ExportText(s *Session, path string) error {
	payload, err := BuildExport(s)
	if err != nil {
		return err
	}
	return WriteCloudText(path, payload.Points)
}
