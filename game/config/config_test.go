package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/memorymatch/server/game/engine"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	rules, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := engine.DefaultRules()
	if rules.FlipBackDelayMs != def.FlipBackDelayMs || rules.DefaultBoardSize != def.DefaultBoardSize {
		t.Fatalf("Expected defaults, got %+v", rules)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeRules(t, `{"flip_back_delay_ms": 500, "board_sizes": [12, 24], "default_board_size": 24}`)

	rules, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rules.FlipBackDelayMs != 500 {
		t.Errorf("Expected flip-back delay 500, got %d", rules.FlipBackDelayMs)
	}
	if rules.DefaultBoardSize != 24 {
		t.Errorf("Expected default board size 24, got %d", rules.DefaultBoardSize)
	}
	if len(rules.BoardSizes) != 2 {
		t.Errorf("Expected 2 board sizes, got %v", rules.BoardSizes)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeRules(t, `{"flip_back_delay_ms": 250}`)

	rules, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rules.FlipBackDelayMs != 250 {
		t.Errorf("Expected flip-back delay 250, got %d", rules.FlipBackDelayMs)
	}
	if rules.DefaultBoardSize != engine.DefaultRules().DefaultBoardSize {
		t.Errorf("Expected default board size to carry over, got %d", rules.DefaultBoardSize)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"flip_back_delay_ms": `},
		{"odd board size", `{"board_sizes": [13], "default_board_size": 13}`},
		{"default not allowed", `{"board_sizes": [12], "default_board_size": 16}`},
		{"negative delay", `{"flip_back_delay_ms": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRules(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatal("Expected an error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	rules := engine.DefaultRules()
	rules.FlipBackDelayMs = 750

	if err := Save(path, rules); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.FlipBackDelayMs != 750 {
		t.Errorf("Expected flip-back delay 750, got %d", loaded.FlipBackDelayMs)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	rules := engine.DefaultRules()
	rules.DefaultBoardSize = 7

	err := Save(filepath.Join(t.TempDir(), "rules.json"), rules)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}
