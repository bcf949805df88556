package settings

import (
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fourtrack.yaml")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	got := store.Get()
	if got.InputDeviceID != "" {
		t.Errorf("expected empty default device id, got %q", got.InputDeviceID)
	}
	if !got.EchoCancellation || !got.NoiseSuppression || !got.AutoGainControl {
		t.Errorf("expected processing flags default true, got %+v", got)
	}
	if !got.ShowFeedbackWarning {
		t.Error("expected feedback warning default true")
	}
}

func TestWritesPersistAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fourtrack.yaml")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := store.SetInputDevice("USB Audio Interface"); err != nil {
		t.Fatalf("set device failed: %v", err)
	}
	if err := store.SetNoiseSuppression(false); err != nil {
		t.Fatalf("set flag failed: %v", err)
	}
	if err := store.SetShowFeedbackWarning(false); err != nil {
		t.Fatalf("set warning failed: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.Get()
	if got.InputDeviceID != "USB Audio Interface" {
		t.Errorf("expected device id to persist, got %q", got.InputDeviceID)
	}
	if got.NoiseSuppression {
		t.Error("expected noise suppression false after reload")
	}
	if got.ShowFeedbackWarning {
		t.Error("expected feedback warning false after reload")
	}
	if !got.EchoCancellation {
		t.Error("expected untouched echo cancellation to stay true")
	}
}
