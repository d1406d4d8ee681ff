package onnx

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestAnchorsFor(t *testing.T) {
	tests := map[int]int{640: 8400, 320: 2100, 32: 21}
	for size, want := range tests {
		if got := anchorsFor(size); got != want {
			t.Errorf("anchorsFor(%d) = %d, want %d", size, got, want)
		}
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"array", `["face","eye"]`, []string{"face", "eye"}, false},
		{"index map", `{"1":"eye","0":"face"}`, []string{"face", "eye"}, false},
		{"bad index", `{"x":"face"}`, nil, true},
		{"out of range", `{"5":"face"}`, nil, true},
		{"garbage", `nope`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := loadLabels(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadLabels() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("loadLabels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadBundleConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadBundleConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config: %v", err)
	}
	if cfg.InputSize != 640 || cfg.Anchors != 8400 || cfg.InputName != "images" {
		t.Errorf("defaults = %+v", cfg)
	}

	path := filepath.Join(dir, configFile)
	data := "input_size: 320\nconfidence: 0.5\nprohibited_labels: [phone]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err = loadBundleConfig(path)
	if err != nil {
		t.Fatalf("loadBundleConfig() error = %v", err)
	}
	if cfg.InputSize != 320 || cfg.Anchors != 2100 || cfg.Confidence != 0.5 {
		t.Errorf("loaded = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ProhibitedLabels, []string{"phone"}) {
		t.Errorf("prohibited = %v", cfg.ProhibitedLabels)
	}
	if !reflect.DeepEqual(cfg.FaceLabels, []string{"face"}) {
		t.Errorf("face labels lost default: %v", cfg.FaceLabels)
	}
}

func TestToSet(t *testing.T) {
	set := toSet([]string{" Cell Phone ", "book"})
	if _, ok := set["cell phone"]; !ok {
		t.Errorf("toSet() = %v, want normalized key", set)
	}
	if len(set) != 2 {
		t.Errorf("toSet() len = %d, want 2", len(set))
	}
}
