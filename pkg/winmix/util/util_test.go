package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeScalar(t *testing.T) {
	cases := []struct {
		in   float32
		want float32
	}{
		{0.15442, 0.15},
		{0.0, 0.0},
		{1.0, 1.0},
		{0.999, 0.99},
	}

	for _, c := range cases {
		if got := NormalizeScalar(c.in); got != c.want {
			t.Errorf("NormalizeScalar(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	if FileExists(filepath.Join(dir, "nope.yaml")) {
		t.Error("FileExists returned true for a missing file")
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("targets: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(path) {
		t.Error("FileExists returned false for an existing file")
	}

	if FileExists(dir) {
		t.Error("FileExists returned true for a directory")
	}
}
