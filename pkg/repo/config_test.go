package repo

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/odvcencio/pgit/pkg/object"
)

func TestConfigRoundTrip(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Core.Hash != object.HashSHA256 || cfg.Core.DefaultBranch != "main" {
		t.Fatalf("fresh config = %+v", cfg.Core)
	}

	if err := r.SetUserName("Ada"); err != nil {
		t.Fatalf("SetUserName: %v", err)
	}
	got, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got.User.Name != "Ada" {
		t.Fatalf("User.Name = %q, want Ada", got.User.Name)
	}
}

func TestReadConfigMissingReturnsDefaults(t *testing.T) {
	cfg, err := readConfigFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("readConfigFile: %v", err)
	}
	if cfg.Core.Hash != object.HashSHA256 {
		t.Fatalf("Hash = %q, want default", cfg.Core.Hash)
	}
}

func TestReadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, []byte("[core]\nhash = \"sha256\"\ncolour = \"blue\"\n"))

	_, err := readConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "core.colour") {
		t.Fatalf("readConfigFile error = %v, want unknown key core.colour", err)
	}
}

func TestListRefs(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	h := object.Hash(strings.Repeat("c", 64))
	if err := r.UpdateRef("refs/heads/feature", h); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}

	refs, err := r.ListRefs("heads")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if refs["heads/feature"] != h {
		t.Errorf("heads/feature = %q, want %q", refs["heads/feature"], h)
	}
	if v, ok := refs["heads/main"]; !ok || v != "" {
		t.Errorf("heads/main = %q (present=%v), want unborn empty value", v, ok)
	}
}
