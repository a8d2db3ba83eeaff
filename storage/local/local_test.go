package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/featflow/logger"
	"github.com/kbukum/featflow/storage"
)

func TestFactoryBuildsFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := storage.Config{Provider: storage.ProviderLocal, BasePath: dir}

	s, err := storage.New(cfg, nil, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := s.Upload(ctx, "obj.json", bytes.NewReader([]byte("{}"))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "obj.json")); err != nil {
		t.Fatalf("expected object under configured base path: %v", err)
	}
}

func TestFactoryProviderConfigOverridesBasePath(t *testing.T) {
	core := t.TempDir()
	override := t.TempDir()
	cfg := storage.Config{Provider: storage.ProviderLocal, BasePath: core}

	s, err := storage.New(cfg, &Config{BasePath: override}, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := s.Upload(ctx, "obj.json", bytes.NewReader([]byte("{}"))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(override, "obj.json")); err != nil {
		t.Fatalf("expected object under override path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(core, "obj.json")); !os.IsNotExist(err) {
		t.Fatalf("object written under core path, err=%v", err)
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := s.Upload(ctx, "demo/1/pipeline.json", bytes.NewReader([]byte(`{"name":"demo"}`))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	ok, err := s.Exists(ctx, "demo/1/pipeline.json")
	if err != nil || !ok {
		t.Fatalf("exists: ok=%v err=%v", ok, err)
	}

	r, err := s.Download(ctx, "demo/1/pipeline.json")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer r.Close() //nolint:errcheck
	data, _ := io.ReadAll(r)
	if string(data) != `{"name":"demo"}` {
		t.Fatalf("unexpected content: %s", data)
	}
}

func TestStorage_List(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	for _, p := range []string{"p/batches/000001.json", "p/batches/000000.json", "q/x.json"} {
		if err := s.Upload(ctx, p, bytes.NewReader([]byte("{}"))); err != nil {
			t.Fatalf("upload %s: %v", p, err)
		}
	}

	infos, err := s.List(ctx, "p")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(infos))
	}
	// sorted by path
	if infos[0].Path != "p/batches/000000.json" {
		t.Fatalf("unexpected order: %v", infos)
	}
}

func TestStorage_DeleteMissingIsNil(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(context.Background(), "absent.json"); err != nil {
		t.Fatalf("expected nil for missing file, got %v", err)
	}
}

func TestStorage_ListMissingPrefix(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	infos, err := s.List(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected empty list, got %v", infos)
	}
}
