package pak

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildPak(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for name, content := range files {
		if err := w.Add(name, content); err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return buf.Bytes()
}

func TestWriteRead(t *testing.T) {
	files := map[string][]byte{
		"zack_and_wiki/Stage/STG_00_00_ALL.brres": bytes.Repeat([]byte("RRES"), 1000),
		"zack_and_wiki/Stage/STG_00_00_3.txt":     []byte("STG\n"),
		"zack_and_wiki/Model/OBJ_TREE.brres":      {},
	}
	archive, err := OpenBytes(buildPak(t, files))
	if err != nil {
		t.Fatalf("failed to open pak: %v", err)
	}
	defer archive.Close()

	list := archive.List()
	if len(list) != len(files) {
		t.Fatalf("expected %d files, got %d", len(files), len(list))
	}

	for name, want := range files {
		if !archive.Contains(name) {
			t.Errorf("expected archive to contain %s", name)
		}
		got, err := archive.Read(name)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: content mismatch (got %d bytes, want %d)", name, len(got), len(want))
		}
	}

	entry, ok := archive.Stat("zack_and_wiki/Stage/STG_00_00_ALL.brres")
	if !ok {
		t.Fatal("expected Stat to find stage archive")
	}
	if entry.Flags&FlagCompressed == 0 {
		t.Error("expected repetitive content to be stored compressed")
	}
}

func TestPathNormalization(t *testing.T) {
	archive, err := OpenBytes(buildPak(t, map[string][]byte{`zack_and_wiki\Items\ITM_KEY.brres`: []byte("key")}))
	if err != nil {
		t.Fatalf("failed to open pak: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"zack_and_wiki/Items/ITM_KEY.brres", true},
		{"/zack_and_wiki/Items/ITM_KEY.brres", true},
		{`zack_and_wiki\Items\ITM_KEY.brres`, true},
		{"zack_and_wiki/items/itm_key.brres", false},
	}
	for _, tt := range tests {
		if got := archive.Contains(tt.path); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestReadMissing(t *testing.T) {
	archive, err := OpenBytes(buildPak(t, map[string][]byte{"a": []byte("a")}))
	if err != nil {
		t.Fatalf("failed to open pak: %v", err)
	}
	_, err = archive.Read("b")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddReplaces(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Add("a.txt", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("a.txt", []byte("second")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("b.txt", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}

	archive, err := OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("failed to open pak: %v", err)
	}
	got, _ := archive.Read("a.txt")
	if string(got) != "second" {
		t.Errorf("expected replaced content, got %q", got)
	}
}

func TestOpenInvalid(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrCorrupt},
		{"bad magic", append([]byte("NOTAPAK!"), make([]byte, 12)...), ErrInvalidMagic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenBytes(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	valid := buildPak(t, map[string][]byte{"a": []byte(strings.Repeat("a", 100))})
	if _, err := OpenBytes(valid[:len(valid)-4]); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected truncated table to be corrupt, got %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage.pak")
	if err := os.WriteFile(path, buildPak(t, map[string][]byte{"x/y.txt": []byte("y")}), 0644); err != nil {
		t.Fatal(err)
	}

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open pak: %v", err)
	}
	defer archive.Close()

	data, err := archive.Read("x/y.txt")
	if err != nil || string(data) != "y" {
		t.Errorf("unexpected read result %q, %v", data, err)
	}
}
