package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/clearview/internal/api"
	"github.com/ppiankov/clearview/internal/model"
)

const pdfBody = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"

type mockUploader struct {
	mu    sync.Mutex
	names []string
	resp  map[string]*model.IngestResponse
	errs  map[string]error
}

func (m *mockUploader) UploadDocument(ctx context.Context, name string, r io.Reader) (*model.IngestResponse, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.names = append(m.names, name)
	m.mu.Unlock()

	if err := m.errs[name]; err != nil {
		return nil, err
	}
	if resp := m.resp[name]; resp != nil {
		return resp, nil
	}
	return &model.IngestResponse{Status: "success", DocumentsIngested: 1}, nil
}

func (m *mockUploader) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidatePDF(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"pdf", writeFile(t, dir, "policy.pdf", pdfBody), nil},
		{"uppercase extension", writeFile(t, dir, "POLICY.PDF", pdfBody), nil},
		{"wrong extension", writeFile(t, dir, "notes.txt", pdfBody), ErrNotPDF},
		{"pdf extension but text", writeFile(t, dir, "fake.pdf", "just some text"), ErrNotPDF},
		{"empty pdf", writeFile(t, dir, "empty.pdf", ""), ErrNotPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := ValidatePDF(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if size != int64(len(pdfBody)) {
				t.Errorf("expected size %d, got %d", len(pdfBody), size)
			}
		})
	}

	if _, err := ValidatePDF(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatch_NonPDFRejectedWithoutUpload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "photo.png", "\x89PNG\r\n\x1a\nrest")

	up := &mockUploader{}
	rows := NewBatch(up, 2).Run(context.Background(), []string{path})

	if len(up.calls()) != 0 {
		t.Fatalf("expected no upload, got %v", up.calls())
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Status != StatusError {
		t.Errorf("expected error row, got %s", rows[0].Status)
	}
	if rows[0].Type != "image/png" {
		t.Errorf("expected detected type image/png, got %q", rows[0].Type)
	}
}

func TestBatch_MixedResults(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.pdf", pdfBody),
		writeFile(t, dir, "b.txt", "text"),
		writeFile(t, dir, "c.pdf", pdfBody),
		writeFile(t, dir, "d.pdf", pdfBody),
	}

	up := &mockUploader{
		resp: map[string]*model.IngestResponse{
			"a.pdf": {Status: "success", DocumentsIngested: 3},
			"d.pdf": {Status: "error", Message: "duplicate document"},
		},
		errs: map[string]error{
			"c.pdf": &api.OpError{Op: "upload", Kind: api.ErrUnexpectedStatus, Status: 500, Msg: "disk full"},
		},
	}

	var mu sync.Mutex
	updates := 0
	b := NewBatch(up, 3)
	b.OnUpdate(func(Document) {
		mu.Lock()
		updates++
		mu.Unlock()
	})
	rows := b.Run(context.Background(), paths)

	want := []struct {
		name    string
		status  Status
		message string
	}{
		{"a.pdf", StatusSuccess, "3 documents ingested"},
		{"b.txt", StatusError, ""},
		{"c.pdf", StatusError, "disk full"},
		{"d.pdf", StatusError, "duplicate document"},
	}
	for i, w := range want {
		if rows[i].Name != w.name {
			t.Errorf("row %d: expected %s, got %s", i, w.name, rows[i].Name)
		}
		if rows[i].Status != w.status {
			t.Errorf("row %d (%s): expected %s, got %s", i, w.name, w.status, rows[i].Status)
		}
		if w.message != "" && rows[i].Message != w.message {
			t.Errorf("row %d (%s): expected message %q, got %q", i, w.name, w.message, rows[i].Message)
		}
		if rows[i].ID == "" {
			t.Errorf("row %d: missing id", i)
		}
	}
	if rows[0].DocumentsIngested != 3 {
		t.Errorf("expected 3 ingested, got %d", rows[0].DocumentsIngested)
	}
	if len(up.calls()) != 3 {
		t.Errorf("expected 3 uploads, got %v", up.calls())
	}
	// b.txt: one error update; each pdf: uploading + final
	if updates != 7 {
		t.Errorf("expected 7 row updates, got %d", updates)
	}
}

func TestBatch_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pdf", pdfBody)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	up := &mockUploader{}
	rows := NewBatch(up, 1).Run(ctx, []string{path})
	if rows[0].Status != StatusError {
		t.Errorf("expected error row for cancelled batch, got %s", rows[0].Status)
	}
	if len(up.calls()) != 0 {
		t.Errorf("expected no uploads, got %v", up.calls())
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{500, "500 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestIngestedMessage(t *testing.T) {
	if got := IngestedMessage(1); got != "1 document ingested" {
		t.Errorf("got %q", got)
	}
	if got := IngestedMessage(4); got != "4 documents ingested" {
		t.Errorf("got %q", got)
	}
}
