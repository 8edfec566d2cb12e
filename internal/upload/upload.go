package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ppiankov/clearview/internal/api"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/worker"
)

// ErrNotPDF is returned for documents that are not PDF files
var ErrNotPDF = errors.New("only PDF documents are supported")

const pdfType = "application/pdf"

// Status is the state of one document row
type Status string

const (
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Document is one row of an upload batch
type Document struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Path              string    `json:"-"`
	Size              int64     `json:"size"`
	Type              string    `json:"type"`
	UploadedAt        time.Time `json:"uploaded_at"`
	Status            Status    `json:"status"`
	Message           string    `json:"message,omitempty"`
	DocumentsIngested int       `json:"documents_ingested,omitempty"`
}

// Uploader sends a document to the backend. *api.Client implements it.
type Uploader interface {
	UploadDocument(ctx context.Context, name string, r io.Reader) (*model.IngestResponse, error)
}

// ValidatePDF checks that path is a regular file with a .pdf extension and
// PDF content. It returns the file size.
func ValidatePDF(path string) (int64, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return 0, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat document: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: not a regular file", filepath.Base(path))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read document: %w", err)
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), pdfType) {
		return 0, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
	}

	return info.Size(), nil
}

// Batch uploads documents concurrently, one row per document
type Batch struct {
	uploader Uploader
	workers  int
	now      func() time.Time

	mu       sync.Mutex
	onUpdate func(Document)
}

// NewBatch creates an upload batch running up to workers uploads at once
func NewBatch(uploader Uploader, workers int) *Batch {
	return &Batch{
		uploader: uploader,
		workers:  workers,
		now:      time.Now,
	}
}

// OnUpdate registers fn to receive every row change. Calls are serialized.
func (b *Batch) OnUpdate(fn func(Document)) {
	b.onUpdate = fn
}

// Run uploads paths and returns their rows in input order. Documents that
// fail validation get an error row without contacting the backend; one
// failed document never stops the others.
func (b *Batch) Run(ctx context.Context, paths []string) []Document {
	rows := make([]Document, len(paths))

	pool := worker.NewPool(ctx, b.workers)
	pool.Start()

	for i, path := range paths {
		row := Document{
			ID:         ulid.Make().String(),
			Name:       filepath.Base(path),
			Path:       path,
			Type:       pdfType,
			UploadedAt: b.now(),
			Status:     StatusUploading,
		}

		size, err := ValidatePDF(path)
		row.Size = size
		if err != nil {
			row.Status = StatusError
			row.Message = err.Error()
			row.Type = guessType(path)
			rows[i] = row
			b.emit(row)
			continue
		}

		rows[i] = row
		b.emit(row)
		if !pool.Submit(&uploadJob{index: i, row: row, batch: b}) {
			rows[i].Status = StatusError
			rows[i].Message = "upload cancelled"
			b.emit(rows[i])
		}
	}

	for _, r := range pool.Wait() {
		res := r.(*uploadResult)
		rows[res.index] = res.row
	}

	// Rows still marked uploading never ran because the context ended
	for i := range rows {
		if rows[i].Status == StatusUploading {
			rows[i].Status = StatusError
			rows[i].Message = "upload cancelled"
			b.emit(rows[i])
		}
	}
	return rows
}

func (b *Batch) emit(row Document) {
	if b.onUpdate == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onUpdate(row)
}

type uploadJob struct {
	index int
	row   Document
	batch *Batch
}

type uploadResult struct {
	index int
	row   Document
	err   error
}

func (r *uploadResult) GetError() error {
	return r.err
}

func (j *uploadJob) Execute(ctx context.Context) worker.Result {
	row := j.row
	resp, err := j.upload(ctx)
	switch {
	case err != nil:
		row.Status = StatusError
		row.Message = api.Message(err)
	case !resp.Succeeded():
		row.Status = StatusError
		row.Message = resp.Message
		if row.Message == "" {
			row.Message = fmt.Sprintf("ingest status %q", resp.Status)
		}
	default:
		row.Status = StatusSuccess
		row.DocumentsIngested = resp.DocumentsIngested
		row.Message = IngestedMessage(resp.DocumentsIngested)
	}
	j.batch.emit(row)
	return &uploadResult{index: j.index, row: row, err: err}
}

func (j *uploadJob) upload(ctx context.Context) (*model.IngestResponse, error) {
	f, err := os.Open(j.row.Path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()
	return j.batch.uploader.UploadDocument(ctx, j.row.Name, f)
}

// IngestedMessage is the confirmation shown after a successful ingest
func IngestedMessage(n int) string {
	if n == 1 {
		return "1 document ingested"
	}
	return fmt.Sprintf("%d documents ingested", n)
}

// FormatSize renders a byte count for display ("1.5 KB")
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

func guessType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if n == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head[:n])
}
