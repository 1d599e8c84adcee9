package drive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"askdoc/internal/domain"
)

type fakeDrive struct {
	files    map[string]string // id -> metadata JSON
	contents map[string]string // id or id/export -> body
	children map[string]string // folder id -> list JSON
	sheets   map[string]string // spreadsheet id -> spreadsheet JSON
	values   map[string]string // spreadsheet id/range -> value range JSON
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case strings.HasPrefix(path, "v4/spreadsheets/"):
		key := strings.TrimPrefix(path, "v4/spreadsheets/")
		body, ok := f.sheets[key]
		if id, rng, found := strings.Cut(key, "/values/"); found {
			body, ok = f.values[id+"/"+rng]
		}
		if !ok {
			notFound(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	case path == "files":
		q := r.URL.Query().Get("q")
		for id, body := range f.children {
			if strings.HasPrefix(q, "'"+id+"' in parents") {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		_, _ = w.Write([]byte(`{"files":[]}`))
	case strings.HasSuffix(path, "/export"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "files/"), "/export")
		body, ok := f.contents[id+"/export:"+r.URL.Query().Get("mimeType")]
		if !ok {
			notFound(w)
			return
		}
		_, _ = w.Write([]byte(body))
	case strings.HasPrefix(path, "files/"):
		id := strings.TrimPrefix(path, "files/")
		if r.URL.Query().Get("alt") == "media" {
			body, ok := f.contents[id]
			if !ok {
				notFound(w)
				return
			}
			_, _ = w.Write([]byte(body))
			return
		}
		meta, ok := f.files[id]
		if !ok {
			notFound(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(meta))
	default:
		notFound(w)
	}
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
}

func meta(id, name, mime string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"mimeType":%q}`, id, name, mime)
}

func newTestExtractor(t *testing.T, fake *fakeDrive, opts ...func(*Config)) *Extractor {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := Config{
		Token:     "env-token",
		RateLimit: RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100},
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithHTTPClient(srv.Client()),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// docxFile builds a minimal .docx archive with one paragraph per argument.
func docxFile(t *testing.T, paragraphs ...string) string {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.String()
}

// pdfFile builds a one-page PDF showing text in Helvetica.
func pdfFile(text string) string {
	stream := "BT /F1 12 Tf 72 712 Td (" + text + ") Tj ET"
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
	}
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.String()
}

func TestExtract_PerMimeType(t *testing.T) {
	fake := &fakeDrive{
		files: map[string]string{
			"doc":   meta("doc", "Notes", MimeTypeGoogleDoc),
			"deck":  meta("deck", "Pitch", MimeTypeGoogleSlides),
			"txt":   meta("txt", "readme.txt", "text/plain"),
		},
		contents: map[string]string{
			"doc/export:text/plain":  "Doc body.",
			"deck/export:text/plain": "Slide one.",
			"txt":                    "Plain text.",
		},
	}
	e := newTestExtractor(t, fake)

	tests := []struct {
		id, name, mime, text string
	}{
		{"doc", "Notes", MimeTypeGoogleDoc, "Doc body."},
		{"deck", "Pitch", MimeTypeGoogleSlides, "Slide one."},
		{"txt", "readme.txt", "text/plain", "Plain text."},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			doc, err := e.Extract(context.Background(), tt.id, "")

			require.NoError(t, err)
			assert.Equal(t, tt.id, doc.ID)
			assert.Equal(t, tt.name, doc.DisplayName)
			assert.Equal(t, tt.mime, doc.MimeType)
			assert.Equal(t, tt.text, doc.FullText)
		})
	}
}

func TestExtract_SheetReadsEverySheet(t *testing.T) {
	fake := &fakeDrive{
		files: map[string]string{"sheet": meta("sheet", "Budget", MimeTypeGoogleSheet)},
		sheets: map[string]string{"sheet": `{"spreadsheetId":"sheet","sheets":[
			{"properties":{"title":"Q1"}},
			{"properties":{"title":"Missing"}},
			{"properties":{"title":"Q2 Plan"}}]}`},
		values: map[string]string{
			"sheet/'Q1'":      `{"range":"Q1!A1:B2","majorDimension":"ROWS","values":[["Region","Total"],["North",42]]}`,
			"sheet/'Q2 Plan'": `{"range":"'Q2 Plan'!A1","majorDimension":"ROWS","values":[["Grow"]]}`,
		},
	}
	e := newTestExtractor(t, fake)

	doc, err := e.Extract(context.Background(), "sheet", "")

	require.NoError(t, err)
	assert.Equal(t, MimeTypeGoogleSheet, doc.MimeType)
	assert.Equal(t, "Sheet: Q1\nRegion\tTotal\nNorth\t42\n\nSheet: Q2 Plan\nGrow\n\n", doc.FullText)
}

func TestExtract_SheetNotFound(t *testing.T) {
	fake := &fakeDrive{files: map[string]string{"sheet": meta("sheet", "Budget", MimeTypeGoogleSheet)}}
	e := newTestExtractor(t, fake)

	_, err := e.Extract(context.Background(), "sheet", "")

	assert.ErrorIs(t, err, domain.ErrContentUnavailable)
}

func TestExtract_DOCX(t *testing.T) {
	fake := &fakeDrive{
		files:    map[string]string{"w": meta("w", "report.docx", MimeTypeDOCX)},
		contents: map[string]string{"w": docxFile(t, "Quarterly report.", "Revenue grew.")},
	}
	e := newTestExtractor(t, fake)

	doc, err := e.Extract(context.Background(), "w", "")

	require.NoError(t, err)
	assert.Equal(t, "Quarterly report.\nRevenue grew.", doc.FullText)
}

func TestExtract_PDF(t *testing.T) {
	fake := &fakeDrive{
		files:    map[string]string{"p": meta("p", "paper.pdf", MimeTypePDF)},
		contents: map[string]string{"p": pdfFile("Hello PDF")},
	}
	e := newTestExtractor(t, fake)

	doc, err := e.Extract(context.Background(), "p", "")

	require.NoError(t, err)
	assert.Contains(t, doc.FullText, "Hello PDF")
}

func TestExtract_MalformedBinary(t *testing.T) {
	fake := &fakeDrive{
		files: map[string]string{
			"p": meta("p", "broken.pdf", MimeTypePDF),
			"w": meta("w", "broken.docx", MimeTypeDOCX),
		},
		contents: map[string]string{"p": "not a pdf", "w": "not a zip"},
	}
	e := newTestExtractor(t, fake)

	for id, reason := range map[string]string{"p": "failed to parse pdf content", "w": "failed to parse docx content"} {
		_, err := e.Extract(context.Background(), id, "")

		var cu *domain.ContentUnavailableError
		require.True(t, errors.As(err, &cu), id)
		assert.Equal(t, reason, cu.Reason)
	}
}

func TestExtract_TooLarge(t *testing.T) {
	fake := &fakeDrive{
		files: map[string]string{
			"big": meta("big", "big.txt", "text/plain"),
			"fit": meta("fit", "fit.txt", "text/plain"),
		},
		contents: map[string]string{"big": "0123456789", "fit": "01234567"},
	}
	e := newTestExtractor(t, fake, func(c *Config) { c.MaxContentSize = 8 })

	_, err := e.Extract(context.Background(), "big", "")
	assert.ErrorIs(t, err, domain.ErrContentUnavailable)
	assert.ErrorContains(t, err, "file too large")

	doc, err := e.Extract(context.Background(), "fit", "")
	require.NoError(t, err)
	assert.Equal(t, "01234567", doc.FullText)
}

func TestExtract_UnsupportedType(t *testing.T) {
	fake := &fakeDrive{files: map[string]string{"img": meta("img", "cat.png", "image/png")}}
	e := newTestExtractor(t, fake)

	_, err := e.Extract(context.Background(), "img", "")

	assert.ErrorIs(t, err, domain.ErrContentUnavailable)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.ErrorContains(t, err, "image/png")
}

func TestExtract_NotFound(t *testing.T) {
	e := newTestExtractor(t, &fakeDrive{})

	_, err := e.Extract(context.Background(), "missing", "")

	assert.ErrorIs(t, err, domain.ErrContentUnavailable)
	var cu *domain.ContentUnavailableError
	require.True(t, errors.As(err, &cu))
	assert.Equal(t, "missing", cu.DocumentID)
	assert.Equal(t, "not found", cu.Reason)
}

func TestExtract_MissingToken(t *testing.T) {
	e := New(Config{})

	_, err := e.Extract(context.Background(), "doc", "")

	assert.ErrorIs(t, err, domain.ErrContentUnavailable)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestListFiles(t *testing.T) {
	fake := &fakeDrive{children: map[string]string{
		"root": `{"files":[
			{"id":"d1","name":"Doc","mimeType":"` + MimeTypeGoogleDoc + `","size":"10"},
			{"id":"sub","name":"Sub","mimeType":"` + MimeTypeFolder + `"},
			{"id":"p1","name":"pic.png","mimeType":"image/png"}]}`,
		"sub": `{"files":[{"id":"t1","name":"a.txt","mimeType":"text/plain","parents":["sub"]}]}`,
	}}
	e := newTestExtractor(t, fake)

	flat, err := e.ListFiles(context.Background(), "https://drive.google.com/drive/folders/root", "", false)
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, "d1", flat[0].ID)
	assert.Equal(t, int64(10), flat[0].Size)

	all, err := e.ListFiles(context.Background(), "root", "", true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "d1", all[0].ID)
	assert.Equal(t, "t1", all[1].ID)
	assert.Equal(t, []string{"sub"}, all[1].Parents)
}

func TestListFiles_InvalidFolder(t *testing.T) {
	e := New(Config{Token: "t"})

	_, err := e.ListFiles(context.Background(), "https://example.com/nothing here", "", true)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIsTextFile(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"text/markdown", true},
		{"application/json", true},
		{"application/x-yaml", true},
		{MimeTypePDF, false},
		{"image/png", false},
		{MimeTypeGoogleDoc, false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, isTextFile(tt.mime))
		})
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(MimeTypeGoogleDoc))
	assert.True(t, Supported(MimeTypeGoogleSheet))
	assert.True(t, Supported(MimeTypeGoogleSlides))
	assert.True(t, Supported("text/csv"))
	assert.True(t, Supported(MimeTypeDOCX))
	assert.True(t, Supported(MimeTypePDF))
	assert.False(t, Supported(MimeTypeFolder))
	assert.False(t, Supported("application/zip"))
}
