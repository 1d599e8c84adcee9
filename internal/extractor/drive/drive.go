// Package drive extracts document text from Google Drive and lists the files
// below Drive folders.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"askdoc/internal/domain"
	"askdoc/internal/logger"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
	MimeTypeDOCX         = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypePDF          = "application/pdf"
)

// ExportMimeText is the export format for Docs and Slides.
const ExportMimeText = "text/plain"

// MaxContentSize is the default maximum number of bytes read from one file (5MB).
const MaxContentSize = 5 * 1024 * 1024

const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, parents, size)"

// ErrMissingToken is returned when neither the request nor the environment
// supplies an access token.
var ErrMissingToken = errors.New("drive: missing access token")

// Config configures the Drive extractor.
type Config struct {
	// Token is used when a request carries no credential of its own.
	Token     string
	RateLimit RateLimitConfig
	MaxDepth  int
	// MaxContentSize caps downloads; larger files are unavailable.
	MaxContentSize int64
	// ClientOptions are appended to the options of every Drive service.
	ClientOptions []option.ClientOption
}

// Extractor implements domain.ContentExtractor and domain.FileLister over the
// Drive v3 API. Credentials are OAuth access tokens.
type Extractor struct {
	token    string
	limiter  *RateLimiter
	maxDepth int
	maxSize  int64
	opts     []option.ClientOption
}

var (
	_ domain.ContentExtractor = (*Extractor)(nil)
	_ domain.FileLister       = (*Extractor)(nil)
)

// New creates a Drive extractor.
func New(cfg Config) *Extractor {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = MaxContentSize
	}
	return &Extractor{
		token:    cfg.Token,
		limiter:  NewRateLimiter(cfg.RateLimit),
		maxDepth: cfg.MaxDepth,
		maxSize:  cfg.MaxContentSize,
		opts:     cfg.ClientOptions,
	}
}

// clientOptions authenticates Drive and Sheets calls with the request
// credential, falling back to the configured token.
func (e *Extractor) clientOptions(credential string) ([]option.ClientOption, error) {
	token := credential
	if token == "" {
		token = e.token
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return append([]option.ClientOption{option.WithTokenSource(ts)}, e.opts...), nil
}

func (e *Extractor) service(ctx context.Context, credential string) (*drive.Service, []option.ClientOption, error) {
	opts, err := e.clientOptions(credential)
	if err != nil {
		return nil, nil, err
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, opts, nil
}

// observe opens the limiter's backoff window on 429 responses.
func (e *Extractor) observe(err error) {
	if IsRateLimited(err) {
		e.limiter.RecordRateLimitError(0)
	}
}

// Extract fetches the metadata of documentID and returns its text. Google
// Docs and Slides are exported as plain text, every sheet of a spreadsheet is
// read through the Sheets API, .docx and PDF files are parsed and text-like
// files are downloaded as-is. Other types are unavailable.
func (e *Extractor) Extract(ctx context.Context, documentID, credential string) (*domain.RawDocument, error) {
	svc, opts, err := e.service(ctx, credential)
	if err != nil {
		return nil, domain.NewContentUnavailableError(documentID, "no drive credentials", err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	file, err := svc.Files.Get(documentID).Fields("id, name, mimeType, size").Context(ctx).Do()
	if err != nil {
		e.observe(err)
		return nil, wrapError(documentID, err)
	}

	text, err := e.fetchContent(ctx, svc, opts, file)
	if err != nil {
		return nil, err
	}
	logger.Debug("Extracted %d bytes from %s (%s)", len(text), file.Name, file.MimeType)
	return &domain.RawDocument{
		ID:          file.Id,
		DisplayName: file.Name,
		MimeType:    file.MimeType,
		FullText:    text,
	}, nil
}

func (e *Extractor) fetchContent(ctx context.Context, svc *drive.Service, opts []option.ClientOption, file *drive.File) (string, error) {
	switch file.MimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		data, err := e.export(ctx, svc, file.Id, ExportMimeText)
		return string(data), err
	case MimeTypeGoogleSheet:
		return e.sheetText(ctx, opts, file.Id)
	case MimeTypeDOCX:
		return e.parse(ctx, svc, file.Id, "docx", docxText)
	case MimeTypePDF:
		return e.parse(ctx, svc, file.Id, "pdf", pdfText)
	case MimeTypeFolder:
		return "", domain.NewContentUnavailableError(file.Id, "is a folder", nil)
	}

	if !isTextFile(file.MimeType) {
		return "", domain.NewContentUnavailableError(file.Id, "unsupported file type: "+file.MimeType, domain.ErrUnsupportedType)
	}
	data, err := e.download(ctx, svc, file.Id)
	return string(data), err
}

func (e *Extractor) parse(ctx context.Context, svc *drive.Service, fileID, kind string, parse func([]byte) (string, error)) (string, error) {
	data, err := e.download(ctx, svc, fileID)
	if err != nil {
		return "", err
	}
	text, err := parse(data)
	if err != nil {
		return "", domain.NewContentUnavailableError(fileID, "failed to parse "+kind+" content", err)
	}
	return text, nil
}

func (e *Extractor) download(ctx context.Context, svc *drive.Service, fileID string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		e.observe(err)
		return nil, wrapError(fileID, err)
	}
	defer resp.Body.Close()
	return e.readLimited(fileID, resp.Body)
}

func (e *Extractor) export(ctx context.Context, svc *drive.Service, fileID, exportMime string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		e.observe(err)
		return nil, wrapError(fileID, err)
	}
	defer resp.Body.Close()
	return e.readLimited(fileID, resp.Body)
}

// readLimited reads at most maxSize bytes. Longer content is rejected
// rather than indexed partially.
func (e *Extractor) readLimited(fileID string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.maxSize+1))
	if err != nil {
		return nil, domain.NewContentUnavailableError(fileID, "read content", err)
	}
	if int64(len(data)) > e.maxSize {
		logger.Warn("File %s exceeds %d bytes", fileID, e.maxSize)
		return nil, domain.NewContentUnavailableError(fileID, fmt.Sprintf("file too large (over %d bytes)", e.maxSize), nil)
	}
	return data, nil
}

// ListFiles returns the supported files below folder, which may be a Drive
// folder URL or a bare folder id. With recursive set, subfolders are walked
// up to the configured depth.
func (e *Extractor) ListFiles(ctx context.Context, folder, credential string, recursive bool) ([]domain.FileInfo, error) {
	folderID := FolderIDFromURL(folder)
	if folderID == "" {
		return nil, domain.NewValidationError("folder", "could not extract a folder id")
	}
	svc, _, err := e.service(ctx, credential)
	if err != nil {
		return nil, err
	}
	logger.Info("Fetching files from folder: %s (recursive: %t)", folderID, recursive)
	files, err := walk(ctx, folderID, recursive, e.maxDepth, func(ctx context.Context, id string) ([]domain.FileInfo, error) {
		return e.children(ctx, svc, id)
	})
	if err != nil {
		return nil, err
	}
	supported := filterSupported(files)
	logger.Info("Found %d files, %d supported", len(files), len(supported))
	return supported, nil
}

func (e *Extractor) children(ctx context.Context, svc *drive.Service, folderID string) ([]domain.FileInfo, error) {
	var out []domain.FileInfo
	pageToken := ""
	for {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))).
			Fields(listFields).
			OrderBy("modifiedTime desc").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			e.observe(err)
			return nil, wrapError(folderID, err)
		}
		for _, f := range resp.Files {
			out = append(out, domain.FileInfo{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				ModifiedTime: f.ModifiedTime,
				Size:         f.Size,
				Parents:      f.Parents,
			})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// isTextFile checks if a MIME type is likely text content.
func isTextFile(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json",
		"application/xml",
		"application/javascript",
		"application/x-yaml",
		"application/x-sh",
		"application/sql",
		"application/rtf":
		return true
	}
	return false
}
