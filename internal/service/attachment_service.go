package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/pkg/config"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
	applog "github.com/noah-isme/mas-api/pkg/logger"
	"github.com/noah-isme/mas-api/pkg/storage"
)

// sniffLen is how many leading bytes are inspected for the content type.
const sniffLen = 3072

var (
	errAttachmentTooLarge = errors.New("attachment exceeds size limit")
	unsafeRefChars        = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type blobStore interface {
	SaveStream(ref string, r io.Reader) (string, error)
	Open(ref string) (*os.File, error)
	Exists(ref string) bool
	Delete(ref string) error
}

type removalQueue interface {
	Submit(ref string) error
}

type urlSigner interface {
	Generate(subject, ref string) (string, time.Time, error)
	Parse(token string) (string, string, error)
}

// AttachmentConfig tunes attachment validation and links.
type AttachmentConfig struct {
	APIPrefix    string
	MaxBytes     int64
	AllowedMIMEs []string
}

// AttachmentService validates, stores and serves MAS attachments.
type AttachmentService struct {
	store   blobStore
	signer  urlSigner
	cfg     AttachmentConfig
	allowed mapset.Set[string]
	removal removalQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// AttachmentOption customises an AttachmentService.
type AttachmentOption func(*AttachmentService)

// WithAttachmentMetrics records accepted attachment sizes.
func WithAttachmentMetrics(m *MetricsService) AttachmentOption {
	return func(s *AttachmentService) {
		s.metrics = m
	}
}

// WithRemovalQueue hands blob deletions to a background queue.
func WithRemovalQueue(q removalQueue) AttachmentOption {
	return func(s *AttachmentService) {
		s.removal = q
	}
}

// NewAttachmentService constructs the service. Empty limits fall back to 5MB
// of PDF or JPEG.
func NewAttachmentService(store blobStore, signer urlSigner, cfg AttachmentConfig, logger *zap.Logger, opts ...AttachmentOption) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = config.DefaultMaxAttachmentBytes
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg"}
	}
	svc := &AttachmentService{
		store:   store,
		signer:  signer,
		cfg:     cfg,
		allowed: mapset.NewSet(cfg.AllowedMIMEs...),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store validates upload and writes it under base plus the sniffed extension.
func (s *AttachmentService) Store(ctx context.Context, upload *dto.AttachmentUpload, base string) (string, error) {
	if upload == nil || upload.Content == nil {
		return "", appErrors.FieldError("attachment", "attachment is required")
	}
	if upload.Size > s.cfg.MaxBytes {
		return "", s.tooLarge()
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", appErrors.Internal(err, "failed to read attachment")
	}
	head = head[:n]
	if n == 0 {
		return "", appErrors.FieldError("attachment", "attachment is empty")
	}

	detected := mimetype.Detect(head)
	if !s.isAllowed(detected) {
		return "", appErrors.FieldError("attachment", "only PDF and JPEG files are allowed")
	}

	ref := base + detected.Extension()
	body := &cappedReader{r: io.MultiReader(bytes.NewReader(head), upload.Content), remaining: s.cfg.MaxBytes}
	stored, err := s.store.SaveStream(ref, body)
	if err != nil {
		if errors.Is(err, errAttachmentTooLarge) {
			return "", s.tooLarge()
		}
		if errors.Is(err, storage.ErrInvalidPath) {
			return "", appErrors.FieldError("attachment", "invalid attachment name")
		}
		return "", appErrors.Internal(err, "failed to store attachment")
	}
	size := s.cfg.MaxBytes - body.remaining
	s.metrics.ObserveAttachment(detected.String(), size)
	applog.For(ctx, s.logger).Info("attachment stored", zap.String("ref", stored), zap.String("mime", detected.String()), zap.Int64("bytes", size))
	return stored, nil
}

// Remove deletes a stored blob, through the removal queue when one is
// configured. Failures are logged only.
func (s *AttachmentService) Remove(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if s.removal != nil {
		err := s.removal.Submit(ref)
		if err == nil {
			return
		}
		s.logger.Warn("removal queue rejected attachment, deleting inline", zap.String("ref", ref), zap.Error(err))
	}
	if err := s.DeleteBlob(ctx, ref); err != nil {
		s.logger.Warn("failed to delete attachment", zap.String("ref", ref), zap.Error(err))
	}
}

// DeleteBlob removes ref from the store. It is the removal queue handler.
func (s *AttachmentService) DeleteBlob(ctx context.Context, ref string) error {
	return s.store.Delete(ref)
}

// Link returns a signed download URL for ref bound to subject.
func (s *AttachmentService) Link(subject, ref string) (*dto.AttachmentLink, error) {
	if ref == "" || !s.store.Exists(ref) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	token, expiresAt, err := s.signer.Generate(subject, ref)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign attachment url")
	}
	prefix := strings.TrimSuffix(s.cfg.APIPrefix, "/")
	return &dto.AttachmentLink{
		URL:       fmt.Sprintf("%s/attachments/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed token to the stored blob and its file name.
func (s *AttachmentService) Open(token string) (io.ReadCloser, string, error) {
	_, ref, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.store.Open(ref)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	return file, path.Base(ref), nil
}

func (s *AttachmentService) isAllowed(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if s.allowed.Contains(m.String()) {
			return true
		}
	}
	return false
}

func (s *AttachmentService) tooLarge() error {
	return appErrors.FieldError("attachment", fmt.Sprintf("file size exceeds %dMB", s.cfg.MaxBytes/(1024*1024)))
}

// attachmentBase builds "mas_files/project_<id>/<mas_id>-<revision>" with
// path-unsafe characters collapsed to underscores.
func attachmentBase(projectID, masID, revision, suffix string) string {
	name := unsafeRefChars.ReplaceAllString(masID+"-"+revision, "_")
	if suffix != "" {
		name += "-" + suffix
	}
	return path.Join("mas_files", "project_"+unsafeRefChars.ReplaceAllString(projectID, "_"), name)
}

// cappedReader fails once more than remaining bytes have been read.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errAttachmentTooLarge
	}
	return n, err
}
