package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
	applog "github.com/noah-isme/mas-api/pkg/logger"
	"github.com/noah-isme/mas-api/pkg/export"
)

var exportNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type historySource interface {
	History(ctx context.Context, actor *models.JWTClaims, id string) (*dto.MASHistory, error)
}

type datasetRenderer interface {
	Render(w io.Writer, data export.Dataset) error
	ContentType() string
	Extension() string
}

// ExportedFile is a rendered export ready to stream.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders a chain's activity history as CSV or PDF.
type ExportService struct {
	history   historySource
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(history historySource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		history: history,
		renderers: map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportHistory renders the ledger of the chain containing id.
func (s *ExportService) ExportHistory(ctx context.Context, actor *models.JWTClaims, id, format string) (*ExportedFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.FieldError("format", "format must be csv or pdf")
	}

	history, err := s.history.History(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, s.historyDataset(history)); err != nil {
		return nil, appErrors.Internal(err, "failed to render history export")
	}
	applog.For(ctx, s.logger).Info("history exported", zap.String("mas_id", history.MASID), zap.String("format", format))
	return &ExportedFile{
		Filename:    fmt.Sprintf("%s-history.%s", exportNameUnsafe.ReplaceAllString(history.MASID, "_"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (s *ExportService) historyDataset(history *dto.MASHistory) export.Dataset {
	headers := []string{"Timestamp", "Revision", "Action", "User", "Status", "Building", "Service", "Item", "Make", "Details"}
	rows := make([]map[string]string, 0, len(history.Activity))
	for _, entry := range history.Activity {
		rows = append(rows, map[string]string{
			"Timestamp": entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			"Revision":  entry.Revision,
			"Action":    string(entry.Action),
			"User":      entry.Username,
			"Status":    entry.Status,
			"Building":  entry.BuildingName,
			"Service":   entry.ServiceName,
			"Item":      entry.ItemName,
			"Make":      entry.Make,
			"Details":   entry.Details,
		})
	}

	lines := []string{
		"Revisions: " + strconv.Itoa(len(history.Revisions)),
		"Generated at " + s.now().UTC().Format(time.RFC3339),
	}
	if len(history.Activity) > 0 {
		lines = append([]string{"Project: " + history.Activity[0].ProjectName}, lines...)
	}

	return export.Dataset{
		Title:   "MAS history " + history.MASID,
		Lines:   lines,
		Headers: headers,
		Rows:    rows,
		Widths:  map[string]float64{"Timestamp": 1.4, "Details": 2.5},
	}
}
