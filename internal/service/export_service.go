package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/pkg/export"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type timetableReader interface {
	ListTimetableRows(ctx context.Context, filter models.SessionFilter) ([]models.TimetableRow, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered timetable ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders timetables as downloadable CSV or PDF files.
type ExportService struct {
	sessions timetableReader
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(sessions timetableReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVRenderer()
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	return &ExportService{sessions: sessions, csv: csv, pdf: pdf, logger: logger}
}

var timetableColumns = []string{"Date", "Start", "End", "Subject", "Code", "Instructor", "Room"}

// Timetable renders the filtered timetable in the requested format.
func (s *ExportService) Timetable(ctx context.Context, filter models.SessionFilter, format ExportFormat) (*ExportFile, error) {
	format = ExportFormat(strings.ToLower(string(format)))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	rows, err := s.sessions.ListTimetableRows(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	table := export.Table{Columns: timetableColumns}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Date,
			row.StartTime,
			row.EndTime,
			row.SubjectName,
			row.SubjectCode,
			row.InstructorName,
			row.RoomName,
		})
	}

	title := exportTitle(filter)
	var data []byte
	var contentType, ext string
	switch format {
	case ExportFormatCSV:
		data, err = s.csv.Render(table)
		contentType, ext = "text/csv", "csv"
	case ExportFormatPDF:
		data, err = s.pdf.Render(table, title)
		contentType, ext = "application/pdf", "pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Info("timetable exported",
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable.%s", ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func exportTitle(filter models.SessionFilter) string {
	if filter.DateFrom != "" && filter.DateTo != "" {
		return fmt.Sprintf("Timetable %s to %s", filter.DateFrom, filter.DateTo)
	}
	return "Timetable"
}
