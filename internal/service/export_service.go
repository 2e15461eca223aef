package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/risk"
	"github.com/noah-isme/sma-risk-api/pkg/export"
	"github.com/noah-isme/sma-risk-api/pkg/storage"
)

const (
	colStudent    = "Alumno"
	colLevel      = "Nivel"
	colFailing    = "Reprobación (%)"
	colDropout    = "Abandono (%)"
	colGrade      = "Calificación"
	colAttendance = "Asistencia (%)"
	colCompletion = "Entregas (%)"
	colIRC        = "IRC"
	colFactors    = "Factores"
	colFlags      = "Banderas"
	colAverage    = "Promedio"
	colReferTo    = "Recomendación"
)

var levelLabels = map[risk.Level]string{
	risk.LevelHigh:   "Alto",
	risk.LevelMedium: "Medio",
	risk.LevelLow:    "Bajo",
}

type groupAnalyzer interface {
	AnalyzeGroup(ctx context.Context, groupID, partialID string, asOf *time.Time) (*dto.GroupRiskResponse, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders risk analyses into downloadable files.
type ExportService struct {
	analyzer groupAnalyzer
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(analyzer groupAnalyzer, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(levelRowStyle)
	}
	return &ExportService{
		analyzer: analyzer,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate scores the job's group, renders it in the requested format and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	analysis, err := s.analyzer.AnalyzeGroup(ctx, job.Params.GroupID, job.Params.PartialID, job.Params.AsOf)
	if err != nil {
		return nil, fmt.Errorf("analyze group %s: %w", job.Params.GroupID, err)
	}

	var dataset export.Dataset
	switch job.Type {
	case models.ReportTypeGroupRisk:
		dataset = groupRiskDataset(analysis)
	case models.ReportTypeReferrals:
		dataset = referralDataset(analysis)
	default:
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, reportTitle(job.Type, analysis))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(buildFilename(job, analysis.AsOf), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func groupRiskDataset(analysis *dto.GroupRiskResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(analysis.Students))
	for _, res := range analysis.Students {
		rows = append(rows, map[string]string{
			colStudent:    displayName(res),
			colLevel:      levelLabels[res.Level],
			colFailing:    fmt.Sprintf("%.1f", res.FailingRisk),
			colDropout:    fmt.Sprintf("%.1f", res.DropoutRisk),
			colGrade:      fmt.Sprintf("%.1f", res.CurrentGrade),
			colAttendance: fmt.Sprintf("%.1f", res.CurrentAttendance),
			colCompletion: fmt.Sprintf("%.0f", res.ActivityCompletion*100),
			colIRC:        fmt.Sprintf("%.1f", res.IRC.Score),
			colFactors:    strings.Join(res.Factors, "; "),
		})
	}
	return export.Dataset{
		Headers: []string{colStudent, colLevel, colFailing, colDropout, colGrade, colAttendance, colCompletion, colIRC, colFactors},
		Rows:    rows,
		Summary: summaryLines(analysis),
	}
}

func referralDataset(analysis *dto.GroupRiskResponse) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, res := range analysis.Students {
		ref := risk.BuildReferral(res, nil, analysis.AsOf)
		if len(ref.Flags) == 0 && !res.IRC.ShouldRefer {
			continue
		}
		flags := make([]string, 0, len(ref.Flags))
		for _, f := range ref.Flags {
			flags = append(flags, string(f))
		}
		rows = append(rows, map[string]string{
			colStudent:    displayName(res),
			colLevel:      levelLabels[res.Level],
			colFlags:      strings.Join(flags, ", "),
			colAverage:    fmt.Sprintf("%.1f", ref.AcademicData.Average),
			colAttendance: fmt.Sprintf("%.1f", ref.AcademicData.AttendanceRate),
			colCompletion: fmt.Sprintf("%.0f", ref.AcademicData.CompletionRate),
			colIRC:        fmt.Sprintf("%.1f", res.IRC.Score),
			colReferTo:    res.IRC.Recommendation,
		})
	}
	return export.Dataset{
		Headers: []string{colStudent, colLevel, colFlags, colAverage, colAttendance, colCompletion, colIRC, colReferTo},
		Rows:    rows,
		Summary: summaryLines(analysis),
	}
}

func summaryLines(analysis *dto.GroupRiskResponse) []string {
	s := analysis.Summary
	return []string{
		fmt.Sprintf("Grupo: %s | Parcial: %s", groupLabel(analysis), analysis.PartialID),
		fmt.Sprintf("Fecha de corte: %s", analysis.AsOf.Format("2006-01-02")),
		fmt.Sprintf("Alumnos: %d | Alto: %d | Medio: %d | Bajo: %d | Canalizaciones: %d", s.Total, s.High, s.Medium, s.Low, s.Referrals),
	}
}

func reportTitle(t models.ReportType, analysis *dto.GroupRiskResponse) string {
	if t == models.ReportTypeReferrals {
		return fmt.Sprintf("Canalizaciones - %s (%s)", groupLabel(analysis), analysis.PartialID)
	}
	return fmt.Sprintf("Riesgo académico - %s (%s)", groupLabel(analysis), analysis.PartialID)
}

func groupLabel(analysis *dto.GroupRiskResponse) string {
	if analysis.GroupName != "" {
		return analysis.GroupName
	}
	return analysis.GroupID
}

func displayName(res risk.Result) string {
	if res.StudentName != "" {
		return res.StudentName
	}
	return res.StudentID
}

// levelRowStyle shades PDF rows by risk level.
func levelRowStyle(row map[string]string) (int, int, int, bool) {
	switch row[colLevel] {
	case levelLabels[risk.LevelHigh]:
		return 248, 215, 218, true
	case levelLabels[risk.LevelMedium]:
		return 255, 243, 205, true
	default:
		return 0, 0, 0, false
	}
}

func buildFilename(job *models.ReportJob, asOf time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s.%s",
		strings.ToLower(string(job.Type)),
		sanitizeFilename(job.Params.GroupID),
		sanitizeFilename(job.Params.PartialID),
		asOf.UTC().Format("20060102_150405"),
		sanitizeFilename(job.ID),
		job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
