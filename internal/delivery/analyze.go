package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/export"
	"github.com/ges-coastal/coastal-monitor/internal/notification"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/ges-coastal/coastal-monitor/output"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AnalyzeRequest struct {
	Params pipeline.Params
	Video  bool
	Upload bool
}

type AnalyzeReport struct {
	RunID     uuid.UUID
	Result    *pipeline.Result
	OutputDir string
	Files     []string
	Objects   []export.Object
}

// Analyze runs the coastal status pipeline, writes its outputs and records
// the run. Failures other than bad input are reported to Discord.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeReport, error) {
	if req.Upload && s.exporter == nil {
		return nil, ErrNoExporter
	}

	var runID uuid.UUID
	if s.history != nil {
		id, err := s.history.Begin(ctx, req.Params)
		if err != nil {
			return nil, err
		}
		runID = id
	}

	report, err := s.analyze(ctx, req)
	if report != nil {
		report.RunID = runID
	}

	if s.history != nil {
		if err != nil {
			if herr := s.history.Fail(ctx, runID, err); herr != nil {
				utils.Log.WithError(herr).Warn("failed to record failed run")
			}
		} else if herr := s.history.Succeed(ctx, runID, report.outputs()); herr != nil {
			utils.Log.WithError(herr).Warn("failed to record run")
		}
	}

	if err != nil {
		if pipeline.KindOf(err) != pipeline.InputError {
			s.notifyError(fmt.Sprintf("Coastal monitor\n\nError analyzing %s: %s", req.Params.Country, err.Error()))
		}
		return report, err
	}
	s.notifySuccess(report)
	return report, nil
}

func (s *Service) analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeReport, error) {
	result, err := s.runner.Run(ctx, req.Params)
	if err != nil {
		return nil, err
	}

	report := &AnalyzeReport{Result: result, OutputDir: s.resultDir(req.Params)}
	report.Files, err = output.WriteResult(result, report.OutputDir, output.Options{Video: req.Video})
	if err != nil {
		return report, err
	}

	if req.Upload {
		report.Objects, err = s.exporter.Upload(ctx, filepath.Base(report.OutputDir), report.Files...)
		if err != nil {
			return report, err
		}
	}

	utils.Log.WithFields(logrus.Fields{
		"country":  req.Params.Country,
		"files":    len(report.Files),
		"uploaded": len(report.Objects),
		"duration": result.Duration.Round(time.Millisecond),
	}).Info("analysis finished")
	return report, nil
}

// resultDir names the output folder after every parameter that changes which
// pixels are analysed.
func (s *Service) resultDir(p pipeline.Params) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s_%s_%skm_%s_%s",
		Slug(p.Country), p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly),
		strconv.FormatFloat(p.BufferKm, 'f', -1, 64), Slug(p.Vegetation.Source), Slug(p.Temperature.Source)))
}

func (r *AnalyzeReport) outputs() []string {
	outputs := append([]string(nil), r.Files...)
	for _, o := range r.Objects {
		outputs = append(outputs, o.String())
	}
	return outputs
}

// Slug turns a country name into a file name component.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (s *Service) notifyError(msg string) {
	if err := s.notifier.Error(msg); err != nil {
		utils.Log.WithError(err).Warn("failed to send notification")
	}
}

func (s *Service) notifySuccess(report *AnalyzeReport) {
	result := report.Result
	fields := []notification.DiscordField{
		{Name: "Country", Value: result.Region.Name, Inline: true},
		{Name: "Period", Value: result.Params.Start.Format(time.DateOnly) + " / " + result.Params.End.Format(time.DateOnly), Inline: true},
		{Name: "Buffer", Value: fmt.Sprintf("%g km", result.Params.BufferKm), Inline: true},
	}
	for _, b := range result.Histogram {
		fields = append(fields, notification.DiscordField{
			Name:   fmt.Sprintf("Class %d", b.Class),
			Value:  fmt.Sprintf("%.1f%%", b.Percent),
			Inline: true,
		})
	}
	desc := fmt.Sprintf("Results located at: %s", report.OutputDir)
	if len(report.Objects) > 0 {
		desc += fmt.Sprintf("\nUploaded %d files to %s", len(report.Objects), report.Objects[0].Bucket)
	}
	if err := s.notifier.Success("Coastal analysis finished", desc, fields...); err != nil {
		utils.Log.WithError(err).Warn("failed to send notification")
	}
}
