package patterns

import (
	"fmt"
	"path/filepath"

	"github.com/tdixon97/legend-simflow/internal/config"
)

// The evt tier is expanded per data-taking run, not per job: one output
// file per (simid, runid). The pdf tier aggregates a whole simid into a
// single file.

func evtRelBasename(experiment, simid, runid string) string {
	return filepath.Join(simid, fmt.Sprintf("%s-%s_%s-tier_evt", experiment, simid, runid))
}

// OutputEvtFilename returns the evt-tier output path for (simid, runid).
func OutputEvtFilename(cfg *config.Config, simid, runid string) string {
	return filepath.Join(cfg.Paths.Tier("evt"),
		evtRelBasename(cfg.Experiment, simid, runid)+OutputExt("evt"))
}

// LogEvtFilename returns the evt-tier log path for (simid, runid).
func LogEvtFilename(cfg *config.Config, proctime, simid, runid string) string {
	return filepath.Join(cfg.Paths.Log, proctime, "evt",
		evtRelBasename(cfg.Experiment, simid, runid)+".log")
}

// BenchmarkEvtFilename returns the evt-tier benchmark path for (simid, runid).
func BenchmarkEvtFilename(cfg *config.Config, simid, runid string) string {
	return filepath.Join(cfg.Paths.Benchmarks, "evt",
		evtRelBasename(cfg.Experiment, simid, runid)+".tsv")
}

func pdfRelBasename(experiment, simid string) string {
	return filepath.Join(simid, fmt.Sprintf("%s-%s-tier_pdf", experiment, simid))
}

// OutputPdfFilename returns the single aggregate pdf-tier output for a simid.
func OutputPdfFilename(cfg *config.Config, simid string) string {
	return filepath.Join(cfg.Paths.Tier("pdf"),
		pdfRelBasename(cfg.Experiment, simid)+OutputExt("pdf"))
}

// LogPdfFilename returns the pdf-tier log path for a simid.
func LogPdfFilename(cfg *config.Config, proctime, simid string) string {
	return filepath.Join(cfg.Paths.Log, proctime, "pdf",
		pdfRelBasename(cfg.Experiment, simid)+".log")
}

// BenchmarkPdfFilename returns the pdf-tier benchmark path for a simid.
func BenchmarkPdfFilename(cfg *config.Config, simid string) string {
	return filepath.Join(cfg.Paths.Benchmarks, "pdf",
		pdfRelBasename(cfg.Experiment, simid)+".tsv")
}

// OutputDtmapFilename returns the drift-time map path for one HPGe
// detector deployed in a run.
func OutputDtmapFilename(cfg *config.Config, runid, hpgeDetector string) string {
	return filepath.Join(cfg.Paths.Dtmaps,
		fmt.Sprintf("%s-%s-hpge-drift-time-map.lh5", runid, hpgeDetector))
}

// OutputDtmapMergedFilename returns the merged drift-time map path for a run.
func OutputDtmapMergedFilename(cfg *config.Config, runid string) string {
	return filepath.Join(cfg.Paths.Dtmaps,
		fmt.Sprintf("%s-hpge-drift-time-maps.lh5", runid))
}
