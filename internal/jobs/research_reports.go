// -----------------------------------------------------------------------
// Process Research Reports Job - ingests PDFs dropped into the research tree
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// reportRelevance is fixed: a human dropped the file in on purpose.
const reportRelevance = 0.9

var datePrefixPattern = regexp.MustCompile(`^\d{8}_`)

type ResearchReportsJob struct {
	meta
	dir      string
	articles interfaces.ArticleStorage
	pipeline *pipeline.Pipeline
	logger   arbor.ILogger
}

func NewResearchReportsJob(dir string, articles interfaces.ArticleStorage, pl *pipeline.Pipeline, logger arbor.ILogger) *ResearchReportsJob {
	return &ResearchReportsJob{
		meta: meta{
			id:      "research_reports",
			name:    "Process Research Reports",
			trigger: interfaces.Trigger{Every: time.Hour},
			class:   interfaces.JobClassIngest,
		},
		dir:      dir,
		articles: articles,
		pipeline: pl,
		logger:   logger,
	}
}

var _ interfaces.Job = (*ResearchReportsJob)(nil)

func (j *ResearchReportsJob) Run(ctx context.Context, _ map[string]any) error {
	started := time.Now()
	log := j.logger.WithPrefix("research_reports")

	pdfs, err := j.findPDFs()
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		return nil
	}
	log.Info().Int("files", len(pdfs)).Msg("Scanning research report tree")

	tally := counters{}
	for _, path := range pdfs {
		if ctx.Err() != nil {
			break
		}
		j.processOne(ctx, path, tally, log)
	}

	logSummary(log, j.name, tally, started)
	return nil
}

func (j *ResearchReportsJob) findPDFs() ([]string, error) {
	var out []string
	err := filepath.WalkDir(j.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			out = append(out, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	sort.Strings(out)
	return out, err
}

func (j *ResearchReportsJob) processOne(ctx context.Context, path string, tally counters, log arbor.ILogger) {
	// Files without a date prefix are renamed first so the stored URL is
	// stable from the start.
	base := filepath.Base(path)
	if !datePrefixPattern.MatchString(base) {
		renamed := filepath.Join(filepath.Dir(path), time.Now().UTC().Format("20060102")+"_"+base)
		if err := os.Rename(path, renamed); err != nil {
			log.Warn().Err(err).Str("file", base).Msg("Failed to rename report")
			tally.add(pipeline.OutcomeFailed)
			return
		}
		path = renamed
	}

	rel, err := filepath.Rel(j.dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	// The relative path doubles as the article URL for dedup.
	existing, err := j.articles.GetByURL(ctx, rel)
	if err != nil {
		tally.add(pipeline.OutcomeFailed)
		return
	}
	if existing != nil {
		tally.add(pipeline.OutcomeDuplicate)
		return
	}

	text, err := extractPDFText(path)
	if err != nil {
		log.Warn().Err(err).Str("file", rel).Msg("PDF extraction failed")
		tally.add(pipeline.OutcomeFailed)
		return
	}

	res := j.pipeline.Process(ctx, pipeline.Input{
		URL:               rel,
		Title:             strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Content:           text,
		Source:            reportSource(rel),
		Type:              models.ArticleTypeResearchReport,
		BaselineRelevance: reportRelevance,
	})
	tally.add(res.Outcome)
	if res.Err != nil {
		log.Warn().Err(res.Err).Str("file", rel).Msg("Report failed in pipeline")
	}
}

// reportSource derives the report type from the first folder in the tree:
// ticker/, market/ or fund/ directories classify their contents.
func reportSource(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) > 1 {
		switch strings.ToLower(parts[0]) {
		case "ticker", "tickers":
			return "ticker-report"
		case "market":
			return "market-report"
		case "fund", "funds":
			return "fund-report"
		}
	}
	return "research-report"
}

// extractPDFText pulls text content out of a PDF. pdfcpu has no direct text
// API, so page content is extracted to a scratch dir and concatenated.
func extractPDFText(path string) (string, error) {
	outDir, err := os.MkdirTemp("", "prospectus-pdf-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", err
	}

	type pageText struct {
		num  int
		text string
	}
	var pages []pageText
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &num); err != nil {
			num = len(pages) + 1
		}
		pages = append(pages, pageText{num: num, text: string(content)})
	}
	sort.Slice(pages, func(i, k int) bool { return pages[i].num < pages[k].num })

	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.text)
		b.WriteString("\n\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("no text content in PDF")
	}
	return text, nil
}
