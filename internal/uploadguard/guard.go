package uploadguard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/fyrsmithlabs/docctl/internal/logging"
	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
	"go.uber.org/zap"
)

// DefaultMaxFileSize is the largest file scanned. Larger files are skipped.
const DefaultMaxFileSize = 10 << 20

// SummarySource names the document summary in findings.
const SummarySource = "summary"

const sniffLen = 8 << 10

// Skip reasons.
const (
	SkipBinary      = "binary"
	SkipTooLarge    = "too large"
	SkipAllowlisted = "allowlisted"
)

// Finding is a detected secret. The secret itself is never kept.
type Finding struct {
	Source   string `json:"source"`
	RuleID   string `json:"rule_id"`
	RuleDesc string `json:"rule_desc"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Length   int    `json:"length"`
	Preview  string `json:"preview"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d:%d %s (%s...)", f.Source, f.Line, f.Column, f.RuleID, f.Preview)
}

// Skipped is a file that was not scanned.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report is the result of a scan.
type Report struct {
	Findings []Finding `json:"findings"`
	Skipped  []Skipped `json:"skipped,omitempty"`
}

// Clean reports whether no secrets were found.
func (r Report) Clean() bool { return len(r.Findings) == 0 }

// Options configures a Guard.
type Options struct {
	Allowlist   *Allowlist
	MaxFileSize int64
	Logger      *logging.Logger
}

// Guard scans upload content for secrets.
type Guard struct {
	detector *detect.Detector
	paths    []*regexp.Regexp
	maxSize  int64
	logger   *logging.Logger
}

// New builds a Guard with the default Gitleaks rules plus the allowlist.
func New(opts Options) (*Guard, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}

	g := &Guard{
		detector: detector,
		maxSize:  opts.MaxFileSize,
		logger:   opts.Logger,
	}
	if g.maxSize <= 0 {
		g.maxSize = DefaultMaxFileSize
	}
	if g.logger == nil {
		g.logger = logging.NewNop()
	}

	if a := opts.Allowlist; a != nil {
		if g.paths, err = compileAll(a.Paths); err != nil {
			return nil, err
		}
		regexes, err := compileAll(a.Regexes)
		if err != nil {
			return nil, err
		}
		applyAllowlist(&detector.Config, regexes)
	}
	return g, nil
}

func applyAllowlist(cfg *gitleaksConfig.Config, regexes []*regexp.Regexp) {
	if len(regexes) == 0 {
		return
	}
	al := &gitleaksConfig.Allowlist{Description: "docctl upload allowlist"}
	for _, re := range regexes {
		al.Regexes = append(al.Regexes, (*gitleaksRegexp.Regexp)(re))
	}
	cfg.Allowlists = append(cfg.Allowlists, al)
}

// Scan checks the summary and every file in paths. Unreadable files are
// errors; binary, oversized and allowlisted files are reported as skipped.
func (g *Guard) Scan(ctx context.Context, paths []string, summary string) (Report, error) {
	report := Report{Findings: []Finding{}}
	if summary != "" {
		report.Findings = append(report.Findings, g.detect(SummarySource, summary)...)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if g.allowlisted(p) {
			report.Skipped = append(report.Skipped, Skipped{Path: p, Reason: SkipAllowlisted})
			continue
		}
		content, reason, err := g.read(p)
		if err != nil {
			return report, err
		}
		if reason != "" {
			g.logger.Debug(ctx, "upload scan skipped file", zap.String("path", p), zap.String("reason", reason))
			report.Skipped = append(report.Skipped, Skipped{Path: p, Reason: reason})
			continue
		}
		report.Findings = append(report.Findings, g.detect(p, content)...)
	}

	if !report.Clean() {
		g.logger.Warn(ctx, "secrets found in upload", zap.Int("findings", len(report.Findings)))
	}
	return report, nil
}

func (g *Guard) allowlisted(path string) bool {
	for _, re := range g.paths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// read returns the file text, or a skip reason.
func (g *Guard) read(path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > g.maxSize {
		return "", SkipTooLarge, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, g.maxSize+1))
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	if bytes.IndexByte(data[:min(len(data), sniffLen)], 0) >= 0 {
		return "", SkipBinary, nil
	}
	return string(data), "", nil
}

func (g *Guard) detect(source, content string) []Finding {
	found := g.detector.DetectString(content)
	out := make([]Finding, 0, len(found))
	for _, f := range found {
		out = append(out, Finding{
			Source:   source,
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
			Column:   f.StartColumn,
			Length:   len(f.Secret),
			Preview:  preview(f.Secret),
		})
	}
	return out
}

func preview(secret string) string {
	r := []rune(secret)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r)
}
