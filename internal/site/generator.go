package site

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dispatch"
	"github.com/ziadkadry99/deckviz/internal/gate"
)

// Generator exports a deck as a self-contained static site.
type Generator struct {
	Deck      *deck.Deck
	OutputDir string
	// AssetRoot is the directory Assets globs are matched against.
	AssetRoot string
	Assets    []string
	Exclude   []string
	Stagger   diagram.Stagger
	Logger    *zap.Logger
}

// Stats summarizes one Generate run.
type Stats struct {
	Slides   int
	Diagrams int
	Charts   int
	Assets   int
	Skipped  []string
}

// NewGenerator creates a Generator writing d to outputDir.
func NewGenerator(d *deck.Deck, outputDir string) *Generator {
	return &Generator{
		Deck:      d,
		OutputDir: outputDir,
		AssetRoot: ".",
		Logger:    zap.NewNop(),
	}
}

// Generate writes index.html with every slide pre-rendered into an embedded
// fragment table, then copies matching assets.
func (g *Generator) Generate(ctx context.Context) (Stats, error) {
	var stats Stats
	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	page, err := BuildPage(g.Deck, PageOptions{})
	if err != nil {
		return stats, err
	}

	// Render on a copy so the exported page keeps empty containers; the
	// client fills them from the table on each navigation.
	work := page.Clone()
	disp := dispatch.New(g.Deck, work,
		dispatch.WithLogger(logger),
		dispatch.WithRenderer(diagram.NewRenderer(diagram.WithDefaults(g.Stagger), diagram.WithLogger(logger))),
		dispatch.WithGate(gate.New("build", gate.WithMaxAttempts(1), gate.WithLogger(logger))),
	)
	reports, err := disp.RenderAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("rendering slides: %w", err)
	}
	for _, r := range reports {
		stats.Diagrams += len(r.Fragments)
		stats.Charts += len(r.Charts)
		stats.Skipped = append(stats.Skipped, r.Skipped...)
	}
	stats.Slides = len(reports)

	if err := EmbedFragments(page, reports); err != nil {
		return stats, err
	}

	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return stats, err
	}
	f, err := os.Create(filepath.Join(g.OutputDir, "index.html"))
	if err != nil {
		return stats, err
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return stats, fmt.Errorf("writing index.html: %w", err)
	}
	if err := f.Close(); err != nil {
		return stats, err
	}

	n, err := g.copyAssets()
	if err != nil {
		return stats, fmt.Errorf("copying assets: %w", err)
	}
	stats.Assets = n

	logger.Info("static build written",
		zap.String("dir", g.OutputDir),
		zap.Int("slides", stats.Slides),
		zap.Int("diagrams", stats.Diagrams),
		zap.Int("charts", stats.Charts),
		zap.Int("assets", stats.Assets))
	return stats, nil
}

// copyAssets copies every file under AssetRoot matching one of Assets and
// none of Exclude into OutputDir, keeping relative paths.
func (g *Generator) copyAssets() (int, error) {
	if len(g.Assets) == 0 {
		return 0, nil
	}
	root := g.AssetRoot
	if root == "" {
		root = "."
	}
	fsys := os.DirFS(root)
	outAbs, _ := filepath.Abs(g.OutputDir)

	seen := make(map[string]bool)
	for _, pattern := range g.Assets {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return len(seen), fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if seen[rel] || g.excluded(rel) {
				continue
			}
			info, err := fs.Stat(fsys, rel)
			if err != nil || info.IsDir() {
				continue
			}
			src := filepath.Join(root, filepath.FromSlash(rel))
			if abs, _ := filepath.Abs(src); outAbs != "" && isWithin(abs, outAbs) {
				continue
			}
			if err := copyFile(src, filepath.Join(g.OutputDir, filepath.FromSlash(rel))); err != nil {
				return len(seen), err
			}
			seen[rel] = true
		}
	}
	return len(seen), nil
}

func (g *Generator) excluded(rel string) bool {
	for _, pattern := range g.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// isWithin reports whether path is dir or below it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
