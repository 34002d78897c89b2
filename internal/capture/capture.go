// Package capture screenshots every slide of a running deck so it can be
// imported into other presentation tools.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/progress"
)

// InstructionsFile is written next to the images.
const InstructionsFile = "powerpoint_instructions.md"

// SlideFileName returns the image name of the n-th slide, counting from 1.
func SlideFileName(n int) string {
	return fmt.Sprintf("slide_%02d.png", n)
}

// Driver is the browser the capture steers.
type Driver interface {
	Open(ctx context.Context, url string, width, height int) error
	// Next presses the right arrow key once.
	Next() error
	Screenshot() ([]byte, error)
	Close() error
}

// Options controls a capture run.
type Options struct {
	URL    string
	Dir    string
	Width  int
	Height int
	// Load is the wait after the page opens, Settle the wait after moving to
	// a new slide and Fragment the wait after revealing one fragment.
	Load     time.Duration
	Settle   time.Duration
	Fragment time.Duration
}

// Capturer runs one capture.
type Capturer struct {
	driver   Driver
	opts     Options
	reporter progress.Reporter
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithReporter reports one step per slide.
func WithReporter(r progress.Reporter) Option {
	return func(c *Capturer) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Capturer) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Capturer steering drv.
func New(drv Driver, opts Options, options ...Option) *Capturer {
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	if opts.Dir == "" {
		opts.Dir = "slide_images"
	}
	c := &Capturer{
		driver:   drv,
		opts:     opts,
		reporter: progress.Nop{},
		logger:   zap.NewNop(),
		sleep:    sleepCtx,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Run opens the deck, reveals every fragment of each slide before taking
// its screenshot, and writes the import instructions. It returns the image
// paths in slide order.
func (c *Capturer) Run(ctx context.Context, d *deck.Deck) (paths []string, err error) {
	if len(d.Slides) == 0 {
		return nil, fmt.Errorf("%w: no slides", deck.ErrInvalidDeck)
	}
	if err := os.MkdirAll(c.opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.opts.Dir, err)
	}

	if err := c.driver.Open(ctx, c.opts.URL, c.opts.Width, c.opts.Height); err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.opts.URL, err)
	}
	defer func() {
		if cerr := c.driver.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing browser: %w", cerr)
		}
	}()
	if err := c.sleep(ctx, c.opts.Load); err != nil {
		return nil, err
	}

	c.reporter.Start(len(d.Slides))
	defer c.reporter.Finish()

	last := len(d.Slides) - 1
	for i, s := range d.Slides {
		steps := s.Steps()
		for f := 0; f < steps; f++ {
			if err := c.next(ctx, c.opts.Fragment); err != nil {
				return paths, err
			}
		}

		img, err := c.driver.Screenshot()
		if err != nil {
			return paths, fmt.Errorf("screenshot of slide %s: %w", s.ID, err)
		}
		path := filepath.Join(c.opts.Dir, SlideFileName(i+1))
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		c.reporter.Update(i+1, fmt.Sprintf("Captured %s", s.ID))
		c.logger.Debug("slide captured", zap.String("slide", s.ID), zap.String("file", path))

		if i < last {
			if err := c.next(ctx, c.opts.Settle); err != nil {
				return paths, err
			}
		}
	}

	if err := WriteInstructions(c.opts.Dir, d.Title, len(paths)); err != nil {
		return paths, err
	}
	c.logger.Info("slides captured", zap.String("dir", c.opts.Dir), zap.Int("slides", len(paths)))
	return paths, nil
}

func (c *Capturer) next(ctx context.Context, wait time.Duration) error {
	if err := c.driver.Next(); err != nil {
		return fmt.Errorf("pressing next: %w", err)
	}
	return c.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Instructions explains how to turn the captured images into a PowerPoint
// deck.
func Instructions(title string, slides int) string {
	name := strings.Join(strings.Fields(title), "_")
	if name == "" {
		name = "presentation"
	}
	var b strings.Builder
	b.WriteString("# Converting to PowerPoint\n\n")
	b.WriteString("1. Open PowerPoint\n")
	b.WriteString("2. Create a new blank presentation\n")
	b.WriteString("3. For each slide image:\n")
	b.WriteString("   - Insert → Pictures → From File\n")
	fmt.Fprintf(&b, "   - Select %s through %s\n", SlideFileName(1), SlideFileName(slides))
	b.WriteString("   - Right-click image → Send to Back\n")
	b.WriteString("   - Resize to fill entire slide\n\n")
	b.WriteString("4. Add speaker notes from the deck file\n\n")
	fmt.Fprintf(&b, "5. Save as: %s.pptx\n\n", name)
	b.WriteString("## Alternative: Batch Import\n")
	b.WriteString("1. Insert → Photo Album → New Photo Album\n")
	b.WriteString("2. File/Disk → Select all slide images\n")
	b.WriteString("3. Picture Layout: Fit to Slide\n")
	b.WriteString("4. Create\n\n")
	b.WriteString("Then adjust formatting as needed.\n")
	return b.String()
}

// WriteInstructions writes InstructionsFile into dir.
func WriteInstructions(dir, title string, slides int) error {
	return os.WriteFile(filepath.Join(dir, InstructionsFile), []byte(Instructions(title, slides)), 0o644)
}
