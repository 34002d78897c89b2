package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodDriver drives a local Chrome through the DevTools protocol.
type RodDriver struct {
	// BrowserPath overrides the Chrome binary. Empty lets rod find or
	// download one.
	BrowserPath string
	Headless    bool

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Open launches the browser, sizes the viewport and loads url.
func (d *RodDriver) Open(ctx context.Context, url string, width, height int) error {
	l := launcher.New().Headless(d.Headless)
	if d.BrowserPath != "" {
		l = l.Bin(d.BrowserPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}
	d.launcher = l

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect to chrome: %w", err)
	}
	d.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	d.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return page.WaitLoad()
}

// Next presses the right arrow key.
func (d *RodDriver) Next() error {
	if d.page == nil {
		return errors.New("browser not open")
	}
	return d.page.Keyboard.Type(input.ArrowRight)
}

// Screenshot captures the viewport as PNG.
func (d *RodDriver) Screenshot() ([]byte, error) {
	if d.page == nil {
		return nil, errors.New("browser not open")
	}
	return d.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close shuts the browser down and removes its profile directory.
func (d *RodDriver) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
		d.browser = nil
		d.page = nil
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher.Cleanup()
		d.launcher = nil
	}
	return err
}
