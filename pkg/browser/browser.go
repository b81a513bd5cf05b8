// Package browser drives a Chrome session through the DevTools protocol.
// Elements are addressed by XPath and every lookup waits up to the
// configured element timeout.
package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Driver is the set of page interactions the portal flows need.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, xpath string) error
	Input(ctx context.Context, xpath, text string) error
	Value(ctx context.Context, xpath string) (string, error)
	Press(ctx context.Context, xpath string, keys ...input.Key) error
	SelectAll(ctx context.Context, xpath string) error
	WaitVisible(ctx context.Context, xpath string) error
	Visible(ctx context.Context, xpath string) (bool, error)
	ScrollIntoView(ctx context.Context, xpath string) error
	Reload(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
}

// Options configures the launched browser.
type Options struct {
	Bin               string
	Headless          bool
	DownloadDir       string
	ElementTimeout    time.Duration
	NavigationTimeout time.Duration
	WindowWidth       int
	WindowHeight      int
}

func (o Options) elementTimeout() time.Duration {
	if o.ElementTimeout <= 0 {
		return 10 * time.Second
	}
	return o.ElementTimeout
}

func (o Options) navigationTimeout() time.Duration {
	if o.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return o.NavigationTimeout
}

func (o Options) window() (int, int) {
	w, h := o.WindowWidth, o.WindowHeight
	if w == 0 {
		w = 1920
	}
	if h == 0 {
		h = 1080
	}
	return w, h
}

// Session owns one launched Chrome process and a single page in it.
type Session struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Launch starts Chrome, connects to it and opens a blank page.
// Downloads are written to opts.DownloadDir when set.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	width, height := opts.window()

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("start-maximized")).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", width, height)).
		Set(flags.Flag("force-device-scale-factor"), "1").
		Set(flags.Flag("high-dpi-support"), "1")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	s := &Session{opts: opts, launcher: l}

	s.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		s.kill()
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}

	if opts.DownloadDir != "" {
		if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to create download dir: %w", err)
		}
		err := proto.BrowserSetDownloadBehavior{
			Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath: opts.DownloadDir,
		}.Call(s.browser)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to set download behavior: %w", err)
		}
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	err = proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
	}.Call(s.page)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return s, nil
}

// Close shuts the browser down and removes its profile directory.
// It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.kill()
	return err
}

func (s *Session) kill() {
	if s.launcher == nil {
		return
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	s.launcher = nil
}

// Navigate opens url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.opts.navigationTimeout())
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	return nil
}

// Click waits for the element to become interactable and clicks it.
func (s *Session) Click(ctx context.Context, xpath string) error {
	return s.withElement(ctx, xpath, func(el *rod.Element) error {
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
}

// Input focuses the element and types text into it.
func (s *Session) Input(ctx context.Context, xpath, text string) error {
	return s.withElement(ctx, xpath, func(el *rod.Element) error {
		return el.Input(text)
	})
}

// Value returns the element's current value property.
func (s *Session) Value(ctx context.Context, xpath string) (string, error) {
	var value string
	err := s.withElement(ctx, xpath, func(el *rod.Element) error {
		v, err := el.Property("value")
		if err != nil {
			return err
		}
		value = v.Str()
		return nil
	})
	return value, err
}

// Press sends key strokes to the element.
func (s *Session) Press(ctx context.Context, xpath string, keys ...input.Key) error {
	return s.withElement(ctx, xpath, func(el *rod.Element) error {
		return el.Type(keys...)
	})
}

// SelectAll focuses the element and sends Ctrl+A.
func (s *Session) SelectAll(ctx context.Context, xpath string) error {
	return s.withElement(ctx, xpath, func(el *rod.Element) error {
		if err := el.Focus(); err != nil {
			return err
		}
		return s.page.Context(ctx).KeyActions().Press(input.ControlLeft).Type(input.KeyA).Do()
	})
}

// WaitVisible waits until the element is present and visible.
func (s *Session) WaitVisible(ctx context.Context, xpath string) error {
	return s.withElement(ctx, xpath, func(el *rod.Element) error {
		return el.WaitVisible()
	})
}

// Visible reports whether the element is currently present and visible.
// It does not wait for the element to appear.
func (s *Session) Visible(ctx context.Context, xpath string) (bool, error) {
	has, el, err := s.page.Context(ctx).HasX(xpath)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", xpath, err)
	}
	if !has {
		return false, nil
	}
	visible, err := el.Visible()
	if err != nil {
		// The node was detached between lookup and check.
		return false, nil
	}
	return visible, nil
}

// ScrollIntoView scrolls the element into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, xpath string) error {
	return s.withElement(ctx, xpath, func(el *rod.Element) error {
		return el.ScrollIntoView()
	})
}

// Reload reloads the page and waits for the load event.
func (s *Session) Reload(ctx context.Context) error {
	p := s.page.Context(ctx).Timeout(s.opts.navigationTimeout())
	defer p.CancelTimeout()

	if err := p.Reload(); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return p.WaitLoad()
}

// HTML returns the page's current outer HTML.
func (s *Session) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *Session) withElement(ctx context.Context, xpath string, fn func(el *rod.Element) error) error {
	p := s.page.Context(ctx).Timeout(s.opts.elementTimeout())
	defer p.CancelTimeout()

	el, err := p.ElementX(xpath)
	if err != nil {
		return fmt.Errorf("element %s not found: %w", xpath, err)
	}
	if err := fn(el); err != nil {
		return fmt.Errorf("element %s: %w", xpath, err)
	}
	return nil
}
