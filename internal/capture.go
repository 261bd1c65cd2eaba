package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

var (
	ErrMissingSession = errors.New("browser session missing")
	ErrCaptureFailed  = errors.New("capture failed")
)

// DefaultDashboardURL is the daily dashboard; {date} becomes YYYY-MM-DD
const DefaultDashboardURL = "https://wakatime.com/dashboard/day?date={date}"

// SessionCookieName is the cookie a raw session value is stored under
const SessionCookieName = "session"

// blockedResourceTypes never affect the chart
var blockedResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeImage:              true,
	network.ResourceTypeFont:               true,
	network.ResourceTypeMedia:              true,
	network.ResourceTypeTextTrack:          true,
	network.ResourceTypePing:               true,
	network.ResourceTypeCSPViolationReport: true,
}

// blockedDomains are trackers and widgets that slow the page down
var blockedDomains = []string{
	"google-analytics",
	"googletagmanager",
	"intercom",
	"segment.com",
	"hotjar",
	"facebook",
	"doubleclick",
	"twitter",
	"linkedin",
	"stripe",
}

// ShouldBlock decides whether the browser fails a request
func ShouldBlock(resourceType network.ResourceType, requestURL string) bool {
	if blockedResourceTypes[resourceType] {
		return true
	}
	for _, d := range blockedDomains {
		if strings.Contains(requestURL, d) {
			return true
		}
	}
	return false
}

// Capturer produces the dated screenshot and returns its local path
type Capturer interface {
	Capture(ctx context.Context, date Date) (string, error)
}

// SessionCookie follows the cookie entries of a browser storage-state file
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// Session is the logged-in browser state for the dashboard
type Session struct {
	Cookies []SessionCookie `json:"cookies"`
}

func (s Session) Empty() bool {
	return len(s.Cookies) == 0
}

// LoadSessionFile reads a storage-state JSON file ({"cookies": [...]})
func LoadSessionFile(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, fmt.Errorf("%w: %s not found", ErrMissingSession, path)
		}
		return Session{}, fmt.Errorf("reading session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parsing session file: %w", err)
	}
	if s.Empty() {
		return Session{}, fmt.Errorf("%w: %s has no cookies", ErrMissingSession, path)
	}
	return s, nil
}

// SessionFromCookie wraps a raw session cookie value for the dashboard host
func SessionFromCookie(value, dashboardURL string) Session {
	value = strings.TrimSpace(value)
	if value == "" {
		return Session{}
	}
	host := "wakatime.com"
	if u, err := url.Parse(strings.ReplaceAll(dashboardURL, "{date}", "")); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return Session{Cookies: []SessionCookie{{
		Name:     SessionCookieName,
		Value:    value,
		Domain:   host,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	}}}
}

// DashboardURL fills the date into the dashboard URL template
func DashboardURL(template string, d Date) string {
	if template == "" {
		template = DefaultDashboardURL
	}
	return strings.ReplaceAll(template, "{date}", d.ISO())
}

// ScreenshotName is the deterministic file name for a day's screenshot
func ScreenshotName(d Date) string {
	return "wakatime_" + d.ISO() + ".png"
}

type CaptureConfig struct {
	DashboardURL      string
	ScreenshotDir     string
	Session           Session
	NavigationTimeout time.Duration
	ChartWait         time.Duration
	Width             int
	Height            int
	ExecPath          string // empty uses the chrome found on PATH
}

// ChromeCapturer drives headless Chrome to screenshot the dashboard
type ChromeCapturer struct {
	cfg CaptureConfig
	log LogFunc
}

// NewChromeCapturer fails when there is no session to log in with
func NewChromeCapturer(cfg CaptureConfig, log LogFunc) (*ChromeCapturer, error) {
	if cfg.Session.Empty() {
		return nil, &PreconditionError{Err: ErrMissingSession}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = 1920, 1080
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 15 * time.Second
	}
	if cfg.ChartWait == 0 {
		cfg.ChartWait = 10 * time.Second
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	return &ChromeCapturer{cfg: cfg, log: log}, nil
}

// allocatorOptions extends chromedp's defaults, which already run headless
func allocatorOptions(cfg CaptureConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.WindowSize(cfg.Width, cfg.Height),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

func (c *ChromeCapturer) Capture(ctx context.Context, date Date) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(c.cfg)...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	c.log.printf("Browser engine: start")
	if err := chromedp.Run(browserCtx); err != nil {
		return "", fmt.Errorf("%w: starting chrome: %w", ErrCaptureFailed, err)
	}

	chromedp.ListenTarget(browserCtx, func(ev any) {
		if paused, ok := ev.(*fetch.EventRequestPaused); ok {
			go handlePausedRequest(browserCtx, paused)
		}
	})

	target := DashboardURL(c.cfg.DashboardURL, date)
	navCtx, cancelNav := context.WithTimeout(browserCtx, c.cfg.NavigationTimeout)
	err := chromedp.Run(navCtx,
		fetch.Enable(),
		setSessionCookies(c.cfg.Session),
		chromedp.EmulateViewport(int64(c.cfg.Width), int64(c.cfg.Height)),
		chromedp.Navigate(target),
	)
	cancelNav()
	if err != nil {
		return "", fmt.Errorf("%w: navigating to %s: %w", ErrCaptureFailed, target, err)
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, c.cfg.ChartWait)
	err = chromedp.Run(waitCtx, chromedp.WaitVisible("svg rect", chromedp.ByQuery))
	cancelWait()
	if err != nil {
		c.log.printf("Chart delayed, capturing anyway")
	}

	var png []byte
	if err := chromedp.Run(browserCtx, chromedp.CaptureScreenshot(&png)); err != nil {
		return "", fmt.Errorf("%w: screenshot: %w", ErrCaptureFailed, err)
	}

	if err := os.MkdirAll(c.cfg.ScreenshotDir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", ErrCaptureFailed, c.cfg.ScreenshotDir, err)
	}
	path := filepath.Join(c.cfg.ScreenshotDir, ScreenshotName(date))
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", ErrCaptureFailed, path, err)
	}

	c.log.printf("Screenshot: done")
	return path, nil
}

func handlePausedRequest(ctx context.Context, ev *fetch.EventRequestPaused) {
	execCtx := cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Target)
	if ev.Request != nil && ShouldBlock(ev.ResourceType, ev.Request.URL) {
		_ = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		return
	}
	_ = fetch.ContinueRequest(ev.RequestID).Do(execCtx)
}

func setSessionCookies(s Session) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range s.Cookies {
			path := ck.Path
			if path == "" {
				path = "/"
			}
			p := network.SetCookie(ck.Name, ck.Value).
				WithDomain(ck.Domain).
				WithPath(path).
				WithHTTPOnly(ck.HTTPOnly).
				WithSecure(ck.Secure)
			if ck.SameSite != "" {
				p = p.WithSameSite(network.CookieSameSite(ck.SameSite))
			}
			if ck.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("setting cookie %s: %w", ck.Name, err)
			}
		}
		return nil
	})
}
