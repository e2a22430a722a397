package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/slots"
	"github.com/courtbot/tennis-bot/pkg/config"
)

const (
	signInLink       = `//a[normalize-space()="Sign in"]`
	loginButton      = `//button[normalize-space()="Login"]`
	usernameInput    = `input[placeholder="Username"]`
	passwordInput    = `input[placeholder="Password"]`
	submitLogin      = `//button[normalize-space()="Log in"]`
	accountOptions   = `#account-options`
	cookieAcceptAll  = `//button[normalize-space()="Accept All"]`
	resourceSession  = `.resource-session`
	continueBooking  = `//button[normalize-space()="Continue booking"]`
	payNowButton     = `button#paynow`
	confirmedHeading = `//h1[contains(normalize-space(), "Your booking has been confirmed")]`
	bookingsContent  = `#booking-tbody, .block-panel`

	stripeCardNumber = `#cs-stripe-elements-card-number input`
	stripeCardExpiry = `#cs-stripe-elements-card-expiry input`
	stripeCardCVC    = `#cs-stripe-elements-card-cvc input`
	stripeSubmit     = `#cs-stripe-elements-submit-button`
)

// ChromeDriver implements PageDriver on top of chromedp-controlled Chrome.
type ChromeDriver struct {
	cfg     config.BrowserConfig
	baseURL string
	log     *slog.Logger
}

// NewChromeDriver builds a driver for the booking site at baseURL.
func NewChromeDriver(cfg config.BrowserConfig, baseURL string, log *slog.Logger) *ChromeDriver {
	if log == nil {
		log = slog.Default()
	}

	return &ChromeDriver{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

type chromeSession struct {
	driver *ChromeDriver
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession launches a browser, loads the day view, and dismisses the cookie
// banner.
func (d *ChromeDriver) NewSession(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	s := &chromeSession{driver: d, ctx: browserCtx, cancel: cancel}

	if err := s.run("initial page load", chromedp.Navigate(d.baseURL+"/Booking/BookByDate")); err != nil {
		cancel()
		return nil, err
	}
	s.acceptCookies()

	return s, nil
}

func (s *chromeSession) Authenticate(ctx context.Context, creds Credentials) error {
	s.driver.log.Info("signing in to booking site")

	steps := []struct {
		name   string
		action chromedp.Action
	}{
		{"open sign-in", chromedp.Click(signInLink)},
		{"open login form", chromedp.Click(loginButton)},
		{"fill username", chromedp.SendKeys(usernameInput, creds.Username, chromedp.ByQuery)},
		{"fill password", chromedp.SendKeys(passwordInput, creds.Password, chromedp.ByQuery)},
		{"submit login", chromedp.Click(submitLogin)},
	}
	for _, step := range steps {
		if err := s.run(step.name, step.action); err != nil {
			return apperrors.NewAuthenticationError(err)
		}
		s.slow()
	}

	if err := s.run("wait for account menu", chromedp.WaitVisible(accountOptions, chromedp.ByQuery)); err != nil {
		return apperrors.NewAuthenticationError(err)
	}

	s.driver.log.Info("signed in to booking site")
	return nil
}

func (s *chromeSession) DayView(_ context.Context, date time.Time) (string, error) {
	url := fmt.Sprintf("%s/Booking/BookByDate#?date=%s&role=guest",
		s.driver.baseURL, date.Format("2006-01-02"))

	if err := s.run("open day view", chromedp.Navigate(url)); err != nil {
		return "", err
	}
	if err := s.run("wait for day view", chromedp.WaitVisible(resourceSession, chromedp.ByQuery)); err != nil {
		return "", err
	}
	// The grid keeps rendering after the first session appears.
	_ = s.run("settle day view", chromedp.Sleep(3*time.Second))

	var html string
	if err := s.run("read day view", chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) BookingsPage(_ context.Context) (string, error) {
	if err := s.run("open bookings page", chromedp.Navigate(s.driver.baseURL+"/Booking/Bookings")); err != nil {
		return "", err
	}

	waitCtx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(bookingsContent, chromedp.ByQuery)); err != nil {
		s.driver.log.Info("no existing bookings content found, assuming none")
		return "", nil
	}

	var html string
	if err := s.run("read bookings page", chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) Book(_ context.Context, slot slots.Slot, card Card, dryRun bool) error {
	log := s.driver.log.With(slog.String("slot", slot.Key), slog.Int("court", slot.Court))
	log.Info("attempting to book slot", slog.String("start", slots.FormatClock(slot.Start)))

	slotSelector := fmt.Sprintf(`[data-test-id=%q]`, slot.Key)
	if err := s.run("open slot", chromedp.Click(slotSelector, chromedp.ByQuery)); err != nil {
		return apperrors.NewSlotUnavailableError(slot.Key)
	}

	// "Continue booking" not appearing means the interval was claimed between
	// the fetch and the click.
	shortCtx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	err := chromedp.Run(shortCtx, chromedp.Click(continueBooking))
	cancel()
	if err != nil {
		return apperrors.NewSlotUnavailableError(slot.Key)
	}

	return s.settlePayment(log, slot, card, dryRun)
}

// settlePayment handles the three post-continue outcomes: immediate
// confirmation (free booking), a no-charge paynow step, and a real Stripe
// payment.
func (s *chromeSession) settlePayment(log *slog.Logger, slot slots.Slot, card Card, dryRun bool) error {
	shortCtx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	err := chromedp.Run(shortCtx, chromedp.WaitVisible(payNowButton, chromedp.ByQuery))
	cancel()
	if err != nil {
		log.Info("no paynow button, checking for free-booking confirmation")
		return s.awaitConfirmation(slot)
	}

	var buttonText string
	if err := s.run("read paynow label", chromedp.Text(payNowButton, &buttonText, chromedp.ByQuery)); err != nil {
		return apperrors.NewAutomationTimeoutError("read paynow label", err)
	}

	if strings.Contains(strings.ToLower(buttonText), "pay") {
		log.Info("slot requires payment")
		if card.IsZero() {
			return apperrors.NewSlotUnavailableError(slot.Key)
		}
		if err := s.payWithCard(card, dryRun); err != nil {
			return err
		}
	} else {
		if dryRun {
			log.Info("dry run, skipping booking submission")
			return nil
		}
		if err := s.run("confirm paynow", chromedp.Click(payNowButton, chromedp.ByQuery)); err != nil {
			return apperrors.NewAutomationTimeoutError("confirm paynow", err)
		}
	}

	if dryRun {
		log.Info("dry run, skipping confirmation wait")
		return nil
	}
	return s.awaitConfirmation(slot)
}

func (s *chromeSession) payWithCard(card Card, dryRun bool) error {
	if err := s.run("open payment form", chromedp.Click(payNowButton, chromedp.ByQuery)); err != nil {
		return apperrors.NewAutomationTimeoutError("open payment form", err)
	}

	fills := []struct {
		name     string
		selector string
		value    string
	}{
		{"fill card number", stripeCardNumber, card.Number},
		{"fill card expiry", stripeCardExpiry, card.Expiry},
		{"fill card cvc", stripeCardCVC, card.CVC},
	}
	for _, fill := range fills {
		if err := s.run(fill.name, chromedp.SendKeys(fill.selector, fill.value, chromedp.ByQuery)); err != nil {
			return apperrors.NewAutomationTimeoutError(fill.name, err)
		}
		s.slow()
	}

	if dryRun {
		s.driver.log.Info("dry run, skipping payment submission")
		return nil
	}

	if err := s.run("submit payment", chromedp.Click(stripeSubmit, chromedp.ByQuery)); err != nil {
		return apperrors.NewAutomationTimeoutError("submit payment", err)
	}
	return nil
}

func (s *chromeSession) awaitConfirmation(slot slots.Slot) error {
	if err := s.run("wait for confirmation", chromedp.WaitVisible(confirmedHeading)); err != nil {
		return apperrors.NewSlotUnavailableError(slot.Key)
	}

	s.driver.log.Info("booking confirmed", slog.String("slot", slot.Key))
	return nil
}

// DebugArtifacts grabs whatever page the session is stuck on. Called after a
// run aborts, while the browser still shows the failing state.
func (s *chromeSession) DebugArtifacts(_ context.Context) (DebugArtifacts, error) {
	var artifacts DebugArtifacts
	if err := s.run("capture page state",
		chromedp.OuterHTML("html", &artifacts.PageHTML, chromedp.ByQuery),
		chromedp.CaptureScreenshot(&artifacts.Screenshot),
	); err != nil {
		return DebugArtifacts{}, err
	}
	return artifacts, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

// acceptCookies clicks the consent banner when present; its absence is fine.
func (s *chromeSession) acceptCookies() {
	shortCtx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()

	if err := chromedp.Run(shortCtx, chromedp.Click(cookieAcceptAll)); err != nil {
		s.driver.log.Info("assuming cookie banner is not present")
	}
}

// run executes a single browser step under the configured step timeout and
// wraps timeouts as automation errors.
func (s *chromeSession) run(step string, actions ...chromedp.Action) error {
	timeout := s.driver.cfg.StepTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	stepCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewAutomationTimeoutError(step, err)
		}
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

func (s *chromeSession) slow() {
	if s.driver.cfg.SlowMo > 0 {
		time.Sleep(s.driver.cfg.SlowMo)
	}
}
