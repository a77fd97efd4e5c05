package in

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	hclog "github.com/hashicorp/go-hclog"

	sessionin "soulshepherd/internal/modules/session/port/in"
	apperrors "soulshepherd/internal/platform/errors"
)

const (
	StateActive = "active"
	StateIdle   = "idle"
	StateLocked = "locked"
)

// SignalHandler translates host signals into session commands. Signals that
// arrive with no session or in the wrong state are ignored.
type SignalHandler struct {
	usecase    sessionin.Usecase
	discourage func() []string
	log        hclog.Logger
}

// NewSignalHandler builds a handler. discouraged supplies the current list of
// discouraged hosts for Visit and may be nil.
func NewSignalHandler(usecase sessionin.Usecase, discouraged func() []string, logger hclog.Logger) *SignalHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &SignalHandler{usecase: usecase, discourage: discouraged, log: logger}
}

func (h *SignalHandler) HandleIdleState(ctx context.Context, state string) error {
	var err error
	switch state {
	case StateIdle, StateLocked:
		_, err = h.usecase.Pause(ctx)
	case StateActive:
		_, err = h.usecase.Resume(ctx)
	default:
		return fmt.Errorf("%w: unknown idle state %q", apperrors.ErrValidation, state)
	}
	return h.ignoreStale("idle_state", state, err)
}

func (h *SignalHandler) HandleNavigation(ctx context.Context, rawURL string, isDiscouraged bool) error {
	if !isDiscouraged {
		return nil
	}
	_, err := h.usecase.MarkCompromised(ctx)
	if err == nil {
		h.log.Info("discouraged site visited during focus", "url", rawURL)
	}
	return h.ignoreStale("navigation", rawURL, err)
}

// Visit classifies rawURL against the discouraged hosts and forwards it.
func (h *SignalHandler) Visit(ctx context.Context, rawURL string) (bool, error) {
	var sites []string
	if h.discourage != nil {
		sites = h.discourage()
	}
	discouraged := MatchesSite(rawURL, sites)
	return discouraged, h.HandleNavigation(ctx, rawURL, discouraged)
}

func (h *SignalHandler) ignoreStale(signal, value string, err error) error {
	if errors.Is(err, apperrors.ErrNoActiveSession) || errors.Is(err, apperrors.ErrInvalidTransition) {
		h.log.Debug("stale signal ignored", "signal", signal, "value", value)
		return nil
	}
	return err
}

// MatchesSite reports whether rawURL's host is one of sites or a subdomain of one.
func MatchesSite(rawURL string, sites []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, site := range sites {
		site = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(site)), "www.")
		if site == "" {
			continue
		}
		if host == site || strings.HasSuffix(host, "."+site) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
