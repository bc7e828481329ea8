package linktap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/matryer/try"

	"github.com/linktap/go-linktap-sdk/util"
)

// URLResolver determines the URL the stream is opened against.
type URLResolver interface {
	Resolve() (string, error)
	// InvalidateCache forces the next Resolve to look the URL up again.
	InvalidateCache()
}

// RedirectURLResolver finds the streaming endpoint by requesting the API root
// and remembering where the server redirects to. A 2xx response means the
// root itself serves the stream.
type RedirectURLResolver struct {
	cfg         *HTTPConfiguration
	accessToken string
	streamPath  string
	maxAttempts int
	retryDelay  time.Duration
	httpClient  *http.Client

	mu          sync.Mutex
	cachedURL   string
	resolutions int
}

func NewRedirectURLResolver(accessToken string, cfg *HTTPConfiguration, options *Options) *RedirectURLResolver {
	return &RedirectURLResolver{
		cfg:         cfg,
		accessToken: accessToken,
		streamPath:  "/stream",
		maxAttempts: options.MaxResolveAttempts,
		retryDelay:  500 * time.Millisecond,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPClient.Timeout,
			Transport: newBaseTransport(cfg, newTLSConfig()),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (r *RedirectURLResolver) Resolve() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cachedURL != "" {
		return r.cachedURL, nil
	}

	var resolved string
	err := try.Do(func(attempt int) (bool, error) {
		var err error
		resolved, err = r.lookup()
		if err != nil {
			util.Debugf("Resolving streaming URL failed (attempt %d/%d): %v", attempt, r.maxAttempts, err)
			var permanent permanentError
			if errors.As(err, &permanent) {
				return false, err
			}
			if attempt < r.maxAttempts {
				time.Sleep(r.retryDelay)
			}
		}
		return attempt < r.maxAttempts, err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedResolvingURL, err)
	}
	r.cachedURL = resolved
	r.resolutions++
	return resolved, nil
}

func (r *RedirectURLResolver) InvalidateCache() {
	r.mu.Lock()
	r.cachedURL = ""
	r.mu.Unlock()
}

// Resolutions counts the lookups that went to the network and succeeded.
func (r *RedirectURLResolver) Resolutions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolutions
}

type permanentError struct {
	err error
}

func (p permanentError) Error() string {
	return p.err.Error()
}

func (p permanentError) Unwrap() error {
	return p.err
}

func (r *RedirectURLResolver) streamURL() string {
	return strings.TrimSuffix(r.cfg.BasePath, "/") + r.streamPath
}

func (r *RedirectURLResolver) lookup() (string, error) {
	target := r.streamURL()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return "", permanentError{err}
	}
	for k, v := range r.cfg.DefaultHeader {
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", "Bearer "+r.accessToken)
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch statusCode := resp.StatusCode; {
	case statusCode >= 300 && statusCode < 400:
		location := resp.Header.Get("Location")
		if location == "" {
			return "", fmt.Errorf("redirect from %s without a Location header", target)
		}
		base, err := url.Parse(target)
		if err != nil {
			return "", permanentError{err}
		}
		redirect, err := base.Parse(location)
		if err != nil {
			return "", permanentError{fmt.Errorf("invalid redirect location %q: %w", location, err)}
		}
		return redirect.String(), nil
	case statusCode >= 200 && statusCode < 300:
		return target, nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "", permanentError{fmt.Errorf("access token rejected. Status: %s", resp.Status)}
	default:
		// Retryable
		return "", fmt.Errorf("unexpected response resolving %s. Status: %s", target, resp.Status)
	}
}
