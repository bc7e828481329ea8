package linktap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/launchdarkly/eventsource"

	"github.com/linktap/go-linktap-sdk/util"
)

// Frame is one named unit pushed by the server over the stream.
type Frame struct {
	ID   string
	Name string
	Data string
}

type FrameHandler func(Frame)

// Stream is a single inbound event connection. Open never blocks; frames are
// delivered to the FrameHandler on a goroutine owned by the Stream.
type Stream interface {
	Open()
	// Close stops delivery and waits up to timeout for the receive goroutine
	// to exit. It reports whether the stream finished closing in time.
	Close(timeout time.Duration) bool
	IsOpen() bool
}

type TransportBuilder interface {
	Build(tlsConfig *tls.Config, url string, accessToken string, onFrame FrameHandler) (Stream, error)
}

// EventSourceTransport builds Server-Sent Events streams.
type EventSourceTransport struct {
	cfg          *HTTPConfiguration
	retryTimeout time.Duration
	errorHandler eventsource.StreamErrorHandler
}

func NewEventSourceTransport(cfg *HTTPConfiguration, retryTimeout time.Duration) *EventSourceTransport {
	return &EventSourceTransport{
		cfg:          cfg,
		retryTimeout: retryTimeout,
		errorHandler: func(err error) eventsource.StreamErrorHandlerResult {
			util.Debugf("SSE - Error: %v", err)
			return eventsource.StreamErrorHandlerResult{
				CloseNow: false,
			}
		},
	}
}

func (t *EventSourceTransport) Build(tlsConfig *tls.Config, url string, accessToken string, onFrame FrameHandler) (Stream, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building stream request for %s: %w", url, err)
	}

	client := &http.Client{
		// No overall timeout: the response body is the stream.
		Transport: &authRoundTripper{
			accessToken: accessToken,
			userAgent:   t.cfg.UserAgent,
			headers:     t.cfg.DefaultHeader,
			next:        newBaseTransport(t.cfg, tlsConfig),
		},
	}

	return &eventSourceStream{
		url:     url,
		request: req,
		cancel:  cancel,
		onFrame: onFrame,
		options: []eventsource.StreamOption{
			eventsource.StreamOptionHTTPClient(client),
			eventsource.StreamOptionCanRetryFirstConnection(t.retryTimeout),
			eventsource.StreamOptionErrorHandler(t.errorHandler),
			eventsource.StreamOptionUseBackoff(t.retryTimeout),
			eventsource.StreamOptionUseJitter(0.25),
			eventsource.StreamOptionLogger(util.StreamLogger{Prefix: "SSE - "}),
		},
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// newBaseTransport returns the configured client's transport, or a copy of the
// default transport that enforces tlsConfig.
func newBaseTransport(cfg *HTTPConfiguration, tlsConfig *tls.Config) http.RoundTripper {
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		return cfg.HTTPClient.Transport
	}
	if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
		transport := defaultTransport.Clone()
		transport.TLSClientConfig = tlsConfig
		return transport
	}
	// http.DefaultTransport has been swapped out (e.g. by a mock); use it as is
	return http.DefaultTransport
}

// authRoundTripper decorates every request with the access token and the SDK
// headers.
type authRoundTripper struct {
	accessToken string
	userAgent   string
	headers     map[string]string
	next        http.RoundTripper
}

func (a *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range a.headers {
		r.Header.Set(k, v)
	}
	r.Header.Set("Authorization", "Bearer "+a.accessToken)
	r.Header.Set("Accept", "text/event-stream")
	if a.userAgent != "" {
		r.Header.Set("User-Agent", a.userAgent)
	}
	return a.next.RoundTrip(r)
}

type eventSourceStream struct {
	url     string
	request *http.Request
	cancel  context.CancelFunc
	options []eventsource.StreamOption
	onFrame FrameHandler

	mu        sync.Mutex
	stream    *eventsource.Stream
	started   bool
	closed    bool
	closeOnce sync.Once
	closing   chan struct{}
	// closed once the receive goroutine has exited
	done chan struct{}
}

func (s *eventSourceStream) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	go s.receive()
}

func (s *eventSourceStream) receive() {
	defer close(s.done)

	stream, err := eventsource.SubscribeWithRequestAndOptions(s.request, s.options...)
	if err != nil {
		util.Warnf("SSE - Error connecting to stream %s: %v", s.url, err)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stream.Close()
		return
	}
	s.stream = stream
	s.mu.Unlock()
	util.Debugf("SSE - Connected to stream %s", s.url)

	for {
		select {
		case <-s.closing:
			return
		case event, ok := <-stream.Events:
			if !ok {
				return
			}
			// Close may have raced the receive
			select {
			case <-s.closing:
				return
			default:
			}
			s.onFrame(Frame{ID: event.Id(), Name: event.Event(), Data: event.Data()})
		}
	}
}

func (s *eventSourceStream) Close(timeout time.Duration) bool {
	s.mu.Lock()
	s.closed = true
	stream := s.stream
	s.stream = nil
	started := s.started
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.closing) })
	s.cancel()
	if stream != nil {
		stream.Close()
	}
	if !started {
		return true
	}
	return s.wait(timeout)
}

func (s *eventSourceStream) wait(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-s.done:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *eventSourceStream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.closed
}
