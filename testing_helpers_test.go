package linktap

import (
	"context"
	"crypto/tls"
	_ "embed"
	"strings"
	"sync"
	"time"

	"github.com/linktap/go-linktap-sdk/api"
	"github.com/linktap/go-linktap-sdk/util"
)

var (
	test_accessToken = "lt_test_access_token"
	test_streamURL   = "https://stream.link-tap.com/v1/events"

	//go:embed testdata/put_frame.json
	test_putFrame string
)

func init() {
	test_putFrame = strings.ReplaceAll(test_putFrame, "\n", "")
	util.SetLogger(util.DiscardLogger{})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 4, 11, 16, 35, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeTask struct {
	run          func(ctx context.Context)
	initialDelay time.Duration
	delay        time.Duration
	ctx          context.Context
	cancel       context.CancelFunc

	mu          sync.Mutex
	cancelled   bool
	interrupted bool
}

func (t *fakeTask) Cancel(mayInterrupt bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if mayInterrupt {
		t.interrupted = true
		t.cancel()
	}
}

func (t *fakeTask) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *fakeTask) Interrupted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interrupted
}

// Fire runs the task once the way the scheduler would.
func (t *fakeTask) Fire() {
	t.run(t.ctx)
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (s *fakeScheduler) ScheduleWithFixedDelay(task func(ctx context.Context), initialDelay, delay time.Duration) ScheduledTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &fakeTask{run: task, initialDelay: initialDelay, delay: delay, ctx: ctx, cancel: cancel}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

func (s *fakeScheduler) Tasks() []*fakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTask(nil), s.tasks...)
}

func (s *fakeScheduler) Latest() *fakeTask {
	tasks := s.Tasks()
	if len(tasks) == 0 {
		return nil
	}
	return tasks[len(tasks)-1]
}

func (s *fakeScheduler) Active() int {
	active := 0
	for _, t := range s.Tasks() {
		if !t.IsCancelled() {
			active++
		}
	}
	return active
}

type fakeStream struct {
	url         string
	accessToken string
	tlsConfig   *tls.Config
	onFrame     FrameHandler

	mu            sync.Mutex
	opened        bool
	closed        bool
	closeTimeouts []time.Duration
}

func (s *fakeStream) Open() {
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
}

func (s *fakeStream) Close(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeTimeouts = append(s.closeTimeouts, timeout)
	return true
}

func (s *fakeStream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened && !s.closed
}

func (s *fakeStream) Send(name, data string) {
	s.onFrame(Frame{Name: name, Data: data})
}

func (s *fakeStream) CloseTimeouts() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.closeTimeouts...)
}

type fakeTransport struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
}

func (f *fakeTransport) Build(tlsConfig *tls.Config, url string, accessToken string, onFrame FrameHandler) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeStream{url: url, accessToken: accessToken, tlsConfig: tlsConfig, onFrame: onFrame}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeTransport) Streams() []*fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeStream(nil), f.streams...)
}

func (f *fakeTransport) Latest() *fakeStream {
	streams := f.Streams()
	if len(streams) == 0 {
		return nil
	}
	return streams[len(streams)-1]
}

type fakeResolver struct {
	mu          sync.Mutex
	url         string
	err         error
	resolves    int
	invalidated int
}

func (r *fakeResolver) Resolve() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolves++
	if r.err != nil {
		return "", r.err
	}
	return r.url, nil
}

func (r *fakeResolver) InvalidateCache() {
	r.mu.Lock()
	r.invalidated++
	r.mu.Unlock()
}

func (r *fakeResolver) SetErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *fakeResolver) Invalidated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invalidated
}

type recordingListener struct {
	mu           sync.Mutex
	connected    int
	disconnected int
	revoked      []string
	errors       []string
	snapshots    []*api.TopLevelData
}

func (r *recordingListener) OnConnected() {
	r.mu.Lock()
	r.connected++
	r.mu.Unlock()
}

func (r *recordingListener) OnDisconnected() {
	r.mu.Lock()
	r.disconnected++
	r.mu.Unlock()
}

func (r *recordingListener) OnAuthorizationRevoked(token string) {
	r.mu.Lock()
	r.revoked = append(r.revoked, token)
	r.mu.Unlock()
}

func (r *recordingListener) OnError(message string) {
	r.mu.Lock()
	r.errors = append(r.errors, message)
	r.mu.Unlock()
}

func (r *recordingListener) OnNewSnapshot(data *api.TopLevelData) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, data)
	r.mu.Unlock()
}

func (r *recordingListener) Counts() (connected, disconnected, snapshots int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected, r.disconnected, len(r.snapshots)
}

// blockingDecoder holds every Decode call until release is closed.
type blockingDecoder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingDecoder() *blockingDecoder {
	return &blockingDecoder{entered: make(chan struct{}), release: make(chan struct{})}
}

func (d *blockingDecoder) Decode(data string) (*api.TopLevelData, error) {
	d.once.Do(func() { close(d.entered) })
	<-d.release
	return NewJSONPayloadDecoder().Decode(data)
}

type testClient struct {
	*StreamingClient
	clock     *fakeClock
	scheduler *fakeScheduler
	transport *fakeTransport
	resolver  *fakeResolver
	listener  *recordingListener
}

func newTestClient(options *Options) (*testClient, error) {
	if options == nil {
		options = &Options{}
	}
	tc := &testClient{
		clock:     newFakeClock(),
		scheduler: &fakeScheduler{},
		transport: &fakeTransport{},
		resolver:  &fakeResolver{url: test_streamURL},
		listener:  &recordingListener{},
	}
	options.Scheduler = tc.scheduler
	options.Transport = tc.transport
	c, err := NewStreamingClient(test_accessToken, tc.resolver, options)
	if err != nil {
		return nil, err
	}
	c.now = tc.clock.Now
	c.AddListener(tc.listener)
	tc.StreamingClient = c
	return tc, nil
}
