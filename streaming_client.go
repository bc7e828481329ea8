package linktap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/linktap/go-linktap-sdk/api"
	"github.com/linktap/go-linktap-sdk/util"
)

// Frame names sent by the LinkTap streaming API.
const (
	EventAuthRevoked = "auth_revoked"
	EventError       = "error"
	EventKeepAlive   = "keep-alive"
	EventOpen        = "open"
	EventPut         = "put"
)

type ConnectionState int32

const (
	StateNotStarted ConnectionState = iota
	StateConnected
	// StateDisconnected means started but no frame has arrived on the current
	// stream yet, or the stream went silent and is being reopened.
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateNotStarted:
		return "notStarted"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int32(s))
	}
}

// StreamingClient keeps a single server-push stream to LinkTap open, reopens
// it when it goes silent for longer than the connection timeout and fans the
// received frames out to listeners.
type StreamingClient struct {
	accessToken string
	clientId    string
	resolver    URLResolver
	options     *Options
	transport   TransportBuilder
	decoder     PayloadDecoder
	scheduler   Scheduler
	now         func() time.Time

	// guards stream and checkConnectionJob, and serializes start/stop/reopen
	startStopLock      sync.Mutex
	stream             Stream
	checkConnectionJob ScheduledTask

	// held for reading while a frame is dispatched; closeStream takes it for
	// writing to wait out frames already past the streamId check
	dispatchLock sync.RWMutex

	// identifies the live stream; frames carrying any other id are stale
	streamId           atomic.Uint64
	state              atomic.Int32
	lastEventTimestamp atomic.Int64
	lastSnapshot       atomic.Pointer[api.TopLevelData]
	listeners          listenerSet
}

func NewStreamingClient(accessToken string, resolver URLResolver, options *Options) (*StreamingClient, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: call NewStreamingClient with a valid access token", ErrMissingAccessToken)
	}
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if options.Logger != nil {
		util.SetLogger(options.Logger)
	}

	cfg := NewConfiguration(options)
	clientId := uuid.New().String()
	cfg.AddDefaultHeader("X-Client-Id", clientId)

	c := &StreamingClient{
		accessToken: accessToken,
		clientId:    clientId,
		resolver:    resolver,
		options:     options,
		transport:   options.Transport,
		decoder:     options.Decoder,
		scheduler:   options.Scheduler,
		now:         time.Now,
	}
	if c.resolver == nil {
		c.resolver = NewRedirectURLResolver(accessToken, cfg, options)
	}
	if c.transport == nil {
		c.transport = NewEventSourceTransport(cfg, options.RequestTimeout)
	}
	if c.decoder == nil {
		c.decoder = NewJSONPayloadDecoder()
	}
	if c.scheduler == nil {
		c.scheduler = NewTickerScheduler()
	}
	return c, nil
}

func (c *StreamingClient) ClientId() string {
	return c.clientId
}

// Start opens the stream and starts the connection check. Calling it on a
// running client replaces the stream.
func (c *StreamingClient) Start() {
	c.startStopLock.Lock()
	defer c.startStopLock.Unlock()

	util.Debugf("Opening stream and starting checkConnection job")
	c.state.CompareAndSwap(int32(StateNotStarted), int32(StateDisconnected))
	c.reopenStream()
	c.startCheckConnectionJob()
	c.emitClientEvent(api.ClientEventType_Started, "Streaming client started", nil)
	util.Debugf("Started")
}

// Stop cancels the connection check and closes the stream without waiting
// beyond the stop grace period. Start may be called again afterwards.
func (c *StreamingClient) Stop() {
	c.startStopLock.Lock()
	defer c.startStopLock.Unlock()

	util.Debugf("Closing stream and stopping checkConnection job")
	c.stopCheckConnectionJob(true)
	c.closeStream(c.options.StopCloseTimeout)
	c.state.Store(int32(StateNotStarted))
	c.emitClientEvent(api.ClientEventType_Stopped, "Streaming client stopped", nil)
	util.Debugf("Stopped")
}

func (c *StreamingClient) AddListener(l Listener) bool {
	return c.listeners.add(l)
}

func (c *StreamingClient) RemoveListener(l Listener) bool {
	return c.listeners.remove(l)
}

// LastSnapshot returns the most recently received snapshot, or nil before the
// first "put" frame.
func (c *StreamingClient) LastSnapshot() *api.TopLevelData {
	return c.lastSnapshot.Load()
}

func (c *StreamingClient) ConnectionState() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *StreamingClient) Connected() bool {
	return c.ConnectionState() == StateConnected
}

// LastEventTime is the arrival time of the latest frame, zero if none.
func (c *StreamingClient) LastEventTime() time.Time {
	nanos := c.lastEventTimestamp.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (c *StreamingClient) createStream() (Stream, error) {
	url, err := c.resolver.Resolve()
	if err != nil {
		return nil, err
	}
	streamId := c.streamId.Add(1)
	return c.transport.Build(newTLSConfig(), url, c.accessToken, func(frame Frame) {
		c.onFrame(streamId, frame)
	})
}

func (c *StreamingClient) checkConnection(ctx context.Context) {
	sinceLastEvent := c.sinceLastEvent()
	if sinceLastEvent <= c.options.ConnectionTimeout() {
		util.Debugf("Check: Receiving streaming events, sinceLastEvent=%s", sinceLastEvent)
		return
	}

	util.Debugf("Check: Disconnected from streaming events, sinceLastEvent=%s", sinceLastEvent)
	c.startStopLock.Lock()
	defer c.startStopLock.Unlock()
	if ctx.Err() != nil {
		// Stop won the lock while we were waiting
		return
	}

	c.stopCheckConnectionJob(false)
	if c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		c.notify("disconnected", func(l Listener) { l.OnDisconnected() })
	}
	c.resolver.InvalidateCache()
	c.reopenStream()
	c.startCheckConnectionJob()
	c.emitClientEvent(api.ClientEventType_StreamReopened, fmt.Sprintf("No events received for %s", sinceLastEvent), nil)
}

// reopenStream closes the existing stream and opens a new one. It works around
// streams that fail to reconnect on their own. Must hold startStopLock.
func (c *StreamingClient) reopenStream() {
	util.Debugf("Reopening stream")
	c.closeStream(c.options.ReopenCloseTimeout)

	util.Debugf("Opening new stream")
	stream, err := c.createStream()
	if err != nil {
		util.Warnf("Failed to open new stream: %v", err)
		c.emitClientEvent(api.ClientEventType_StreamFailure, "Error opening stream", err)
		return
	}
	stream.Open()
	c.stream = stream
	c.emitClientEvent(api.ClientEventType_StreamOpened, "Stream opened", nil)
}

// Must hold startStopLock.
func (c *StreamingClient) closeStream(timeout time.Duration) {
	stream := c.stream
	if stream == nil {
		return
	}
	// frames still in flight on the old stream are dropped from here on
	c.streamId.Add(1)
	if !stream.IsOpen() {
		util.Debugf("Existing stream is already closed")
		stream.Close(0)
	} else if stream.Close(timeout) {
		util.Debugf("Successfully closed existing stream")
	} else {
		util.Debugf("Failed to close existing stream within %s", timeout)
	}
	c.stream = nil

	// wait for frames already being dispatched
	c.dispatchLock.Lock()
	c.dispatchLock.Unlock()
}

// Must hold startStopLock.
func (c *StreamingClient) startCheckConnectionJob() {
	job := c.checkConnectionJob
	if job == nil || job.IsCancelled() {
		c.checkConnectionJob = c.scheduler.ScheduleWithFixedDelay(c.checkConnection,
			c.options.ConnectionTimeout(), c.options.KeepAliveInterval)
	}
}

// Must hold startStopLock.
func (c *StreamingClient) stopCheckConnectionJob(mayInterrupt bool) {
	job := c.checkConnectionJob
	if job != nil && !job.IsCancelled() {
		job.Cancel(mayInterrupt)
	}
	c.checkConnectionJob = nil
}

func (c *StreamingClient) onFrame(streamId uint64, frame Frame) {
	defer func() {
		if r := recover(); r != nil {
			util.Warnf("An exception occurred while processing the inbound event: %v", r)
			c.emitClientEvent(api.ClientEventType_FrameProcessingErr, frame.Name, fmt.Errorf("panic: %v", r))
		}
	}()

	c.dispatchLock.RLock()
	defer c.dispatchLock.RUnlock()
	if c.streamId.Load() != streamId {
		util.Debugf("Ignoring '%s' event from a closed stream", frame.Name)
		return
	}
	if err := c.processFrame(streamId, frame); err != nil {
		util.Warnf("Failed to process '%s' event: %v", frame.Name, err)
		c.emitClientEvent(api.ClientEventType_FrameProcessingErr, frame.Name, err)
	}
}

func (c *StreamingClient) processFrame(streamId uint64, frame Frame) error {
	c.touch()
	util.Debugf("Received '%s' event, data: %s", frame.Name, frame.Data)
	c.emitClientEvent(api.ClientEventType_RealtimeUpdates, frame, nil)

	if c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnected)) {
		util.Debugf("Connected to streaming events")
		c.notify("connected", func(l Listener) { l.OnConnected() })
	}

	switch frame.Name {
	case EventAuthRevoked:
		util.Debugf("API authorization has been revoked for access token: %s", frame.Data)
		c.notify("authorizationRevoked", func(l Listener) { l.OnAuthorizationRevoked(frame.Data) })
	case EventError:
		util.Warnf("Error occurred: %s", frame.Data)
		c.notify("error", func(l Listener) { l.OnError(frame.Data) })
	case EventKeepAlive:
		util.Debugf("Received message to keep connection alive")
	case EventOpen:
		util.Debugf("Event stream opened")
	case EventPut:
		util.Debugf("Data has changed (or initial data sent)")
		data, err := c.decoder.Decode(frame.Data)
		if err != nil {
			return err
		}
		if c.streamId.Load() != streamId {
			util.Debugf("Dropping snapshot from a stream closed while decoding")
			return nil
		}
		c.lastSnapshot.Store(data)
		c.notify("newSnapshot", func(l Listener) { l.OnNewSnapshot(data) })
	default:
		util.Debugf("Received unhandled event with name '%s' and data '%s'", frame.Name, frame.Data)
	}
	return nil
}

// touch records the arrival of a frame. The timestamp never moves backwards.
func (c *StreamingClient) touch() {
	now := c.now().UnixNano()
	for {
		last := c.lastEventTimestamp.Load()
		if now <= last || c.lastEventTimestamp.CompareAndSwap(last, now) {
			return
		}
	}
}

func (c *StreamingClient) sinceLastEvent() time.Duration {
	return time.Duration(c.now().UnixNano() - c.lastEventTimestamp.Load())
}

func (c *StreamingClient) notify(name string, fn func(Listener)) {
	c.listeners.forEach(func(l Listener) {
		defer func() {
			if r := recover(); r != nil {
				util.Warnf("Listener panicked handling %s: %v", name, r)
			}
		}()
		fn(l)
	})
}

func (c *StreamingClient) emitClientEvent(eventType api.ClientEventType, data interface{}, err error) {
	if c.options.ClientEventHandler == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	select {
	case c.options.ClientEventHandler <- api.ClientEvent{
		EventType: eventType,
		EventData: data,
		ClientId:  c.clientId,
		Status:    status,
		Error:     err,
	}:
	default:
	}
}
