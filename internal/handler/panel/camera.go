package panel

import (
	"context"
	"errors"
	"sync"
	"time"

	panelservice "github.com/Satwikmbadiger/EmoTutor/internal/service/panel"
)

var (
	errAcquireTimeout = errors.New("timed out waiting for camera")
	errNoFrame        = errors.New("no frame available")
	errStreamClosed   = errors.New("camera stream closed")
)

// acquireTimeout bounds how long the gateway waits for the browser to either
// deliver a first frame or report a device refusal.
const acquireTimeout = 10 * time.Second

// remoteCamera 把浏览器摄像头桥接为面板的Camera：网关请求浏览器开启视频，
// 浏览器通过WebSocket把编码后的帧推回来。每次Acquire开启一个新的采集周期。
type remoteCamera struct {
	sendStart func() error
	sendStop  func() error

	mu       sync.Mutex
	frame    []byte
	denied   error
	closed   bool
	ready    chan struct{}
	signaled bool
}

func newRemoteCamera(sendStart, sendStop func() error) *remoteCamera {
	return &remoteCamera{
		sendStart: sendStart,
		sendStop:  sendStop,
	}
}

// SubmitFrame stores the most recent frame from the browser. The first frame
// of a cycle completes acquisition.
func (c *remoteCamera) SubmitFrame(data []byte) {
	if len(data) == 0 {
		return
	}
	c.mu.Lock()
	c.frame = data
	c.signalLocked()
	c.mu.Unlock()
}

// Deny records a device refusal reported by the browser.
func (c *remoteCamera) Deny(message string) {
	c.mu.Lock()
	if c.denied == nil {
		c.denied = errors.New(message)
	}
	c.signalLocked()
	c.mu.Unlock()
}

// signalLocked must be called with mu held.
func (c *remoteCamera) signalLocked() {
	if c.ready != nil && !c.signaled {
		close(c.ready)
		c.signaled = true
	}
}

// Acquire asks the browser to start video and blocks until the first frame
// arrives, access is refused, or the wait times out.
func (c *remoteCamera) Acquire(ctx context.Context) (panelservice.Stream, error) {
	c.mu.Lock()
	c.frame = nil
	c.denied = nil
	c.closed = false
	c.ready = make(chan struct{})
	c.signaled = false
	ready := c.ready
	c.mu.Unlock()

	if err := c.sendStart(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(acquireTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		_ = c.sendStop()
		return nil, ctx.Err()
	case <-timer.C:
		_ = c.sendStop()
		return nil, errAcquireTimeout
	case <-ready:
	}

	c.mu.Lock()
	denied := c.denied
	c.mu.Unlock()
	if denied != nil {
		return nil, denied
	}
	return &remoteStream{cam: c}, nil
}

// remoteStream is one acquired camera cycle.
type remoteStream struct {
	cam  *remoteCamera
	once sync.Once
}

// Capture returns a copy of the most recent frame.
func (s *remoteStream) Capture(_ context.Context) ([]byte, error) {
	s.cam.mu.Lock()
	defer s.cam.mu.Unlock()

	if s.cam.closed {
		return nil, errStreamClosed
	}
	if len(s.cam.frame) == 0 {
		return nil, errNoFrame
	}
	out := make([]byte, len(s.cam.frame))
	copy(out, s.cam.frame)
	return out, nil
}

// Close tells the browser to stop video and drops the buffered frame. Safe
// to call more than once.
func (s *remoteStream) Close() error {
	s.once.Do(func() {
		s.cam.mu.Lock()
		s.cam.closed = true
		s.cam.frame = nil
		s.cam.mu.Unlock()
		_ = s.cam.sendStop()
	})
	return nil
}
