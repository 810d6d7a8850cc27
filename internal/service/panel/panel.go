// Package panel implements the floating emotion-sensing panel: a live camera
// stream sampled on a fixed cadence, classified remotely, and positioned
// freely by the user within the viewport.
package panel

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Satwikmbadiger/EmoTutor/internal/model/emotion"
	panelmodel "github.com/Satwikmbadiger/EmoTutor/internal/model/panel"
)

// State 表示面板在一次可见周期内所处的阶段。
type State string

const (
	StateHidden    State = "hidden"
	StateAcquiring State = "acquiring"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// DefaultSampleInterval is the cadence between captures while streaming.
const DefaultSampleInterval = 5 * time.Second

// Camera grants access to a live video device. Acquire blocks until the
// device is ready or refused.
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired camera device. Close releases the device back to the
// OS and must be safe to call more than once.
type Stream interface {
	// Capture encodes the current video frame as a still image.
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// Classifier turns a captured frame into a discrete emotion label.
type Classifier interface {
	DetectEmotion(ctx context.Context, frame []byte) (string, error)
}

// Config carries panel construction options. Zero values fall back to the
// defaults from the original layout.
type Config struct {
	SampleInterval   time.Duration
	Viewport         panelmodel.Viewport
	MobileBreakpoint float64
}

// Panel owns the camera, the sampling timer, and the freeform position. All
// methods are safe for concurrent use.
type Panel struct {
	camera     Camera
	classifier Classifier
	interval   time.Duration
	breakpoint float64

	// onEmotion reports each successful classification upward.
	onEmotion func(emotion.Sample)
	// onChange fires after any observable state change, for UI push.
	onChange func()

	mu       sync.Mutex
	state    State
	stream   Stream
	stopLoop context.CancelFunc
	// gen increments on every visibility transition so results from a
	// previous cycle cannot touch the current one.
	gen int

	sample  emotion.Sample
	lastErr string

	size     panelmodel.Size
	pos      panelmodel.Position
	viewport panelmodel.Viewport

	dragging   bool
	dragOffset panelmodel.Position
}

// New builds a hidden panel. The initial emotion is neutral so the first ask
// always has a label to attach.
func New(camera Camera, classifier Classifier, cfg Config) *Panel {
	interval := cfg.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	breakpoint := cfg.MobileBreakpoint
	if breakpoint <= 0 {
		breakpoint = panelmodel.DefaultMobileBreakpoint
	}
	vp := cfg.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = panelmodel.Viewport{Width: 1280, Height: 800}
	}

	return &Panel{
		camera:     camera,
		classifier: classifier,
		interval:   interval,
		breakpoint: breakpoint,
		state:      StateHidden,
		sample:     emotion.Sample{Label: string(emotion.Neutral)},
		size:       panelmodel.Size{Width: panelmodel.DefaultWidth, Height: panelmodel.DefaultHeight},
		pos:        panelmodel.SpawnPosition(vp),
		viewport:   vp,
	}
}

// OnEmotion registers the emotion-changed callback.
func (p *Panel) OnEmotion(fn func(emotion.Sample)) {
	p.mu.Lock()
	p.onEmotion = fn
	p.mu.Unlock()
}

// OnChange registers the state-change callback.
func (p *Panel) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Show makes the panel visible and acquires the camera. A device refusal
// parks the panel in the error state; the user retries by toggling
// visibility off and on again.
func (p *Panel) Show(ctx context.Context) {
	p.mu.Lock()
	if p.state != StateHidden {
		p.mu.Unlock()
		return
	}
	p.state = StateAcquiring
	p.lastErr = ""
	p.gen++
	gen := p.gen
	p.mu.Unlock()
	p.notify()

	stream, err := p.camera.Acquire(ctx)

	p.mu.Lock()
	if gen != p.gen {
		// Hidden again while acquiring; release immediately.
		p.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		return
	}
	if err != nil {
		p.state = StateError
		p.lastErr = "Could not access webcam: " + err.Error()
		p.mu.Unlock()
		p.notify()
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.state = StateStreaming
	p.stream = stream
	p.stopLoop = cancel
	p.mu.Unlock()
	p.notify()

	go p.run(loopCtx, stream, gen)
}

// Hide makes the panel invisible. The timer stops and the camera is released
// on every exit path; an in-flight classification is not cancelled but its
// late result is discarded.
func (p *Panel) Hide() {
	p.mu.Lock()
	if p.state == StateHidden {
		p.mu.Unlock()
		return
	}
	stream := p.stream
	cancel := p.stopLoop
	p.state = StateHidden
	p.stream = nil
	p.stopLoop = nil
	p.dragging = false
	p.gen++
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			log.Printf("[panel] failed to release camera: %v", err)
		}
	}
	p.notify()
}

// run drives the sampling cadence: one immediate capture, then one per tick.
// An outstanding sample does not delay the next tick.
func (p *Panel) run(ctx context.Context, stream Stream, gen int) {
	go p.sampleOnce(ctx, stream, gen)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.sampleOnce(ctx, stream, gen)
		}
	}
}

// sampleOnce captures a frame, classifies it, and applies the outcome if the
// panel is still in the same visibility cycle.
func (p *Panel) sampleOnce(ctx context.Context, stream Stream, gen int) {
	frame, err := stream.Capture(ctx)
	if err == nil {
		var label string
		label, err = p.classifier.DetectEmotion(ctx, frame)
		if err == nil {
			p.applySample(emotion.Sample{Label: label, CapturedAt: time.Now().UTC()}, gen)
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	p.applyError(err.Error(), gen)
}

// applySample stores a fresh sample and clears any classification error. A
// label outside the known vocabulary is shown as neutral.
func (p *Panel) applySample(sample emotion.Sample, gen int) {
	if !emotion.Known(sample.Label) {
		sample.Label = string(emotion.Neutral)
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.sample = sample
	p.lastErr = ""
	onEmotion := p.onEmotion
	p.mu.Unlock()

	if onEmotion != nil {
		onEmotion(sample)
	}
	p.notify()
}

// applyError surfaces the failure inline; the previous sample stays in place
// and sampling continues on the next tick.
func (p *Panel) applyError(message string, gen int) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.lastErr = message
	p.mu.Unlock()

	log.Printf("[panel] detection failed: %s", message)
	p.notify()
}

// Sample returns the latest detected emotion.
func (p *Panel) Sample() emotion.Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample
}

// State returns the current visibility state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Panel) notify() {
	p.mu.Lock()
	onChange := p.onChange
	p.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

// Snapshot is the renderable view of the panel.
type Snapshot struct {
	State    State               `json:"state"`
	Emotion  emotion.Sample      `json:"emotion"`
	Error    string              `json:"error,omitempty"`
	Position panelmodel.Position `json:"position"`
	Size     panelmodel.Size     `json:"size"`
	Layout   panelmodel.Layout   `json:"layout"`
	Viewport panelmodel.Viewport `json:"viewport"`
	Dragging bool                `json:"dragging"`
}

// View captures the panel state for rendering or push.
func (p *Panel) View() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		State:    p.state,
		Emotion:  p.sample,
		Error:    p.lastErr,
		Position: p.pos,
		Size:     p.size,
		Layout:   panelmodel.LayoutFor(p.viewport, p.breakpoint),
		Viewport: p.viewport,
		Dragging: p.dragging,
	}
}
