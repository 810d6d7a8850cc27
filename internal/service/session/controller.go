// Package session implements the chat session controller: optimistic local
// turns merged with the externally persisted history, plus document upload
// and history lifecycle.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
	"github.com/Satwikmbadiger/EmoTutor/internal/model/chat"
	"github.com/Satwikmbadiger/EmoTutor/internal/model/emotion"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/tutor"
	"github.com/Satwikmbadiger/EmoTutor/internal/store"
)

var (
	ErrEmptyQuestion   = errors.New("question must not be empty")
	ErrAskInFlight     = errors.New("an ask is already in flight")
	ErrUploadInFlight  = errors.New("an upload is already in flight")
	ErrConfirmRequired = errors.New("clearing all history requires confirmation")
)

// Backend is the slice of the tutor client the controller depends on.
type Backend interface {
	Ask(ctx context.Context, question, emotion string) (string, error)
	UploadPDF(ctx context.Context, filename string, file io.Reader) error
}

// Controller owns the live session and the mirrored history for one
// identity. It is safe for concurrent use.
type Controller struct {
	authCtx *auth.Context
	backend Backend
	records store.Store

	mu         sync.Mutex
	session    []chat.Turn
	history    []chat.Record
	selectedID string
	asking     bool
	uploading  bool
	emotion    emotion.Sample

	listeners  map[int]func()
	nextID     int
	unsubAuth  func()
	subCancel  func()
	subCtxStop context.CancelFunc
}

// NewController wires the controller to its collaborators. Call Start to
// begin following the auth context.
func NewController(authCtx *auth.Context, backend Backend, records store.Store) *Controller {
	return &Controller{
		authCtx:   authCtx,
		backend:   backend,
		records:   records,
		emotion:   emotion.Sample{Label: string(emotion.Neutral)},
		listeners: make(map[int]func()),
	}
}

// Start subscribes to identity changes: an established identity opens the
// history subscription, a sign-out tears it down and resets local state.
func (c *Controller) Start() {
	c.unsubAuth = c.authCtx.Subscribe(func(id *auth.Identity) {
		if id != nil {
			c.openSubscription(id.UID)
			return
		}
		c.closeSubscription()
		c.mu.Lock()
		c.session = nil
		c.history = nil
		c.selectedID = ""
		c.mu.Unlock()
		c.notify()
	})
}

// Stop releases the auth listener and the history subscription.
func (c *Controller) Stop() {
	if c.unsubAuth != nil {
		c.unsubAuth()
		c.unsubAuth = nil
	}
	c.closeSubscription()
}

// Ask submits a question with the latest emotion attached. The turn is
// appended immediately with a pending answer; backend failures resolve it
// with readable error text instead of rolling it back. Only one ask may be
// in flight; concurrent submissions are rejected, not queued. Asking while
// a history entry is selected returns the view to the live session.
func (c *Controller) Ask(ctx context.Context, question string) (chat.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return chat.Turn{}, ErrEmptyQuestion
	}
	identity, ok := c.authCtx.Current()
	if !ok {
		return chat.Turn{}, auth.ErrNoIdentity
	}

	c.mu.Lock()
	if c.asking {
		c.mu.Unlock()
		return chat.Turn{}, ErrAskInFlight
	}
	c.asking = true
	label := c.emotion.Label
	turn := chat.Turn{
		ID:        uuid.NewString(),
		Question:  question,
		Emotion:   label,
		CreatedAt: time.Now().UTC(),
	}
	c.session = append(c.session, turn)
	c.selectedID = ""
	index := len(c.session) - 1
	c.mu.Unlock()
	c.notify()

	answer, err := c.backend.Ask(ctx, question, label)

	var text string
	persist := false
	switch {
	case err == nil:
		text = answer
		persist = true
	default:
		var backendErr *tutor.BackendError
		if errors.As(err, &backendErr) {
			text = "Error: " + backendErr.Message
		} else {
			text = "Request failed: " + err.Error()
		}
	}

	resolved := c.resolveTurn(index, turn.ID, text)

	if persist {
		// Best-effort: the visible answer is never rolled back when the
		// store write fails.
		go c.persist(chat.Record{
			UID:      identity.UID,
			Question: question,
			Answer:   answer,
			Emotion:  label,
		})
	}

	c.notify()
	return resolved, nil
}

// resolveTurn writes the answer into the turn appended for this ask. The
// identifier guards against the session being cleared while the request was
// in flight.
func (c *Controller) resolveTurn(index int, id, text string) chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.asking = false
	if index < len(c.session) && c.session[index].ID == id {
		c.session[index] = c.session[index].Resolve(text)
		return c.session[index]
	}
	return chat.Turn{ID: id, Question: "", Answer: &text}
}

func (c *Controller) persist(record chat.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.records.Create(ctx, record); err != nil {
		log.Printf("[session] failed to persist turn for uid=%s: %v", record.UID, err)
	}
}

// Upload sends one document to the ingestion backend. The affordance is
// re-enabled regardless of outcome and nothing is retried.
func (c *Controller) Upload(ctx context.Context, filename string, file io.Reader) error {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return ErrUploadInFlight
	}
	c.uploading = true
	c.mu.Unlock()
	c.notify()

	err := c.backend.UploadPDF(ctx, filename, file)

	c.mu.Lock()
	c.uploading = false
	c.mu.Unlock()
	c.notify()
	return err
}

// SetEmotion records the panel's latest label for subsequent asks.
func (c *Controller) SetEmotion(sample emotion.Sample) {
	c.mu.Lock()
	c.emotion = sample
	c.mu.Unlock()
	c.notify()
}

// Emotion returns the label the next ask would attach.
func (c *Controller) Emotion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emotion.Label
}

// Select displays one history entry exclusively, clearing the live session.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	found := false
	for _, record := range c.history {
		if record.ID == id {
			found = true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		return store.ErrRecordNotFound
	}
	c.selectedID = id
	c.session = nil
	c.mu.Unlock()

	c.notify()
	return nil
}

// NewChat clears the selection and the live session.
func (c *Controller) NewChat() {
	c.mu.Lock()
	c.session = nil
	c.selectedID = ""
	c.mu.Unlock()
	c.notify()
}

// Delete removes one history entry from the store. Deleting the selected
// entry clears the selection and the session view.
func (c *Controller) Delete(ctx context.Context, id string) error {
	identity, ok := c.authCtx.Current()
	if !ok {
		return auth.ErrNoIdentity
	}

	if err := c.records.Delete(ctx, identity.UID, id); err != nil {
		return err
	}

	c.mu.Lock()
	if c.selectedID == id {
		c.selectedID = ""
		c.session = nil
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// ClearAll deletes every history entry belonging to the identity. The
// operation is irreversible and refused without explicit confirmation.
func (c *Controller) ClearAll(ctx context.Context, confirm bool) (int, error) {
	if !confirm {
		return 0, ErrConfirmRequired
	}
	identity, ok := c.authCtx.Current()
	if !ok {
		return 0, auth.ErrNoIdentity
	}

	removed, err := c.records.Clear(ctx, identity.UID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.session = nil
	c.selectedID = ""
	c.mu.Unlock()

	c.notify()
	return removed, nil
}

// openSubscription starts mirroring the store for uid, replacing any prior
// subscription so repeated sign-ins never stack.
func (c *Controller) openSubscription(uid string) {
	c.closeSubscription()

	ctx, stop := context.WithCancel(context.Background())
	ch, cancel, err := c.records.Subscribe(ctx, uid)
	if err != nil {
		stop()
		log.Printf("[session] failed to subscribe to history for uid=%s: %v", uid, err)
		return
	}

	c.mu.Lock()
	c.subCtxStop = stop
	c.subCancel = cancel
	c.mu.Unlock()

	go func() {
		for snapshot := range ch {
			c.applySnapshot(snapshot)
		}
	}()
}

func (c *Controller) closeSubscription() {
	c.mu.Lock()
	cancel := c.subCancel
	stop := c.subCtxStop
	c.subCancel = nil
	c.subCtxStop = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stop != nil {
		stop()
	}
}

// applySnapshot fully replaces the mirrored history. A selection whose
// record vanished from the store is dropped.
func (c *Controller) applySnapshot(snapshot []chat.Record) {
	c.mu.Lock()
	c.history = snapshot
	if c.selectedID != "" {
		found := false
		for _, record := range snapshot {
			if record.ID == c.selectedID {
				found = true
				break
			}
		}
		if !found {
			c.selectedID = ""
		}
	}
	c.mu.Unlock()

	c.notify()
}

// Snapshot is the renderable view of the controller.
type Snapshot struct {
	Session    []chat.Turn   `json:"session"`
	History    []chat.Record `json:"history"`
	SelectedID string        `json:"selectedId,omitempty"`
	Asking     bool          `json:"asking"`
	Uploading  bool          `json:"uploading"`
	Emotion    string        `json:"emotion"`
}

// View captures the controller state for rendering or push.
func (c *Controller) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := make([]chat.Turn, len(c.session))
	copy(session, c.session)
	history := make([]chat.Record, len(c.history))
	copy(history, c.history)

	return Snapshot{
		Session:    session,
		History:    history,
		SelectedID: c.selectedID,
		Asking:     c.asking,
		Uploading:  c.uploading,
		Emotion:    c.emotion.Label,
	}
}

// OnChange registers a state-change listener and returns its unsubscribe
// function.
func (c *Controller) OnChange(fn func()) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
