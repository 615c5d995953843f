// Package livesync keeps a local, read-only view of one conversation in
// step with the message log. It owns the subscription lifecycle and the
// classification of subscription failures.
package livesync

import (
	"context"
	"log/slog"
	"sync"

	"duochat/contract"
	"duochat/domain"
	"duochat/errors"
)

// FetchErrorMessage is the user-facing text for genuine subscription
// failures. Benign not-found conditions never surface any text.
const FetchErrorMessage = "Unable to load messages. Please try again later."

// State is the controller's view of the conversation at one instant.
// Messages ascend by CreatedAt exactly as the store delivered them; the
// controller never re-sorts or patches.
type State struct {
	Messages   []domain.Message
	IsLoading  bool
	FetchError string
}

// Controller maintains exactly one live subscription at a time.
//
// Lifecycle: Idle until the first SetPartner, then Loading, then Ready on
// the first delivery or Errored on a genuine failure. Switching partners
// tears the prior subscription down before opening the next one; a
// generation counter fences out deliveries from a subscription that was
// already canceled.
type Controller struct {
	mu     sync.Mutex
	log    *slog.Logger
	source contract.SubscriptionSource
	selfID string

	conversation domain.ConversationID
	generation   uint64
	cancel       func()
	closed       bool

	messages    []domain.Message
	isLoading   bool
	fetchError  string
	delivered   bool
	knownExists bool

	onChange func()
}

func NewController(log *slog.Logger, source contract.SubscriptionSource, selfID string) *Controller {
	return &Controller{log: log, source: source, selfID: selfID}
}

// SetOnChange registers a callback invoked after every state transition,
// outside the controller's lock. Set it before the first SetPartner.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetPartner points the controller at the conversation with the given
// partner. Same partner: no-op. Different partner: the previous
// subscription is canceled first, state resets to Loading, and a new
// subscription opens. The initial snapshot (or rejection) arrives through
// the sink before SetPartner returns, courtesy of the hub's synchronous
// attach.
func (c *Controller) SetPartner(partnerID string) {
	id := domain.DeriveConversationID(c.selfID, partnerID)

	c.mu.Lock()
	if c.closed || id == c.conversation {
		c.mu.Unlock()
		return
	}
	prior := c.cancel
	c.cancel = nil
	c.conversation = id
	c.generation++
	generation := c.generation
	c.messages = nil
	c.isLoading = true
	c.fetchError = ""
	c.delivered = false
	c.knownExists = false
	c.mu.Unlock()

	if prior != nil {
		prior()
	}

	cancel := c.source.Subscribe(id, c.selfID, &subscriptionSink{controller: c, generation: generation})

	c.mu.Lock()
	if c.generation == generation && !c.closed {
		c.cancel = cancel
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	cancel()
}

// Close tears down the active subscription. No delivery mutates state
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	prior := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if prior != nil {
		prior()
	}
}

// MarkConversationExists records that a send has succeeded, which proves
// the metadata record exists. From then on an access-denied subscription
// error can no longer be read as "not created yet".
func (c *Controller) MarkConversationExists() {
	c.mu.Lock()
	c.knownExists = true
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Messages: c.messages, IsLoading: c.isLoading, FetchError: c.fetchError}
}

func (c *Controller) Conversation() domain.ConversationID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversation
}

// subscriptionSink routes one subscription generation into the controller.
// A stale generation means the subscription was canceled between the
// fanout picking the sink and the delivery landing; those are dropped.
type subscriptionSink struct {
	controller *Controller
	generation uint64
}

func (s *subscriptionSink) Deliver(_ context.Context, messages []domain.Message) error {
	c := s.controller
	c.mu.Lock()
	if c.closed || s.generation != c.generation {
		c.mu.Unlock()
		return errors.ErrSubscriberClosed
	}
	c.messages = messages
	c.isLoading = false
	c.fetchError = ""
	c.delivered = true
	c.mu.Unlock()
	c.notify()
	return nil
}

// Reject classifies a subscription failure. Access denied before anything
// was ever delivered or sent means the conversation simply has not been
// created yet: the controller settles on an empty Ready state and shows
// nothing. Everything else becomes a persistent, user-visible fetch error.
func (s *subscriptionSink) Reject(_ context.Context, err error) {
	c := s.controller
	c.mu.Lock()
	if c.closed || s.generation != c.generation {
		c.mu.Unlock()
		return
	}
	if errors.IsAccessDenied(err) && !c.delivered && !c.knownExists {
		c.log.Debug("Conversation not created yet, settling empty",
			"conversation", c.conversation)
		c.messages = nil
		c.isLoading = false
		c.fetchError = ""
		c.mu.Unlock()
		c.notify()
		return
	}
	c.log.Error("Subscription failed", "conversation", c.conversation, "error", err)
	c.fetchError = FetchErrorMessage
	c.isLoading = false
	c.mu.Unlock()
	c.notify()
}
