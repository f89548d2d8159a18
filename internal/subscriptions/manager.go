package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/lighthouse/internal/eventbus"
	events "github.com/hanpama/lighthouse/internal/events"
	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
)

// ErrQueueClosed is returned by Queue and Run once the Run loop has stopped.
var ErrQueueClosed = errors.New("broadcast queue closed")

// Executor runs a stored subscription query.
type Executor interface {
	ExecuteRequest(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any, root any) *executor.ExecutionResult
}

// Manager fans broadcasts out to the stored subscribers of a topic.
type Manager struct {
	registry     *Registry
	storage      Storage
	broadcaster  Broadcaster
	exec         Executor
	excludeEmpty bool
	log          *zap.Logger

	queue chan job
	// mu guards closed. Queue holds it shared while sending so that Run
	// drains every job accepted before it closed the queue.
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	stopOnce sync.Once
}

type job struct {
	fieldName string
	root      any
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithExcludeEmpty skips deliveries whose subscription field resolved to
// null without errors.
func WithExcludeEmpty(v bool) ManagerOption { return func(m *Manager) { m.excludeEmpty = v } }

// WithQueueSize sets the buffer of the asynchronous broadcast queue.
func WithQueueSize(n int) ManagerOption { return func(m *Manager) { m.queue = make(chan job, n) } }

// WithManagerLogger sets the logger for failed and drained broadcasts.
func WithManagerLogger(l *zap.Logger) ManagerOption { return func(m *Manager) { m.log = l } }

// NewManager returns a manager that loads subscribers from storage, replays
// their queries with exec and hands results to broadcaster. Queued
// broadcasts run only while Run is active.
func NewManager(registry *Registry, storage Storage, broadcaster Broadcaster, exec Executor, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry:    registry,
		storage:     storage,
		broadcaster: broadcaster,
		exec:        exec,
		log:         zap.NewNop(),
		queue:       make(chan job),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Broadcast delivers root to every subscriber of the topic fieldName decodes
// it to. Delivery failures of single subscribers are joined into the
// returned error; the remaining subscribers still receive the result.
func (m *Manager) Broadcast(ctx context.Context, fieldName string, root any) error {
	sub, ok := m.registry.Subscription(fieldName)
	if !ok {
		return fmt.Errorf("no subscription registered for field %q", fieldName)
	}
	topic := sub.DecodeTopic(fieldName, root)
	subscribers, err := m.storage.SubscribersByTopic(ctx, topic)
	if err != nil {
		return fmt.Errorf("load subscribers of %s: %w", topic, err)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.BroadcastStart{FieldName: fieldName, Topic: topic, Subscribers: len(subscribers)})
	delivered := 0
	var errs []error
	for _, s := range subscribers {
		ok, err := m.deliver(ctx, sub, s, root)
		if err != nil {
			m.log.Warn("broadcast failed", zap.String("channel", s.Channel), zap.Error(err))
			errs = append(errs, fmt.Errorf("channel %s: %w", s.Channel, err))
			continue
		}
		if ok {
			delivered++
		}
	}
	err = errors.Join(errs...)
	eventbus.Publish(ctx, events.BroadcastFinish{
		FieldName: fieldName,
		Topic:     topic,
		Delivered: delivered,
		Err:       err,
		Duration:  time.Since(start),
	})
	return err
}

func (m *Manager) deliver(ctx context.Context, sub Subscription, s *Subscriber, root any) (bool, error) {
	s.Root = root
	ok, err := sub.Filter(ctx, s, root)
	if err != nil || !ok {
		return false, err
	}
	if gctx, ok := s.Context.(*gqlcontext.Context); ok {
		ctx = gqlcontext.NewContext(ctx, gctx)
	}
	result := m.exec.ExecuteRequest(ctx, s.Query, "", s.Variables, s)
	if m.excludeEmpty && isEmpty(result) {
		return false, nil
	}
	return true, m.broadcaster.Broadcast(ctx, s, result)
}

// isEmpty reports whether the single root field of result is null.
func isEmpty(result *executor.ExecutionResult) bool {
	if len(result.Errors) > 0 {
		return false
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		return result.Data == nil
	}
	for _, v := range data {
		if v != nil {
			return false
		}
	}
	return true
}

// Queue schedules a broadcast for the Run loop. It blocks until the
// broadcast is accepted, ctx ends or the manager stops.
func (m *Manager) Queue(ctx context.Context, fieldName string, root any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrQueueClosed
	}
	select {
	case m.queue <- job{fieldName: fieldName, root: root}:
		return nil
	case <-m.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued broadcasts until ctx ends. Jobs still buffered at
// that point are delivered before Run returns, without ctx's cancellation.
// Run returns ErrQueueClosed when the manager has already stopped.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case j := <-m.queue:
			m.run(ctx, j)
		}
	}
	m.stop()
	m.drain(context.WithoutCancel(ctx))
	return nil
}

func (m *Manager) stop() {
	m.stopOnce.Do(func() {
		// Wake blocked Queue calls first; they hold the read lock.
		close(m.done)
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
	})
}

func (m *Manager) drain(ctx context.Context) {
	for {
		select {
		case j := <-m.queue:
			m.log.Info("delivering queued broadcast after shutdown", zap.String("field", j.fieldName))
			m.run(ctx, j)
		default:
			return
		}
	}
}

func (m *Manager) run(ctx context.Context, j job) {
	if err := m.Broadcast(ctx, j.fieldName, j.root); err != nil {
		m.log.Error("queued broadcast failed", zap.String("field", j.fieldName), zap.Error(err))
	}
}
