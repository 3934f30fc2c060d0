package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("runtime manager closed")

// Manager implements Runtime by routing every request to a long-lived
// worker goroutine owned by the schema url. A worker handles one request
// at a time. A panic in a worker is not recovered.
type Manager struct {
	factory Factory

	mu       sync.Mutex
	closed   bool
	workers  map[string]*worker
	bySchema map[model.SchemaID]*worker
	wg       sync.WaitGroup
}

type request struct {
	ctx   context.Context
	fn    func(ctx context.Context, inst Instance) (any, error)
	reply chan response
}

type response struct {
	value any
	err   error
}

type worker struct {
	url  string
	reqs chan request
	done chan struct{}

	// Owned by the serve goroutine.
	loaded bool
	id     model.SchemaID
}

// NewManager creates a manager creating instances with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		factory:  factory,
		workers:  make(map[string]*worker),
		bySchema: make(map[model.SchemaID]*worker),
	}
}

// LoadSchema implements Runtime. The first request for a url evaluates the
// schema; later requests are answered by the same worker with the id it
// already loaded.
func (m *Manager) LoadSchema(ctx context.Context, rawURL string) (model.SchemaID, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return 0, err
	}
	w, err := m.worker(ctx, u)
	if err != nil {
		return 0, err
	}
	v, err := w.call(ctx, func(ctx context.Context, inst Instance) (any, error) {
		if w.loaded {
			return w.id, nil
		}
		id, err := inst.Load(ctx)
		if err != nil {
			return nil, err
		}
		w.loaded, w.id = true, id
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	id := v.(model.SchemaID)

	m.mu.Lock()
	m.bySchema[id] = w
	m.mu.Unlock()
	return id, nil
}

// Transform implements Runtime.
func (m *Manager) Transform(ctx context.Context, t *task.ApplyTransform) (model.File, error) {
	m.mu.Lock()
	w, ok := m.bySchema[t.Schema]
	m.mu.Unlock()
	if !ok {
		return model.File{}, fmt.Errorf("%s is not loaded", t.Schema)
	}
	v, err := w.call(ctx, func(ctx context.Context, inst Instance) (any, error) {
		return inst.Transform(ctx, t)
	})
	if err != nil {
		return model.File{}, err
	}
	return v.(model.File), nil
}

// Close stops every worker after its current request and waits for them.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, w := range m.workers {
		close(w.done)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) worker(ctx context.Context, url string) (*worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if w, ok := m.workers[url]; ok {
		return w, nil
	}

	w := &worker{url: url, reqs: make(chan request), done: make(chan struct{})}
	m.workers[url] = w
	m.wg.Add(1)
	go m.serve(ctxlog.FromContext(ctx).With("schema", url), w)
	return w, nil
}

// serve is the worker loop. The instance is created on the first request;
// a failed creation is reported to that request and retried on the next.
func (m *Manager) serve(logger *slog.Logger, w *worker) {
	defer m.wg.Done()
	logger.Debug("Runtime worker started.")
	defer logger.Debug("Runtime worker stopped.")

	var inst Instance
	for {
		var req request
		select {
		case req = <-w.reqs:
		case <-w.done:
			return
		}
		if inst == nil {
			created, err := m.factory(w.url)
			if err != nil {
				req.reply <- response{err: fmt.Errorf("starting runtime for %s: %w", w.url, err)}
				continue
			}
			inst = created
		}
		v, err := req.fn(req.ctx, inst)
		req.reply <- response{value: v, err: err}
	}
}

func (w *worker) call(ctx context.Context, fn func(context.Context, Instance) (any, error)) (any, error) {
	req := request{ctx: ctx, fn: fn, reply: make(chan response, 1)}
	select {
	case w.reqs <- req:
	case <-w.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.value, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
