// Package process launches and supervises service processes.
package process

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/model"
)

// ErrStopped is returned by Spawn after StopAll.
var ErrStopped = errors.New("process manager stopped")

// Process is one running service.
type Process struct {
	Service model.ServiceID
	Name    string
	cmd     *exec.Cmd
	done    chan struct{}
	err     error
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	<-p.done
	return p.err
}

// Manager owns every process it spawned.
type Manager struct {
	grace time.Duration

	mu      sync.Mutex
	procs   map[model.ServiceID]*Process
	stopped bool
}

// NewManager creates a manager. grace is how long StopAll waits after an
// interrupt before killing a process.
func NewManager(grace time.Duration) *Manager {
	return &Manager{grace: grace, procs: make(map[model.ServiceID]*Process)}
}

// Spawn starts a service process. A service that is already running is
// returned as is. env is added on top of the current environment.
func (m *Manager) Spawn(ctx context.Context, id model.ServiceID, name string, bin model.ResolvedBinary) (*Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, ErrStopped
	}
	if p, ok := m.procs[id]; ok {
		select {
		case <-p.done:
		default:
			return p, nil
		}
	}

	cmd := exec.Command(bin.Executable, bin.Args...)
	cmd.Env = os.Environ()
	for _, k := range slices.Sorted(maps.Keys(bin.Env)) {
		cmd.Env = append(cmd.Env, k+"="+bin.Env[k])
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting service %q: %w", name, err)
	}

	p := &Process{Service: id, Name: name, cmd: cmd, done: make(chan struct{})}
	m.procs[id] = p

	logger := ctxlog.FromContext(ctx).With("service", name, "pid", cmd.Process.Pid)
	logger.Info("Service started.", "executable", bin.Executable)
	go func() {
		p.err = cmd.Wait()
		close(p.done)
		logger.Info("Service exited.", "exitCode", cmd.ProcessState.ExitCode())
	}()
	return p, nil
}

// StopAll interrupts every running process and waits for it to exit,
// killing processes that outlive the grace period. Spawn fails afterwards.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	m.stopped = true
	procs := slices.Collect(maps.Values(m.procs))
	m.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-p.done:
				return
			default:
			}
			if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil {
				logger.Debug("Failed to interrupt service.", "service", p.Name, "error", err)
			}
			select {
			case <-p.done:
			case <-time.After(m.grace):
				logger.Warn("Killing service after grace period.", "service", p.Name, "grace", m.grace)
				_ = p.cmd.Process.Kill()
				<-p.done
			}
		}()
	}
	wg.Wait()
}

// Wait blocks until every spawned process has exited or ctx is done. It
// returns the exit errors of the processes that failed.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	procs := slices.Collect(maps.Values(m.procs))
	m.mu.Unlock()

	var errs []error
	for _, p := range procs {
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := p.Err(); err != nil {
			errs = append(errs, fmt.Errorf("service %q: %w", p.Name, err))
		}
	}
	return errors.Join(errs...)
}
