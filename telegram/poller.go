package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one inbound message. Implementations own all user
// interaction; the poller only routes.
type Handler interface {
	Handle(ctx context.Context, msg *Message)
}

type chatJob struct {
	msg *Message
}

// chatWorker serializes messages within one chat. Chats do not block
// each other.
type chatWorker struct {
	Jobs       chan chatJob
	ctx        context.Context
	cancel     context.CancelFunc
	lastActive time.Time
}

// Poller runs the getUpdates loop and fans messages out to per-chat
// workers.
type Poller struct {
	Client      *Client
	Handler     Handler
	Logger      *slog.Logger
	PollTimeout time.Duration
	IdleTimeout time.Duration

	mu      sync.Mutex
	workers map[int64]*chatWorker
}

func NewPoller(c *Client, h Handler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		Client:      c,
		Handler:     h,
		Logger:      logger,
		PollTimeout: 30 * time.Second,
		IdleTimeout: 5 * time.Minute,
		workers:     make(map[int64]*chatWorker),
	}
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	reaper := time.NewTicker(time.Minute)
	defer reaper.Stop()
	go func() {
		for {
			select {
			case <-reaper.C:
				p.reapIdle()
			case <-ctx.Done():
				return
			}
		}
	}()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			p.stopWorkers()
			return ctx.Err()
		default:
		}

		updates, err := p.Client.GetUpdates(ctx, offset, p.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.stopWorkers()
				return ctx.Err()
			}
			p.Logger.Error("getUpdates failed", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			if u.Message == nil {
				continue
			}
			p.dispatch(ctx, u.Message)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, msg *Message) {
	p.mu.Lock()
	w, ok := p.workers[msg.Chat.ID]
	if !ok {
		wctx, cancel := context.WithCancel(ctx)
		w = &chatWorker{
			Jobs:   make(chan chatJob, 16),
			ctx:    wctx,
			cancel: cancel,
		}
		p.workers[msg.Chat.ID] = w
		go p.runWorker(w)
	}
	w.lastActive = time.Now()
	p.mu.Unlock()

	select {
	case w.Jobs <- chatJob{msg: msg}:
	default:
		p.Logger.Warn("chat queue full, message dropped", "chat_id", msg.Chat.ID)
	}
}

func (p *Poller) runWorker(w *chatWorker) {
	for {
		select {
		case job := <-w.Jobs:
			p.Handler.Handle(w.ctx, job.msg)
		case <-w.ctx.Done():
			return
		}
	}
}

func (p *Poller) reapIdle() {
	cutoff := time.Now().Add(-p.IdleTimeout)
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, w := range p.workers {
		if w.lastActive.Before(cutoff) && len(w.Jobs) == 0 {
			w.cancel()
			delete(p.workers, id)
		}
	}
}

func (p *Poller) stopWorkers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, w := range p.workers {
		w.cancel()
		delete(p.workers, id)
	}
}
