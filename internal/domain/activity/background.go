package activity

import (
	"context"
	"sync"
	"time"

	"productivity-api/internal/platform/logger"
)

const (
	DefaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// BestEffortAppender escribe actividades sin afectar a la operación que las origina:
// nunca bloquea, nunca devuelve error, no reintenta.
type BestEffortAppender interface {
	BestEffortAppend(in Input)
}

// BackgroundWriter encola escrituras best-effort y las procesa en una goroutine.
// Los errores se loguean y se descartan; si la cola está llena la actividad se pierde.
type BackgroundWriter struct {
	appender Appender
	log      logger.Logger
	metrics  Metrics
	timeout  time.Duration

	queue chan Input
	done  chan struct{}

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewBackgroundWriter(appender Appender, log logger.Logger, metrics Metrics, size int) *BackgroundWriter {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &BackgroundWriter{
		appender: appender,
		log:      log.With(map[string]any{"component": "activity.background"}),
		metrics:  metrics,
		timeout:  defaultWriteTimeout,
		queue:    make(chan Input, size),
		done:     make(chan struct{}),
	}
}

// Start lanza el worker. Se llama una sola vez desde el bootstrap.
func (w *BackgroundWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	go w.run()
}

func (w *BackgroundWriter) BestEffortAppend(in Input) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	typ := eventType(in.Event)
	if w.closed {
		w.metrics.BestEffortDropped(typ)
		w.log.Warn("activity dropped: writer closed", map[string]any{"type": typ, "actor_id": in.ActorID})
		return
	}

	select {
	case w.queue <- in:
	default:
		w.metrics.BestEffortDropped(typ)
		w.log.Warn("activity dropped: queue full", map[string]any{"type": typ, "actor_id": in.ActorID})
	}
}

// Close deja de aceptar actividades y espera a que se vacíe la cola o venza ctx.
func (w *BackgroundWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	close(w.queue)
	w.mu.Unlock()

	if !started {
		// nadie consume: procesamos lo pendiente acá mismo
		w.drain()
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *BackgroundWriter) run() {
	defer close(w.done)
	w.drain()
}

func (w *BackgroundWriter) drain() {
	for in := range w.queue {
		w.write(in)
	}
}

func (w *BackgroundWriter) write(in Input) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if _, err := w.appender.Append(ctx, in); err != nil {
		typ := eventType(in.Event)
		w.metrics.BestEffortFailed(typ)
		w.log.Error("best-effort activity write failed", map[string]any{
			"type":     typ,
			"actor_id": in.ActorID,
			"error":    err,
		})
	}
}

func eventType(ev Event) Type {
	if ev == nil {
		return ""
	}
	return ev.Type()
}
