package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	maxAttempts = 3
	popTimeout  = 5 * time.Second
)

var jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inventory_jobs_processed_total",
	Help: "Background jobs processed by queue and result.",
}, []string{"queue", "result"})

// Job is the envelope stored on the Redis queues.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Handler processes one job payload. A returned error triggers a retry, and
// after maxAttempts the job lands on the dead letter queue.
type Handler func(ctx context.Context, payload []byte) error

// Dispatcher pushes jobs onto Redis queues. It is the Queue implementation
// the services enqueue through.
type Dispatcher struct {
	redis *redis.Client
}

var _ service.Queue = (*Dispatcher)(nil)

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{redis: rdb}
}

func (d *Dispatcher) Enqueue(ctx context.Context, queue string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{
		ID:         uuid.NewString(),
		Queue:      queue,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.redis.LPush(ctx, queue, data).Err()
}

// Pool runs a fixed set of goroutines consuming the registered queues.
type Pool struct {
	redis    *redis.Client
	size     int
	queues   []string
	handlers map[string]Handler
}

func NewPool(rdb *redis.Client, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{redis: rdb, size: size, handlers: make(map[string]Handler)}
}

// Register binds a handler to a queue. Must be called before Start.
func (p *Pool) Register(queue string, h Handler) {
	p.handlers[queue] = h
	p.queues = append(p.queues, queue)
}

// Start launches the workers. They stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.work(ctx, i)
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) work(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.redis.BRPop(ctx, popTimeout, p.queues...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Int("worker", id).Msg("queue pop failed")
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [queue, value].
		if len(res) != 2 {
			continue
		}
		p.process(ctx, res[0], []byte(res[1]))
	}
}

func (p *Pool) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("malformed job dropped")
		jobsProcessed.WithLabelValues(queue, "malformed").Inc()
		return
	}

	handler, ok := p.handlers[queue]
	if !ok {
		log.Error().Str("queue", queue).Msg("no handler registered")
		return
	}

	job.Attempts++
	err := handler(ctx, job.Payload)
	if err == nil {
		jobsProcessed.WithLabelValues(queue, "ok").Inc()
		return
	}

	job.LastError = err.Error()
	log.Warn().Err(err).Str("queue", queue).Str("job", job.ID).
		Int("attempt", job.Attempts).Msg("job failed")

	if job.Attempts >= maxAttempts {
		jobsProcessed.WithLabelValues(queue, "dead").Inc()
		if dlqErr := pushDead(ctx, p.redis, &job); dlqErr != nil {
			log.Error().Err(dlqErr).Str("job", job.ID).Msg("dead letter push failed")
		}
		return
	}

	jobsProcessed.WithLabelValues(queue, "retry").Inc()
	data, merr := json.Marshal(job)
	if merr != nil {
		return
	}
	if rerr := p.redis.LPush(ctx, queue, data).Err(); rerr != nil {
		log.Error().Err(rerr).Str("job", job.ID).Msg("retry enqueue failed")
	}
}
