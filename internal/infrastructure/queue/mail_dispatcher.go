package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/AppChainLabs/authd/internal/core/ports"
	"github.com/AppChainLabs/authd/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// MailDispatcher routes outbound mail to a fixed set of workers using
// consistent hashing on the recipient, guaranteeing per-recipient ordering.
// A delivery failure is logged and dropped; mail is best-effort.
type MailDispatcher struct {
	workers []chan ports.Mail
	mailer  ports.Mailer
	log     zerolog.Logger
}

// NewMailDispatcher creates a MailDispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan ports.Mail, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Mail, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *MailDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a message to the worker responsible for its recipient.
// The call is non-blocking up to channelBuffer capacity.
func (d *MailDispatcher) Enqueue(mail ports.Mail) {
	i := d.shardIndex(mail.To)
	d.workers[i] <- mail
	metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *MailDispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32()) % len(d.workers)
}

func (d *MailDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Mail) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case mail, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			if err := d.mailer.Send(ctx, mail); err != nil {
				d.log.Error().Err(err).
					Str("to", mail.To).
					Int("worker_id", id).
					Msg("mail delivery failed")
			}
		}
	}
}
