package live

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LivePublisher republishes the live session's snapshot
type LivePublisher interface {
	PublishLive(ctx context.Context) (string, error)
}

// PushJob periodically republishes the live session so elapsed time keeps
// advancing on dashboards between events.
type PushJob struct {
	publisher LivePublisher
	hub       *Hub
	timeout   time.Duration
	log       zerolog.Logger
}

// NewPushJob creates a new PushJob
func NewPushJob(publisher LivePublisher, hub *Hub) *PushJob {
	return &PushJob{
		publisher: publisher,
		hub:       hub,
		timeout:   10 * time.Second,
		log:       zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *PushJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *PushJob) Name() string {
	return "live_push"
}

// Run republishes the live session when anyone is listening
func (j *PushJob) Run() error {
	if j.hub.SubscriberCount("") == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	id, err := j.publisher.PublishLive(ctx)
	if err != nil {
		return err
	}
	if id != "" {
		j.log.Debug().Str("session_id", id).Int("subscribers", j.hub.SubscriberCount(id)).Msg("Live snapshot pushed")
	}
	return nil
}
