package bulletin

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/harun/parley/internal/observability"
)

// PublishFunc delivers an announcement body to every connected client
type PublishFunc func(body string)

// AnnouncerOptions holds configuration for an Announcer
type AnnouncerOptions struct {
	Publish PublishFunc
	Logger  zerolog.Logger
}

// Announcer runs the bulletin's cron schedules and publishes each
// announcement when it fires
type Announcer struct {
	cron    *cron.Cron
	publish PublishFunc
	logger  zerolog.Logger

	mu      sync.Mutex
	entries []cron.EntryID
}

// NewAnnouncer creates a new announcer
func NewAnnouncer(opts AnnouncerOptions) (*Announcer, error) {
	if opts.Publish == nil {
		return nil, fmt.Errorf("publish callback is required")
	}

	return &Announcer{
		cron:    cron.New(cron.WithParser(scheduleParser)),
		publish: opts.Publish,
		logger:  opts.Logger.With().Str("component", "announcer").Logger(),
	}, nil
}

// Apply replaces the scheduled announcements with the bulletin's.
// Entries from a previous bulletin are removed first, so a reload never
// leaves stale schedules behind.
func (a *Announcer) Apply(b *Bulletin) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range a.entries {
		a.cron.Remove(id)
	}
	a.entries = a.entries[:0]

	for i, ann := range b.Announcements {
		ann := ann
		announcementID := uuid.New().String()

		entryID, err := a.cron.AddFunc(ann.Schedule, func() {
			a.fire(announcementID, ann)
		})
		if err != nil {
			// The loader validates schedules, but Apply accepts any bulletin
			a.logger.Warn().
				Err(err).
				Int("index", i).
				Str("schedule", ann.Schedule).
				Msg("Skipping announcement with invalid schedule")
			continue
		}

		a.entries = append(a.entries, entryID)

		a.logger.Debug().
			Str("announcementId", announcementID).
			Str("schedule", ann.Schedule).
			Msg("Announcement scheduled")
	}

	a.logger.Info().Int("count", len(a.entries)).Msg("Announcement schedule applied")
}

// fire publishes a single announcement
func (a *Announcer) fire(announcementID string, ann Announcement) {
	a.publish(ann.Body)
	observability.RecordAnnouncement()

	a.logger.Info().
		Str("announcementId", announcementID).
		Str("schedule", ann.Schedule).
		Msg("Announcement published")
}

// Start begins running the announcement schedules
func (a *Announcer) Start() {
	a.cron.Start()
	a.logger.Info().Msg("Announcer started")
}

// Stop halts the schedules and waits for a running announcement to finish
func (a *Announcer) Stop() {
	<-a.cron.Stop().Done()
	a.logger.Info().Msg("Announcer stopped")
}

// Len returns the number of scheduled announcements
func (a *Announcer) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
