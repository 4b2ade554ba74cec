package bulletin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/harun/parley/internal/observability"
)

// BoardOptions holds configuration for a Board
type BoardOptions struct {
	// Path is the bulletin file to load and watch
	Path string

	// OnReload is called after every successful load, including the first
	OnReload func(*Bulletin)

	// StabilityThreshold debounces rapid rewrites of the file
	StabilityThreshold time.Duration

	Logger zerolog.Logger
}

// Board holds the current bulletin and hot-reloads it when the file
// changes. The file's directory is watched rather than the file itself,
// so atomic replace-by-rename edits are still observed.
type Board struct {
	path      string
	loader    *Loader
	onReload  func(*Bulletin)
	stability time.Duration
	logger    zerolog.Logger

	mu      sync.RWMutex
	current *Bulletin

	watcher       *fsnotify.Watcher
	done          chan struct{}
	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	stopOnce      sync.Once
}

// NewBoard creates a bulletin board over the given file
func NewBoard(opts BoardOptions) (*Board, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("bulletin path is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if opts.StabilityThreshold == 0 {
		opts.StabilityThreshold = 100 * time.Millisecond
	}

	logger := opts.Logger.With().Str("component", "bulletin-board").Logger()

	return &Board{
		path:      filepath.Clean(opts.Path),
		loader:    NewLoader(opts.Logger),
		onReload:  opts.OnReload,
		stability: opts.StabilityThreshold,
		logger:    logger,
		current:   &Bulletin{},
		watcher:   watcher,
		done:      make(chan struct{}),
	}, nil
}

// Start loads the bulletin and begins watching for changes
func (b *Board) Start() error {
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		b.logger.Info().Str("path", b.path).Msg("No bulletin file, starting empty")
	} else if err := b.Reload(); err != nil {
		b.logger.Warn().Err(err).Str("path", b.path).Msg("Failed to load bulletin, starting empty")
	}

	if err := b.watcher.Add(filepath.Dir(b.path)); err != nil {
		return fmt.Errorf("failed to watch bulletin directory: %w", err)
	}

	go b.eventLoop()

	b.logger.Info().Str("path", b.path).Msg("Bulletin board started")
	return nil
}

// Stop stops watching the bulletin file
func (b *Board) Stop() error {
	b.stopOnce.Do(func() {
		close(b.done)
	})

	b.debounceMu.Lock()
	if b.debounceTimer != nil {
		b.debounceTimer.Stop()
	}
	b.debounceMu.Unlock()

	if err := b.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	b.logger.Info().Msg("Bulletin board stopped")
	return nil
}

// MOTD returns the current message of the day, empty when none is set
func (b *Board) MOTD() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current.MOTD
}

// Current returns the most recently loaded bulletin
func (b *Board) Current() *Bulletin {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Reload reads the bulletin file and swaps it in. On failure the
// previous bulletin stays in effect.
func (b *Board) Reload() error {
	bl, err := b.loader.LoadFile(b.path)
	if err != nil {
		observability.RecordBulletinReload(false)
		return err
	}

	b.mu.Lock()
	b.current = bl
	b.mu.Unlock()

	observability.RecordBulletinReload(true)

	b.logger.Info().
		Str("path", b.path).
		Int("announcements", len(bl.Announcements)).
		Bool("motd", bl.MOTD != "").
		Msg("Bulletin loaded")

	if b.onReload != nil {
		b.onReload(bl)
	}

	return nil
}

// eventLoop processes file system events
func (b *Board) eventLoop() {
	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleEvent(event)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.logger.Error().Err(err).Msg("Watcher error")

		case <-b.done:
			return
		}
	}
}

// handleEvent handles a file system event
func (b *Board) handleEvent(event fsnotify.Event) {
	// The whole directory is watched; only our file matters
	if filepath.Clean(event.Name) != b.path {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		// Removal or rename keeps the last loaded contents
		b.logger.Debug().Str("op", event.Op.String()).Msg("Ignoring bulletin file event")
		return
	}

	b.debounceReload()
}

// debounceReload coalesces rapid rewrites into one reload
func (b *Board) debounceReload() {
	b.debounceMu.Lock()
	defer b.debounceMu.Unlock()

	if b.debounceTimer != nil {
		b.debounceTimer.Stop()
	}

	b.debounceTimer = time.AfterFunc(b.stability, func() {
		select {
		case <-b.done:
			return
		default:
		}

		if err := b.Reload(); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to reload bulletin, keeping previous contents")
		}
	})
}
