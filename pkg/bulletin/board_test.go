package bulletin

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBulletin(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestNewBoard(t *testing.T) {
	t.Run("should require a path", func(t *testing.T) {
		_, err := NewBoard(BoardOptions{Logger: zerolog.Nop()})
		require.Error(t, err)
	})

	t.Run("should create a board", func(t *testing.T) {
		board, err := NewBoard(BoardOptions{
			Path:   filepath.Join(t.TempDir(), "bulletin.json"),
			Logger: zerolog.Nop(),
		})
		require.NoError(t, err)
		require.NotNil(t, board)
		defer board.Stop()

		assert.Empty(t, board.MOTD())
	})
}

func TestBoardStart(t *testing.T) {
	t.Run("should start empty when file is missing", func(t *testing.T) {
		board, err := NewBoard(BoardOptions{
			Path:   filepath.Join(t.TempDir(), "bulletin.json"),
			Logger: zerolog.Nop(),
		})
		require.NoError(t, err)

		require.NoError(t, board.Start())
		defer board.Stop()

		assert.Empty(t, board.MOTD())
		assert.Empty(t, board.Current().Announcements)
	})

	t.Run("should load the bulletin on start", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bulletin.json")
		writeBulletin(t, path, `{"motd": "Welcome!"}`)

		var reloaded *Bulletin
		board, err := NewBoard(BoardOptions{
			Path:     path,
			OnReload: func(b *Bulletin) { reloaded = b },
			Logger:   zerolog.Nop(),
		})
		require.NoError(t, err)

		require.NoError(t, board.Start())
		defer board.Stop()

		assert.Equal(t, "Welcome!", board.MOTD())
		require.NotNil(t, reloaded)
		assert.Equal(t, "Welcome!", reloaded.MOTD)
	})

	t.Run("should start empty when the file is invalid", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bulletin.json")
		writeBulletin(t, path, `broken`)

		board, err := NewBoard(BoardOptions{
			Path:   path,
			Logger: zerolog.Nop(),
		})
		require.NoError(t, err)

		require.NoError(t, board.Start())
		defer board.Stop()

		assert.Empty(t, board.MOTD())
	})
}

func TestBoardHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bulletin.json")
	writeBulletin(t, path, `{"motd": "first"}`)

	var mu sync.Mutex
	var seen []string

	board, err := NewBoard(BoardOptions{
		Path:               path,
		StabilityThreshold: 50 * time.Millisecond,
		OnReload: func(b *Bulletin) {
			mu.Lock()
			seen = append(seen, b.MOTD)
			mu.Unlock()
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, board.Start())
	defer board.Stop()

	assert.Equal(t, "first", board.MOTD())

	// Rewrite the file and wait for the watcher to pick it up
	writeBulletin(t, path, `{"motd": "second"}`)

	require.Eventually(t, func() bool {
		return board.MOTD() == "second"
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, seen)
	mu.Unlock()
}

func TestBoardKeepsLastGoodOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bulletin.json")
	writeBulletin(t, path, `{"motd": "good"}`)

	board, err := NewBoard(BoardOptions{
		Path:               path,
		StabilityThreshold: 50 * time.Millisecond,
		Logger:             zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, board.Start())
	defer board.Stop()

	require.Equal(t, "good", board.MOTD())

	// A broken rewrite must not clear the board
	writeBulletin(t, path, `{"motd": `)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, "good", board.MOTD())

	// The watcher stays alive and picks up the next valid write
	writeBulletin(t, path, `{"motd": "recovered"}`)

	require.Eventually(t, func() bool {
		return board.MOTD() == "recovered"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBoardIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bulletin.json")
	writeBulletin(t, path, `{"motd": "ours"}`)

	reloads := 0
	var mu sync.Mutex

	board, err := NewBoard(BoardOptions{
		Path:               path,
		StabilityThreshold: 50 * time.Millisecond,
		OnReload: func(*Bulletin) {
			mu.Lock()
			reloads++
			mu.Unlock()
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, board.Start())
	defer board.Stop()

	// Writes to other files in the watched directory are filtered out
	writeBulletin(t, filepath.Join(dir, "other.json"), `{"motd": "not ours"}`)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, reloads)
	mu.Unlock()
	assert.Equal(t, "ours", board.MOTD())
}
