// Package bulletin loads the server bulletin file and turns it into a
// message of the day plus scheduled announcements.
//
// The bulletin is a JSON file validated against a schema before use. A
// Board watches the file's directory and hot-reloads on change, keeping
// the last good contents when a reload fails. An Announcer runs the
// bulletin's cron schedules and publishes each announcement through a
// caller-supplied publish callback.
//
// Invariants:
//   - A failed reload never clears the board; the previous bulletin
//     stays in effect until a valid replacement is read.
//   - Apply replaces the announcement schedule wholesale; entries from
//     an earlier bulletin never survive a reload.
//
// Usage:
//
//	board, _ := bulletin.NewBoard(bulletin.BoardOptions{
//		Path:     "/var/lib/parley/bulletin.json",
//		OnReload: func(b *bulletin.Bulletin) { announcer.Apply(b) },
//		Logger:   logger,
//	})
//	_ = board.Start()
//	defer board.Stop()
package bulletin
