package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .weft/ project directory.
// All fields are computed once at construction.
type Paths struct {
	Root string // .weft/
	DB   string // .weft/weft.db

	QueueDir     string // .weft/queue/ (one subdirectory per session)
	SolutionsDir string // .weft/solutions/ (one subdirectory per session)

	LogDir string // .weft/log/
	Log    string // .weft/log/weft.log
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".weft")
	return &Paths{
		Root: root,
		DB:   filepath.Join(root, "weft.db"),

		QueueDir:     filepath.Join(root, "queue"),
		SolutionsDir: filepath.Join(root, "solutions"),

		LogDir: filepath.Join(root, "log"),
		Log:    filepath.Join(root, "log", "weft.log"),
	}
}

// EnsureDirs creates all subdirectories under .weft/. Idempotent.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.Root,
		p.QueueDir,
		p.SolutionsDir,
		p.LogDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Initialized reports whether .weft/ exists.
func (p *Paths) Initialized() bool {
	info, err := os.Stat(p.Root)
	return err == nil && info.IsDir()
}

// SessionQueueDir is the corpus directory of one session.
func (p *Paths) SessionQueueDir(sessionID string) string {
	return filepath.Join(p.QueueDir, sessionID)
}

// SessionSolutionsDir is the solutions directory of one session.
func (p *Paths) SessionSolutionsDir(sessionID string) string {
	return filepath.Join(p.SolutionsDir, sessionID)
}

// RemoveCorpus deletes a session's queue and solutions directories and every
// input in them.
func (p *Paths) RemoveCorpus(sessionID string) error {
	for _, d := range []string{p.SessionQueueDir(sessionID), p.SessionSolutionsDir(sessionID)} {
		if err := os.RemoveAll(d); err != nil {
			return err
		}
	}
	return nil
}
