// Package backup writes consistent database snapshots and prunes old ones.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/oafund/internal/store"
)

const (
	filePrefix = "oafund-backup-"
	fileSuffix = ".db"
	nameLayout = "2006-01-02_15-04-05"

	// DefaultRetention is how long backups are kept.
	DefaultRetention = 30 * 24 * time.Hour
)

// Manager creates and prunes backups of one store.
type Manager struct {
	store     *store.Store
	dir       string
	retention time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

// New returns a Manager writing into dir. A zero retention uses
// DefaultRetention.
func New(st *store.Store, dir string, retention time.Duration, log logrus.FieldLogger) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{store: st, dir: dir, retention: retention, log: log, now: time.Now}
}

// Create writes a snapshot named oafund-backup-<date>_<time>.db and
// returns its path.
func (m *Manager) Create(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}

	base := filePrefix + m.now().UTC().Format(nameLayout)
	path := filepath.Join(m.dir, base+fileSuffix)
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(m.dir, fmt.Sprintf("%s-%d%s", base, i, fileSuffix))
	}

	if err := m.store.VacuumInto(ctx, path); err != nil {
		return "", err
	}
	m.log.WithField("path", path).Info("backup created")
	return path, nil
}

// Prune removes backups whose modification time is older than the
// retention period. Files not named like a backup are left alone.
func (m *Manager) Prune() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup dir: %w", err)
	}

	cutoff := m.now().Add(-m.retention)
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil {
			m.log.WithError(err).WithField("file", name).Warn("removing old backup")
			continue
		}
		age := m.now().Sub(info.ModTime()).Hours() / 24
		m.log.WithFields(logrus.Fields{"file": name, "age_days": int(age)}).Info("old backup removed")
		removed = append(removed, name)
	}
	return removed, nil
}

// Run creates a backup, then prunes old ones.
func (m *Manager) Run(ctx context.Context) (string, []string, error) {
	path, err := m.Create(ctx)
	if err != nil {
		return "", nil, err
	}
	removed, err := m.Prune()
	return path, removed, err
}

// Schedule starts a cron job running Run on spec (standard five-field
// cron syntax or descriptors like "@daily"). Stop the returned Cron to end it.
func (m *Manager) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, _, err := m.Run(ctx); err != nil {
			m.log.WithError(err).Error("scheduled backup failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parsing backup schedule %q: %w", spec, err)
	}
	c.Start()
	m.log.WithField("schedule", spec).Info("backup schedule started")
	return c, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
