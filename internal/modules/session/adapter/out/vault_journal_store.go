package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"soulshepherd/internal/modules/session/domain"
	sessionout "soulshepherd/internal/modules/session/port/out"
	"soulshepherd/internal/platform/markdown"
)

// VaultJournalStore keeps one markdown note per completed session under
// <dir>/YYYY/MM/DD.
type VaultJournalStore struct {
	dir string
}

func NewVaultJournalStore(dir string) sessionout.JournalStore {
	return &VaultJournalStore{dir: dir}
}

func (s *VaultJournalStore) Save(_ context.Context, entry domain.JournalEntry) (string, error) {
	date := entry.EndedAt.UTC()
	dir := filepath.Join(s.dir, date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.md", date.Format("150405"), taskSlug(entry.TaskID), shortID(entry.SessionID))
	path := filepath.Join(dir, name)

	rendered, err := markdown.Render(entry, noteBody(entry))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write journal note: %w", err)
	}
	return path, nil
}

// List returns the most recent entries first. A limit of zero or less returns all of them.
func (s *VaultJournalStore) List(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	entries := []domain.JournalEntry{}
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read journal note %s: %w", path, err)
		}
		var entry domain.JournalEntry
		if _, err := markdown.Decode(string(raw), &entry); err != nil {
			return fmt.Errorf("decode journal note %s: %w", path, err)
		}
		if entry.SessionID == "" {
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].EndedAt.After(entries[b].EndedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func noteBody(e domain.JournalEntry) string {
	b := strings.Builder{}
	task := e.TaskID
	if task == "" {
		task = "untitled focus"
	}
	fmt.Fprintf(&b, "# Focus session: %s\n\n", task)
	fmt.Fprintf(&b, "- Ended: %s (%s)\n", e.EndedAt.UTC().Format("2006-01-02 15:04"), e.Reason)
	fmt.Fprintf(&b, "- Planned: %d minutes, rewarded: %.1f minutes\n", e.PlannedMinutes, e.RewardMinutes)
	fmt.Fprintf(&b, "- Active: %.0fs, idle: %.0fs\n", e.ActiveSeconds, e.IdleSeconds)
	fmt.Fprintf(&b, "- Soul Insight: %.2f, Soul Embers: %.2f\n", e.SoulInsight, e.SoulEmbers)
	fmt.Fprintf(&b, "- Damage to %s: %.2f\n", e.BossName, e.BossProgress)
	if e.BossDefeated {
		fmt.Fprintf(&b, "\n%s was defeated.\n", e.BossName)
	}
	if e.Compromised {
		b.WriteString("\nThis session was compromised.\n")
	}
	if e.LevelAfter > e.LevelBefore {
		fmt.Fprintf(&b, "\nReached level %d.\n", e.LevelAfter)
	}
	return b.String()
}

const maxSlugLen = 48

// taskSlug keeps lowercase ASCII letters and digits from the task label and
// joins the runs between them with single dashes.
func taskSlug(task string) string {
	words := strings.FieldsFunc(strings.ToLower(task), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	s := strings.Join(words, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "focus"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "session"
	}
	return id
}
