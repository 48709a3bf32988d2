package logging

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nibzard/taskmgr-go/internal/store"
)

// followInterval is how often TailLog polls for new journal lines.
const followInterval = 100 * time.Millisecond

// RunLogger writes one JSONL journal file per run. It implements
// store.Recorder.
type RunLogger struct {
	Dir     string
	RunID   string
	LogPath string
	file    *os.File
	enc     *json.Encoder
}

// Entry is one journal line.
type Entry struct {
	Time        time.Time `json:"time"`
	Op          string    `json:"op"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Count       int       `json:"count"`
}

// NewRunLogger creates a per-project journal directory under baseDir and
// opens a new JSONL file for this run.
func NewRunLogger(baseDir, workDir string) (*RunLogger, error) {
	logDir, err := FindLogDir(baseDir, workDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	runID := runID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s.jsonl", runID))
	// Runs started within the same second share a file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &RunLogger{
		Dir:     logDir,
		RunID:   runID,
		LogPath: logPath,
		file:    file,
		enc:     json.NewEncoder(file),
	}, nil
}

// Record appends a store event to the journal.
func (r *RunLogger) Record(e store.Event) error {
	if r == nil || r.file == nil {
		return nil
	}
	entry := Entry{
		Time:  e.Time,
		Op:    string(e.Op),
		Name:  e.Name,
		Count: e.Count,
	}
	if e.Task != nil {
		entry.Description = e.Task.Description()
		entry.Priority = e.Task.Priority().String()
	}
	if err := r.enc.Encode(entry); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Close closes the journal file.
func (r *RunLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// FindLogDir returns the journal directory for workDir without creating it.
func FindLogDir(baseDir, workDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	baseDir = resolveBaseDir(baseDir, resolvedWorkDir)
	projectRoot := resolveProjectRoot(resolvedWorkDir)
	return filepath.Join(baseDir, projectSlug(projectRoot)), nil
}

// FindLatestLog returns the most recently modified journal in logDir, or
// "" if there is none.
func FindLatestLog(logDir string) (string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read log dir: %w", err)
	}

	var latest string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if latest == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latest = filepath.Join(logDir, entry.Name())
		}
	}

	return latest, nil
}

// TailLog copies the last n lines of path to w (all lines when n <= 0).
// With follow set it keeps copying new lines until ctx is done.
func TailLog(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := seekLastLines(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if _, err := io.Copy(w, file); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(w, file); err != nil {
				return err
			}
		}
	}
}

// seekLastLines positions file at the start of its last n lines.
func seekLastLines(file *os.File, n int) error {
	const blockSize = 4096

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	size := stat.Size()

	// A trailing newline terminates the last line rather than starting a new one.
	end := size
	if end > 0 {
		last := make([]byte, 1)
		if _, err := file.ReadAt(last, end-1); err != nil {
			return err
		}
		if last[0] == '\n' {
			end--
		}
	}

	buf := make([]byte, blockSize)
	newlines := 0
	for pos := end; pos > 0; {
		readSize := int64(blockSize)
		if pos < readSize {
			readSize = pos
		}
		pos -= readSize
		if _, err := file.ReadAt(buf[:readSize], pos); err != nil {
			return err
		}
		for i := readSize - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			newlines++
			if newlines == n {
				_, err := file.Seek(pos+i+1, io.SeekStart)
				return err
			}
		}
	}

	_, err = file.Seek(0, io.SeekStart)
	return err
}

func resolveBaseDir(baseDir, workDir string) string {
	if filepath.IsAbs(baseDir) {
		return filepath.Clean(baseDir)
	}
	return filepath.Clean(filepath.Join(workDir, baseDir))
}

// resolveProjectRoot prefers the enclosing git repository so every
// subdirectory of a project shares one journal directory.
func resolveProjectRoot(workDir string) string {
	if workDir == "" {
		return "."
	}
	if _, err := exec.LookPath("git"); err == nil {
		cmd := exec.Command("git", "-C", workDir, "rev-parse", "--show-toplevel")
		if output, err := cmd.Output(); err == nil {
			if root := strings.TrimSpace(string(output)); root != "" {
				return root
			}
		}
	}
	return workDir
}

func projectSlug(projectRoot string) string {
	return fmt.Sprintf("%s-%s", slugify(filepath.Base(projectRoot)), hashPath(projectRoot))
}

func slugify(input string) string {
	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" || slug == "." {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}
