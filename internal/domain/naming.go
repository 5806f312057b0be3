package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// RepoDataDirName is the data directory under the repository's .git directory.
const RepoDataDirName = "taskflow"

// RepoDataDir returns the data directory for a git directory.
func RepoDataDir(gitDir string) string {
	return filepath.Join(gitDir, RepoDataDirName)
}

// BranchName returns the branch name for a task.
// Format: flow-<id>
func BranchName(taskID int) string {
	return fmt.Sprintf("flow-%d", taskID)
}

// SessionName returns the tmux session name for a task.
// Ad hoc sessions (taskID 0) use a short suffix of the session ID.
func SessionName(taskID int, sessionID string) string {
	if taskID > 0 {
		return fmt.Sprintf("flow-%d", taskID)
	}
	suffix := strings.ReplaceAll(sessionID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "flow-adhoc-" + suffix
}

// WorktreePath returns the path to a worktree for a task.
func WorktreePath(dataDir string, taskID int) string {
	return filepath.Join(dataDir, "worktrees", strconv.Itoa(taskID))
}

// TaskLogPath returns the path to the task log file.
func TaskLogPath(dataDir string, taskID int) string {
	return filepath.Join(dataDir, "logs", fmt.Sprintf("task-%d.log", taskID))
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "taskflow.log")
}

// StorePath returns the path of the store file for a backend.
func StorePath(dataDir, backend string) string {
	if backend == StoreBackendSQLite {
		return filepath.Join(dataDir, "taskflow.db")
	}
	return filepath.Join(dataDir, "store.json")
}

// TmuxSocketPath returns the path to the tmux socket.
func TmuxSocketPath(dataDir string) string {
	return filepath.Join(dataDir, "tmux.sock")
}

// TranscriptPath returns the path a session's pane output is piped to.
func TranscriptPath(dataDir, sessionID string) string {
	return filepath.Join(dataDir, "transcripts", sessionID+".log")
}

// LockDir returns the directory holding recursion guard markers.
func LockDir(dataDir string) string {
	return filepath.Join(dataDir, "locks")
}

// PendingDir returns the directory holding pending markers for a project.
func PendingDir(dataDir, projectID string) string {
	return filepath.Join(dataDir, "pending", projectID)
}

// ProcsPath returns the file tracking background processes of a task.
func ProcsPath(dataDir string, taskID int) string {
	return filepath.Join(dataDir, "procs", fmt.Sprintf("%d.json", taskID))
}

// branchPattern matches task branch names: flow-<id>
var branchPattern = regexp.MustCompile(`^flow-(\d+)$`)

// ParseBranchTaskID extracts the task ID from a branch name.
// Returns 0 and false if the branch does not follow the naming convention.
func ParseBranchTaskID(branch string) (int, bool) {
	matches := branchPattern.FindStringSubmatch(branch)
	if matches == nil {
		return 0, false
	}
	id, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return id, true
}
