package cmd

import (
	"path/filepath"

	"github.com/crane-dl/crane/internal/config"
	"github.com/crane-dl/crane/internal/types"
	"github.com/gofrs/flock"
)

// instanceLock guards the single running daemon for a given CRANE_HOME.
var instanceLock *flock.Flock

// AcquireLock attempts the process-wide single-instance lock at
// ~/.crane/crane.lock. Returns true if this process is now the master
// (lock held); false if another instance already holds it.
func AcquireLock() (bool, error) {
	if err := config.EnsureDirs(); err != nil {
		return false, types.WrapError(types.ErrFilesystem, "failed to ensure crane directory", err)
	}

	lockPath := filepath.Join(config.GetCraneDir(), "crane.lock")
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return false, types.WrapError(types.ErrFilesystem, "failed to acquire instance lock", err)
	}
	if !locked {
		return false, nil
	}

	instanceLock = fileLock
	return true, nil
}

// ReleaseLock releases the instance lock if this process holds it.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	return instanceLock.Unlock()
}
