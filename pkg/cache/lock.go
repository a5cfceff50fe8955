package cache

import "os"

// fileLock is an exclusive advisory lock on a named lock file. It only
// blocks other cooperating processes, never the filesystem itself.
type fileLock struct {
	file *os.File
}

// acquireLock opens (creating if needed) the lock file and blocks until the
// exclusive lock is granted
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	if err := flockLock(f.Fd()); err != nil {
		f.Close()
		return nil, err
	}

	return &fileLock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call once per lock;
// always invoked via defer so early returns cannot leak the lock.
func (l *fileLock) Release() {
	_ = flockUnlock(l.file.Fd())
	_ = l.file.Close()
}
