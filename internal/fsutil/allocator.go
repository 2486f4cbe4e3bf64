package fsutil

import (
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"rangedl/internal/rderrors"
)

// safetyBufferBytes is kept free below the expected download size,
// matching the teacher's allocator safety margin.
const safetyBufferBytes = 100 * 1024 * 1024

// CheckDiskSpace returns an IoError if the volume containing path does not
// have at least size bytes plus a safety buffer of free space. It is a
// best-effort pre-flight check, not consulted again once a download is
// underway.
func CheckDiskSpace(path string, size int64) error {
	if size <= 0 {
		return nil
	}
	usage, err := disk.Usage(filepath.Dir(path))
	if err != nil {
		// Disk usage is advisory; if the platform can't report it, proceed
		// and let the actual write surface any real I/O failure.
		return nil
	}
	required := uint64(size) + safetyBufferBytes
	if usage.Free < required {
		return rderrors.IO("insufficient disk space for download", nil)
	}
	return nil
}
