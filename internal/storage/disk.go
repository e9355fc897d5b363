package storage

import (
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of the knowledge base.
type Usage struct {
	TotalBytes int64            `json:"total_bytes"`
	ByPath     map[string]int64 `json:"by_path"`
}

// DiskUsage returns the size in bytes of each of the given paths and their total.
// A path may be a file or a directory (recursively summed). SQLite's -wal and
// -shm side files are counted with their database. Missing paths contribute 0.
func DiskUsage(paths ...string) (Usage, error) {
	u := Usage{ByPath: make(map[string]int64, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		var size int64
		for _, candidate := range []string{p, p + "-wal", p + "-shm"} {
			n, err := pathSize(candidate)
			if err != nil {
				return Usage{}, err
			}
			size += n
		}
		u.ByPath[p] = size
		u.TotalBytes += size
	}
	return u, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
