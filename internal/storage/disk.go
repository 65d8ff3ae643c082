package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsageBytes sums the on-disk size of the local database (with its WAL sidecars)
// and the given index directories. ":memory:" and missing paths count as zero.
func DiskUsageBytes(dbPath string, dirs ...string) (int64, error) {
	var total int64
	if dbPath != "" && dbPath != ":memory:" {
		for _, p := range append([]string{dbPath}, sidecarPaths(dbPath)...) {
			n, err := fileSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		n, err := treeSize(dir)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func sidecarPaths(dbPath string) []string {
	out := make([]string, len(sqliteSidecars))
	for i, s := range sqliteSidecars {
		out[i] = dbPath + s
	}
	return out
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
