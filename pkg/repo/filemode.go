package repo

import (
	"io/fs"
)

func executableFromMode(mode fs.FileMode) bool {
	return mode&0o111 != 0
}

func filePermFromEntry(executable bool) fs.FileMode {
	if executable {
		return 0o755
	}
	return 0o644
}
