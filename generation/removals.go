package generation

import (
	"strings"
	"sync"
)

// removalLog orders removals against in-flight generations. A generation that
// started before its path (or a parent directory) was removed must not write it back.
type removalLog struct {
	mutex  sync.Mutex
	seq    uint64
	active int
	files  map[string]uint64
	dirs   map[string]uint64
}

func newRemovalLog() *removalLog {
	return &removalLog{
		files: make(map[string]uint64),
		dirs:  make(map[string]uint64),
	}
}

// begin registers an in-flight generation and returns its mark.
func (r *removalLog) begin() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.active++
	return r.seq
}

// end releases a generation. Entries are only needed while something is in flight.
func (r *removalLog) end() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.active--
	if r.active == 0 {
		clear(r.files)
		clear(r.dirs)
	}
}

// record notes the removal of a file, or of a directory prefix when dir is set,
// and runs remove while holding the log.
func (r *removalLog) record(key string, dir bool, remove func()) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.seq++
	if r.active > 0 {
		if dir {
			r.dirs[key] = r.seq
		} else {
			r.files[key] = r.seq
		}
	}
	remove()
}

// commit runs store unless relPath was removed after mark. It reports whether store ran.
func (r *removalLog) commit(relPath string, mark uint64, store func() error) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.removedSince(relPath, mark) {
		return false, nil
	}
	return true, store()
}

func (r *removalLog) removedSince(relPath string, mark uint64) bool {
	if seq, ok := r.files[relPath]; ok && seq > mark {
		return true
	}
	for prefix, seq := range r.dirs {
		if seq <= mark {
			continue
		}
		if prefix == "" || relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
			return true
		}
	}
	return false
}
