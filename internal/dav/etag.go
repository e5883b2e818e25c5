package dav

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
)

// ETag derives a task's entity tag from its modification time. Tasks
// that never carried a modification time all share the sentinel "0",
// so clients cache them until the record gains a real timestamp.
func ETag(task domain.Task) string {
	if modified, ok := task.ModifiedAt.Get(); ok {
		return strconv.Quote(strconv.FormatInt(modified.Unix(), 10))
	}
	return `"0"`
}

// CTag derives a collection tag for a project: the newest
// modification time among the project record and all of its tasks.
// When no record carries a timestamp at all, the tag falls back to a
// hash of the membership so that adding or removing tasks still
// changes it.
func CTag(project domain.Project) string {
	var newest int64
	found := false
	if modified, ok := project.ModifiedAt.Get(); ok {
		newest = modified.Unix()
		found = true
	}
	for _, task := range project.Tasks {
		modified, ok := task.ModifiedAt.Get()
		if !ok {
			continue
		}
		if unix := modified.Unix(); !found || unix > newest {
			newest = unix
			found = true
		}
	}
	if found {
		return strconv.Quote(strconv.FormatInt(newest, 10))
	}

	h := fnv.New64a()
	h.Write([]byte(project.ID))
	for _, task := range project.Tasks {
		h.Write([]byte{0})
		h.Write([]byte(task.ID))
	}
	return strconv.Quote(fmt.Sprintf("h%x", h.Sum64()))
}
