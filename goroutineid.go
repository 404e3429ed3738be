package rwlock

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var (
	// Pool of reusable buffers to minimize allocations during stack header capture
	bufferPool = sync.Pool{
		New: func() interface{} {
			b := make([]byte, 64)
			return &b
		},
	}

	goroutinePrefix = []byte("goroutine ")
)

// GetGoroutineID returns the runtime id of the calling goroutine.
//
// The id is read from the first line of the goroutine's own stack trace
// ("goroutine 42 [running]:"), which is the only stable per-goroutine
// identity the runtime exposes. It is unique among live goroutines, which is
// all the lock needs to key stakes by owner.
func GetGoroutineID() uint64 {
	bp := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bp)

	buf := *bp
	n := runtime.Stack(buf, false)
	return parseGoroutineID(buf[:n])
}

// parseGoroutineID extracts the numeric id from a stack header.
// It returns 0 when the header is not in the expected form.
func parseGoroutineID(stack []byte) uint64 {
	if !bytes.HasPrefix(stack, goroutinePrefix) {
		return 0
	}
	stack = stack[len(goroutinePrefix):]
	if idx := bytes.IndexByte(stack, ' '); idx > 0 {
		stack = stack[:idx]
	}
	id, err := strconv.ParseUint(string(stack), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
