package rwlock

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotMode(t *testing.T) {
	for _, tc := range []struct {
		snapshot Snapshot
		mode     Mode
		held     bool
		active   int
	}{
		{snapshot: Snapshot{}, mode: Shared, held: false, active: 0},
		{snapshot: Snapshot{ActiveReaders: 3}, mode: Shared, held: true, active: 0},
		{snapshot: Snapshot{WriterDepth: 2}, mode: Exclusive, held: true, active: 1},
	} {
		mode, held := tc.snapshot.Mode()
		assert.Equal(t, tc.held, held)
		if held {
			assert.Equal(t, tc.mode, mode)
		}
		assert.Equal(t, tc.active, tc.snapshot.WriterActive())
	}
}

func TestSnapshotHolders(t *testing.T) {
	lock := New()
	release := hold(t, lock.Reader())
	defer release()
	r := lock.Reader()
	r.Lock()
	r.Lock()
	defer r.Unlock()
	defer r.Unlock()

	me := GetGoroutineID()
	other := lock.Snapshot().Holders[0].GoroutineID
	if other == me {
		other = lock.Snapshot().Holders[1].GoroutineID
	}
	want := Snapshot{ActiveReaders: 3, Holders: []Holder{{GoroutineID: me, Stakes: 2}, {GoroutineID: other, Stakes: 1}}}
	if want.Holders[1].GoroutineID < want.Holders[0].GoroutineID {
		want.Holders[0], want.Holders[1] = want.Holders[1], want.Holders[0]
	}
	if diff := cmp.Diff(want, lock.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Shared", Shared.String())
	assert.Equal(t, "Exclusive", Exclusive.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
	assert.Equal(t, "token(goroutine 7, depth 2)", Token{owner: 7, depth: 2}.String())
	assert.Equal(t, "goroutine 7 x3", Holder{GoroutineID: 7, Stakes: 3}.String())
}
