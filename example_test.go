package rwlock_test

import (
	"fmt"
	"time"

	"github.com/christophcemper/rwlock"
)

func Example_recursion() {
	lock := rwlock.New()
	w := lock.Writer()

	w.Lock()
	w.Lock()
	lock.Reader().Lock() // read while writing is one more write stake
	fmt.Println("writer depth:", lock.Snapshot().WriterDepth)

	lock.Reader().Unlock()
	w.Unlock()
	w.Unlock()
	_, held := lock.Snapshot().Mode()
	fmt.Println("held:", held)

	// Output:
	// writer depth: 3
	// held: false
}

func Example_upgrade() {
	lock := rwlock.New()

	err := lock.Reader().With(func() error {
		ok, err := lock.Writer().Acquire(false, 0)
		fmt.Println("upgraded:", ok)
		return err
	})
	fmt.Println(err != nil)

	// Output:
	// upgraded: false
	// true
}

func ExampleCond() {
	lock := rwlock.New()
	w := lock.Writer()
	cond := rwlock.NewCond(w)
	queue := []string{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.With(func() error {
			if _, err := cond.WaitFor(func() bool { return len(queue) > 0 }, rwlock.Infinite); err != nil {
				return err
			}
			fmt.Println("consumed", queue[0])
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	_ = w.With(func() error {
		queue = append(queue, "job-1")
		return cond.Signal()
	})
	<-done

	// Output:
	// consumed job-1
}

func ExampleWriterHandle_ReleaseSave() {
	lock := rwlock.New()
	w := lock.Writer()

	w.Lock()
	w.Lock()
	tok, _ := w.ReleaseSave()
	fmt.Println("saved depth:", tok.Depth())
	_, held := lock.Snapshot().Mode()
	fmt.Println("held after save:", held)

	_ = w.AcquireRestore(tok)
	fmt.Println("restored depth:", lock.Snapshot().WriterDepth)
	w.Unlock()
	w.Unlock()

	// Output:
	// saved depth: 2
	// held after save: false
	// restored depth: 2
}
