package atomic_float

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicFloat64(t *testing.T) {
	Convey("When a value is set", t, func() {
		f64 := &AtomicFloat64{}
		So(f64.AtomicRead(), ShouldEqual, 0.0)
		f64.AtomicSet(-2.5)
		So(f64.AtomicRead(), ShouldEqual, -2.5)
		So(NewAtomicFloat64(3.25).AtomicRead(), ShouldEqual, 3.25)
	})

	Convey("When readers sample a value while a single writer updates it", t, func() {
		f64 := NewAtomicFloat64(0.0)
		numWrites := 10000
		numReaders := 50

		start := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(numReaders)
		torn := make(chan float64, numReaders)
		reader := func() {
			defer wg.Done()
			<-start
			last := 0.0
			for i := 0; i < numWrites; i++ {
				// Every write is a whole number no smaller than the one before it.
				val := f64.AtomicRead()
				if val != float64(int(val)) || val < last {
					torn <- val
					return
				}
				last = val
			}
		}
		for i := 0; i < numReaders; i++ {
			go reader()
		}

		close(start)
		for i := 1; i <= numWrites; i++ {
			f64.AtomicSet(float64(i))
		}
		wg.Wait()
		close(torn)

		So(len(torn), ShouldEqual, 0)
		So(f64.AtomicRead(), ShouldEqual, float64(numWrites))
	})
}
