package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/shapley/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording job ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "job-1")

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, "job-1")
				seen := d.SeenAndRecord(ctx, "job-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording ids", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "job-1")
			d.SeenAndRecord(ctx, "job-2")

			d.Unrecord(ctx, "job-1")
			d.Unrecord(ctx, "missing")

			Convey("Then only the known id should be removed", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "job-1"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "job-2"), ShouldBeTrue)
			})
		})

		Convey("When using bounded mode with eviction", func() {
			var evicted []string
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithMaxSize(3),
				dedupe.WithEvictionHook(func(id string) { evicted = append(evicted, id) }),
			)
			for i := 1; i <= 3; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("job-%d", i))
			}

			Convey("And a fourth id arrives", func() {
				d.SeenAndRecord(ctx, "job-4")

				Convey("Then the oldest id should be evicted", func() {
					So(d.Size(), ShouldEqual, 3)
					So(evicted, ShouldResemble, []string{"job-1"})
					So(d.SeenAndRecord(ctx, "job-2"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "job-4"), ShouldBeTrue)
				})
			})

			Convey("And an unrecorded id frees its slot", func() {
				d.Unrecord(ctx, "job-2")
				d.SeenAndRecord(ctx, "job-4")

				Convey("Then nothing should be evicted", func() {
					So(evicted, ShouldBeEmpty)
					So(d.Size(), ShouldEqual, 3)
				})
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := range 1000 {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("job-%d", i)), ShouldBeFalse)
			}

			Convey("Then every id should be kept", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, "job-0"), ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryDeduperConcurrent(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When goroutines race on the same ids", func() {
			const goroutines, ids = 8, 200
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				newCount int
			)
			for range goroutines {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range ids {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("job-%d", i)) {
							mu.Lock()
							newCount++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id should be new exactly once", func() {
				So(newCount, ShouldEqual, ids)
				So(d.Size(), ShouldEqual, ids)
			})
		})
	})
}
