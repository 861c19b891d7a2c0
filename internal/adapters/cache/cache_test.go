package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gympulse/internal/adapters/cache"
	"github.com/okian/gympulse/internal/domain/dedupe"
	"github.com/okian/gympulse/internal/domain/types"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSnapshotCache(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	Convey("Given a snapshot cache on a fresh redis", t, func() {
		mr, client := newClient(t)
		c := cache.NewSnapshotCache(client, cache.WithTTL(30*time.Second), cache.WithPrefix("test"))

		snap := types.Snapshot{
			TenantID: "gym-1",
			Start:    start,
			End:      end,
			Status:   types.StatusComputed,
			Groups:   []types.Group{types.GroupFunnel},
			Funnel:   types.Funnel{Leads: 10, Bookings: 4, BookedPct: 40},
		}

		Convey("When nothing was stored", func() {
			_, ok, err := c.Get(ctx, "gym-1", 0, start, end, "funnel")

			Convey("Then it is a miss", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a computed snapshot is stored", func() {
			So(c.Set(ctx, snap, 0, "funnel"), ShouldBeNil)

			Convey("Then the same visibility reads it back", func() {
				got, ok, err := c.Get(ctx, "gym-1", 0, start, end, "funnel")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(got.Funnel, ShouldResemble, snap.Funnel)
				So(got.Groups, ShouldResemble, snap.Groups)
				So(got.Start.Equal(start), ShouldBeTrue)
			})

			Convey("Then another visibility misses", func() {
				_, ok, err := c.Get(ctx, "gym-1", 0, start, end, "none")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then it expires after the ttl", func() {
				mr.FastForward(31 * time.Second)
				_, ok, err := c.Get(ctx, "gym-1", 0, start, end, "funnel")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then invalidating the tenant hides it", func() {
				So(c.Invalidate(ctx, "gym-1"), ShouldBeNil)
				gen, err := c.Generation(ctx, "gym-1")
				So(err, ShouldBeNil)
				So(gen, ShouldEqual, 1)
				_, ok, err := c.Get(ctx, "gym-1", gen, start, end, "funnel")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the tenant is invalidated while a snapshot is computed", func() {
			gen, err := c.Generation(ctx, "gym-1")
			So(err, ShouldBeNil)
			So(c.Invalidate(ctx, "gym-1"), ShouldBeNil)
			So(c.Set(ctx, snap, gen, "funnel"), ShouldBeNil)

			Convey("Then the late write is not served at the new generation", func() {
				current, err := c.Generation(ctx, "gym-1")
				So(err, ShouldBeNil)
				So(current, ShouldEqual, gen+1)
				_, ok, err := c.Get(ctx, "gym-1", current, start, end, "funnel")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the generation key holds garbage", func() {
			So(mr.Set("test:gen:gym-1", "abc"), ShouldBeNil)
			_, err := c.Generation(ctx, "gym-1")

			Convey("Then reading it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When an unavailable snapshot is stored", func() {
			unavailable := snap
			unavailable.Status = types.StatusScopeUnavailable
			So(c.Set(ctx, unavailable, 0, "funnel"), ShouldBeNil)

			Convey("Then it is not cached", func() {
				_, ok, _ := c.Get(ctx, "gym-1", 0, start, end, "funnel")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When redis goes away", func() {
			mr.Close()
			_, genErr := c.Generation(ctx, "gym-1")
			_, ok, err := c.Get(ctx, "gym-1", 0, start, end, "funnel")

			Convey("Then the error is returned instead of a hit", func() {
				So(genErr, ShouldNotBeNil)
				So(err, ShouldNotBeNil)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestRedisDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a redis deduper", t, func() {
		mr, client := newClient(t)
		d := cache.NewDeduper(client, time.Hour, nil)
		key := dedupe.Key("gym-1", "evt-1")

		Convey("When an id is seen twice", func() {
			first := d.SeenAndRecord(ctx, key)
			second := d.SeenAndRecord(ctx, key)

			Convey("Then the second is a duplicate", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
				So(mr.TTL("gympulse:seen:"+key), ShouldEqual, time.Hour)
			})
		})

		Convey("When an id is released", func() {
			d.SeenAndRecord(ctx, key)
			d.Unrecord(ctx, key)

			Convey("Then it is accepted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			})
		})

		Convey("When redis is down", func() {
			mr.Close()

			Convey("Then events are let through", func() {
				So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			})
		})
	})
}
