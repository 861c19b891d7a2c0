package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gympulse/internal/config"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/types"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.FetchTimeout, convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.CacheTTL, convey.ShouldEqual, time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the stock vocabulary and roles apply", func() {
			convey.So(cfg.Vocabulary().IsPaid("facebook_ads"), convey.ShouldBeTrue)
			table, err := cfg.PermissionTable()
			convey.So(err, convey.ShouldBeNil)
			convey.So(table.Roles(), convey.ShouldResemble, access.DefaultTable().Roles())
		})
	})
}

func TestConfig_Permissions(t *testing.T) {
	convey.Convey("Given a custom permission table", t, func() {
		cfg := config.New()
		cfg.Permissions = map[string]config.Permission{
			"coach": {Groups: []string{"Funnel", " timing "}},
		}

		convey.Convey("Then group names are matched loosely", func() {
			table, err := cfg.PermissionTable()
			convey.So(err, convey.ShouldBeNil)
			grant := table.Resolve(access.Caller{Role: "coach"})
			convey.So(grant.Allows(types.GroupFunnel), convey.ShouldBeTrue)
			convey.So(grant.Allows(types.GroupTiming), convey.ShouldBeTrue)
			convey.So(grant.Allows(types.GroupRevenue), convey.ShouldBeFalse)
		})

		convey.Convey("When a group is unknown", func() {
			cfg.Permissions["coach"] = config.Permission{Groups: []string{"payroll"}}

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a custom vocabulary", t, func() {
		cfg := config.New()
		cfg.PaidSources = []string{"billboard"}
		cfg.SourcePlatforms = map[string]string{"billboard": "Outdoor"}

		convey.Convey("Then it replaces the stock one", func() {
			v := cfg.Vocabulary()
			convey.So(v.IsPaid("billboard"), convey.ShouldBeTrue)
			convey.So(v.IsPaid("facebook_ads"), convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When platforms are set without paid sources", func() {
			cfg.PaidSources = nil

			convey.Convey("Then validation fails instead of dropping them", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "paid_sources")
			})
		})

		convey.Convey("When only the report order is set", func() {
			cfg.PaidSources = nil
			cfg.SourcePlatforms = nil
			cfg.Platforms = []string{"Meta"}

			convey.Convey("Then validation fails too", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
