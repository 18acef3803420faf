package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/dutylog/internal/config"
	"github.com/okian/dutylog/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestWatch(t *testing.T) {
	convey.Convey("Given a watched config file", t, func() {
		_ = logger.Init()
		clearConfigEnvVars()
		path := writeConfig(t, "lookback_days: 3\n")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes := make(chan *config.Config, 4)
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, func(c *config.Config) { changes <- c })
		}()
		// Give the watcher time to register.
		time.Sleep(100 * time.Millisecond)

		convey.Convey("When the file is rewritten with a valid config", func() {
			convey.So(os.WriteFile(path, []byte("lookback_days: 9\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then the new config should be delivered", func() {
				var got *config.Config
				timeout := time.After(3 * time.Second)
				for got == nil || got.LookbackDays != 9 {
					select {
					case got = <-changes:
					case <-timeout:
						t.Fatal("no reload observed")
					}
				}
				convey.So(got.LookbackDays, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then Watch should return cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(time.Second):
					t.Fatal("watch did not stop")
				}
			})
		})
	})
}
