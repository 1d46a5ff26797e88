package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/selector/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "data/selector.db")
			convey.So(cfg.ModelPath, convey.ShouldEqual, "data/player_model.json")
			convey.So(cfg.Epochs, convey.ShouldEqual, 50)
			convey.So(cfg.HiddenUnits, convey.ShouldEqual, 10)
			convey.So(cfg.LearningRate, convey.ShouldEqual, 0.1)
			convey.So(cfg.RetrainQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.PredictionCacheSize, convey.ShouldEqual, 4096)
			convey.So(cfg.WriteRateLimit, convey.ShouldEqual, 0)
		})

		convey.Convey("And it should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid field", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":                     func(c *config.Config) { c.Addr = " " },
			"db_path must not be empty":                  func(c *config.Config) { c.DBPath = "" },
			"model_path must not be empty":               func(c *config.Config) { c.ModelPath = "" },
			"epochs must be positive":                    func(c *config.Config) { c.Epochs = 0 },
			"hidden_units must be positive":              func(c *config.Config) { c.HiddenUnits = -1 },
			"learning_rate must be positive":             func(c *config.Config) { c.LearningRate = 0 },
			"prediction_cache_size must not be negative": func(c *config.Config) { c.PredictionCacheSize = -1 },
			"write_rate_limit must not be negative":      func(c *config.Config) { c.WriteRateLimit = -5 },
		}

		for msg, mutate := range cases {
			cfg := config.New(context.Background())
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, msg)
		}
	})
}
