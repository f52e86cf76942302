// Package config loads layered Settings the way settings.rs does: built-in
// defaults, a named profile file, an optional local override, then
// environment variables prefixed APP_ (§6).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/crocme10/ctl2mimir/ctlerr"
)

type Zmq struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Topic string `mapstructure:"topic"`
}

type Elasticsearch struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type Work struct {
	WorkingDir    string `mapstructure:"working_dir"`
	MimirsbrunnDir string `mapstructure:"mimirsbrunn_dir"`
	CosmogonyDir  string `mapstructure:"cosmogony_dir"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Service struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type Settings struct {
	Debug   bool   `mapstructure:"debug"`
	Testing bool   `mapstructure:"testing"`
	Mode    string `mapstructure:"mode"`

	Database      Database      `mapstructure:"database"`
	Service       Service       `mapstructure:"service"`
	Zmq           Zmq           `mapstructure:"zmq"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Work          Work          `mapstructure:"work"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("testing", false)
	v.SetDefault("mode", "development")
	v.SetDefault("service.host", "127.0.0.1")
	v.SetDefault("service.port", 8080)
	v.SetDefault("zmq.host", "127.0.0.1")
	v.SetDefault("zmq.port", 4222)
	v.SetDefault("zmq.topic", "state")
	v.SetDefault("elasticsearch.host", "127.0.0.1")
	v.SetDefault("elasticsearch.port", 9200)
	v.SetDefault("work.working_dir", "./work")
	v.SetDefault("work.mimirsbrunn_dir", "./mimirsbrunn")
	v.SetDefault("work.cosmogony_dir", "./cosmogony")
}

// New loads Settings from configDir/<defaults,profile,local>.{yaml,...} and
// the environment, mirroring Settings::new in settings.rs: defaults, then
// the RUN_MODE profile (default "development", required to exist), then an
// optional local override, then APP_-prefixed env vars, which always win.
func New(configDir string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("default")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ctlerr.Wrap(ctlerr.Config, err, "could not read default configuration")
		}
	}

	mode := os.Getenv("RUN_MODE")
	if mode == "" {
		mode = "development"
	}

	profile := viper.New()
	profile.SetConfigName(mode)
	profile.AddConfigPath(configDir)
	if err := profile.ReadInConfig(); err != nil {
		return nil, ctlerr.Wrap(ctlerr.Config, err, "could not read '"+mode+"' configuration")
	}
	if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
		return nil, ctlerr.Wrap(ctlerr.Config, err, "could not merge '"+mode+"' configuration")
	}

	local := viper.New()
	local.SetConfigName("local")
	local.AddConfigPath(configDir)
	if err := local.ReadInConfig(); err == nil {
		if err := v.MergeConfigMap(local.AllSettings()); err != nil {
			return nil, ctlerr.Wrap(ctlerr.Config, err, "could not merge local configuration")
		}
	}

	v.SetEnvPrefix("app")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, ctlerr.Wrap(ctlerr.Config, err, "could not generate settings from configuration")
	}
	settings.Mode = mode

	dbKey := "DATABASE_URL"
	if mode == "testing" {
		dbKey = "DATABASE_TEST_URL"
	}
	if dbURL := os.Getenv(dbKey); dbURL != "" {
		settings.Database.URL = dbURL
	}
	if settings.Database.URL == "" {
		return nil, ctlerr.New(ctlerr.Config, "could not get env var "+dbKey)
	}

	return &settings, nil
}
