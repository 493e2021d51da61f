//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of AeroDW.
//
// AeroDW is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AeroDW is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AeroDW. If not, see https://www.gnu.org/licenses/.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/aaronlmathis/aerodw/readers"
	"github.com/aaronlmathis/aerodw/transform"
)

// configName is the config file name without extension.
const configName = "aerodw"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for aerodw settings.
const envPrefix = "AERODW"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, aerodw.yaml is searched in CWD and $HOME/.config/aerodw.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/aerodw")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Every key gets a default, even an empty one, so AutomaticEnv can bind it.
func applyDefaults(v *viper.Viper) {
	for _, feed := range []string{"sources.aircraft", "sources.personnel"} {
		v.SetDefault(feed+".path", "")
		v.SetDefault(feed+".s3.bucket", "")
		v.SetDefault(feed+".s3.key", "")
		v.SetDefault(feed+".s3.region", "")
		v.SetDefault(feed+".s3.endpoint", "")
		v.SetDefault(feed+".s3.path_style", false)
	}

	v.SetDefault("sources.postgres.dsn", "")
	v.SetDefault("sources.postgres.flights_query", readers.FlightsQuery)
	v.SetDefault("sources.postgres.maintenance_query", readers.MaintenanceQuery)
	v.SetDefault("sources.postgres.reports_query", readers.ReportsQuery)

	v.SetDefault("sources.mongo.uri", "")
	v.SetDefault("sources.mongo.database", "amos")
	v.SetDefault("sources.mongo.collection", "postflightreports")

	v.SetDefault("transform.apply_business_rules", true)
	v.SetDefault("transform.strict", false)
	v.SetDefault("transform.error_strategy", "fail_fast")
	v.SetDefault("transform.expected.flights", transform.DefaultTotals.Flights)
	v.SetDefault("transform.expected.maintenance", transform.DefaultTotals.Maintenance)
	v.SetDefault("transform.expected.reports", transform.DefaultTotals.Reports)

	v.SetDefault("sink.kind", SinkParquet)
	v.SetDefault("sink.dsn", "")
	v.SetDefault("sink.dir", "warehouse")
	v.SetDefault("sink.s3.bucket", "")
	v.SetDefault("sink.s3.prefix", "")
	v.SetDefault("sink.s3.region", "")
	v.SetDefault("sink.s3.endpoint", "")
	v.SetDefault("sink.s3.path_style", false)
	v.SetDefault("sink.truncate", false)
	v.SetDefault("sink.batch_size", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.addr", "")
}
