// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config holds the TOML configuration of the protocol engine.
package config

import (
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/pkg/proto"
)

const (
	// DefaultPrepareCacheCapacity bounds the per-connection prepared
	// statement cache.
	DefaultPrepareCacheCapacity = 256
	// DefaultZstdLevel mirrors the zstd default compression level.
	DefaultZstdLevel = 3
)

type Config struct {
	Protocol     Protocol     `toml:"protocol" json:"protocol"`
	PrepareCache PrepareCache `toml:"prepare-cache" json:"prepare-cache"`
	Log          Log          `toml:"log" json:"log"`
}

type Protocol struct {
	// Compression is "", "zlib" or "zstd".
	Compression string `toml:"compression" json:"compression"`
	ZstdLevel   int    `toml:"zstd-level" json:"zstd-level"`
	// Capability is the requested client capability bitmask, in hex or
	// decimal. Empty requests the default set.
	Capability string `toml:"capability" json:"capability"`
}

type PrepareCache struct {
	Capacity int `toml:"capacity" json:"capacity"`
}

type Log struct {
	Encoder string  `toml:"encoder" json:"encoder"`
	Level   string  `toml:"level" json:"level"`
	LogFile LogFile `toml:"log-file" json:"log-file"`
}

type LogFile struct {
	Filename string `toml:"filename" json:"filename"`
	MaxSize  int    `toml:"max-size" json:"max-size"`
	MaxDays  int    `toml:"max-days" json:"max-days"`
}

func NewConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.FillDefaults()
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) FillDefaults() {
	if cfg.PrepareCache.Capacity == 0 {
		cfg.PrepareCache.Capacity = DefaultPrepareCacheCapacity
	}
	if cfg.Protocol.ZstdLevel == 0 {
		cfg.Protocol.ZstdLevel = DefaultZstdLevel
	}
}

func (cfg *Config) Check() error {
	switch cfg.Protocol.Compression {
	case "", "zlib", "zstd":
	default:
		return errors.Errorf("unsupported compression %q", cfg.Protocol.Compression)
	}
	if cfg.Protocol.ZstdLevel < 1 || cfg.Protocol.ZstdLevel > 22 {
		return errors.Errorf("invalid zstd compression level %d", cfg.Protocol.ZstdLevel)
	}
	if cfg.PrepareCache.Capacity < 0 {
		return errors.Errorf("invalid prepare cache capacity %d", cfg.PrepareCache.Capacity)
	}
	if _, err := cfg.RequestedCapability(); err != nil {
		return err
	}
	return nil
}

// DefaultCapability is the capability set requested when none is configured.
const DefaultCapability = proto.ClientLongPassword | proto.ClientLongFlag |
	proto.ClientProtocol41 | proto.ClientTransactions | proto.ClientSecureConnection |
	proto.ClientMultiStatements | proto.ClientMultiResults | proto.ClientPluginAuth |
	proto.ClientDeprecateEOF

// RequestedCapability parses the configured capability bitmask.
func (cfg *Config) RequestedCapability() (proto.Capability, error) {
	if cfg.Protocol.Capability == "" {
		return DefaultCapability, nil
	}
	caps, err := strconv.ParseUint(cfg.Protocol.Capability, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid capability %q", cfg.Protocol.Capability)
	}
	return proto.Capability(caps), nil
}

// CompressAlgorithm maps the configured name to the wire constant.
func (cfg *Config) CompressAlgorithm() proto.CompressAlgorithm {
	switch cfg.Protocol.Compression {
	case "zlib":
		return proto.CompressionZlib
	case "zstd":
		return proto.CompressionZstd
	}
	return proto.CompressionNone
}

// ToBytes renders the config back to TOML, for logging at startup.
func (cfg *Config) ToBytes() ([]byte, error) {
	b, err := toml.Marshal(cfg)
	return b, errors.WithStack(err)
}
