// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client implements the connection-side protocol engine: it turns
// reassembled packets into typed server messages routed to the in-flight
// command, and encodes client requests.
package client

import (
	"strconv"
	"strings"

	"github.com/tantora/mariawire/pkg/proto"
)

// Context is the per-connection session state. The thread id and capability
// bitmask are fixed at handshake, the status flags are overwritten by the
// decoder after every status-bearing message. Owned exclusively by the
// connection, never shared across connections.
type Context struct {
	threadID   uint64
	capability proto.Capability
	status     proto.Status
	version    ServerVersion
}

func NewContext(serverVersion string, threadID uint64, capability proto.Capability, status proto.Status, mariadb bool) *Context {
	return &Context{
		threadID:   threadID,
		capability: capability,
		status:     status,
		version:    ParseServerVersion(serverVersion, mariadb),
	}
}

func (c *Context) ThreadID() uint64 {
	return c.threadID
}

func (c *Context) Capability() proto.Capability {
	return c.capability
}

func (c *Context) Status() proto.Status {
	return c.status
}

// SetStatus is called by the decoder on receipt of OK/EOF/ERR packets.
func (c *Context) SetStatus(status proto.Status) {
	c.status = status
}

func (c *Context) Version() ServerVersion {
	return c.version
}

// ServerVersion is the parsed server version string plus the dialect flag
// distinguishing MariaDB from MySQL protocol variants.
type ServerVersion struct {
	Raw     string
	Major   int
	Minor   int
	Patch   int
	MariaDB bool
}

// ParseServerVersion parses a "major.minor.patch-suffix" version string.
// Unparsable components are left zero.
func ParseServerVersion(raw string, mariadb bool) ServerVersion {
	v := ServerVersion{Raw: raw, MariaDB: mariadb}
	parts := strings.SplitN(raw, ".", 3)
	if len(parts) > 0 {
		v.Major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		v.Minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		patch := parts[2]
		if idx := strings.IndexFunc(patch, func(r rune) bool { return r < '0' || r > '9' }); idx >= 0 {
			patch = patch[:idx]
		}
		v.Patch, _ = strconv.Atoi(patch)
	}
	return v
}

// AtLeast reports whether the server version is >= major.minor.patch.
func (v ServerVersion) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}
