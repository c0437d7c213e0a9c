// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tantora/mariawire/lib/util/logger"
	"github.com/tantora/mariawire/lib/util/waitgroup"
)

func testCompressedConn(t *testing.T, algorithm CompressAlgorithm, zstdLevel int) {
	lg, _ := logger.CreateLoggerForTest(t)
	client, server := net.Pipe()
	cli := NewPacketIO(client, lg)
	srv := NewPacketIO(server, lg)
	require.NoError(t, cli.SetCompressionAlgorithm(algorithm, zstdLevel))
	require.NoError(t, srv.SetCompressionAlgorithm(algorithm, zstdLevel))

	// below the compression threshold, stored raw; above it, compressed
	small := []byte{0x03, 's', 'e', 'l'}
	large := make([]byte, 16*1024)
	for i := range large {
		large[i] = byte(i % 16)
	}

	var wg waitgroup.WaitGroup
	wg.Run(func() {
		require.NoError(t, cli.WritePacket(small, true))
		require.NoError(t, cli.WritePacket(large, true))
		data, err := cli.ReadPacket()
		require.NoError(t, err)
		require.Equal(t, []byte{0x00}, data[:1])
		require.NoError(t, cli.Close())
	})
	wg.Run(func() {
		data, err := srv.ReadPacket()
		require.NoError(t, err)
		require.Equal(t, small, data)
		data, err = srv.ReadPacket()
		require.NoError(t, err)
		require.Equal(t, large, data)
		require.NoError(t, srv.WritePacket([]byte{0x00, 0x00, 0x00}, true))
		require.NoError(t, srv.Close())
	})
	wg.Wait()
}

func TestCompressZlib(t *testing.T) {
	testCompressedConn(t, CompressionZlib, 0)
}

func TestCompressZstd(t *testing.T) {
	testCompressedConn(t, CompressionZstd, 3)
}

func TestCompressNone(t *testing.T) {
	lg, _ := logger.CreateLoggerForTest(t)
	client, server := net.Pipe()
	cli := NewPacketIO(client, lg)
	require.NoError(t, cli.SetCompressionAlgorithm(CompressionNone, 0))
	require.Error(t, cli.SetCompressionAlgorithm(CompressAlgorithm(42), 0))
	require.NoError(t, cli.Close())
	require.NoError(t, server.Close())
}
