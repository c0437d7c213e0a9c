// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/tantora/mariawire/lib/util/errors"
)

// CompressAlgorithm is the algorithm for the MySQL compressed protocol.
type CompressAlgorithm int

const (
	// CompressionNone indicates no compression in use.
	CompressionNone CompressAlgorithm = iota
	// CompressionZlib is zlib/deflate.
	CompressionZlib
	// CompressionZstd is Facebook's Zstandard.
	CompressionZstd
)

const (
	// maxCompressedSize is the max size for one compressed frame. The length
	// must fit in the 3 byte field of the compressed header.
	maxCompressedSize = 1024 * 1024
	// minCompressSize is the min payload size worth compressing.
	// https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_basic_compression_packet.html
	// suggests a MIN_COMPRESS_LENGTH of 50.
	minCompressSize = 50
)

// SetCompressionAlgorithm wraps the underlying stream with the compressed
// protocol framing. Must be called before any packet of the compressed
// exchange is read or written.
func (p *PacketIO) SetCompressionAlgorithm(algorithm CompressAlgorithm, zstdLevel int) error {
	switch algorithm {
	case CompressionZlib, CompressionZstd:
	case CompressionNone:
		return nil
	default:
		return errors.Errorf("unknown compression algorithm %d", algorithm)
	}
	if err := p.readWriter.Flush(); err != nil {
		return err
	}
	p.readWriter = &compressedReadWriter{
		packetReadWriter: p.readWriter,
		algorithm:        algorithm,
		zstdLevel:        zstd.EncoderLevelFromZstd(zstdLevel),
	}
	return nil
}

var _ packetReadWriter = (*compressedReadWriter)(nil)

// compressedReadWriter adds the compressed framing: a 7-byte header (3-byte
// compressed length, 1-byte compressed sequence, 3-byte uncompressed length)
// followed by the frame. An uncompressed length of 0 means the frame is
// stored raw. The compressed sequence is independent of the packet sequence.
type compressedReadWriter struct {
	packetReadWriter
	readBuf   bytes.Buffer
	writeBuf  bytes.Buffer
	algorithm CompressAlgorithm
	zstdLevel zstd.EncoderLevel
	sequence  Sequencer
}

func (crw *compressedReadWriter) reset() {
	crw.sequence = 0
	crw.packetReadWriter.reset()
}

func (crw *compressedReadWriter) Read(p []byte) (int, error) {
	if crw.readBuf.Len() == 0 {
		if err := crw.readFrame(); err != nil {
			return 0, err
		}
	}
	return crw.readBuf.Read(p)
}

func (crw *compressedReadWriter) readFrame() error {
	var header [7]byte
	if _, err := io.ReadFull(crw.packetReadWriter, header[:]); err != nil {
		return errors.WithStack(err)
	}
	sequence := Sequencer(header[3])
	if sequence != crw.sequence {
		return errors.Wrapf(ErrInvalidSequence, "compressed, expected %d, actual %d", crw.sequence, sequence)
	}
	crw.sequence++

	compressedLength := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	uncompressedLength := int(uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16)
	frame := make([]byte, compressedLength)
	if _, err := io.ReadFull(crw.packetReadWriter, frame); err != nil {
		return errors.WithStack(err)
	}
	if uncompressedLength == 0 {
		// stored raw
		crw.readBuf.Write(frame)
		return nil
	}

	var reader io.ReadCloser
	var err error
	switch crw.algorithm {
	case CompressionZlib:
		reader, err = zlib.NewReader(bytes.NewReader(frame))
	case CompressionZstd:
		var decoder *zstd.Decoder
		if decoder, err = zstd.NewReader(bytes.NewReader(frame), zstd.WithDecoderConcurrency(1)); err == nil {
			reader = decoder.IOReadCloser()
		}
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err = io.Copy(&crw.readBuf, reader); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(reader.Close())
}

func (crw *compressedReadWriter) Write(data []byte) (n int, err error) {
	for {
		remainingLen := maxCompressedSize - crw.writeBuf.Len()
		if len(data) <= remainingLen {
			written, err := crw.writeBuf.Write(data)
			return n + written, err
		}
		written, err := crw.writeBuf.Write(data[:remainingLen])
		if err != nil {
			return 0, err
		}
		n += written
		data = data[remainingLen:]
		if err = crw.writeFrame(); err != nil {
			return 0, err
		}
	}
}

func (crw *compressedReadWriter) Flush() error {
	if crw.writeBuf.Len() > 0 {
		if err := crw.writeFrame(); err != nil {
			return err
		}
	}
	return crw.packetReadWriter.Flush()
}

func (crw *compressedReadWriter) writeFrame() error {
	data := append([]byte(nil), crw.writeBuf.Bytes()...)
	crw.writeBuf.Reset()

	uncompressedLength := 0
	frame := data
	if len(data) > minCompressSize {
		var payload bytes.Buffer
		var w io.WriteCloser
		var err error
		switch crw.algorithm {
		case CompressionZlib:
			w, err = zlib.NewWriterLevel(&payload, zlib.DefaultCompression)
		case CompressionZstd:
			w, err = zstd.NewWriter(&payload, zstd.WithEncoderLevel(crw.zstdLevel))
		}
		if err != nil {
			return errors.WithStack(err)
		}
		if _, err = w.Write(data); err != nil {
			return errors.WithStack(err)
		}
		if err = w.Close(); err != nil {
			return errors.WithStack(err)
		}
		uncompressedLength = len(data)
		frame = payload.Bytes()
	}

	var header [7]byte
	header[0] = byte(len(frame))
	header[1] = byte(len(frame) >> 8)
	header[2] = byte(len(frame) >> 16)
	header[3] = byte(crw.sequence)
	header[4] = byte(uncompressedLength)
	header[5] = byte(uncompressedLength >> 8)
	header[6] = byte(uncompressedLength >> 16)
	crw.sequence++

	if _, err := crw.packetReadWriter.Write(header[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := crw.packetReadWriter.Write(frame); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
