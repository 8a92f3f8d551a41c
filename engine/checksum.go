package engine

import (
	"hash"
	"hash/crc64"
	"io"
)

// ChecksumReader wraps an io.Reader and computes a CRC64 of everything
// read through it. Used to fingerprint a download while it is being
// spooled to disk, without a second pass over the file.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash64
	n    int64
}

// NewChecksumReader wraps r with a CRC64 (ISO polynomial) hasher.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: crc64.New(crc64.MakeTable(crc64.ISO)),
	}
}

// Read reads from the underlying reader and updates the checksum.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Checksum returns the checksum of the bytes read so far.
func (cr *ChecksumReader) Checksum() uint64 {
	return cr.hash.Sum64()
}

// BytesRead returns the total number of bytes read.
func (cr *ChecksumReader) BytesRead() int64 {
	return cr.n
}

// VerifyChecksum compares a computed checksum against an expected value.
func VerifyChecksum(actual, expected uint64) bool {
	return actual == expected
}
