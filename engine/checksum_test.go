package engine

import (
	"io"
	"strings"
	"testing"
)

func TestChecksumReader(t *testing.T) {
	payload := "hello world test data for checksum verification"

	cr := NewChecksumReader(strings.NewReader(payload))
	data, err := io.ReadAll(cr)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != payload {
		t.Errorf("Reader corrupted the stream: got %q", string(data))
	}
	if cr.BytesRead() != int64(len(payload)) {
		t.Errorf("Expected %d bytes read, got %d", len(payload), cr.BytesRead())
	}

	// Same payload hashes to the same value.
	other := NewChecksumReader(strings.NewReader(payload))
	if _, err := io.ReadAll(other); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !VerifyChecksum(cr.Checksum(), other.Checksum()) {
		t.Errorf("Checksums differ for identical payloads: %d vs %d", cr.Checksum(), other.Checksum())
	}

	// A different payload does not.
	changed := NewChecksumReader(strings.NewReader(payload + "!"))
	if _, err := io.ReadAll(changed); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if VerifyChecksum(cr.Checksum(), changed.Checksum()) {
		t.Error("Checksums match for different payloads")
	}
}

func TestChecksumReader_Empty(t *testing.T) {
	cr := NewChecksumReader(strings.NewReader(""))
	if _, err := io.ReadAll(cr); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if cr.BytesRead() != 0 {
		t.Errorf("Expected 0 bytes read, got %d", cr.BytesRead())
	}
}
