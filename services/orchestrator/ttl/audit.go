// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ttl

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// EvictionRecord is one append-only audit entry for a reaped session.
//
// # Description
//
// Records WHEN a session was evicted, WHY, and how much conversation
// it held, without the conversation content itself. Records form a
// hash chain: each entry carries the hash of the previous entry, so
// tampering with or removing a line breaks verification.
//
// # Fields
//
//   - Timestamp: Unix milliseconds of the eviction.
//   - SessionID: The evicted session.
//   - Reason: "idle" or "abandoned".
//   - Turns: Conversation turns discarded with the session.
//   - IdleMs: How long the session had been untouched.
//   - Hash: SHA-256 over this record's fields and PrevHash.
//   - PrevHash: Hash of the previous record; empty for the first.
type EvictionRecord struct {
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Turns     int    `json:"turns"`
	IdleMs    int64  `json:"idle_ms"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
}

// EvictionLogger writes eviction records to an append-only JSONL file.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type EvictionLogger struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
}

// NewEvictionLogger opens (or creates) the audit log at path.
//
// # Description
//
// The file is opened append-only with 0600 permissions. If it already
// has records the chain state is recovered from the last line, so
// restarts extend the chain instead of restarting it.
//
// # Inputs
//
//   - path: Audit log location. Parent directory must exist.
//
// # Outputs
//
//   - *EvictionLogger: Ready to Log().
//   - error: Non-nil if the file cannot be opened or read.
func NewEvictionLogger(path string) (*EvictionLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open eviction log: %w", err)
	}

	logger := &EvictionLogger{file: file}
	if err := logger.recoverChainState(path); err != nil {
		file.Close()
		return nil, err
	}
	return logger, nil
}

// Log appends one record, linking it into the hash chain.
func (l *EvictionLogger) Log(record EvictionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record.PrevHash = l.prevHash
	record.Hash = computeRecordHash(record)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal eviction record: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write eviction record: %w", err)
	}
	l.prevHash = record.Hash
	return nil
}

// VerifyChain replays the log and checks every link.
//
// # Outputs
//
//   - valid: True when every record hashes correctly and links to its
//     predecessor.
//   - breakIndex: Zero-based index of the first bad record; -1 when
//     the chain is valid.
//   - error: Non-nil on read or decode failure.
func (l *EvictionLogger) VerifyChain() (valid bool, breakIndex int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Seek(0, 0); err != nil {
		return false, 0, fmt.Errorf("seek eviction log: %w", err)
	}
	defer l.file.Seek(0, 2)

	scanner := bufio.NewScanner(l.file)
	prevHash := ""
	var index int64
	for scanner.Scan() {
		var record EvictionRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return false, index, fmt.Errorf("decode record %d: %w", index, err)
		}
		if record.PrevHash != prevHash {
			return false, index, nil
		}
		expected := record.Hash
		record.Hash = ""
		if computeRecordHash(record) != expected {
			return false, index, nil
		}
		prevHash = expected
		index++
	}
	if err := scanner.Err(); err != nil {
		return false, index, fmt.Errorf("scan eviction log: %w", err)
	}
	return true, -1, nil
}

// Close flushes and closes the underlying file.
func (l *EvictionLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// recoverChainState reads the last record so new entries continue the
// existing chain.
func (l *EvictionLogger) recoverChainState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read eviction log: %w", err)
	}

	lastLine := ""
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			lastLine = scanner.Text()
		}
	}
	if lastLine == "" {
		return nil
	}

	var record EvictionRecord
	if err := json.Unmarshal([]byte(lastLine), &record); err != nil {
		return fmt.Errorf("decode last eviction record: %w", err)
	}
	l.prevHash = record.Hash
	return nil
}

// computeRecordHash hashes every field except Hash itself.
func computeRecordHash(record EvictionRecord) string {
	input := fmt.Sprintf("%d|%s|%s|%d|%d|%s",
		record.Timestamp,
		record.SessionID,
		record.Reason,
		record.Turns,
		record.IdleMs,
		record.PrevHash,
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
