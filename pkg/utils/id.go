package utils

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// Every id starts with its creation time as 8 hex chars (big-endian unix
// seconds), so ids and the dump names derived from them sort and age by time.
const stampLen = 8

var turnSeq atomic.Uint32

func stamp(t time.Time) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(t.Unix()))
	return hex.EncodeToString(b[:])
}

// NewSessionID returns an unguessable id for an anonymous web session: the
// stamp followed by 8 random bytes (24 hex chars in total).
func NewSessionID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return stamp(time.Now()) + hex.EncodeToString(b[:])
}

// NewTraceID returns the id of one conversation turn, e.g. "65cfda3f-00002a".
// It tags the turn's log lines and names its prompt dump directory.
func NewTraceID() string {
	return fmt.Sprintf("%s-%06x", stamp(time.Now()), turnSeq.Add(1)&0xFFFFFF)
}

// DumpFileName names the n-th prompt dump of a process, e.g.
// "65cfda3f_0003_gemini.log".
func DumpFileName(n uint64, provider string) string {
	return fmt.Sprintf("%s_%04d_%s.log", stamp(time.Now()), n, provider)
}

// StampTime returns the creation time encoded at the start of id.
func StampTime(id string) (time.Time, error) {
	if len(id) < stampLen {
		return time.Time{}, fmt.Errorf("id too short: %d", len(id))
	}
	b, err := hex.DecodeString(id[:stampLen])
	if err != nil {
		return time.Time{}, fmt.Errorf("id %q has no time stamp: %w", id, err)
	}
	return time.Unix(int64(binary.BigEndian.Uint32(b)), 0), nil
}

// Expired reports whether name was stamped more than retention ago.
// Names without a stamp never expire.
func Expired(name string, retention time.Duration) bool {
	t, err := StampTime(name)
	if err != nil {
		return false
	}
	return time.Since(t) > retention
}
