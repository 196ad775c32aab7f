package internal

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"time"
)

// Deduplicator collapses conversations that share an id within one batch
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate keeps the last occurrence of each id, at the position of its first occurrence
func (d *Deduplicator) Deduplicate(conversations []*Conversation) []*Conversation {
	index := make(map[string]int, len(conversations))
	unique := make([]*Conversation, 0, len(conversations))

	for _, conv := range conversations {
		if i, ok := index[conv.ID]; ok {
			if ContentHash(unique[i]) != ContentHash(conv) {
				LogDebug("Conversation %s appears twice in batch, keeping the later copy", conv.ID)
			}
			unique[i] = conv
			continue
		}
		index[conv.ID] = len(unique)
		unique = append(unique, conv)
	}

	return unique
}

// ContentHash returns a hash over every persisted field of the conversation
func ContentHash(conv *Conversation) string {
	h := sha256.New()

	writeString(h, conv.ID)
	writeString(h, conv.Provider.String())
	writeString(h, conv.Title)
	writeTime(h, conv.CreatedAt)
	writeTime(h, conv.UpdatedAt)

	for _, msg := range conv.Messages {
		writeString(h, string(msg.Role))
		writeString(h, msg.Content)
		if msg.Timestamp != nil {
			writeTime(h, *msg.Timestamp)
		} else {
			writeString(h, "")
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// writeString length-prefixes s so adjacent fields cannot run together
func writeString(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func writeTime(h hash.Hash, t time.Time) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(t.UnixNano()))
	h.Write(n[:])
}
