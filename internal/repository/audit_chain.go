package repository

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/grievance-service/internal/domain"
)

type canonicalEvent struct {
	TicketCode string         `json:"ticket_code"`
	Seq        int64          `json:"seq"`
	Action     string         `json:"action"`
	Command    string         `json:"command"`
	OldValue   map[string]any `json:"old_value"`
	NewValue   map[string]any `json:"new_value"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	CreatedAt  string         `json:"created_at"`
}

// chainHash returns hex(blake2b-256(prevHash || canonical JSON of the event)).
// Map keys are sorted by encoding/json, so the encoding is stable.
func chainHash(prevHash string, ev domain.AuditEvent) (string, error) {
	payload, err := json.Marshal(canonicalEvent{
		TicketCode: ev.TicketCode,
		Seq:        ev.Seq,
		Action:     string(ev.Action),
		Command:    string(ev.Command),
		OldValue:   ev.OldValue,
		NewValue:   ev.NewValue,
		ActorID:    ev.ActorID,
		ActorRole:  string(ev.ActorRole),
		CreatedAt:  ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("encode audit event: %w", err)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	h.Write([]byte(prevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sealEvents assigns id, sequence and chain hashes to events appended after
// the given tail. Timestamps are truncated to what Postgres stores.
func sealEvents(code string, lastSeq int64, lastHash string, events []domain.AuditEvent) ([]domain.AuditEvent, error) {
	sealed := make([]domain.AuditEvent, len(events))
	prev := lastHash
	for i, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		ev.TicketCode = code
		ev.Seq = lastSeq + int64(i) + 1
		ev.CreatedAt = ev.CreatedAt.UTC().Truncate(time.Microsecond)
		ev.PrevHash = prev
		hash, err := chainHash(prev, ev)
		if err != nil {
			return nil, err
		}
		ev.Hash = hash
		prev = hash
		sealed[i] = ev
	}
	return sealed, nil
}

// VerifyChain recomputes the hash chain of one ticket's events in sequence
// order and reports the first break.
func VerifyChain(events []domain.AuditEvent) error {
	prev := ""
	for i, ev := range events {
		if ev.Seq != int64(i)+1 {
			return fmt.Errorf("audit event %d: expected seq %d, got %d", i, i+1, ev.Seq)
		}
		if ev.PrevHash != prev {
			return fmt.Errorf("audit event %d: previous hash mismatch", ev.Seq)
		}
		want, err := chainHash(prev, ev)
		if err != nil {
			return err
		}
		if want != ev.Hash {
			return fmt.Errorf("audit event %d: hash mismatch", ev.Seq)
		}
		prev = ev.Hash
	}
	return nil
}
