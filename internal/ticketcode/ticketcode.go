// Package ticketcode issues human-readable complaint codes such as
// CIV-2026-00042. Sequences restart every calendar year.
package ticketcode

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Generator issues unique codes.
type Generator interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

// Format renders a code.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

// RedisGenerator uses INCR on a per-year key so every instance shares one
// sequence.
type RedisGenerator struct {
	client *redis.Client
	prefix string
}

// NewRedisGenerator builds a Redis-backed generator.
func NewRedisGenerator(client *redis.Client, prefix string) *RedisGenerator {
	return &RedisGenerator{client: client, prefix: prefix}
}

func (g *RedisGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	year := now.UTC().Year()
	seq, err := g.client.Incr(ctx, "ticket_seq:"+g.prefix+":"+strconv.Itoa(year)).Result()
	if err != nil {
		return "", fmt.Errorf("next ticket sequence: %w", err)
	}
	return Format(g.prefix, year, seq), nil
}

// LocalGenerator keeps sequences in memory. Seed lets a restarted single
// instance continue after the codes already stored.
type LocalGenerator struct {
	mu     sync.Mutex
	prefix string
	seqs   map[int]int64
}

// NewLocalGenerator builds an in-process generator.
func NewLocalGenerator(prefix string) *LocalGenerator {
	return &LocalGenerator{prefix: prefix, seqs: make(map[int]int64)}
}

// Seed advances the year's sequence to at least seq.
func (g *LocalGenerator) Seed(year int, seq int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq > g.seqs[year] {
		g.seqs[year] = seq
	}
}

func (g *LocalGenerator) Next(_ context.Context, now time.Time) (string, error) {
	year := now.UTC().Year()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[year]++
	return Format(g.prefix, year, g.seqs[year]), nil
}
