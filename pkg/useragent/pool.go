// Package useragent rotates browser User-Agent strings for outbound fetches.
package useragent

import (
	"math/rand/v2"
	"sync/atomic"
)

// DefaultPool holds current desktop browser User-Agents.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.7; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// Pool rotates through a fixed set of User-Agents. It is safe for
// concurrent use.
type Pool struct {
	uas     []string
	random  bool
	counter atomic.Uint64
}

// NewPool creates a pool; an empty slice falls back to DefaultPool. With
// random set, Next picks uniformly instead of round-robin.
func NewPool(uas []string, random bool) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	return &Pool{uas: append([]string(nil), uas...), random: random}
}

// Next returns the User-Agent for the next request.
func (p *Pool) Next() string {
	if p == nil || len(p.uas) == 0 {
		return ""
	}
	if p.random {
		return p.uas[rand.IntN(len(p.uas))]
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Len returns the pool size.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.uas)
}
