package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Response is a stored upstream reply.
type Response struct {
	StatusCode int
	Body       []byte
}

type entry struct {
	resp    Response
	addedAt time.Time
}

// Responses is a time-boxed response store keyed by outbound request URL.
// Expiry is checked on lookup; the LRU bound only caps memory.
type Responses struct {
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

func NewResponses(size int, ttl time.Duration) (*Responses, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Responses{lru: c, ttl: ttl, now: time.Now}, nil
}

// Get returns a live entry for key. Expired entries are evicted.
func (r *Responses) Get(key string) (Response, bool) {
	v, ok := r.lru.Get(key)
	if !ok {
		return Response{}, false
	}
	e, ok := v.(entry)
	if !ok {
		r.lru.Remove(key) // type mismatch, evict
		return Response{}, false
	}
	if r.now().Sub(e.addedAt) >= r.ttl {
		r.lru.Remove(key)
		return Response{}, false
	}
	return e.resp, true
}

// Add stores resp under key. Only 2xx responses are kept.
func (r *Responses) Add(key string, resp Response) bool {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	r.lru.Add(key, entry{resp: resp, addedAt: r.now()})
	return true
}

func (r *Responses) Len() int {
	return r.lru.Len()
}
