package db

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/lodgeforms/internal/oxidb"
)

const (
	dialTimeout       = 5 * time.Second
	keepaliveInterval = 10 * time.Second
)

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	addr    string
	logger  *zap.Logger
	clients []*oxidb.Client
	mu      []sync.RWMutex
	idx     uint64
	stop    chan struct{}
	once    sync.Once
}

// NewPool creates a pool of size OxiDB connections to addr.
func NewPool(addr string, size int, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		addr:    addr,
		logger:  logger,
		clients: make([]*oxidb.Client, size),
		mu:      make([]sync.RWMutex, size),
		stop:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := oxidb.Connect(addr, dialTimeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	// Keepalive pings prevent the server's idle timeout from dropping us.
	go p.keepalive()
	return p, nil
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	i := int(n % uint64(len(p.clients)))
	p.mu[i].RLock()
	defer p.mu[i].RUnlock()
	return p.clients[i]
}

// Size is the number of connections.
func (p *Pool) Size() int { return len(p.clients) }

// reconnect replaces a broken client at index i.
func (p *Pool) reconnect(i int) {
	c, err := oxidb.Connect(p.addr, dialTimeout)
	if err != nil {
		p.logger.Warn("oxidb reconnect failed", zap.Int("client", i), zap.Error(err))
		return
	}
	p.mu[i].Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu[i].Unlock()
	if old != nil {
		old.Close()
	}
}

// Check pings every connection once, reconnecting the ones that fail.
func (p *Pool) Check(ctx context.Context) {
	for i := range p.clients {
		p.mu[i].RLock()
		c := p.clients[i]
		p.mu[i].RUnlock()
		if _, err := c.Ping(ctx); err != nil {
			p.logger.Warn("oxidb ping failed, reconnecting", zap.Int("client", i), zap.Error(err))
			p.reconnect(i)
		}
	}
}

func (p *Pool) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			p.Check(ctx)
			cancel()
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		for i := range p.clients {
			p.mu[i].Lock()
			if p.clients[i] != nil {
				p.clients[i].Close()
			}
			p.mu[i].Unlock()
		}
	})
}
