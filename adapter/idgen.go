package adapter

import "sync"

// IDGenerator hands out increasing annotation ids.  The caller owns it and
// passes it to every Sample call, so ids stay unique across samples and
// adapters sharing the generator.
type IDGenerator struct {
	id int64
	sync.Mutex
}

// NewIDGenerator returns a generator whose first id is start
func NewIDGenerator(start int64) *IDGenerator {
	return &IDGenerator{id: start - 1}
}

// GetNext returns the next id
func (g *IDGenerator) GetNext() int64 {
	g.Lock()
	defer g.Unlock()
	g.id++
	return g.id
}

// Last returns the most recent id handed out
func (g *IDGenerator) Last() int64 {
	g.Lock()
	defer g.Unlock()
	return g.id
}
