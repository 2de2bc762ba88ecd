package transport

import (
	"bytes"
	"io"
	"sync"
)

// MemoryPipe returns two connected in-process transports. Writes never
// block; reads block until data arrives or either side closes.
func MemoryPipe() (client, server Transport) {
	up := newBufferPipe()
	down := newBufferPipe()
	return &memoryTransport{r: down, w: up}, &memoryTransport{r: up, w: down}
}

type memoryTransport struct {
	r, w *bufferPipe
}

func (m *memoryTransport) Read(p []byte) (int, error)  { return m.r.read(p) }
func (m *memoryTransport) Write(p []byte) (int, error) { return m.w.write(p) }

func (m *memoryTransport) Close() error {
	m.r.close()
	m.w.close()
	return nil
}

type bufferPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newBufferPipe() *bufferPipe {
	p := &bufferPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *bufferPipe) write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := p.buf.Write(data)
	p.cond.Broadcast()
	return n, err
}

func (p *bufferPipe) read(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.buf.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.buf.Len() == 0 {
		return 0, io.EOF
	}
	return p.buf.Read(data)
}

func (p *bufferPipe) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
}
