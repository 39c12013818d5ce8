package scanner

import (
	"context"
	"errors"
	"sync"
)

// ErrSourceClosed is returned when pushing to a closed source
var ErrSourceClosed = errors.New("frame source is closed")

// ChannelSource is an in-memory frame source fed by Push. It backs the
// HTTP scan endpoint when a session has armed its scanner.
type ChannelSource struct {
	mu     sync.Mutex
	frames chan string
	closed bool
}

func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{
		frames: make(chan string, buffer),
	}
}

// Frames implements Source
func (s *ChannelSource) Frames(ctx context.Context) (<-chan string, error) {
	return s.frames, nil
}

// Push delivers one payload to the subscription. A full buffer drops the
// frame rather than blocking the caller; the device will read the code
// again on its next frame.
func (s *ChannelSource) Push(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	select {
	case s.frames <- payload:
	default:
	}
	return nil
}

// Close terminates the subscription reading from this source
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

// Bus hands out one frame source per session
type Bus struct {
	mu      sync.Mutex
	sources map[string]*ChannelSource
}

func NewBus() *Bus {
	return &Bus{sources: make(map[string]*ChannelSource)}
}

// SourceFor returns the session's source, creating it on first use
func (b *Bus) SourceFor(sessionID string) *ChannelSource {
	b.mu.Lock()
	defer b.mu.Unlock()

	if src, ok := b.sources[sessionID]; ok {
		return src
	}
	src := NewChannelSource(16)
	b.sources[sessionID] = src
	return src
}

// Push delivers a payload to the session's source if one exists
func (b *Bus) Push(sessionID, payload string) error {
	b.mu.Lock()
	src, ok := b.sources[sessionID]
	b.mu.Unlock()

	if !ok {
		return ErrSourceClosed
	}
	return src.Push(payload)
}

// Drop closes and forgets the session's source
func (b *Bus) Drop(sessionID string) {
	b.mu.Lock()
	src, ok := b.sources[sessionID]
	delete(b.sources, sessionID)
	b.mu.Unlock()

	if ok {
		src.Close()
	}
}
