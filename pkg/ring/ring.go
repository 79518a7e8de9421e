// Package ring implements the fixed-size circular byte buffer used for
// resource-task Tx/Rx transport.
package ring

// Buffer is a circular byte buffer. The zero value is not usable; construct
// with New.
type Buffer struct {
	data     []byte
	putIndex int
	getIndex int
	dataSize int

	// ExpectedDataSize governs HasExpectedDataSize:
	//   negative -> expects any positive amount of data
	//   zero     -> always satisfied
	//   positive -> satisfied once DataSize is at least this much
	ExpectedDataSize int
}

// New allocates a buffer backed by size bytes. A size of zero produces an
// unbound buffer (Bound reports false, Put/Puts always fail).
func New(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Bound reports whether this buffer has real backing storage.
func (b *Buffer) Bound() bool {
	return len(b.data) > 0
}

// DataSize returns the number of bytes currently buffered.
func (b *Buffer) DataSize() int {
	return b.dataSize
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// ResetState clears the buffer contents and indices.
func (b *Buffer) ResetState() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.dataSize = 0
	b.putIndex = 0
	b.getIndex = 0
}

// Flush drops any buffered data without clearing the backing bytes.
func (b *Buffer) Flush() {
	b.dataSize = 0
	b.getIndex = b.putIndex
}

// Put appends a single byte. It reports false if the buffer is full.
func (b *Buffer) Put(item byte) bool {
	if b.dataSize >= len(b.data) {
		return false
	}
	b.data[b.putIndex] = item
	b.dataSize++
	b.putIndex = (b.putIndex + 1) % len(b.data)
	return true
}

// Peek returns the next byte without removing it.
func (b *Buffer) Peek() (byte, bool) {
	if b.dataSize == 0 {
		return 0, false
	}
	return b.data[b.getIndex], true
}

// Get removes and returns the next byte.
func (b *Buffer) Get() (byte, bool) {
	item, ok := b.Peek()
	if !ok {
		return 0, false
	}
	b.dataSize--
	b.getIndex = (b.getIndex + 1) % len(b.data)
	return item, true
}

// Puts appends items in bulk, wrapping around the backing array as needed.
// It reports false (and copies nothing) if items would overflow the buffer.
func (b *Buffer) Puts(items []byte) bool {
	n := len(items)
	if len(b.data) == 0 || b.dataSize+n > len(b.data) {
		return false
	}

	maxCopy := len(b.data) - b.putIndex
	copySize := n
	overflow := n > maxCopy
	if overflow {
		copySize = maxCopy
	}

	copy(b.data[b.putIndex:], items[:copySize])
	if overflow {
		copy(b.data, items[copySize:])
	}

	b.dataSize += n
	b.putIndex = (b.putIndex + n) % len(b.data)
	return true
}

// Peeks returns up to the buffered data without removing it. If minItemSize
// is positive, it only succeeds when at least that many bytes are available
// (and fails outright if that many could never fit). A non-positive
// minItemSize means "return whatever is available".
func (b *Buffer) Peeks(minItemSize int) ([]byte, bool) {
	itemSize := b.dataSize
	if minItemSize > 0 {
		if minItemSize > len(b.data) {
			return nil, false
		}
		if b.dataSize < minItemSize {
			return nil, false
		}
		itemSize = minItemSize
	}
	if itemSize <= 0 {
		return nil, false
	}

	out := make([]byte, itemSize)
	maxCopy := len(b.data) - b.getIndex
	copySize := itemSize
	overflow := itemSize > maxCopy
	if overflow {
		copySize = maxCopy
	}

	copy(out, b.data[b.getIndex:b.getIndex+copySize])
	if overflow {
		copy(out[copySize:], b.data[:itemSize-copySize])
	}
	return out, true
}

// Gets removes and returns data the same way Peeks selects it.
func (b *Buffer) Gets(minItemSize int) ([]byte, bool) {
	out, ok := b.Peeks(minItemSize)
	if !ok {
		return nil, false
	}
	n := len(out)
	b.dataSize -= n
	b.getIndex = (b.getIndex + n) % len(b.data)
	return out, true
}

// HasExpectedDataSize implements the three-way ExpectedDataSize contract.
func (b *Buffer) HasExpectedDataSize() bool {
	switch {
	case b.ExpectedDataSize < 0:
		return b.dataSize > 0
	case b.ExpectedDataSize == 0:
		return true
	default:
		return b.dataSize >= b.ExpectedDataSize
	}
}
