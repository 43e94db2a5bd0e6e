// Package secure wraps memguard so Secret-classified values cached in
// process memory are encrypted at rest and protected from swapping.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds one sensitive value in an encrypted memguard enclave.
//
// The cache stores Secret parameter values inside a Buffer instead of a bare
// string, so a heap dump of a long-running service does not expose every
// secret it has resolved. Open decrypts on demand; Destroy makes the buffer
// unusable.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy calls and blocks use after destroy
	destroyed bool
}

// NewBuffer copies value into a protected memory region. The enclave
// encrypts the data and attempts to mlock it; if mlock is unavailable
// memguard degrades to standard allocation.
//
// An empty value needs no protection and allocates no enclave (memguard
// rejects zero-length buffers).
func NewBuffer(value string) *Buffer {
	if value == "" {
		return &Buffer{}
	}
	return &Buffer{enclave: memguard.NewEnclave([]byte(value))}
}

// Open decrypts and returns the value. The plaintext only lives for the
// duration of this call; the locked buffer it passed through is wiped
// before returning.
func (b *Buffer) Open() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed || b.enclave == nil {
		return "", nil
	}

	locked, err := b.enclave.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	// locked.String() aliases the protected region, which Destroy unmaps;
	// copy the plaintext out so the returned string stays valid.
	return string(locked.Bytes()), nil
}

// Destroy marks the buffer destroyed. Idempotent; after Destroy, Open
// returns the empty string. The encrypted enclave data is left to the
// garbage collector; it is safe at rest. Call memguard.Purge at process
// exit for full cleanup.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
