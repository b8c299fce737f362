package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevocationRegistry_RevokeAndCheck(t *testing.T) {
	r := NewRevocationRegistry()
	until := time.Now().Add(15 * time.Minute)

	assert.False(t, r.IsRevoked("token-a"))

	r.Revoke("token-a", until)
	assert.True(t, r.IsRevoked("token-a"))
	assert.False(t, r.IsRevoked("token-b"))
}

func TestRevocationRegistry_ExpiredEntryIsNotRevoked(t *testing.T) {
	// Запись с прошедшим сроком неотличима от отсутствующей: такой токен
	// все равно отклоняется проверкой срока действия.
	r := NewRevocationRegistry()
	r.Revoke("stale-token", time.Now().Add(-time.Minute))

	assert.False(t, r.IsRevoked("stale-token"))
}

func TestRevocationRegistry_SweepKeepsLiveEntries(t *testing.T) {
	r := NewRevocationRegistry()
	now := time.Now()
	r.now = func() time.Time { return now }

	// Заполняем реестр истекшими записями сверх порога.
	for i := 0; i < sweepThreshold; i++ {
		r.Revoke(fmt.Sprintf("expired-%d", i), now.Add(-time.Hour))
	}
	r.Revoke("live-token", now.Add(time.Hour))

	// Очередной отзыв после порога вычищает истекшие записи.
	r.Revoke("another-live", now.Add(time.Hour))

	assert.True(t, r.IsRevoked("live-token"))
	assert.True(t, r.IsRevoked("another-live"))
	assert.LessOrEqual(t, r.Len(), 3)
}

func TestRevocationRegistry_Concurrent(t *testing.T) {
	r := NewRevocationRegistry()
	until := time.Now().Add(time.Hour)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.Revoke(fmt.Sprintf("w-%d", i), until)
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		r.IsRevoked(fmt.Sprintf("w-%d", i))
	}
	<-done

	assert.Equal(t, 100, r.Len())
}
