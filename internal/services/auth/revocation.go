package auth

import (
	"sync"
	"time"
)

// sweepThreshold — отметка размера реестра, по достижении которой при
// очередном отзыве вычищаются записи с истекшим сроком. Запись живет до
// истечения самого токена, поэтому отзыв никогда не теряется досрочно.
const sweepThreshold = 1000

// RevocationRegistry — процессный реестр отозванных токенов.
// Поддерживает конкурентные вставку и проверку.
type RevocationRegistry struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // токен -> момент его естественного истечения
	now     func() time.Time
}

// NewRevocationRegistry создает пустой реестр.
func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke помечает токен отозванным до expiresAt. После expiresAt запись
// может быть вычищена: токен к этому моменту отклоняется по сроку действия.
func (r *RevocationRegistry) Revoke(token string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[token] = expiresAt
	if len(r.revoked) > sweepThreshold {
		now := r.now()
		for t, exp := range r.revoked {
			if exp.Before(now) {
				delete(r.revoked, t)
			}
		}
	}
}

// IsRevoked сообщает, отозван ли токен. Истекшие записи считаются
// неотозванными: такой токен и без реестра не пройдет проверку срока.
func (r *RevocationRegistry) IsRevoked(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.revoked[token]
	if !ok {
		return false
	}
	return exp.After(r.now())
}

// Len возвращает текущий размер реестра.
func (r *RevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
