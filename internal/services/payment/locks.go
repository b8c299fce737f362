package payment

import "sync"

// subscriptionLocks сериализует списания в рамках одной подписки:
// на подписку выполняется не больше одного обращения к шлюзу
// одновременно. Списания по разным подпискам не блокируют друг друга.
type subscriptionLocks struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newSubscriptionLocks() *subscriptionLocks {
	return &subscriptionLocks{inFlight: make(map[string]struct{})}
}

// TryAcquire занимает подписку под списание. Возвращает false,
// если по подписке уже идет другое списание.
func (l *subscriptionLocks) TryAcquire(subscriptionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inFlight[subscriptionID]; busy {
		return false
	}
	l.inFlight[subscriptionID] = struct{}{}
	return true
}

// Release освобождает подписку после завершения списания.
func (l *subscriptionLocks) Release(subscriptionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, subscriptionID)
}
