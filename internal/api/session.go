package api

import (
	"sync"

	"pharmadesk/m/internal/cart"
	"pharmadesk/m/internal/stock"
)

// cartStore keeps one cart per authenticated operator. Carts are ephemeral
// process state: they vanish on restart and are never persisted, only their
// checkout result is.
type cartStore struct {
	mu     sync.Mutex
	ledger *stock.Ledger
	carts  map[int64]*cart.Cart
}

func newCartStore(ledger *stock.Ledger) *cartStore {
	return &cartStore{ledger: ledger, carts: make(map[int64]*cart.Cart)}
}

// get returns the operator's cart, creating it on first use.
func (s *cartStore) get(userID int64) *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		c = cart.New(s.ledger)
		s.carts[userID] = c
	}
	return c
}
