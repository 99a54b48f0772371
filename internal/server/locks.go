package server

import "sync"

// keyedMutex hands out one mutex per key. The rewards handlers take the
// user's mutex around "flip activity verification + adjust balance" so the
// pair lands as a single unit; without it two concurrent moderations of the
// same user's activities can interleave and leave the balance out of sync
// with the sum of verified points.
type keyedMutex struct {
	mus sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.mus.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

var userLocks = &keyedMutex{}
