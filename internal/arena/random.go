package arena

import (
	"math/rand"
	"sync"
	"time"
)

// Random is the source of every draw the engine makes: shuffles, coin flips, number targets
// and tiebreaks.
type Random interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRandom guards a *rand.Rand, which is not safe for concurrent use. Matches of a
// round draw from it concurrently.
type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRandom(seed int64) Random {
	return &lockedRandom{r: rand.New(rand.NewSource(seed))}
}

func NewTimeSeededRandom() Random {
	return NewRandom(time.Now().UnixNano())
}

func (l *lockedRandom) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRandom) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}
