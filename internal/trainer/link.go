package trainer

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/potential"
)

// CooccurrenceLink learns how often each base state is observed together
// with each occlusion state. Its link potential is feature independent: the
// block [base, occlusion] holds 100·(count+1)/(total+nBase·nOccl) and every
// other entry is zero, so an untrained model is uniform over the block.
type CooccurrenceLink struct {
	nBase     int
	nOccl     int
	nFeatures int

	mu     sync.RWMutex
	counts []float64 // nBase x nOccl
	total  float64
}

func NewCooccurrenceLink(nBase, nOccl, nFeatures int) *CooccurrenceLink {
	return &CooccurrenceLink{
		nBase:     nBase,
		nOccl:     nOccl,
		nFeatures: nFeatures,
		counts:    make([]float64, nBase*nOccl),
	}
}

func (l *CooccurrenceLink) NumFeatures() int { return l.nFeatures }

// AddPair records one observation of base state b with occlusion state o,
// where o counts from zero within the occlusion states.
func (l *CooccurrenceLink) AddPair(b, o int) error {
	if b < 0 || b >= l.nBase {
		return fmt.Errorf("base state %d of %d: %w", b, l.nBase, ErrState)
	}
	if o < 0 || o >= l.nOccl {
		return fmt.Errorf("occlusion state %d of %d: %w", o, l.nOccl, ErrState)
	}
	l.mu.Lock()
	l.counts[b*l.nOccl+o]++
	l.total++
	l.mu.Unlock()
	return nil
}

func (l *CooccurrenceLink) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.counts {
		l.counts[i] = 0
	}
	l.total = 0
}

func (l *CooccurrenceLink) LinkPotentials(_ []uint8, weight float64) *mat.Dense {
	n := l.nBase + l.nOccl
	out := mat.NewDense(n, n, nil)

	l.mu.RLock()
	norm := l.total + float64(l.nBase*l.nOccl)
	for b := 0; b < l.nBase; b++ {
		for o := 0; o < l.nOccl; o++ {
			out.Set(b, l.nBase+o, 100*(l.counts[b*l.nOccl+o]+1)/norm)
		}
	}
	l.mu.RUnlock()

	return potential.Pow(out, weight)
}
