package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Source provides indexed examples. *Dataset implements it.
type Source interface {
	Len() int
	Get(ctx context.Context, i int) (Example, error)
}

// LoaderOptions controls batching and iteration order.
type LoaderOptions struct {
	BatchSize int
	// Workers bounds concurrent Get calls within a batch.
	Workers    int
	Shuffle    bool
	Seed       uint64
	DropLast   bool
	ReturnWave bool
	Logger     *slog.Logger
}

// ForTraining shuffles and drops the trailing partial batch.
func ForTraining(opts LoaderOptions) LoaderOptions {
	opts.Shuffle = true
	opts.DropLast = true

	return opts
}

// ForValidation iterates in manifest order and keeps every example.
func ForValidation(opts LoaderOptions) LoaderOptions {
	opts.Shuffle = false
	opts.DropLast = false

	return opts
}

// Loader iterates a Source in batches. Successive epochs of a shuffling
// loader draw successive permutations from the same seeded generator.
type Loader struct {
	src  Source
	opts LoaderOptions
	log  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLoader(src Source, opts LoaderOptions) (*Loader, error) {
	if src == nil {
		return nil, errors.New("loader: nil source")
	}
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("loader: invalid batch size %d", opts.BatchSize)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Loader{
		src:  src,
		opts: opts,
		log:  log,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
	}, nil
}

// NumBatches is the number of batches one epoch yields.
func (l *Loader) NumBatches() int {
	n := l.src.Len()
	if l.opts.DropLast {
		return n / l.opts.BatchSize
	}

	return (n + l.opts.BatchSize - 1) / l.opts.BatchSize
}

func (l *Loader) order() []int {
	n := l.src.Len()
	if !l.opts.Shuffle {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rng.Perm(n)
}

// Each runs one epoch, calling fn with every collated batch in order. The
// first error from loading, collation or fn stops the epoch.
func (l *Loader) Each(ctx context.Context, fn func(Batch) error) error {
	order := l.order()
	total := l.NumBatches()

	for n := range total {
		if err := ctx.Err(); err != nil {
			return err
		}

		lo := n * l.opts.BatchSize
		hi := min(lo+l.opts.BatchSize, len(order))

		examples, err := l.fetch(ctx, order[lo:hi])
		if err != nil {
			return fmt.Errorf("batch %d: %w", n, err)
		}

		b, err := Collate(examples, l.opts.ReturnWave)
		if err != nil {
			return fmt.Errorf("batch %d: %w", n, err)
		}

		l.log.Debug("batch ready",
			slog.Int("batch", n),
			slog.Int("of", total),
			slog.Int("size", b.Size()),
			slog.Int64("max_frames", b.OutputLengths[0]),
		)

		if err := fn(b); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) fetch(ctx context.Context, indices []int) ([]Example, error) {
	examples := make([]Example, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for j, i := range indices {
		g.Go(func() error {
			ex, err := l.src.Get(gctx, i)
			if err != nil {
				return fmt.Errorf("example %d: %w", i, err)
			}
			examples[j] = ex
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return examples, nil
}
