package call

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Pacing defaults. The telephony endpoint buffers in real time, so a fixed
// small gap between chunks is enough to keep its playback buffer from
// overrunning. These are heuristics, not a contract; tune per deployment.
const (
	defaultChunkDelay   = 20 * time.Millisecond
	defaultQuietPerWord = 150 * time.Millisecond
	defaultMaxQuiet     = 3 * time.Second
)

// Pacer throttles outbound playback of synthesized audio chunks and enforces
// an inter-utterance quiet period so the pipeline does not start reprocessing
// stray audio while the reply is still audibly playing out over the line.
//
// A Pacer is per-session; it is not safe for concurrent Play calls.
type Pacer struct {
	limiter      *rate.Limiter
	quietPerWord time.Duration
	maxQuiet     time.Duration
}

// NewPacer creates a Pacer emitting at most one chunk per chunkDelay. Zero
// values select the defaults.
func NewPacer(chunkDelay, quietPerWord, maxQuiet time.Duration) *Pacer {
	if chunkDelay <= 0 {
		chunkDelay = defaultChunkDelay
	}
	if quietPerWord <= 0 {
		quietPerWord = defaultQuietPerWord
	}
	if maxQuiet <= 0 {
		maxQuiet = defaultMaxQuiet
	}
	return &Pacer{
		limiter:      rate.NewLimiter(rate.Every(chunkDelay), 1),
		quietPerWord: quietPerWord,
		maxQuiet:     maxQuiet,
	}
}

// Play drains chunks in order, waiting out the pacing interval before each
// send. Returns the number of chunks sent. Stops early when ctx is cancelled
// or send fails; chunks already sent stay sent.
func (p *Pacer) Play(ctx context.Context, chunks <-chan []byte, send func(context.Context, []byte) error) (int, error) {
	sent := 0
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return sent, nil
			}
			if err := p.limiter.Wait(ctx); err != nil {
				return sent, err
			}
			// Cancellation may have raced the chunk case above; nothing is
			// transmitted after it.
			if err := ctx.Err(); err != nil {
				return sent, err
			}
			if err := send(ctx, chunk); err != nil {
				return sent, fmt.Errorf("send chunk %d: %w", sent, err)
			}
			sent++
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
}

// Quiet blocks for the inter-utterance quiet period after reply has been
// sent: quietPerWord per word, capped at maxQuiet. Returns early with ctx's
// error on cancellation.
func (p *Pacer) Quiet(ctx context.Context, reply string) error {
	words := len(strings.Fields(reply))
	if words == 0 {
		return nil
	}
	d := min(time.Duration(words)*p.quietPerWord, p.maxQuiet)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
