package fetch

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/GrainArc/vtscore/logging"
	"github.com/GrainArc/vtscore/models"
	"github.com/google/uuid"
)

// Decoder advances a Downloaded resource through Finalizing to Ready,
// parsing the raw bytes and invoking the host's GPU upload callbacks
// (spec.md §4.3's "separate decode step"). Decoders must only mutate the
// resource they own.
type Decoder interface {
	Decode(ctx context.Context, r *models.Resource, raw []byte) (ramBytes, gpuBytes int64, err error)
}

// Accountant is implemented by store.Store: the decode step reports the
// ram/gpu byte cost of a newly Ready resource through it instead of mutating
// the resource's byte fields directly, so the store's aggregate budget
// counters never drift out of sync.
type Accountant interface {
	AccountCreate(r *models.Resource, ramBytes, gpuBytes int64)
}

// Cacher is implemented by store.Persister: a successful fetch is written
// through to the on-disk sidecar so a later process restart can skip the
// network entirely (spec.md §6 "Persisted state").
type Cacher interface {
	Store(url string, data []byte, expires time.Time, etag, lastModified string) error
}

// AuthSource resolves the request headers for a URL, consulting the
// AuthConfig resources the map configuration declares. Returning ok=false
// means "no auth applicable"; MarkStale(url) is called by the pipeline on a
// 401/403.
type AuthSource interface {
	Headers(url string) (map[string]string, bool)
	MarkStale(url string)
}

// Config bundles the fetch pipeline's tunables (spec.md §4.3 / §9).
type Config struct {
	MaxConcurrentDownloads     int
	MaxResourceProcessesPerTick int // -1 == unbounded
	RetryBackoffStart          time.Duration
	RetryBackoffCap            time.Duration
	AuthRetryBackoff           time.Duration
	FetchTimeout               time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentDownloads:      8,
		MaxResourceProcessesPerTick: -1,
		RetryBackoffStart:           time.Second,
		RetryBackoffCap:             60 * time.Second,
		AuthRetryBackoff:            2 * time.Second,
		FetchTimeout:                30 * time.Second,
	}
}

// pqItem is one entry of the fetch priority queue: a max-heap over resource
// priority, lazily deleted when a resource transitions away from a pending
// state before it is popped (§9 "Priority queues").
type pqItem struct {
	r     *models.Resource
	index int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].r.Priority() > pq[j].r.Priority() // max-heap
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x any) {
	it := x.(*pqItem)
	it.index = len(*pq)
	*pq = append(*pq, it)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}

type fetchHandle struct {
	cancel context.CancelFunc
	id     string
}

func (h *fetchHandle) Abort() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Pipeline is the fetch pipeline: a pool of workers consuming a priority
// queue of eligible resources, plus decode workers advancing Downloaded
// resources to Ready.
type Pipeline struct {
	cfg        Config
	fetcher    Fetcher
	decoder    Decoder
	auth       AuthSource
	accountant Accountant
	cacher     Cacher

	mu       sync.Mutex
	queue    priorityQueue
	cond     *sync.Cond
	inflight int

	decodeSem chan struct{}

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewPipeline(cfg Config, fetcher Fetcher, decoder Decoder, auth AuthSource, accountant Accountant) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		decoder:    decoder,
		auth:       auth,
		accountant: accountant,
		stop:       make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	decodeCap := cfg.MaxResourceProcessesPerTick
	if decodeCap <= 0 {
		decodeCap = 64
	}
	p.decodeSem = make(chan struct{}, decodeCap)

	for i := 0; i < cfg.MaxConcurrentDownloads; i++ {
		p.wg.Add(1)
		go p.downloadWorker()
	}
	return p
}

// SetCacher wires an optional write-through persisted cache; nil (the
// default) disables write-through.
func (p *Pipeline) SetCacher(c Cacher) { p.cacher = c }

// Schedule implements store.Scheduler: push r onto the priority queue.
func (p *Pipeline) Schedule(r *models.Resource) {
	p.mu.Lock()
	heap.Push(&p.queue, &pqItem{r: r})
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Pipeline) Close() {
	close(p.stop)
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pipeline) downloadWorker() {
	defer p.wg.Done()
	for {
		r := p.popNext()
		if r == nil {
			return // Close() was called
		}
		p.processOne(r)
	}
}

// popNext blocks on the queue's condition variable until a resource is
// ready to fetch or the pipeline is closing (§5 "data threads block on the
// fetch queue's condition variable").
func (p *Pipeline) popNext() *models.Resource {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		select {
		case <-p.stop:
			return nil
		default:
		}
		for p.queue.Len() > 0 {
			it := heap.Pop(&p.queue).(*pqItem)
			r := it.r
			switch r.State() {
			case models.StateInitializing:
				return r
			case models.StateErrorRetry:
				if time.Now().After(r.RetryAt) {
					// claim it under p.mu so a duplicate queue entry for the
					// same resource is dropped instead of fetched twice.
					r.SetState(models.StateDownloading)
					return r
				}
				// back-off not yet elapsed: re-queue for later instead of
				// busy-looping; a real scheduler would use a timer wheel.
				heap.Push(&p.queue, it)
				goto wait
			default:
				// lazily deleted: resource moved on (e.g. persisted cache
				// hit) before this worker could pop it.
				continue
			}
		}
	wait:
		p.cond.Wait()
	}
}

func (p *Pipeline) processOne(r *models.Resource) {
	r.SetState(models.StateDownloading)

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FetchTimeout)
	handle := &fetchHandle{cancel: cancel, id: uuid.NewString()}
	r.FetchHandle = handle
	defer cancel()

	var headers map[string]string
	if p.auth != nil {
		if h, ok := p.auth.Headers(r.Key); ok {
			headers = h
		}
	}

	reply, err := p.fetcher.Fetch(ctx, r.Key, headers)
	if err != nil {
		if ctx.Err() != nil {
			// aborted by eviction or timed out: treat as transient.
			p.scheduleRetry(r, nil)
			return
		}
		logging.WithURL(r.Key).WithError(err).Warn("fetch: transient network error")
		p.scheduleRetry(r, nil)
		return
	}

	switch {
	case reply.Status >= 200 && reply.Status < 300:
		r.FetchHandle = nil
		r.SetState(models.StateDownloaded)
		if p.cacher != nil {
			if err := p.cacher.Store(r.Key, reply.Content, reply.Expires, reply.ETag, reply.LastModified); err != nil {
				logging.WithURL(r.Key).WithError(err).Warn("fetch: persisted cache write-through failed")
			}
		}
		p.scheduleDecode(r, reply.Content)
	case reply.Status == 401 || reply.Status == 403:
		if p.auth != nil {
			p.auth.MarkStale(r.Key)
		}
		p.scheduleRetryAfter(r, p.cfg.AuthRetryBackoff)
	case reply.Status >= 500:
		p.scheduleRetry(r, nil)
	default:
		logging.WithURL(r.Key).WithField("status", reply.Status).Warn("fetch: fatal content error")
		r.FetchHandle = nil
		r.SetState(models.StateErrorFatal)
	}
}

func (p *Pipeline) scheduleRetry(r *models.Resource, _ *Reply) {
	backoff := p.cfg.RetryBackoffStart
	if r.RetryCount > 0 {
		scaled := float64(p.cfg.RetryBackoffStart) * math.Pow(2, float64(r.RetryCount))
		backoff = time.Duration(math.Min(scaled, float64(p.cfg.RetryBackoffCap)))
	}
	p.scheduleRetryAfter(r, jitter(backoff))
}

func (p *Pipeline) scheduleRetryAfter(r *models.Resource, backoff time.Duration) {
	r.RetryCount++
	r.RetryAt = time.Now().Add(backoff)
	r.FetchHandle = nil
	r.SetState(models.StateErrorRetry)
	// re-queue once the back-off has elapsed; popNext drops the entry if the
	// resource has already moved on (e.g. the store re-queued it first).
	time.AfterFunc(backoff, func() { p.Schedule(r) })
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	j := time.Duration(rand.Int63n(int64(d) / 4))
	return d + j
}

// ResumeDecode implements store.Scheduler: drive a resource whose raw bytes
// were already obtained from the persisted cache straight into the decode
// step, bypassing the network fetch entirely.
func (p *Pipeline) ResumeDecode(r *models.Resource, raw []byte) {
	r.SetState(models.StateDownloaded)
	p.scheduleDecode(r, raw)
}

func (p *Pipeline) scheduleDecode(r *models.Resource, raw []byte) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.decodeSem <- struct{}{}
		defer func() { <-p.decodeSem }()

		r.SetState(models.StateFinalizing)
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FetchTimeout)
		defer cancel()
		ram, gpu, err := p.decoder.Decode(ctx, r, raw)
		if err != nil {
			logging.WithURL(r.Key).WithError(err).Warn("fetch: fatal decode error")
			r.SetState(models.StateErrorFatal)
			return
		}
		if p.accountant != nil {
			p.accountant.AccountCreate(r, ram, gpu)
		} else {
			r.RamBytes = ram
			r.GPUBytes = gpu
		}
		r.SetState(models.StateReady)
	}()
}
