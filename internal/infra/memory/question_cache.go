package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache keeps questions by id with a TTL to avoid repeated store hits.
// Dataset listings are not cached.
type QuestionCache struct {
	store app.QuestionStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[int64]cachedQuestion
}

type cachedQuestion struct {
	question  domain.QuestionRecord
	expiresAt time.Time
}

func NewQuestionCache(store app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[int64]cachedQuestion),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, userID int64, dataset string) ([]domain.QuestionRecord, error) {
	return c.store.ListQuestions(ctx, userID, dataset)
}

func (c *QuestionCache) GetQuestion(ctx context.Context, questionID int64) (domain.QuestionRecord, error) {
	if q, ok := c.lookup(questionID); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(questionID, 10), func() (interface{}, error) {
		if q, ok := c.lookup(questionID); ok {
			return q, nil
		}

		q, err := c.store.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.QuestionRecord{}, err
		}

		c.mu.Lock()
		c.cache[questionID] = cachedQuestion{
			question:  q,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	return result.(domain.QuestionRecord), nil
}

func (c *QuestionCache) lookup(questionID int64) (domain.QuestionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[questionID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuestionRecord{}, false
	}
	return entry.question, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
