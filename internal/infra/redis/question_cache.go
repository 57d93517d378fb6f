package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches questions in Redis and falls back to a store on cache miss.
// Questions are stored as: SET question:{questionID} {json}
type QuestionCache struct {
	client *redis.Client
	store  app.QuestionStore
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, store app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, userID int64, dataset string) ([]domain.QuestionRecord, error) {
	return c.store.ListQuestions(ctx, userID, dataset)
}

func (c *QuestionCache) GetQuestion(ctx context.Context, questionID int64) (domain.QuestionRecord, error) {
	key := c.key(questionID)
	if q, ok := c.cached(ctx, key); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.cached(ctx, key); ok {
			return q, nil
		}

		q, err := c.store.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.QuestionRecord{}, err
		}

		data, err := json.Marshal(q)
		if err != nil {
			return q, nil
		}
		if err := c.client.Set(ctx, key, data, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache question %d: %v", questionID, err)
		}
		return q, nil
	})
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	return result.(domain.QuestionRecord), nil
}

func (c *QuestionCache) cached(ctx context.Context, key string) (domain.QuestionRecord, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuestionRecord{}, false
	}
	var q domain.QuestionRecord
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.QuestionRecord{}, false
	}
	return q, true
}

func (c *QuestionCache) key(questionID int64) string {
	return "question:" + strconv.FormatInt(questionID, 10)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
