package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	bolt "go.etcd.io/bbolt"

	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
)

var (
	subscribersBucket = []byte("subscribers") // channel -> record
	topicsBucket      = []byte("topics")      // topic -> {channel -> topic}
)

// Bolt stores serialized subscribers in a bbolt database file so they
// survive restarts and can be read by other processes.
type Bolt struct {
	db *bolt.DB
	cs subscriptions.ContextSerializer
}

var _ subscriptions.Storage = (*Bolt)(nil)

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, cs subscriptions.ContextSerializer) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open subscriber store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(subscribersBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(topicsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init subscriber store: %w", err)
	}
	return &Bolt{db: db, cs: cs}, nil
}

func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) SubscriberByChannel(_ context.Context, channel string) (*subscriptions.Subscriber, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(subscribersBucket).Get([]byte(channel)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, subscriptions.ErrSubscriberNotFound
	}
	return subscriptions.DeserializeSubscriber(data, b.cs)
}

func (b *Bolt) SubscribersByTopic(_ context.Context, topic string) ([]*subscriptions.Subscriber, error) {
	var records [][]byte
	err := b.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(topicsBucket).Bucket([]byte(topic))
		if idx == nil {
			return nil
		}
		subs := tx.Bucket(subscribersBucket)
		return idx.ForEach(func(channel, _ []byte) error {
			if v := subs.Get(channel); v != nil {
				records = append(records, append([]byte(nil), v...))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]*subscriptions.Subscriber, 0, len(records))
	for _, data := range records {
		s, err := subscriptions.DeserializeSubscriber(data, b.cs)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *Bolt) StoreSubscriber(_ context.Context, s *subscriptions.Subscriber, topic string) error {
	s.Topic = topic
	data, err := s.Serialize(b.cs)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		channel := []byte(s.Channel)
		if err := unindex(tx, channel); err != nil {
			return err
		}
		if err := tx.Bucket(subscribersBucket).Put(channel, data); err != nil {
			return err
		}
		idx, err := tx.Bucket(topicsBucket).CreateBucketIfNotExists([]byte(topic))
		if err != nil {
			return err
		}
		return idx.Put(channel, []byte(topic))
	})
}

func (b *Bolt) DeleteSubscriber(_ context.Context, channel string) (*subscriptions.Subscriber, error) {
	var data []byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		subs := tx.Bucket(subscribersBucket)
		v := subs.Get([]byte(channel))
		if v == nil {
			return subscriptions.ErrSubscriberNotFound
		}
		data = append([]byte(nil), v...)
		if err := unindex(tx, []byte(channel)); err != nil {
			return err
		}
		return subs.Delete([]byte(channel))
	})
	if err != nil {
		return nil, err
	}
	return subscriptions.DeserializeSubscriber(data, b.cs)
}

// unindex removes channel from the index of the topic its current record
// names and drops the topic once it is empty.
func unindex(tx *bolt.Tx, channel []byte) error {
	old := tx.Bucket(subscribersBucket).Get(channel)
	if old == nil {
		return nil
	}
	topic := []byte(gjson.GetBytes(old, "topic").String())
	topics := tx.Bucket(topicsBucket)
	idx := topics.Bucket(topic)
	if idx == nil {
		return nil
	}
	if err := idx.Delete(channel); err != nil {
		return err
	}
	if k, _ := idx.Cursor().First(); k == nil {
		return topics.DeleteBucket(topic)
	}
	return nil
}
