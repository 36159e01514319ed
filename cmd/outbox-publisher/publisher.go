package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublisher adapts *gcppubsub.Publisher to publisher.
type topicPublisher struct {
	pub *gcppubsub.Publisher
}

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return topicPublisher{pub: p}
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return orderedResult{
		result: t.pub.Publish(ctx, msg),
		resume: func() { t.pub.ResumePublish(msg.OrderingKey) },
		keyed:  msg.OrderingKey != "",
	}
}

// orderedResult resumes the ordering key after a failed publish. The client
// pauses a key on error and rejects later messages for it until resumed.
type orderedResult struct {
	result *gcppubsub.PublishResult
	resume func()
	keyed  bool
}

func (r orderedResult) Get(ctx context.Context) (string, error) {
	id, err := r.result.Get(ctx)
	if err != nil && r.keyed {
		r.resume()
	}
	return id, err
}
