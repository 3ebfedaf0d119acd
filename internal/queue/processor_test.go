package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

type upperBackend struct{}

func (upperBackend) GetName() string { return "upper" }

func (upperBackend) Initialize(ctx context.Context, onLoad translation.LoadProgressFunc) error {
	return nil
}

func (upperBackend) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	return strings.ToUpper(req.Text), nil
}

type fakePublisher struct {
	mu       sync.Mutex
	queues   []string
	messages [][]byte
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.queues = append(p.queues, queue)
	p.messages = append(p.messages, body)
	return nil
}

func (p *fakePublisher) result(t *testing.T, i int) JobResult {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Greater(t, len(p.messages), i)

	var out JobResult
	require.NoError(t, json.Unmarshal(p.messages[i], &out))
	return out
}

// fakeAcknowledger 记录 ack/nack 的投递标签
type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	requeued []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	} else {
		a.nacked = append(a.nacked, tag)
	}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func newProcessor(t *testing.T, pub Publisher, ready bool) *Processor {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.PacingDelay = 0
	c, err := translator.NewFromConfig(cfg, nil)
	require.NoError(t, err)
	if ready {
		require.NoError(t, c.Load(context.Background(), upperBackend{}, nil))
	}
	return NewProcessor(c, pub, "", nil)
}

func encodeJob(t *testing.T, job Job) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestProcessMessage_Document(t *testing.T) {
	pub := &fakePublisher{}
	p := newProcessor(t, pub, true)

	body := encodeJob(t, Job{
		ID:         "job-1",
		FileName:   "nota.txt",
		Document:   []byte("Olá mundo."),
		SourceLang: "por_Latn",
		TargetLang: "eng_Latn",
	})
	require.NoError(t, p.ProcessMessage(context.Background(), body))

	assert.Equal(t, []string{DefaultResultQueue}, pub.queues)
	out := pub.result(t, 0)
	assert.Equal(t, "job-1", out.JobID)
	assert.Empty(t, out.Error)
	require.NotNil(t, out.Result)
	assert.Equal(t, "OLÁ MUNDO.", out.Result.TranslatedText)
	assert.Equal(t, "nota.txt", out.Result.FileName)
}

func TestProcessMessage_TranslationErrorIsPublished(t *testing.T) {
	pub := &fakePublisher{}
	p := newProcessor(t, pub, false)

	require.NoError(t, p.ProcessMessage(context.Background(), encodeJob(t, Job{ID: "job-2", Text: "Olá."})))

	out := pub.result(t, 0)
	assert.Equal(t, "job-2", out.JobID)
	assert.Nil(t, out.Result)
	assert.Contains(t, out.Error, translation.ErrNotReady.Error())
}

func TestProcessMessage_Errors(t *testing.T) {
	p := newProcessor(t, &fakePublisher{}, true)
	assert.Error(t, p.ProcessMessage(context.Background(), []byte("{not json")))

	failing := newProcessor(t, &fakePublisher{err: errors.New("channel closed")}, true)
	err := failing.ProcessMessage(context.Background(), encodeJob(t, Job{ID: "x", Text: "Olá."}))
	assert.ErrorContains(t, err, "channel closed")
}

func TestRun_AckAndNack(t *testing.T) {
	pub := &fakePublisher{}
	p := newProcessor(t, pub, true)
	ack := &fakeAcknowledger{}

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: encodeJob(t, Job{ID: "ok", Text: "Olá."})}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("garbage")}
	close(deliveries)

	require.NoError(t, p.Run(context.Background(), deliveries))

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	assert.Len(t, pub.messages, 1)
}

func TestRun_ContextCancelled(t *testing.T) {
	p := newProcessor(t, &fakePublisher{}, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Run(ctx, make(chan amqp.Delivery))
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingBackend 模拟翻译过程中收到停止信号
type cancellingBackend struct {
	cancel context.CancelFunc
}

func (b cancellingBackend) GetName() string { return "cancelling" }

func (b cancellingBackend) Initialize(ctx context.Context, onLoad translation.LoadProgressFunc) error {
	return nil
}

func (b cancellingBackend) TranslateSegment(ctx context.Context, req *translation.SegmentRequest) (string, error) {
	b.cancel()
	return "", ctx.Err()
}

func TestProcessMessage_CancelledContextNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	p := newProcessor(t, pub, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ProcessMessage(ctx, encodeJob(t, Job{ID: "j", Text: "Olá."}))
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, pub.messages)
}

func TestRun_InterruptedJobRequeued(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewDefaultConfig()
	cfg.PacingDelay = 0
	c, err := translator.NewFromConfig(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background(), cancellingBackend{cancel: cancel}, nil))

	pub := &fakePublisher{}
	p := NewProcessor(c, pub, "", nil)
	ack := &fakeAcknowledger{}

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: encodeJob(t, Job{ID: "j", Text: "Olá."})}

	err = p.Run(ctx, deliveries)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{7}, ack.requeued)
	assert.Empty(t, ack.acked)
	assert.Empty(t, ack.nacked)
	assert.Empty(t, pub.messages)
}
