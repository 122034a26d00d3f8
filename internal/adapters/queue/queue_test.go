package queue

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techcafe/internal/domain"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []domain.SMSJob
	err  error
}

func (f *fakeSender) Send(ctx context.Context, phone string, templateID int, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, domain.SMSJob{Phone: phone, TemplateID: templateID, Args: args})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInline_DeliversThroughWorker(t *testing.T) {
	sender := &fakeSender{}
	worker := NewSMSWorker(sender, discardLogger())
	q := NewInline(worker.Handle, 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, domain.SMSJob{Phone: "09123456789", TemplateID: domain.SMSTemplateOTP, Args: []string{"1234"}}))
	require.NoError(t, q.Enqueue(ctx, domain.SMSJob{Phone: "09123456789", TemplateID: domain.SMSTemplateWelcome, Args: []string{"Sara"}}))
	// a finished request must not cancel queued jobs
	cancel()
	q.Wait()

	assert.Len(t, sender.sent, 2)
}

func TestInline_FailureIsLoggedNotReturned(t *testing.T) {
	sender := &fakeSender{err: errors.New("panel down")}
	q := NewInline(NewSMSWorker(sender, discardLogger()).Handle, 0, discardLogger())

	err := q.Enqueue(context.Background(), domain.SMSJob{Phone: "09123456789", TemplateID: domain.SMSTemplateOTP})
	q.Wait()
	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestProcessDelivery(t *testing.T) {
	ok := func(context.Context, domain.SMSJob) error { return nil }
	fail := func(context.Context, domain.SMSJob) error { return errors.New("boom") }

	var got domain.SMSJob
	capture := func(_ context.Context, job domain.SMSJob) error {
		got = job
		return nil
	}

	ctx := context.Background()
	assert.Equal(t, deliveryAck, processDelivery(ctx, []byte(`{"phone":"09123456789","template_id":115131,"args":["1234"]}`), capture))
	assert.Equal(t, domain.SMSJob{Phone: "09123456789", TemplateID: 115131, Args: []string{"1234"}}, got)

	assert.Equal(t, deliveryAck, processDelivery(ctx, []byte(`{}`), ok))
	assert.Equal(t, deliveryRetry, processDelivery(ctx, []byte(`{"phone":"09123456789"}`), fail))
	assert.Equal(t, deliveryDrop, processDelivery(ctx, []byte(`not json`), ok))
}

type fakeAcknowledger struct {
	acked, requeued, dropped int
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestRabbitMQ_Settle(t *testing.T) {
	var logs bytes.Buffer
	q := &RabbitMQ{logger: slog.New(slog.NewTextHandler(&logs, nil))}
	ack := &fakeAcknowledger{}
	body := []byte(`{"phone":"09123456789","template_id":115131,"args":["4821"]}`)
	d := amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: body}

	q.settle(d, deliveryAck, false)
	q.settle(d, deliveryRetry, false)
	q.settle(d, deliveryRetry, true)
	q.settle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 8, Body: []byte("garbage 4821")}, deliveryDrop, false)

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 1, ack.requeued)
	assert.Equal(t, 2, ack.dropped)
	assert.Contains(t, logs.String(), "template_id=115131")
	assert.NotContains(t, logs.String(), "4821")
	assert.NotContains(t, logs.String(), "09123456789")
}
