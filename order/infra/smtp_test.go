package infra

import (
	"context"
	"errors"
	"testing"

	"order-gateway/order/application"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeMsgSender struct {
	err  error
	msgs []*mail.Msg
}

func (f *fakeMsgSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.msgs = append(f.msgs, messages...)
	return f.err
}

func TestSMTPMailer_SendsToOperator(t *testing.T) {
	fake := &fakeMsgSender{}
	m := &SMTPMailer{operator: "shop@example.com", client: fake}

	err := m.Send(context.Background(), application.Mail{
		Subject: "📋 New Order INV-ABC123",
		HTML:    "<p>order</p>",
		ReplyTo: "customer@example.dz",
	})
	require.NoError(t, err)
	require.Len(t, fake.msgs, 1)

	rcpts, err := fake.msgs[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"shop@example.com"}, rcpts)
	assert.Equal(t, []string{"<shop@example.com>"}, fake.msgs[0].GetFromString())
}

func TestSMTPMailer_PropagatesError(t *testing.T) {
	m := &SMTPMailer{operator: "shop@example.com", client: &fakeMsgSender{err: errors.New("535 auth failed")}}
	err := m.Send(context.Background(), application.Mail{Subject: "s", HTML: "h"})
	assert.ErrorContains(t, err, "535")
}

func TestNewSMTPMailer_RequiresCredentials(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Username: "shop@example.com"})
	assert.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Username: "shop@example.com", Password: "app-pass"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
