package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/itops/helpdesk-service/internal/config"
	"github.com/itops/helpdesk-service/internal/events"
	"github.com/itops/helpdesk-service/internal/service"
)

func TestStartNotificationWorkerSubscribesHandlers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, config.NotificationConfig{})

	StartNotificationWorker(notifications, logger)
	assert.Equal(t, 1, logs.FilterMessage("notification handlers subscribed to ticket events").Len())

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "ticket-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("TicketCreated").Len())
}

func TestStartNotificationWorkerWithoutService(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	StartNotificationWorker(nil, zap.New(core))
	assert.Equal(t, 1, logs.Len())
}
