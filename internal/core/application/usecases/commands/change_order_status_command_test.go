package commands_test

import (
	"testing"

	"relay/internal/core/application/usecases/commands"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChangeOrderStatusCommand(t *testing.T) {
	t.Run("should accept a known status", func(t *testing.T) {
		cmd, err := commands.NewChangeOrderStatusCommand(kernel.MustEntityID("123"), order.Preparing, now)

		require.NoError(t, err)
		assert.Equal(t, order.Preparing, cmd.Status())
		assert.Equal(t, now, cmd.At())
	})

	t.Run("should reject unknown status", func(t *testing.T) {
		_, err := commands.NewChangeOrderStatusCommand(kernel.MustEntityID("123"), order.Unknown, now)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestChangeOrderStatusCommandHandler_Handle(t *testing.T) {
	id := kernel.MustEntityID("123")

	t.Run("should keep tracking while out for delivery", func(t *testing.T) {
		ctx := t.Context()
		cache := &MockOrderCache{}
		tracker := &MockLocationTracker{}
		cache.On("Transition", ctx, id, order.OutForDelivery, now).Return(restored("123", order.OutForDelivery), nil)

		cmd, _ := commands.NewChangeOrderStatusCommand(id, order.OutForDelivery, now)
		got, err := commands.NewChangeOrderStatusCommandHandler(cache, tracker).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, order.OutForDelivery, got.Status())
		tracker.AssertNotCalled(t, "Forget", id)
	})

	t.Run("should forget location state once delivered", func(t *testing.T) {
		ctx := t.Context()
		cache := &MockOrderCache{}
		tracker := &MockLocationTracker{}
		cache.On("Transition", ctx, id, order.Delivered, now).Return(restored("123", order.Delivered), nil)
		tracker.On("Forget", id).Return().Once()

		cmd, _ := commands.NewChangeOrderStatusCommand(id, order.Delivered, now)
		_, err := commands.NewChangeOrderStatusCommandHandler(cache, tracker).Handle(ctx, cmd)

		require.NoError(t, err)
		tracker.AssertExpectations(t)
	})

	t.Run("should pass through rejected transitions", func(t *testing.T) {
		ctx := t.Context()
		cache := &MockOrderCache{}
		tracker := &MockLocationTracker{}
		rejected := errs.NewTransitionIsInvalidError("order", "delivered", "preparing")
		cache.On("Transition", ctx, id, order.Preparing, now).Return(nil, rejected)

		cmd, _ := commands.NewChangeOrderStatusCommand(id, order.Preparing, now)
		got, err := commands.NewChangeOrderStatusCommandHandler(cache, tracker).Handle(ctx, cmd)

		require.ErrorIs(t, err, order.ErrInvalidTransition)
		assert.Nil(t, got)
		tracker.AssertNotCalled(t, "Forget", id)
	})

	t.Run("should reject a command built without constructor", func(t *testing.T) {
		_, err := commands.NewChangeOrderStatusCommandHandler(&MockOrderCache{}, nil).
			Handle(t.Context(), commands.ChangeOrderStatusCommand{})
		require.ErrorIs(t, err, commands.ErrChangeOrderStatusCommandIsNotConstructed)
	})
}
