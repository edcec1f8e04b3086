package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestPayment_RejectThenVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, models.RoleCustomer)
	_, staff := f.user(t, models.RoleStaff)
	p := f.product(t, "100", 5)
	o := f.placeOrder(t, owner, p, 1)

	first := f.uploadSlip(t, owner, o)
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, models.PaymentPending, first.Status)
	assertDec(t, "107", first.Amount)
	assert.Equal(t, "image/png", first.SlipContentType)

	_, err := f.payments.UploadSlip(ctx, owner, o.OrderNumber, SlipUpload{File: bytes.NewReader(pngSlip)})
	assert.Equal(t, CodePaymentPending, codeOf(err))

	_, err = f.payments.Reject(ctx, staff, first.ID, "  ")
	assert.Equal(t, CodeReasonRequired, codeOf(err))

	_, err = f.payments.Verify(ctx, owner, first.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	rejected, err := f.payments.Reject(ctx, staff, first.ID, "amount does not match")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rejected.Status)
	assert.Equal(t, "amount does not match", rejected.RejectionReason)

	got, err := f.orders.Get(ctx, owner, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, models.OrderPending, got.Status)

	second := f.uploadSlip(t, owner, o)
	assert.Equal(t, 2, second.Attempt)

	verified, err := f.payments.Verify(ctx, staff, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, *staff.UserID, *verified.VerifiedBy)

	got, err = f.orders.Get(ctx, owner, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, models.OrderPaid, got.Status)
	require.NotNil(t, got.PaidAt)

	_, err = f.payments.Verify(ctx, staff, second.ID)
	assert.Equal(t, CodeInvalidPaymentState, codeOf(err))
	_, err = f.payments.Reject(ctx, staff, second.ID, "too late")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.payments.UploadSlip(ctx, owner, o.OrderNumber, SlipUpload{File: bytes.NewReader(pngSlip)})
	assert.Equal(t, CodeOrderAlreadyPaid, codeOf(err))

	history, err := f.payments.ListForOrder(ctx, owner, o.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPayment_FulfilmentAfterVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, models.RoleCustomer)
	_, staff := f.user(t, models.RoleAdmin)
	p := f.product(t, "10", 5)
	o := f.placeOrder(t, owner, p, 1)

	pay := f.uploadSlip(t, owner, o)
	_, err := f.payments.Verify(ctx, staff, pay.ID)
	require.NoError(t, err)

	for _, next := range []string{models.OrderPacking, models.OrderPacked, models.OrderShipped, models.OrderDelivered} {
		got, err := f.orders.UpdateStatus(ctx, staff, o.OrderNumber, transport.UpdateStatusRequest{Status: next, TrackingNumber: "TH123"})
		require.NoError(t, err, next)
		assert.Equal(t, next, got.Status)
	}

	got, err := f.orders.Get(ctx, owner, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "TH123", got.TrackingNumber)
	assert.NotNil(t, got.ShippedAt)
	assert.NotNil(t, got.DeliveredAt)

	_, err = f.orders.Cancel(ctx, staff, o.OrderNumber)
	assert.Equal(t, CodeInvalidTransition, codeOf(err))
}

func TestPayment_SlipValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "10", 5)
	o := f.placeOrder(t, a, p, 1)

	_, err := f.payments.UploadSlip(ctx, a, o.OrderNumber, SlipUpload{File: strings.NewReader("not an image")})
	assert.Equal(t, CodeInvalidSlip, codeOf(err))

	_, err = f.payments.UploadSlip(ctx, a, o.OrderNumber, SlipUpload{Amount: dec("-5"), File: bytes.NewReader(pngSlip)})
	assert.Equal(t, CodeInvalidSlip, codeOf(err))

	_, err = f.payments.UploadSlip(ctx, guest(), o.OrderNumber, SlipUpload{File: bytes.NewReader(pngSlip)})
	assert.ErrorIs(t, err, ErrNotFound)

	pay, err := f.payments.UploadSlip(ctx, a, o.OrderNumber, SlipUpload{Amount: dec("10.7"), File: bytes.NewReader(pngSlip)})
	require.NoError(t, err)
	assertDec(t, "10.7", pay.Amount)

	rc, contentType, err := f.payments.Slip(ctx, pay.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngSlip, body)
	assert.Equal(t, "image/png", contentType)

	total, pending, err := f.payments.ListPending(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, pay.ID, pending[0].ID)
}

func TestPayment_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, models.RoleCustomer)
	p := f.product(t, "10", 5)
	o := f.placeOrder(t, owner, p, 1)

	_, err := f.orders.Cancel(ctx, owner, o.OrderNumber)
	require.NoError(t, err)

	_, err = f.payments.UploadSlip(ctx, owner, o.OrderNumber, SlipUpload{File: bytes.NewReader(pngSlip)})
	assert.Equal(t, CodeInvalidPaymentState, codeOf(err))
}
