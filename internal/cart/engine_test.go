package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPersister struct {
	*MemoryPersister
}

func (f *failingPersister) Save(context.Context, string, *Cart) error {
	return errors.New("disk full")
}

func TestEngine_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()

	e, err := Open(ctx, p, Key, DefaultPricing())
	require.NoError(t, err)

	require.NoError(t, e.AddItem(ctx, item(1, "10.00")))
	require.NoError(t, e.AddItem(ctx, item(1, "10.00")))
	require.NoError(t, e.SetDeliveryMethod(ctx, domain.DeliveryMethodPickup))
	require.NoError(t, e.SetPaymentMethod(ctx, domain.PaymentMethodPayPal))
	require.NoError(t, e.SetDeliveryAddress(ctx, "1 Main St"))

	stored, err := p.Load(ctx, Key)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, domain.DeliveryMethodPickup, stored.DeliveryMethod)
	assert.Equal(t, domain.PaymentMethodPayPal, stored.PaymentMethod)
	assert.Equal(t, "1 Main St", stored.DeliveryAddress)

	reopened, err := Open(ctx, p, Key, DefaultPricing())
	require.NoError(t, err)
	_, s := reopened.Snapshot()
	assert.Equal(t, 2, s.Count)
	assertMoney(t, "21.65", s.Total)
}

func TestEngine_RejectsUnknownMethods(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, NewMemoryPersister(), Key, DefaultPricing())
	require.NoError(t, err)

	err = e.SetDeliveryMethod(ctx, "drone")
	v, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "deliveryMethod")

	err = e.SetPaymentMethod(ctx, "barter")
	_, ok = domain.AsValidationError(err)
	assert.True(t, ok)
}

func TestEngine_ReportsPersistFailure(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, &failingPersister{MemoryPersister: NewMemoryPersister()}, Key, DefaultPricing())
	require.NoError(t, err)

	err = e.AddItem(ctx, item(1, "1.00"))
	assert.ErrorContains(t, err, "disk full")
}

func TestEngine_ClearResetsDefaults(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, NewMemoryPersister(), Key, DefaultPricing())
	require.NoError(t, err)

	require.NoError(t, e.AddItem(ctx, item(1, "1.00")))
	require.NoError(t, e.SetDeliveryMethod(ctx, domain.DeliveryMethodPickup))
	require.NoError(t, e.Clear(ctx))

	c, s := e.Snapshot()
	assert.Equal(t, Empty(), c)
	assert.Equal(t, 0, s.Count)
}

func TestEngine_UpdateQuantityZeroDropsCount(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, NewMemoryPersister(), Key, DefaultPricing())
	require.NoError(t, err)

	require.NoError(t, e.AddItem(ctx, item(1, "1.00")))
	require.NoError(t, e.AddItem(ctx, item(2, "1.00")))
	require.NoError(t, e.UpdateQuantity(ctx, 1, 3))
	_, before := e.Snapshot()

	require.NoError(t, e.UpdateQuantity(ctx, 1, 0))
	_, after := e.Snapshot()
	assert.Equal(t, before.Count-3, after.Count)
}

func TestFilePersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := NewFilePersister(t.TempDir())
	require.NoError(t, err)

	_, err = p.Load(ctx, SessionKey("abc"))
	assert.ErrorIs(t, err, ErrCartNotFound)

	c := Empty()
	c.AddItem(item(3, "18.50"))
	require.NoError(t, p.Save(ctx, SessionKey("abc"), &c))

	got, err := p.Load(ctx, SessionKey("abc"))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].MenuItem.Price.Equal(domain.MustPrice("18.50")))

	require.NoError(t, p.Delete(ctx, SessionKey("abc")))
	require.NoError(t, p.Delete(ctx, SessionKey("abc")))
	_, err = p.Load(ctx, SessionKey("abc"))
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestManager_SerialisesSameCart(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryPersister(), DefaultPricing())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := m.With(ctx, "shared", func(e *Engine) error {
				return e.AddItem(ctx, item(1, "2.00"))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, s, err := m.With(ctx, "shared", nil)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 50, s.Count)
}
