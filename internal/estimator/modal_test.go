package estimator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const modalURL = "/modules/estimator-modal.js"

func TestModalIsBuiltOnceAndRetargeted(t *testing.T) {
	f := &countingFetcher{}
	loader := NewModuleLoader(NewModuleRegistry(), f, nil)
	modal := &fakeModal{}
	var built int32
	mc := NewModalCoordinator(loader, modalURL, countingFactory(modal, &built), nil)

	require.NoError(t, mc.Open(context.Background(), 1))
	first := mc.Session()
	require.True(t, first.Open)
	require.NotEmpty(t, first.ID)

	require.NoError(t, mc.Open(context.Background(), 2))
	require.Equal(t, int32(1), built)
	require.Equal(t, 1, f.Calls())
	require.Equal(t, []int64{1}, modal.opens)
	require.Equal(t, []int64{2}, modal.retargets)
	require.Equal(t, int64(2), mc.Target())
	require.True(t, mc.IsOpen())
	require.Equal(t, first.ID, mc.Session().ID)
}

func TestModalReopenReusesInstance(t *testing.T) {
	loader := NewModuleLoader(NewModuleRegistry(), &countingFetcher{}, nil)
	modal := &fakeModal{}
	var built int32
	mc := NewModalCoordinator(loader, modalURL, countingFactory(modal, &built), nil)

	require.NoError(t, mc.Open(context.Background(), 1))
	firstID := mc.Session().ID
	mc.Close()
	require.False(t, mc.Session().Open)
	require.True(t, mc.Ready())

	require.NoError(t, mc.Open(context.Background(), 3))
	require.Equal(t, int32(1), built)
	require.Equal(t, []int64{1, 3}, modal.opens)
	require.Equal(t, 1, modal.closes)
	require.NotEqual(t, firstID, mc.Session().ID)
}

func TestModalOpenErrors(t *testing.T) {
	loader := NewModuleLoader(NewModuleRegistry(), &countingFetcher{}, nil)
	var built int32
	mc := NewModalCoordinator(loader, modalURL, countingFactory(&fakeModal{}, &built), nil)
	require.ErrorIs(t, mc.Open(context.Background(), 0), ErrIdentityMissing)
	require.False(t, mc.Ready())

	none := NewModalCoordinator(loader, modalURL, nil, nil)
	require.ErrorIs(t, none.Open(context.Background(), 5), ErrModalUnavailable)

	failing := NewModuleLoader(NewModuleRegistry(), &countingFetcher{fail: map[string]error{modalURL: errors.New("timeout")}}, nil)
	mc = NewModalCoordinator(failing, modalURL, countingFactory(&fakeModal{}, &built), nil)
	err := mc.Open(context.Background(), 5)
	var lf *LoadFailure
	require.True(t, errors.As(err, &lf))
	require.Equal(t, int32(0), built)
	require.False(t, mc.Session().Open)
}

func TestModalHandlesOpenRequestSignal(t *testing.T) {
	bus := NewBus()
	loader := NewModuleLoader(NewModuleRegistry(), &countingFetcher{}, nil)
	modal := &fakeModal{}
	var built int32
	mc := NewModalCoordinator(loader, modalURL, countingFactory(modal, &built), nil)
	off := mc.Attach(bus)

	var outcome error = errors.New("not called")
	bus.OpenRequested.Publish(OpenRequest{ProductID: 7, Done: func(err error) { outcome = err }})
	require.NoError(t, outcome)
	require.Equal(t, []int64{7}, modal.opens)

	bus.OpenRequested.Publish(OpenRequest{ProductID: 0, Done: func(err error) { outcome = err }})
	require.ErrorIs(t, outcome, ErrIdentityMissing)

	off()
	require.Zero(t, bus.OpenRequested.Len())
}

func TestMessengerKeepsOneMessage(t *testing.T) {
	sink := &fakeSink{}
	m := NewMessenger(sink)

	first := m.Show(MessageError, TextNetworkFailure)
	second := m.Show(MessageSuccess, TextAdded)

	require.Equal(t, []Message{first}, sink.removed)
	cur, ok := m.Current()
	require.True(t, ok)
	require.Equal(t, second, cur)

	m.Clear()
	_, ok = m.Current()
	require.False(t, ok)
	require.Equal(t, []Message{first, second}, sink.removed)
}
