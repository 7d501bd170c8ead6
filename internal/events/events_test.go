package events

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/Nintron27/pillow"
	"github.com/debankfi/debank/internal/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *Bus {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)

	b, err := New(context.Background(), nc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Shutdown(context.Background()) })
	return b
}

func TestStateNotifications(t *testing.T) {
	b := newBus(t)

	ch := make(chan *nats.Msg, 4)
	sub, err := b.SubscribeState(ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.NotifyState(StateChange{Action: "sendStarted", Loading: true}))

	select {
	case msg := <-ch:
		var c StateChange
		require.NoError(t, json.Unmarshal(msg.Data, &c))
		assert.Equal(t, "sendStarted", c.Action)
		assert.True(t, c.Loading)
	case <-time.After(5 * time.Second):
		t.Fatal("no state notification")
	}
}

func TestJournalIsPerAccountNewestFirst(t *testing.T) {
	b := newBus(t)
	ctx := context.Background()

	alice := common.HexToAddress("0xA11CE")
	bob := common.HexToAddress("0xB0B")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, b.Record(ctx, Entry{
		ID: "one", Kind: accounts.TxDeposit, Account: alice,
		Amount: big.NewInt(10000000000000000), Status: StatusConfirmed, Block: 3, At: t0,
	}))
	require.NoError(t, b.Record(ctx, Entry{
		ID: "two", Kind: accounts.TxWithdraw, Account: alice,
		Status: StatusFailed, Error: "execution reverted", At: t0.Add(time.Minute),
	}))
	require.NoError(t, b.Record(ctx, Entry{
		ID: "three", Kind: accounts.TxBorrow, Account: bob, Status: StatusConfirmed, At: t0,
	}))

	entries, err := b.Entries(ctx, alice)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].ID)
	assert.Equal(t, accounts.TxWithdraw, entries[0].Kind)
	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, "one", entries[1].ID)
	assert.Equal(t, "10000000000000000", entries[1].Amount.String())

	none, err := b.Entries(ctx, common.HexToAddress("0xC0FFEE"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStartAndShutdown(t *testing.T) {
	ctx := context.Background()
	b, err := Start(ctx, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, b.Record(ctx, Entry{ID: "a", Account: common.HexToAddress("0x01"), Status: StatusConfirmed}))
	require.NoError(t, b.Shutdown(ctx))
}

func TestFailedConnectStopsServer(t *testing.T) {
	ns, err := pillow.Run(pillow.WithNATSServerOptions(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}))
	require.NoError(t, err)
	require.True(t, ns.NATSServer.Running())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = connect(ctx, ns)
	require.Error(t, err)
	assert.False(t, ns.NATSServer.Running())
}
