package events

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/Nintron27/pillow"
	"github.com/debankfi/debank/internal/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StateSubject carries one message per store change.
const StateSubject = "debank.state"

const receiptsBucket = "receipts"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Entry is one settled send in the receipt journal.
type Entry struct {
	ID      string          `json:"id"`
	Kind    accounts.TxKind `json:"kind"`
	Account common.Address  `json:"account"`
	Amount  *big.Int        `json:"amount,omitempty"`
	TxHash  common.Hash     `json:"txHash"`
	Block   uint64          `json:"block"`
	Status  Status          `json:"status"`
	Error   string          `json:"error,omitempty"`
	At      time.Time       `json:"at"`
}

type StateChange struct {
	Action  string    `json:"action"`
	Loading bool      `json:"loading"`
	At      time.Time `json:"at"`
}

type Bus struct {
	nc       *nats.Conn
	receipts jetstream.KeyValue
	shutdown func(context.Context) error
}

// Start runs an embedded NATS server and connects a bus to it. The
// journal lives in memory and goes away with the process.
func Start(ctx context.Context, storeDir string) (*Bus, error) {
	ns, err := pillow.Run(
		pillow.WithNATSServerOptions(&server.Options{
			Host:      "127.0.0.1",
			Port:      server.RANDOM_PORT,
			JetStream: true,
			StoreDir:  storeDir,
		}),
	)
	if err != nil {
		return nil, err
	}

	return connect(ctx, ns)
}

// connect builds a bus on ns and owns it from then on: ns is shut down
// if the bus cannot be built.
func connect(ctx context.Context, ns *pillow.Server) (*Bus, error) {
	stop := func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = ns.Shutdown(sctx)
	}

	nc, err := ns.NATSClient()
	if err != nil {
		stop()
		return nil, err
	}

	b, err := New(ctx, nc)
	if err != nil {
		nc.Close()
		stop()
		return nil, err
	}
	b.shutdown = ns.Shutdown
	return b, nil
}

// New builds a bus on an existing connection.
func New(ctx context.Context, nc *nats.Conn) (*Bus, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  receiptsBucket,
		Storage: jetstream.MemoryStorage,
	})
	if err != nil {
		return nil, err
	}
	return &Bus{nc: nc, receipts: kv}, nil
}

func (b *Bus) NotifyState(c StateChange) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.nc.Publish(StateSubject, data)
}

func (b *Bus) SubscribeState(ch chan *nats.Msg) (*nats.Subscription, error) {
	return b.nc.ChanSubscribe(StateSubject, ch)
}

func receiptPrefix(account common.Address) string {
	return "accounts." + strings.ToLower(account.Hex()) + ".receipts."
}

func receiptKey(account common.Address, id string) string {
	return receiptPrefix(account) + id
}

// Record stores e in the journal.
func (b *Bus) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = b.receipts.Put(ctx, receiptKey(e.Account, e.ID), data)
	return err
}

// Entries lists the journal of account, newest first.
func (b *Bus) Entries(ctx context.Context, account common.Address) ([]Entry, error) {
	lister, err := b.receipts.ListKeysFiltered(ctx, receiptPrefix(account)+"*")
	if err != nil {
		return nil, err
	}
	defer lister.Stop()

	entries := make([]Entry, 0)
	for key := range lister.Keys() {
		kve, err := b.receipts.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(kve.Value(), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.At.Compare(a.At)
	})
	return entries, nil
}

func (b *Bus) Shutdown(ctx context.Context) error {
	if err := b.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	if b.shutdown != nil {
		return b.shutdown(ctx)
	}
	return nil
}
