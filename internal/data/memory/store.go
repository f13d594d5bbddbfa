// Package memory holds an in-process implementation of the ledger
// repositories. Transactions are serialised on one mutex. A failed transaction
// undoes only the writes made through repositories bound with WithTx, so
// concurrent writes outside it survive the rollback.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/outbox"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

// Op names a store operation that a fault can be injected into.
type Op string

const (
	OpCreateAccount  Op = "accounts.create"
	OpCreateTransfer Op = "transfers.create"
	OpMarkReversed   Op = "transfers.mark_reversed"
	OpCreateEntries  Op = "entries.create"
	OpCreateOutbox   Op = "outbox.create"
	OpCommit         Op = "tx.commit"
)

var ErrInjected = errors.New("injected store failure")

type identity struct {
	owner    uuid.UUID
	kind     account.Kind
	currency string
}

type state struct {
	accounts     map[uuid.UUID]account.Account
	identities   map[identity]uuid.UUID
	transfers    map[uuid.UUID]ledger.Transfer
	transferKeys map[string]uuid.UUID
	entries      []ledger.Entry
	messages     []outbox.Message
	nextOutboxID int64
}

func newState() state {
	return state{
		accounts:     make(map[uuid.UUID]account.Account),
		identities:   make(map[identity]uuid.UUID),
		transfers:    make(map[uuid.UUID]ledger.Transfer),
		transferKeys: make(map[string]uuid.UUID),
		entries:      make([]ledger.Entry, 0),
		messages:     make([]outbox.Message, 0),
	}
}

// Store is the shared backing state of the memory repositories.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
	undo []func(d *state)

	faults map[Op]error
}

var _ persistence.TxRunner = (*Store)(nil)

func New() *Store {
	return &Store{
		data:   newState(),
		faults: make(map[Op]error),
	}
}

// FailNext makes the next call of op return err (ErrInjected when err is nil).
func (s *Store) FailNext(op Op, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with mu held for writing.
func (s *Store) fault(op Op) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

// logUndo records how to revert a write made inside a transaction. Writes
// outside one are final. Must be called with mu held for writing.
func (s *Store) logUndo(inTx bool, fn func(d *state)) {
	if inTx {
		s.undo = append(s.undo, fn)
	}
}

// ExecuteTx runs fn with exclusive access to the store. Repositories bound
// with WithTx write straight into the store; on error their writes are undone
// in reverse order.
func (s *Store) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.undo = nil
	s.mu.Unlock()

	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := len(s.undo) - 1; i >= 0; i-- {
			s.undo[i](&s.data)
		}
		s.undo = nil
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err := fn(nil); err != nil {
		rollback()
		return err
	}

	s.mu.Lock()
	err := s.fault(OpCommit)
	s.mu.Unlock()
	if err != nil {
		rollback()
		return err
	}

	s.mu.Lock()
	s.undo = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{store: s}
}

func (s *Store) Transfers() *TransferRepository {
	return &TransferRepository{store: s}
}

func (s *Store) Entries() *EntryRepository {
	return &EntryRepository{store: s}
}

func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}

// EntryCount returns the number of stored entries.
func (s *Store) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.entries)
}

// TransferCount returns the number of stored transfers.
func (s *Store) TransferCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.transfers)
}

// InsertEntriesUnchecked appends entries without any transfer or balance
// checks. It exists to simulate corrupted data.
func (s *Store) InsertEntriesUnchecked(entries ...*ledger.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.data.entries = append(s.data.entries, *e)
	}
}

// InsertTransferUnchecked stores t without entries. It exists to simulate corrupted data.
func (s *Store) InsertTransferUnchecked(t *ledger.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.transfers[t.ID] = *t
	s.data.transferKeys[t.IdempotencyKey] = t.ID
}
