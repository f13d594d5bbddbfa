package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/outbox"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

var (
	_ account.Repository        = (*AccountRepository)(nil)
	_ ledger.TransferRepository = (*TransferRepository)(nil)
	_ ledger.EntryRepository    = (*EntryRepository)(nil)
	_ outbox.Repository         = (*OutboxRepository)(nil)
)

func identityOf(owner *uuid.UUID, kind account.Kind, currency string) identity {
	id := identity{kind: kind, currency: currency}
	if owner != nil {
		id.owner = *owner
	}
	return id
}

// AccountRepository implements account.Repository over a Store.
type AccountRepository struct {
	store *Store
	inTx  bool
}

func (r *AccountRepository) WithTx(_ pgx.Tx) account.Repository {
	return &AccountRepository{store: r.store, inTx: true}
}

func (r *AccountRepository) GetOrCreate(_ context.Context, acc *account.Account) (*account.Account, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityOf(acc.OwnerID, acc.Kind, acc.Currency)
	if id, ok := s.data.identities[key]; ok {
		stored := s.data.accounts[id]
		return &stored, false, nil
	}
	if err := s.fault(OpCreateAccount); err != nil {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	stored := *acc
	s.data.accounts[stored.ID] = stored
	s.data.identities[key] = stored.ID
	s.logUndo(r.inTx, func(d *state) {
		delete(d.accounts, stored.ID)
		delete(d.identities, key)
	})
	return &stored, true, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.data.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &acc, nil
}

func (r *AccountRepository) GetByIdentity(_ context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.data.identities[identityOf(ownerID, kind, currency)]
	if !ok {
		return nil, account.ErrAccountNotFound{}
	}
	acc := s.data.accounts[id]
	return &acc, nil
}

func (r *AccountRepository) LockForShare(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	locked := make(map[uuid.UUID]*account.Account, len(ids))
	for _, id := range ids {
		acc, ok := s.data.accounts[id]
		if !ok {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		locked[id] = &acc
	}
	return locked, nil
}

// TransferRepository implements ledger.TransferRepository over a Store.
type TransferRepository struct {
	store *Store
	inTx  bool
}

func (r *TransferRepository) WithTx(_ pgx.Tx) ledger.TransferRepository {
	return &TransferRepository{store: r.store, inTx: true}
}

func (r *TransferRepository) Create(_ context.Context, t *ledger.Transfer) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpCreateTransfer); err != nil {
		return false, fmt.Errorf("failed to create transfer: %w", err)
	}
	if _, taken := s.data.transferKeys[t.IdempotencyKey]; taken {
		return false, nil
	}
	if t.FromAccountID == t.ToAccountID {
		return false, fmt.Errorf("failed to create transfer: %w", ledger.ErrSelfTransfer)
	}

	id, key := t.ID, t.IdempotencyKey
	s.data.transfers[id] = *t
	s.data.transferKeys[key] = id
	s.logUndo(r.inTx, func(d *state) {
		delete(d.transfers, id)
		delete(d.transferKeys, key)
	})
	return true, nil
}

func (r *TransferRepository) GetByID(_ context.Context, id uuid.UUID) (*ledger.Transfer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data.transfers[id]
	if !ok {
		return nil, ledger.ErrTransferNotFound{TransferID: id}
	}
	return &t, nil
}

func (r *TransferRepository) GetByIdempotencyKey(_ context.Context, key string) (*ledger.Transfer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.data.transferKeys[key]
	if !ok {
		return nil, nil
	}
	t := s.data.transfers[id]
	return &t, nil
}

func (r *TransferRepository) GetByIdempotencyKeys(_ context.Context, keys ...string) ([]*ledger.Transfer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	found := []*ledger.Transfer{}
	seen := make(map[string]bool, len(sorted))
	for _, key := range sorted {
		if seen[key] {
			continue
		}
		seen[key] = true
		if id, ok := s.data.transferKeys[key]; ok {
			t := s.data.transfers[id]
			found = append(found, &t)
		}
	}
	return found, nil
}

func (r *TransferRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *TransferRepository) MarkReversed(_ context.Context, id, reversalID uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpMarkReversed); err != nil {
		return fmt.Errorf("failed to mark transfer reversed: %w", err)
	}
	t, ok := s.data.transfers[id]
	if !ok {
		return ledger.ErrTransferNotFound{TransferID: id}
	}
	if t.IsReversed() {
		return ledger.ErrAlreadyReversed
	}
	prev := t
	link := reversalID
	t.ReversedByTransferID = &link
	s.data.transfers[id] = t
	s.logUndo(r.inTx, func(d *state) { d.transfers[id] = prev })
	return nil
}

// EntryRepository implements ledger.EntryRepository over a Store.
// Like the SQL table it only ever appends.
type EntryRepository struct {
	store *Store
	inTx  bool
}

func (r *EntryRepository) WithTx(_ pgx.Tx) ledger.EntryRepository {
	return &EntryRepository{store: r.store, inTx: true}
}

func (r *EntryRepository) CreateBatch(_ context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpCreateEntries); err != nil {
		return fmt.Errorf("failed to create entries: %w", err)
	}
	for _, e := range entries {
		if e.AmountCents <= 0 {
			return fmt.Errorf("failed to create entries: %w", ledger.ErrInvalidAmount)
		}
		if _, ok := s.data.transfers[e.TransferID]; !ok {
			return fmt.Errorf("failed to create entries: %w", ledger.ErrTransferNotFound{TransferID: e.TransferID})
		}
		if _, ok := s.data.accounts[e.AccountID]; !ok {
			return fmt.Errorf("failed to create entries: %w", account.ErrAccountNotFound{AccountID: e.AccountID})
		}
	}
	added := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		s.data.entries = append(s.data.entries, *e)
		added[e.ID] = true
	}
	s.logUndo(r.inTx, func(d *state) {
		kept := d.entries[:0]
		for _, e := range d.entries {
			if !added[e.ID] {
				kept = append(kept, e)
			}
		}
		d.entries = kept
	})
	return nil
}

func (r *EntryRepository) ListByTransfer(_ context.Context, transferIDs ...uuid.UUID) ([]*ledger.Entry, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(transferIDs))
	for _, id := range transferIDs {
		wanted[id] = true
	}

	entries := []*ledger.Entry{}
	for i := range s.data.entries {
		if wanted[s.data.entries[i].TransferID] {
			e := s.data.entries[i]
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

func (r *EntryRepository) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []*ledger.Entry{}
	skipped := 0
	for i := len(s.data.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if s.data.entries[i].AccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		e := s.data.entries[i]
		entries = append(entries, &e)
	}
	return entries, nil
}

func (r *EntryRepository) CountByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.data.entries {
		if e.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (r *EntryRepository) SumByAccount(_ context.Context, accountID uuid.UUID, currency string) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	for _, e := range s.data.entries {
		if e.AccountID == accountID && e.Currency == currency {
			balance += e.SignedAmount()
		}
	}
	return balance, nil
}

func (r *EntryRepository) TotalsByCurrency(_ context.Context) ([]ledger.CurrencyTotal, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCurrency := make(map[string]*ledger.CurrencyTotal)
	for _, e := range s.data.entries {
		t, ok := byCurrency[e.Currency]
		if !ok {
			t = &ledger.CurrencyTotal{Currency: e.Currency}
			byCurrency[e.Currency] = t
		}
		if e.Direction == ledger.DirectionCredit {
			t.CreditCents += e.AmountCents
		} else {
			t.DebitCents += e.AmountCents
		}
		t.EntryCount++
	}

	totals := make([]ledger.CurrencyTotal, 0, len(byCurrency))
	for _, t := range byCurrency {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })
	return totals, nil
}

func (r *EntryRepository) TransfersWithoutEntries(_ context.Context, limit int) ([]uuid.UUID, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	bound := make(map[uuid.UUID]bool, len(s.data.transfers))
	for _, e := range s.data.entries {
		bound[e.TransferID] = true
	}

	var orphans []ledger.Transfer
	for id, t := range s.data.transfers {
		if !bound[id] {
			orphans = append(orphans, t)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].CreatedAt.Before(orphans[j].CreatedAt) })

	ids := []uuid.UUID{}
	for _, t := range orphans {
		if len(ids) == limit {
			break
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// OutboxRepository implements outbox.Repository over a Store.
type OutboxRepository struct {
	store *Store
	inTx  bool
}

func (r *OutboxRepository) WithTx(_ pgx.Tx) outbox.Repository {
	return &OutboxRepository{store: r.store, inTx: true}
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpCreateOutbox); err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	s.data.nextOutboxID++
	message.ID = s.data.nextOutboxID
	s.data.messages = append(s.data.messages, *message)
	id := message.ID
	s.logUndo(r.inTx, func(d *state) {
		kept := d.messages[:0]
		for _, m := range d.messages {
			if m.ID != id {
				kept = append(kept, m)
			}
		}
		d.messages = kept
	})
	return nil
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := []*outbox.Message{}
	for i := range s.data.messages {
		if len(pending) == limit {
			break
		}
		if s.data.messages[i].Status == shared.OutboxStatusPending {
			m := s.data.messages[i]
			pending = append(pending, &m)
		}
	}
	return pending, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) {
		now := time.Now()
		m.Status = status
		m.LastAttemptAt = &now
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) {
		m.IncrementAttempts()
	})
}

func (r *OutboxRepository) update(id int64, fn func(m *outbox.Message)) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.messages {
		if s.data.messages[i].ID == id {
			prev := s.data.messages[i]
			fn(&s.data.messages[i])
			s.logUndo(r.inTx, func(d *state) {
				for j := range d.messages {
					if d.messages[j].ID == id {
						d.messages[j] = prev
					}
				}
			})
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

// Messages returns a copy of every stored outbox message.
func (r *OutboxRepository) Messages() []outbox.Message {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Message(nil), s.data.messages...)
}
