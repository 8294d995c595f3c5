// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/session"
	"github.com/luxfi/adxgateway/upstream"
	"github.com/shopspring/decimal"
)

// BudgetStore tracks per-campaign total/spent state. MemBudgetStore is
// the in-process implementation; a Redis-backed store can implement the
// same interface via session.Backend.Increment for the atomic debit.
type BudgetStore interface {
	Remaining(ctx context.Context, campaignID string) (decimal.Decimal, error)
	Debit(ctx context.Context, campaignID string, amount decimal.Decimal) error
	Reserve(ctx context.Context, campaignID string, amount decimal.Decimal) (reservationID string, err error)
	Commit(ctx context.Context, reservationID string) error
	Release(ctx context.Context, reservationID string) error
}

type reservation struct {
	campaignID string
	amount     decimal.Decimal
}

// MemBudgetStore is an in-process BudgetStore for tests and single-node
// deployments.
type MemBudgetStore struct {
	mu           sync.Mutex
	budgets      map[string]*session.Budget
	reservations map[string]reservation
	nextResID    int
}

// NewMemBudgetStore constructs an empty MemBudgetStore.
func NewMemBudgetStore() *MemBudgetStore {
	return &MemBudgetStore{
		budgets:      make(map[string]*session.Budget),
		reservations: make(map[string]reservation),
	}
}

// SetBudget seeds or replaces a campaign's total budget.
func (s *MemBudgetStore) SetBudget(campaignID string, total decimal.Decimal, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[campaignID] = &session.Budget{CampaignID: campaignID, Total: total, Currency: currency}
}

func (s *MemBudgetStore) Remaining(_ context.Context, campaignID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[campaignID]
	if !ok {
		return decimal.Zero, nil
	}
	return b.Remaining(), nil
}

func (s *MemBudgetStore) Debit(_ context.Context, campaignID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[campaignID]
	if !ok {
		return &errs.BudgetExceeded{CampaignID: campaignID}
	}
	if b.Remaining().LessThan(amount) {
		return &errs.BudgetExceeded{CampaignID: campaignID}
	}
	b.Spent = b.Spent.Add(amount)
	return nil
}

func (s *MemBudgetStore) Reserve(_ context.Context, campaignID string, amount decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[campaignID]
	if !ok || b.Remaining().LessThan(amount) {
		return "", &errs.BudgetExceeded{CampaignID: campaignID}
	}
	b.Spent = b.Spent.Add(amount) // reserved amount counts against remaining immediately
	s.nextResID++
	id := campaignID + "#" + decimal.NewFromInt(int64(s.nextResID)).String()
	s.reservations[id] = reservation{campaignID: campaignID, amount: amount}
	return id, nil
}

func (s *MemBudgetStore) Commit(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, reservationID)
	return nil
}

func (s *MemBudgetStore) Release(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[reservationID]
	if !ok {
		return nil
	}
	if b, ok := s.budgets[res.campaignID]; ok {
		b.Spent = b.Spent.Sub(res.amount)
	}
	delete(s.reservations, reservationID)
	return nil
}

// Budget wraps a Requester with per-campaign spend accounting. The
// default mode debits Spent only after the wrapped Requester succeeds
// (post-success debit); NewBudgetTwoPhase instead reserves before
// dispatch and commits or releases afterward. Store errors fail closed:
// a budget check that cannot be answered refuses the request, to avoid
// over-spend.
type Budget[T any] struct {
	next       upstream.Requester[T]
	store      BudgetStore
	campaignID string
	cost       decimal.Decimal
	twoPhase   bool
}

// NewBudget wraps next with post-success budget debiting.
func NewBudget[T any](next upstream.Requester[T], store BudgetStore, campaignID string, cost decimal.Decimal) *Budget[T] {
	return &Budget[T]{next: next, store: store, campaignID: campaignID, cost: cost}
}

// NewBudgetTwoPhase wraps next with reserve-before-dispatch,
// commit-on-success/release-on-failure budget accounting.
func NewBudgetTwoPhase[T any](next upstream.Requester[T], store BudgetStore, campaignID string, cost decimal.Decimal) *Budget[T] {
	return &Budget[T]{next: next, store: store, campaignID: campaignID, cost: cost, twoPhase: true}
}

func (b *Budget[T]) Request(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	var zero T

	if b.twoPhase {
		resID, err := b.store.Reserve(ctx, b.campaignID, b.cost)
		if err != nil {
			return zero, err
		}
		out, reqErr := b.next.Request(ctx, endpoint, params, headers, payload, timeout)
		if reqErr != nil {
			_ = b.store.Release(ctx, resID)
			return zero, reqErr
		}
		if err := b.store.Commit(ctx, resID); err != nil {
			return zero, err
		}
		return out, nil
	}

	remaining, err := b.store.Remaining(ctx, b.campaignID)
	if err != nil {
		return zero, err
	}
	if remaining.LessThan(b.cost) {
		return zero, &errs.BudgetExceeded{CampaignID: b.campaignID}
	}

	out, err := b.next.Request(ctx, endpoint, params, headers, payload, timeout)
	if err != nil {
		return zero, err
	}

	if err := b.store.Debit(ctx, b.campaignID, b.cost); err != nil {
		return zero, err
	}
	return out, nil
}

func (b *Budget[T]) HealthCheck(ctx context.Context) bool { return b.next.HealthCheck(ctx) }
func (b *Budget[T]) Close() error                         { return b.next.Close() }
