package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// Redeem request errors.
var (
	ErrRedeemNotFound  = errors.New("redeem request not found")
	ErrRedeemFinalized = errors.New("redeem request already decided")
	ErrInvalidStatus   = errors.New("invalid redeem status transition")
)

// RedeemRepository handles redeem request persistence.
type RedeemRepository struct {
	requests *collection[model.RedeemRequest]
	now      func() time.Time
}

// NewRedeemRepository creates a new RedeemRepository instance.
func NewRedeemRepository(store kv.Store) *RedeemRepository {
	return &RedeemRepository{
		requests: newCollection[model.RedeemRequest](store, KeyRedeemRequests),
		now:      time.Now,
	}
}

// List returns all requests in creation order.
func (r *RedeemRepository) List(ctx context.Context) ([]model.RedeemRequest, error) {
	reqs, err := r.requests.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list redeem requests: %w", err)
	}
	return reqs, nil
}

// ListByUser returns the user's requests in creation order.
func (r *RedeemRepository) ListByUser(ctx context.Context, userID string) ([]model.RedeemRequest, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.RedeemRequest
	for _, req := range all {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

// ListByStatus returns the requests with the given status in creation order.
func (r *RedeemRepository) ListByStatus(ctx context.Context, status model.RedeemStatus) ([]model.RedeemRequest, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.RedeemRequest
	for _, req := range all {
		if req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

// Get returns a request by id, or ErrRedeemNotFound.
func (r *RedeemRepository) Get(ctx context.Context, id string) (*model.RedeemRequest, error) {
	doc, _, err := r.requests.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redeem request: %w", err)
	}
	req, ok := doc.get(id)
	if !ok {
		return nil, ErrRedeemNotFound
	}
	return &req, nil
}

// Add appends a request. Missing id, timestamp and status are filled in;
// the status defaults to PENDING.
func (r *RedeemRepository) Add(ctx context.Context, req model.RedeemRequest) (*model.RedeemRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = r.now().UTC()
	}
	if req.Status == "" {
		req.Status = model.RedeemPending
	}

	err := r.requests.update(ctx, func(doc *document[model.RedeemRequest]) (bool, error) {
		doc.upsert(req.ID, req)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add redeem request: %w", err)
	}
	return &req, nil
}

// UpdateStatus moves a PENDING request to APPROVED or REJECTED. Only the
// matching record changes. An unknown id returns ErrRedeemNotFound and
// leaves storage untouched; a decided request returns ErrRedeemFinalized.
func (r *RedeemRepository) UpdateStatus(ctx context.Context, id string, status model.RedeemStatus) (*model.RedeemRequest, error) {
	if !status.IsTerminal() {
		return nil, ErrInvalidStatus
	}

	var updated model.RedeemRequest
	err := r.requests.update(ctx, func(doc *document[model.RedeemRequest]) (bool, error) {
		req, ok := doc.get(id)
		if !ok {
			return false, ErrRedeemNotFound
		}
		if req.Status.IsTerminal() {
			return false, ErrRedeemFinalized
		}
		decided := r.now().UTC()
		req.Status = status
		req.DecidedAt = &decided
		doc.upsert(id, req)
		updated = req
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrRedeemNotFound) || errors.Is(err, ErrRedeemFinalized) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update redeem request: %w", err)
	}
	return &updated, nil
}

// Reopen moves a request decided as from back to PENDING and clears its
// decision time. It undoes a decision whose balance change failed.
func (r *RedeemRepository) Reopen(ctx context.Context, id string, from model.RedeemStatus) (*model.RedeemRequest, error) {
	if !from.IsTerminal() {
		return nil, ErrInvalidStatus
	}

	var updated model.RedeemRequest
	err := r.requests.update(ctx, func(doc *document[model.RedeemRequest]) (bool, error) {
		req, ok := doc.get(id)
		if !ok {
			return false, ErrRedeemNotFound
		}
		if req.Status != from {
			return false, ErrInvalidStatus
		}
		req.Status = model.RedeemPending
		req.DecidedAt = nil
		doc.upsert(id, req)
		updated = req
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrRedeemNotFound) || errors.Is(err, ErrInvalidStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reopen redeem request: %w", err)
	}
	return &updated, nil
}
