package notification

import (
	"context"

	"github.com/nestorcamelo12/hospitales/pkg/pagination"
)

// Service is the recipient-facing side: listing and read marking.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Inbox is one page of a user's notifications plus the unread total.
type Inbox struct {
	Items       []*Notification
	Total       int
	UnreadCount int
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, p pagination.Params) (*Inbox, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, p.Limit(), p.Offset())
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Notification{}
	}
	return &Inbox{Items: items, Total: total, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
