package app

import (
	"context"
	"fmt"
	"log"

	"stockroom/internal/alert"
	"stockroom/internal/core"
	"stockroom/internal/notify"

	"golang.org/x/crypto/bcrypt"
)

type appService struct {
	changes   core.ChangeService
	inventory core.InventoryService
	users     core.UserService
	notifier  notify.Notifier
	checker   *alert.Checker

	defaultReorderPoint int
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	changes core.ChangeService,
	inventory core.InventoryService,
	users core.UserService,
	notifier notify.Notifier,
	checker *alert.Checker,
	defaultReorderPoint int,
) ApplicationService {
	return &appService{
		changes:             changes,
		inventory:           inventory,
		users:               users,
		notifier:            notifier,
		checker:             checker,
		defaultReorderPoint: defaultReorderPoint,
	}
}

// SubmitChange persists the pending change, then notifies reviewers.
// The ledger write is the primary path; the notification is fire-and-forget
// with respect to it — a delivery failure is logged and reported as a
// warning, never escalated to a failure of the submission.
func (s *appService) SubmitChange(ctx context.Context, req core.ChangeRequest) (*SubmitResult, error) {
	change, err := s.changes.SubmitChange(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Change: change}
	if err := s.notifier.Post(ctx, notify.BuildChangeMessage(change)); err != nil {
		log.Printf("change %s created but reviewer notification failed: %v", change.ID, err)
		result.NotifyWarning = fmt.Sprintf("change recorded, but reviewer notification failed: %v", err)
	}
	return result, nil
}

func (s *appService) DecideChange(ctx context.Context, changeID string, decision core.ChangeStatus, decidedBy string) (*ChangeResult, error) {
	change, err := s.changes.DecideChange(ctx, changeID, decision, decidedBy)
	if err != nil {
		return nil, err
	}
	return &ChangeResult{Change: change}, nil
}

func (s *appService) RejectBatch(ctx context.Context, batchID, decidedBy string) (*BatchResult, error) {
	count, err := s.changes.RejectBatch(ctx, batchID, decidedBy)
	if err != nil {
		return nil, err
	}
	return &BatchResult{BatchID: batchID, Rejected: count}, nil
}

func (s *appService) ListChanges(ctx context.Context, status *core.ChangeStatus) (*ChangeListResult, error) {
	changes, err := s.changes.ListChanges(ctx, status)
	if err != nil {
		return nil, err
	}
	return &ChangeListResult{Changes: changes}, nil
}

func (s *appService) GetChange(ctx context.Context, changeID string) (*ChangeResult, error) {
	change, err := s.changes.GetChange(ctx, changeID)
	if err != nil {
		return nil, err
	}
	return &ChangeResult{Change: change}, nil
}

func (s *appService) ListItems(ctx context.Context) (*ItemListResult, error) {
	items, err := s.inventory.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

func (s *appService) GetItem(ctx context.Context, partNumber string) (*ItemResult, error) {
	item, err := s.inventory.GetItem(ctx, partNumber)
	if err != nil {
		return nil, err
	}
	return &ItemResult{Item: item}, nil
}

func (s *appService) LowStockReport(ctx context.Context) (*LowStockResult, error) {
	items, err := s.inventory.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return &LowStockResult{
		DefaultReorderPoint: s.defaultReorderPoint,
		Items:               core.ComputeLowStock(items, s.defaultReorderPoint),
	}, nil
}

func (s *appService) RunLowStockCheck(ctx context.Context) (*AlertResult, error) {
	report, err := s.checker.Run(ctx)
	if err != nil {
		if report != nil {
			// The check itself succeeded; only delivery failed.
			log.Printf("low-stock check found %d item(s) but notification failed: %v", len(report.LowStock), err)
			return &AlertResult{
				Report:        report,
				NotifyWarning: fmt.Sprintf("low-stock check completed, but notification failed: %v", err),
			}, nil
		}
		return nil, err
	}
	return &AlertResult{Report: report}, nil
}

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return &UserSession{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{Username: user.Username, Email: user.Email, Role: user.Role}, nil
}
