package inventory

import (
	"context"
	"sort"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferService moves stock between two locations through a draft,
// in-transit, received lifecycle. Shipping posts TRANSFER_OUT at the source;
// receiving posts TRANSFER_IN at the destination costed at the shipped
// blended cost, so value is conserved across the move.
type TransferService struct {
	txScope        TransactionScope
	transferRepo   inventory.TransferRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(
	txScope TransactionScope,
	transferRepo inventory.TransferRepository,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		txScope:      txScope,
		transferRepo: transferRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TransferService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateTransfer opens a draft transfer with a generated document number
func (s *TransferService) CreateTransfer(ctx context.Context, tenantID uuid.UUID, req CreateTransferRequest) (*TransferResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	items := make([]inventory.TransferItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		if err := requirePositive("Item quantity", item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, inventory.TransferItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	var result *TransferResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.TransferRepo().NextTransferNumber(ctx, tenantID)
		if err != nil {
			return err
		}
		transfer, err := inventory.NewTransfer(tenantID, number, req.FromLocationID, req.ToLocationID, req.Note, items)
		if err != nil {
			return err
		}
		if err := repos.TransferRepo().Save(ctx, transfer); err != nil {
			return err
		}
		if req.ShipImmediately {
			if err := s.shipLocked(ctx, repos, tenantID, transfer); err != nil {
				return err
			}
		}
		result = transferResult(transfer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_number", result.TransferNumber),
		zap.String("status", string(result.Status)),
		zap.Int("items", len(result.Items)))
	return result, nil
}

// ShipTransfer posts TRANSFER_OUT for every item at the source location and
// moves the transfer to in-transit. The blended FIFO cost each item drew is
// captured on the item for the later inbound.
func (s *TransferService) ShipTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*TransferResult, error) {
	var result *TransferResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		transfer, err := repos.TransferRepo().FindByIDForUpdate(ctx, tenantID, transferID)
		if err != nil {
			return err
		}
		if err := s.shipLocked(ctx, repos, tenantID, transfer); err != nil {
			return err
		}
		result = transferResult(transfer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer shipped",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_number", result.TransferNumber))
	return result, nil
}

// shipLocked performs the ship step on a transfer row the caller already
// holds. Balance rows are locked in ascending product order so two
// concurrent transfers over the same products cannot deadlock.
func (s *TransferService) shipLocked(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, transfer *inventory.Transfer) error {
	if err := transfer.Ship(); err != nil {
		return err
	}

	for _, idx := range sortedItemOrder(transfer.Items) {
		item := &transfer.Items[idx]
		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
			ProductID:  item.ProductID,
			LocationID: transfer.FromLocationID,
		})
		if err != nil {
			return err
		}
		movement, _, err := postOutbound(ctx, repos, outboundPosting{
			TenantID:      tenantID,
			Balance:       balance,
			MovementType:  inventory.MovementTypeTransferOut,
			Quantity:      item.ShippedQuantity,
			ReferenceType: inventory.ReferenceTypeTransfer,
			ReferenceID:   transfer.TransferNumber,
		})
		if err != nil {
			return err
		}
		if err := transfer.SetItemShipCost(item.ID, movement.UnitCost); err != nil {
			return err
		}
	}

	if err := repos.TransferRepo().Save(ctx, transfer); err != nil {
		return err
	}
	s.publish(ctx, inventory.NewTransferShippedEvent(transfer))
	return nil
}

// ReceiveTransfer posts TRANSFER_IN at the destination for the received
// quantities and closes the transfer. Shortages stay on the transfer record;
// the missing quantity is posted nowhere.
func (s *TransferService) ReceiveTransfer(ctx context.Context, tenantID uuid.UUID, req ReceiveTransferRequest) (*TransferResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	receipts := make([]inventory.TransferReceipt, 0, len(req.Receipts))
	for _, r := range req.Receipts {
		receipts = append(receipts, inventory.TransferReceipt{
			ItemID:           r.ItemID,
			ReceivedQuantity: r.ReceivedQuantity,
			ShortageReason:   r.ShortageReason,
		})
	}

	var result *TransferResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		transfer, err := repos.TransferRepo().FindByIDForUpdate(ctx, tenantID, req.TransferID)
		if err != nil {
			return err
		}
		if err := transfer.Receive(receipts); err != nil {
			return err
		}

		for _, idx := range sortedItemOrder(transfer.Items) {
			item := &transfer.Items[idx]
			if !item.ReceivedQuantity.GreaterThan(decimal.Zero) {
				continue
			}
			balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
				ProductID:  item.ProductID,
				LocationID: transfer.ToLocationID,
			})
			if err != nil {
				return err
			}
			if _, err := postInbound(ctx, repos, inboundPosting{
				TenantID:      tenantID,
				Balance:       balance,
				MovementType:  inventory.MovementTypeTransferIn,
				Quantity:      item.ReceivedQuantity,
				UnitCost:      item.UnitCost,
				ReferenceType: inventory.ReferenceTypeTransfer,
				ReferenceID:   transfer.TransferNumber,
			}); err != nil {
				return err
			}
		}

		if err := repos.TransferRepo().Save(ctx, transfer); err != nil {
			return err
		}
		result = transferResult(transfer)
		s.publish(ctx, inventory.NewTransferReceivedEvent(transfer))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer received",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_number", result.TransferNumber))
	return result, nil
}

// CancelTransfer aborts a transfer. Cancelling an in-transit transfer posts
// the shipped quantities back to the source at their captured cost.
func (s *TransferService) CancelTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*TransferResult, error) {
	var result *TransferResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		transfer, err := repos.TransferRepo().FindByIDForUpdate(ctx, tenantID, transferID)
		if err != nil {
			return err
		}
		needsReturn, err := transfer.Cancel()
		if err != nil {
			return err
		}

		if needsReturn {
			for _, idx := range sortedItemOrder(transfer.Items) {
				item := &transfer.Items[idx]
				balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
					ProductID:  item.ProductID,
					LocationID: transfer.FromLocationID,
				})
				if err != nil {
					return err
				}
				if _, err := postInbound(ctx, repos, inboundPosting{
					TenantID:      tenantID,
					Balance:       balance,
					MovementType:  inventory.MovementTypeTransferIn,
					Quantity:      item.ShippedQuantity,
					UnitCost:      item.UnitCost,
					ReferenceType: inventory.ReferenceTypeTransfer,
					ReferenceID:   transfer.TransferNumber,
					Note:          "Returned by cancellation",
				}); err != nil {
					return err
				}
			}
		}

		if err := repos.TransferRepo().Save(ctx, transfer); err != nil {
			return err
		}
		result = transferResult(transfer)
		s.publish(ctx, inventory.NewTransferCancelledEvent(transfer, needsReturn))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_number", result.TransferNumber))
	return result, nil
}

// GetTransfer returns one transfer with its items
func (s *TransferService) GetTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*TransferResult, error) {
	transfer, err := s.transferRepo.FindByID(ctx, tenantID, transferID)
	if err != nil {
		return nil, err
	}
	return transferResult(transfer), nil
}

// ListTransfers lists transfers for a tenant with pagination
func (s *TransferService) ListTransfers(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*TransferResult], error) {
	page, err := s.transferRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*TransferResult]{}, err
	}
	results := make([]*TransferResult, 0, len(page.Items))
	for _, t := range page.Items {
		results = append(results, transferResult(t))
	}
	return shared.NewPaginated(results, page.Total, page.Page, page.PageSize), nil
}

// sortedItemOrder returns item indexes in ascending product order
func sortedItemOrder(items []inventory.TransferItem) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return items[order[a]].ProductID.String() < items[order[b]].ProductID.String()
	})
	return order
}

func (s *TransferService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
