package payment

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"atelier/pkg/logger"
)

// OmiseProvider charges cards through the Omise API.
type OmiseProvider struct {
	client *omise.Client
	log    *logger.Logger
}

func NewOmiseProvider(publicKey, secretKey string, log *logger.Logger) (*OmiseProvider, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	client.SetDebug(false)
	return &OmiseProvider{client: client, log: log}, nil
}

func (p *OmiseProvider) CreateCharge(ctx context.Context, in ChargeInput) (*ChargeResult, error) {
	charge := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:   in.Amount,
		Currency: in.Currency,
		Card:     in.CardToken,
		Metadata: map[string]any{"reference_id": in.ReferenceID},
	}
	if err := p.client.Do(charge, req); err != nil {
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}

	result := &ChargeResult{IntentID: charge.ID}
	switch string(charge.Status) {
	case "successful":
		result.Status = ChargeStatusPaid
	case "failed":
		result.Status = ChargeStatusFailed
		if charge.FailureCode != nil {
			result.FailureCode = *charge.FailureCode
		}
		if charge.FailureMessage != nil {
			result.FailureMessage = *charge.FailureMessage
		}
	default:
		// pending / awaiting_authorize resolve later via the gateway.
		result.Status = ChargeStatusPending
	}

	p.log.Info("Charge created",
		"intent_id", result.IntentID,
		"status", result.Status,
		"amount", in.Amount,
		"currency", in.Currency,
	)
	return result, nil
}

func (p *OmiseProvider) Refund(ctx context.Context, intentID string, amount int64) error {
	refund := &omise.Refund{}
	req := &operations.CreateRefund{
		ChargeID: intentID,
		Amount:   amount,
	}
	if err := p.client.Do(refund, req); err != nil {
		return fmt.Errorf("failed to refund charge %s: %w", intentID, err)
	}
	p.log.Info("Charge refunded", "intent_id", intentID, "refund_id", refund.ID, "amount", amount)
	return nil
}
