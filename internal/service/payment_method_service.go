package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"food-kart/internal/model"
	"food-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)

// paymentMethodService implements PaymentMethodService.
type paymentMethodService struct {
	repo   repository.PaymentMethodRepository
	logger zerolog.Logger
}

// NewPaymentMethodService creates a new payment method service.
func NewPaymentMethodService(repo repository.PaymentMethodRepository, logger zerolog.Logger) PaymentMethodService {
	return &paymentMethodService{
		repo:   repo,
		logger: logger.With().Str("service", "payment_method").Logger(),
	}
}

func (s *paymentMethodService) List(ctx context.Context, identity model.Identity) ([]model.PaymentMethod, error) {
	methods, err := s.repo.ListByUser(ctx, identity.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", identity.UserID.String()).Msg("failed to list payment methods")
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

func (s *paymentMethodService) Get(ctx context.Context, identity model.Identity, id uuid.UUID) (*model.PaymentMethod, error) {
	pm, err := s.repo.GetByID(ctx, identity.UserID, id)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_method_id", id.String()).Msg("failed to get payment method")
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	if pm == nil {
		return nil, model.ErrPaymentNotFound
	}
	return pm, nil
}

// Create stores a new card reference. The first method of a user is always
// main; a new main method demotes the previous one in the same transaction.
func (s *paymentMethodService) Create(ctx context.Context, identity model.Identity, req *model.PaymentMethodRequest) (*model.PaymentMethod, error) {
	if req == nil {
		return nil, model.InvalidRequest("payment method request is required")
	}

	last4, err := cardLast4(req.CardNumber)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.NameOnCard) == "" {
		return nil, model.InvalidRequest("name_on_card is required")
	}
	if !expiryPattern.MatchString(req.Expiry) {
		return nil, model.InvalidRequest("expiry must be MM/YY")
	}

	pm := &model.PaymentMethod{
		ID:         uuid.New(),
		UserID:     identity.UserID,
		NameOnCard: strings.TrimSpace(req.NameOnCard),
		CardLast4:  last4,
		Expiry:     req.Expiry,
		Alias:      req.Alias,
		Provider:   req.Provider,
		IsMain:     req.IsMain,
	}

	err = inTx(ctx, s.repo.BeginTx, s.logger, func(tx pgx.Tx) error {
		count, err := s.repo.CountByUser(ctx, tx, identity.UserID)
		if err != nil {
			return err
		}
		if count == 0 {
			pm.IsMain = true
		}
		if pm.IsMain {
			if err := s.repo.DemoteOthers(ctx, tx, identity.UserID, pm.ID); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, tx, pm)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", identity.UserID.String()).Msg("failed to create payment method")
		return nil, err
	}

	s.logger.Info().
		Str("payment_method_id", pm.ID.String()).
		Bool("is_main", pm.IsMain).
		Msg("payment method created")

	return pm, nil
}

func (s *paymentMethodService) Update(ctx context.Context, identity model.Identity, id uuid.UUID, patch model.PaymentMethodPatch) (*model.PaymentMethod, error) {
	if patch.NameOnCard != nil && strings.TrimSpace(*patch.NameOnCard) == "" {
		return nil, model.InvalidRequest("name_on_card must not be empty")
	}
	if patch.Expiry != nil && !expiryPattern.MatchString(*patch.Expiry) {
		return nil, model.InvalidRequest("expiry must be MM/YY")
	}

	var pm *model.PaymentMethod
	err := inTx(ctx, s.repo.BeginTx, s.logger, func(tx pgx.Tx) error {
		var err error
		pm, err = s.repo.GetForUpdate(ctx, tx, identity.UserID, id)
		if err != nil {
			return err
		}
		if pm == nil {
			return model.ErrPaymentNotFound
		}

		patch.Apply(pm)
		if pm.IsMain {
			if err := s.repo.DemoteOthers(ctx, tx, identity.UserID, pm.ID); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, tx, pm)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_method_id", id.String()).Msg("failed to update payment method")
		return nil, err
	}

	return pm, nil
}

func (s *paymentMethodService) Delete(ctx context.Context, identity model.Identity, id uuid.UUID) error {
	return inTx(ctx, s.repo.BeginTx, s.logger, func(tx pgx.Tx) error {
		deleted, err := s.repo.Delete(ctx, tx, identity.UserID, id)
		if err != nil {
			return err
		}
		if !deleted {
			return model.ErrPaymentNotFound
		}
		s.logger.Info().Str("payment_method_id", id.String()).Msg("payment method deleted")
		return nil
	})
}

// cardLast4 validates a card number and returns its last four digits.
// Spaces and dashes are ignored.
func cardLast4(number string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '-':
			return -1
		case r >= '0' && r <= '9':
			return r
		default:
			return 'x'
		}
	}, number)

	if strings.ContainsRune(digits, 'x') || len(digits) < 12 || len(digits) > 19 {
		return "", model.InvalidRequest("card_number must be 12 to 19 digits")
	}
	return digits[len(digits)-4:], nil
}
