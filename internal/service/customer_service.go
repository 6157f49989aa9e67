package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/customer"
	"github.com/haifischbank/haifischbank-server/internal/pkg/crypto"
	"github.com/haifischbank/haifischbank-server/internal/pkg/jwt"
	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/metrics"
	"github.com/haifischbank/haifischbank-server/internal/repository"
)

type CustomerService interface {
	Register(req customer.RegisterRequest) (*customer.Customer, error)
	Login(req customer.LoginRequest) (*customer.LoginResponse, error)
	GetProfile(customerID string) (*customer.Customer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	jwtSvc       *jwt.JWTService
	ids          repository.IDGenerator
}

func NewCustomerService(customerRepo repository.CustomerRepository, jwtSvc *jwt.JWTService, ids repository.IDGenerator) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		jwtSvc:       jwtSvc,
		ids:          ids,
	}
}

func (s *customerService) Register(req customer.RegisterRequest) (*customer.Customer, error) {
	if existing, err := s.customerRepo.GetByEmail(req.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("email %s already registered: %w", req.Email, bankerr.ErrInvalidState)
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	c := &customer.Customer{
		ID:           s.ids.NextID("CU"),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Address:      req.Address,
		BirthDate:    req.BirthDate,
	}
	if err := s.customerRepo.Create(c); err != nil {
		return nil, err
	}

	logger.Info("customer registered", zap.String("customer", c.ID))
	return c, nil
}

func (s *customerService) Login(req customer.LoginRequest) (*customer.LoginResponse, error) {
	c, err := s.customerRepo.GetByEmail(req.Email)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, bankerr.ErrNotFound) {
			return nil, fmt.Errorf("login %s: %w", req.Email, bankerr.ErrInvalidCredentials)
		}
		return nil, err
	}

	if !crypto.CheckPassword(req.Password, c.PasswordHash) {
		metrics.RecordAuthAttempt(false)
		return nil, fmt.Errorf("login %s: %w", req.Email, bankerr.ErrInvalidCredentials)
	}

	token, expiresAt, err := s.jwtSvc.GenerateToken(c.ID, c.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	metrics.RecordAuthAttempt(true)
	return &customer.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Customer:  c,
	}, nil
}

func (s *customerService) GetProfile(customerID string) (*customer.Customer, error) {
	return s.customerRepo.GetByID(customerID)
}
