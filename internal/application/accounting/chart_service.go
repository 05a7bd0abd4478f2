package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AccountCache is a read-mostly copy of a tenant's chart of accounts used
// when rendering reports. Posting never reads it.
type AccountCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) ([]*accounting.Account, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, accounts []*accounting.Account) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// CreateAccountInput holds the data of a new account
type CreateAccountInput struct {
	TenantID  uuid.UUID
	Code      string
	Name      string
	Type      accounting.AccountType
	CreatedBy uuid.UUID
}

// UpdateAccountInput changes an account. Code and Type are only applied
// while no posted line references the account.
type UpdateAccountInput struct {
	TenantID  uuid.UUID
	AccountID uuid.UUID
	Name      *string
	Code      *string
	Type      *accounting.AccountType
}

// ChartService administers the chart of accounts and system mappings
type ChartService struct {
	scope  uow.TransactionScope
	reads  uow.Repositories
	cache  AccountCache
	logger *zap.Logger
}

// NewChartService creates a ChartService. cache may be nil.
func NewChartService(scope uow.TransactionScope, reads uow.Repositories, cache AccountCache, logger *zap.Logger) *ChartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartService{scope: scope, reads: reads, cache: cache, logger: logger}
}

// CreateAccount adds an account with a tenant-unique code
func (s *ChartService) CreateAccount(ctx context.Context, in CreateAccountInput) (*accounting.Account, error) {
	account, err := accounting.NewAccount(in.TenantID, in.Code, in.Name, in.Type)
	if err != nil {
		return nil, err
	}
	account.SetCreatedBy(in.CreatedBy)

	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if err := s.ensureCodeFree(ctx, repos, in.TenantID, account.Code, uuid.Nil); err != nil {
			return err
		}
		return repos.Accounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.TenantID)
	s.logger.Info("Account created", zap.String("code", account.Code), zap.String("type", account.Type.String()))
	return account, nil
}

// UpdateAccount renames or reclassifies an account
func (s *ChartService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*accounting.Account, error) {
	var account *accounting.Account
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		account, err = repos.Accounts().FindByID(ctx, in.TenantID, in.AccountID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			if err := account.Rename(*in.Name); err != nil {
				return err
			}
		}
		if in.Code != nil || in.Type != nil {
			code, typ := account.Code, account.Type
			if in.Code != nil {
				code = *in.Code
			}
			if in.Type != nil {
				typ = *in.Type
			}
			if code != account.Code || typ != account.Type {
				referenced, err := repos.Accounts().IsReferenced(ctx, in.TenantID, account.ID)
				if err != nil {
					return err
				}
				if err := account.Reclassify(code, typ, referenced); err != nil {
					return err
				}
				if err := s.ensureCodeFree(ctx, repos, in.TenantID, account.Code, account.ID); err != nil {
					return err
				}
			}
		}
		return repos.Accounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.TenantID)
	return account, nil
}

// SetAccountActive activates or deactivates an account. Accounts mapped
// to a system key cannot be deactivated.
func (s *ChartService) SetAccountActive(ctx context.Context, tenantID, accountID uuid.UUID, active bool) (*accounting.Account, error) {
	var account *accounting.Account
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		account, err = repos.Accounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if active {
			account.Activate()
			return repos.Accounts().Save(ctx, account)
		}
		mappings, err := repos.Mappings().FindAll(ctx, tenantID)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			if m.AccountID == account.ID {
				return shared.NewDomainError(shared.CodeInvalidState,
					fmt.Sprintf("Account is mapped to %s and cannot be deactivated", m.Key))
			}
		}
		account.Deactivate()
		return repos.Accounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)
	return account, nil
}

// MapSystemAccount points key at accountID, creating or repointing the
// tenant's single mapping for that key.
func (s *ChartService) MapSystemAccount(ctx context.Context, tenantID uuid.UUID, key accounting.SystemAccountKey, accountID, by uuid.UUID) (*accounting.SystemAccountMapping, error) {
	if !key.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown system account key")
	}
	var mapping *accounting.SystemAccountMapping
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		account, err := repos.Accounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		mapping, err = repos.Mappings().FindByKey(ctx, tenantID, key)
		switch {
		case err == nil:
			if err := mapping.Repoint(account, by); err != nil {
				return err
			}
		case errors.Is(err, shared.ErrNotFound):
			mapping, err = accounting.NewSystemAccountMapping(tenantID, key, account)
			if err != nil {
				return err
			}
			if by != uuid.Nil {
				mapping.UpdatedBy = &by
			}
		default:
			return err
		}
		return repos.Mappings().Save(ctx, mapping)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("System account mapped", zap.String("key", key.String()), zap.String("account_id", accountID.String()))
	return mapping, nil
}

// GetAccount returns an account
func (s *ChartService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*accounting.Account, error) {
	return s.reads.Accounts().FindByID(ctx, tenantID, accountID)
}

// ListAccounts lists accounts matching filter
func (s *ChartService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter accounting.AccountFilter) (shared.Paginated[*accounting.Account], error) {
	filter.Filter = filter.Filter.Normalize()
	accounts, total, err := s.reads.Accounts().FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*accounting.Account]{}, err
	}
	return shared.NewPaginated(accounts, total, filter.Page, filter.PageSize), nil
}

// ListMappings lists the tenant's system account mappings
func (s *ChartService) ListMappings(ctx context.Context, tenantID uuid.UUID) ([]*accounting.SystemAccountMapping, error) {
	return s.reads.Mappings().FindAll(ctx, tenantID)
}

// Chart returns the whole chart of accounts, from the cache when warm
func (s *ChartService) Chart(ctx context.Context, tenantID uuid.UUID) ([]*accounting.Account, error) {
	if s.cache != nil {
		accounts, ok, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.logger.Warn("Account cache read failed", zap.Error(err))
		} else if ok {
			return accounts, nil
		}
	}

	var all []*accounting.Account
	filter := accounting.AccountFilter{Filter: shared.Filter{Page: 1, PageSize: 500, OrderBy: "code", OrderDir: "asc"}}
	for {
		page, total, err := s.reads.Accounts().FindAll(ctx, tenantID, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			break
		}
		filter.Page++
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, all); err != nil {
			s.logger.Warn("Account cache write failed", zap.Error(err))
		}
	}
	return all, nil
}

func (s *ChartService) ensureCodeFree(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, code string, self uuid.UUID) error {
	existing, err := repos.Accounts().FindByCode(ctx, tenantID, code)
	switch {
	case err == nil:
		if existing.ID != self {
			return shared.NewDomainError(shared.CodeConflict, fmt.Sprintf("Account code %s already exists", code))
		}
		return nil
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *ChartService) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("Account cache invalidation failed", zap.Error(err))
	}
}
