package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"knightboard/internal/model"
	"knightboard/internal/repository"

	"gorm.io/gorm"
)

// 测试替身：用内存结构模拟仓储层，条件扣减的语义和 SQL 条件更新一致
// （互斥锁内完成"检查 + 扣减"），用来验证账本契约在并发下的行为

type fakeTxRunner struct{}

func (fakeTxRunner) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

// ---------------------------------------------------------------------------

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
}

func newFakeAccountStore(accounts ...*model.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[int64]*model.Account)}
	for _, a := range accounts {
		copied := *a
		s.accounts[a.UserID] = &copied
	}
	return s
}

func (s *fakeAccountStore) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *fakeAccountStore) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	return s.GetByUserID(ctx, userID)
}

func (s *fakeAccountStore) Deduct(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if account.Balance < amount {
		return repository.ErrBalanceNotEnough
	}
	account.Balance -= amount
	return nil
}

func (s *fakeAccountStore) Increase(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.Balance += amount
	return nil
}

func (s *fakeAccountStore) balance(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[userID]; ok {
		return account.Balance
	}
	return 0
}

// ---------------------------------------------------------------------------

type fakeTransactionStore struct {
	mu           sync.Mutex
	transactions []*model.CoinTransaction
}

func (s *fakeTransactionStore) Create(ctx context.Context, tx *gorm.DB, trans *model.CoinTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *trans
	s.transactions = append(s.transactions, &copied)
	return nil
}

func (s *fakeTransactionStore) GetByRefNo(ctx context.Context, refNo string) (*model.CoinTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.RefNo == refNo {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeTransactionStore) byRef(refNo string) []*model.CoinTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.CoinTransaction
	for _, t := range s.transactions {
		if t.RefNo == refNo {
			result = append(result, t)
		}
	}
	return result
}

// ---------------------------------------------------------------------------

type fakeMissionStore struct {
	mu       sync.Mutex
	missions map[int64]*model.Mission
}

func newFakeMissionStore(missions ...*model.Mission) *fakeMissionStore {
	s := &fakeMissionStore{missions: make(map[int64]*model.Mission)}
	for _, m := range missions {
		copied := *m
		s.missions[m.ID] = &copied
	}
	return s
}

func (s *fakeMissionStore) Create(ctx context.Context, mission *model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mission.ID = int64(len(s.missions) + 1)
	copied := *mission
	s.missions[mission.ID] = &copied
	return nil
}

func (s *fakeMissionStore) GetByID(ctx context.Context, missionID int64) (*model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mission, ok := s.missions[missionID]
	if !ok {
		return nil, repository.ErrMissionNotFound
	}
	copied := *mission
	return &copied, nil
}

func (s *fakeMissionStore) List(ctx context.Context, page, pageSize int) ([]*model.Mission, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*model.Mission
	for _, m := range s.missions {
		copied := *m
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, int64(len(list)), nil
}

func (s *fakeMissionStore) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := int64(len(s.missions))
	s.missions = make(map[int64]*model.Mission)
	return count, nil
}

// ---------------------------------------------------------------------------

type fakeSubmissionStore struct {
	mu          sync.Mutex
	submissions []*model.Submission
}

func (s *fakeSubmissionStore) Create(ctx context.Context, tx *gorm.DB, submission *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission.ID = int64(len(s.submissions) + 1)
	copied := *submission
	s.submissions = append(s.submissions, &copied)
	return nil
}

func (s *fakeSubmissionStore) find(submissionNo string) *model.Submission {
	for _, sub := range s.submissions {
		if sub.SubmissionNo == submissionNo {
			return sub
		}
	}
	return nil
}

func (s *fakeSubmissionStore) GetByNo(ctx context.Context, submissionNo string) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission := s.find(submissionNo)
	if submission == nil {
		return nil, repository.ErrSubmissionNotFound
	}
	copied := *submission
	return &copied, nil
}

func (s *fakeSubmissionStore) Grade(ctx context.Context, tx *gorm.DB, submissionNo string, verdict string) error {
	if !model.IsValidVerdict(verdict) {
		return repository.ErrInvalidVerdict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	submission := s.find(submissionNo)
	if submission == nil {
		return repository.ErrSubmissionNotFound
	}
	if submission.Status != model.SubmissionStatusPending {
		return repository.ErrAlreadyGraded
	}
	submission.Status = verdict
	return nil
}

func (s *fakeSubmissionStore) ListByMission(ctx context.Context, missionID int64) ([]*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*model.Submission
	for i := len(s.submissions) - 1; i >= 0; i-- {
		if s.submissions[i].MissionID == missionID {
			copied := *s.submissions[i]
			list = append(list, &copied)
		}
	}
	return list, nil
}

func (s *fakeSubmissionStore) ListAll(ctx context.Context) ([]*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*model.Submission
	for i := len(s.submissions) - 1; i >= 0; i-- {
		copied := *s.submissions[i]
		list = append(list, &copied)
	}
	return list, nil
}

func (s *fakeSubmissionStore) LatestStatusByUser(ctx context.Context, userID int64, missionIDs []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[int64]bool, len(missionIDs))
	for _, id := range missionIDs {
		wanted[id] = true
	}
	statuses := make(map[int64]string)
	// 从最新的提交往回找，第一个命中的就是"当前状态"
	for i := len(s.submissions) - 1; i >= 0; i-- {
		sub := s.submissions[i]
		if sub.UserID != userID || !wanted[sub.MissionID] {
			continue
		}
		if _, ok := statuses[sub.MissionID]; !ok {
			statuses[sub.MissionID] = sub.Status
		}
	}
	return statuses, nil
}

func (s *fakeSubmissionStore) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := int64(len(s.submissions))
	s.submissions = nil
	return count, nil
}

// ---------------------------------------------------------------------------

type fakeOutboxStore struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func (s *fakeOutboxStore) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *fakeOutboxStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ---------------------------------------------------------------------------

type fakePurchaseStore struct {
	mu        sync.Mutex
	purchases []*model.Purchase
}

func (s *fakePurchaseStore) Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	purchase.ID = int64(len(s.purchases) + 1)
	copied := *purchase
	s.purchases = append(s.purchases, &copied)
	return nil
}

func (s *fakePurchaseStore) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Purchase, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*model.Purchase
	for i := len(s.purchases) - 1; i >= 0; i-- {
		if s.purchases[i].UserID == userID {
			copied := *s.purchases[i]
			list = append(list, &copied)
		}
	}
	return list, int64(len(list)), nil
}

func (s *fakePurchaseStore) CountByUserAndProduct(ctx context.Context, userID int64, productID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.purchases {
		if p.UserID == userID && p.ProductID == productID {
			count++
		}
	}
	return count, nil
}

// ---------------------------------------------------------------------------

type fakeLocker struct{}

func (fakeLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	return func() {}, nil
}
