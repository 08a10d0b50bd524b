package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/sirupsen/logrus"
)

// ============================================
// Ledger
// ============================================

type AdjustInput struct {
	FamilyID    string
	MemberEmail string
	Delta       int
	Reason      types.PointReason
	GrantedBy   string
	Description string
	TaskRef     *string
	RedeemRef   *string
}

type AdjustResult struct {
	FamilyID string
	Wallet   *repository.Wallet
	Entry    *repository.PointHistoryEntry
}

// ledger applies point deltas. adjustTx must run inside the caller's
// transaction; committed must be called once that transaction commits.
type ledger struct {
	store    repository.Store
	rankings *rankingCache
	events   EventPublisher
	metrics  *metrics.Metrics
	log      *logrus.Entry
	clock    func() time.Time
}

func newLedger(deps *ServiceDeps) *ledger {
	return &ledger{
		store:    deps.Store,
		rankings: deps.rankings,
		events:   deps.Events,
		metrics:  deps.Metrics,
		log:      deps.Logger.Component("Ledger"),
		clock:    deps.Clock,
	}
}

func (l *ledger) adjustTx(ctx context.Context, repos *repository.Repositories, in AdjustInput) (*AdjustResult, error) {
	if !in.Reason.IsValid() {
		return nil, validationf("Unknown point reason %q", in.Reason)
	}
	if in.MemberEmail == "" || in.FamilyID == "" {
		return nil, validationf("A wallet owner is required")
	}

	wallet, err := repos.WalletRepo.LockByEmail(ctx, in.MemberEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet for %s vanished inside transaction", in.MemberEmail)
	}

	newTotal := wallet.TotalPoints + in.Delta
	if newTotal < 0 {
		newTotal = 0
	}
	applied := newTotal - wallet.TotalPoints
	at := l.clock().UTC()

	if err := repos.WalletRepo.UpdateTotal(ctx, wallet.ID, newTotal, at); err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}

	entry := &repository.PointHistoryEntry{
		WalletID:        wallet.ID,
		MemberEmail:     wallet.MemberEmail,
		FamilyID:        in.FamilyID,
		Points:          applied,
		RequestedPoints: in.Delta,
		Reason:          in.Reason,
		TaskRef:         in.TaskRef,
		RedeemRef:       in.RedeemRef,
		GrantedBy:       in.GrantedBy,
		Description:     in.Description,
	}
	if err := repos.HistoryRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write point history: %w", err)
	}

	wallet.TotalPoints = newTotal
	wallet.LastUpdated = at
	return &AdjustResult{FamilyID: in.FamilyID, Wallet: wallet, Entry: entry}, nil
}

// committed runs the side effects of adjustments that are now durable.
func (l *ledger) committed(ctx context.Context, results ...*AdjustResult) {
	invalidated := map[string]bool{}
	for _, res := range results {
		if res == nil {
			continue
		}
		l.metrics.ObserveAdjustment(string(res.Entry.Reason), res.Entry.RequestedPoints, res.Entry.Points)
		l.log.WithFields(logrus.Fields{
			"member":    res.Wallet.MemberEmail,
			"reason":    res.Entry.Reason,
			"requested": res.Entry.RequestedPoints,
			"applied":   res.Entry.Points,
			"total":     res.Wallet.TotalPoints,
		}).Info("points adjusted")

		if !invalidated[res.FamilyID] {
			invalidated[res.FamilyID] = true
			l.rankings.invalidate(ctx, res.FamilyID)
		}
		l.events.PublishToFamily(res.FamilyID, "points_updated", map[string]interface{}{
			"member_email": res.Wallet.MemberEmail,
			"total_points": res.Wallet.TotalPoints,
			"points":       res.Entry.Points,
			"reason":       res.Entry.Reason,
		})
	}
}

// Adjust applies one delta in its own transaction.
func (l *ledger) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	var res *AdjustResult
	err := l.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		res, err = l.adjustTx(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.committed(ctx, res)
	return res, nil
}

// ============================================
// Wallet Service
// ============================================

type ManualAdjustInput struct {
	MemberEmail string
	Points      int
	Description string
}

type InitializeResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}

type RankingEntry struct {
	MemberID    string `json:"member_id"`
	Username    string `json:"username"`
	Email       string `json:"mail"`
	MemberType  string `json:"member_type"`
	TotalPoints int    `json:"total_points"`
	Rank        int    `json:"rank"`
}

type ReconcileEntry struct {
	MemberEmail string `json:"member_email"`
	WalletID    string `json:"wallet_id"`
	TotalPoints int    `json:"total_points"`
	HistorySum  int    `json:"history_sum"`
	Balanced    bool   `json:"balanced"`
}

type WalletService interface {
	Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error)
	GetMyWallet(ctx context.Context, actor Actor) (*repository.Wallet, error)
	GetMemberWallet(ctx context.Context, actor Actor, email string) (*repository.Wallet, error)
	ManualAdjust(ctx context.Context, actor Actor, in ManualAdjustInput) (*AdjustResult, error)
	InitializeWallets(ctx context.Context, actor Actor) (*InitializeResult, error)
	MyHistory(ctx context.Context, actor Actor) ([]*repository.PointHistoryEntry, error)
	MemberHistory(ctx context.Context, actor Actor, email string) ([]*repository.PointHistoryEntry, error)
	FamilyHistory(ctx context.Context, actor Actor) ([]*repository.PointHistoryEntry, error)
	Ranking(ctx context.Context, actor Actor) ([]RankingEntry, error)
	ReconcileFamily(ctx context.Context, actor Actor) ([]ReconcileEntry, error)
	Reconcile(ctx context.Context, familyID string) ([]ReconcileEntry, error)
}

type walletService struct {
	store    repository.Store
	ledger   *ledger
	rankings *rankingCache
	log      *logrus.Entry
}

func NewWalletService(deps *ServiceDeps, l *ledger) WalletService {
	return &walletService{
		store:    deps.Store,
		ledger:   l,
		rankings: l.rankings,
		log:      deps.Logger.Component("Wallet"),
	}
}

func (s *walletService) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	return s.ledger.Adjust(ctx, in)
}

func (s *walletService) GetMyWallet(ctx context.Context, actor Actor) (*repository.Wallet, error) {
	return s.store.Repos().WalletRepo.GetOrCreate(ctx, actor.Email)
}

func (s *walletService) GetMemberWallet(ctx context.Context, actor Actor, email string) (*repository.Wallet, error) {
	repos := s.store.Repos()
	member, err := memberInFamily(ctx, repos, actor.FamilyID, email)
	if err != nil {
		return nil, err
	}
	return repos.WalletRepo.GetOrCreate(ctx, member.Email)
}

func (s *walletService) ManualAdjust(ctx context.Context, actor Actor, in ManualAdjustInput) (*AdjustResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	if in.Points == 0 {
		return nil, validationf("Points amount must not be zero")
	}
	if in.Description == "" {
		return nil, validationf("Please provide a description for the adjustment")
	}
	member, err := memberInFamily(ctx, s.store.Repos(), actor.FamilyID, in.MemberEmail)
	if err != nil {
		return nil, err
	}

	reason := types.ReasonAdjustment
	if in.Points > 0 {
		reason = types.ReasonManualGrant
	}
	return s.ledger.Adjust(ctx, AdjustInput{
		FamilyID:    actor.FamilyID,
		MemberEmail: member.Email,
		Delta:       in.Points,
		Reason:      reason,
		GrantedBy:   actor.Email,
		Description: in.Description,
	})
}

func (s *walletService) InitializeWallets(ctx context.Context, actor Actor) (*InitializeResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	result := &InitializeResult{Created: []string{}, Existing: []string{}}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		members, err := repos.MemberRepo.FindByFamily(ctx, actor.FamilyID)
		if err != nil {
			return err
		}
		for _, m := range members {
			existing, err := repos.WalletRepo.FindByEmail(ctx, m.Email)
			if err != nil {
				return err
			}
			if existing != nil {
				result.Existing = append(result.Existing, m.Email)
				continue
			}
			if _, err := repos.WalletRepo.GetOrCreate(ctx, m.Email); err != nil {
				return err
			}
			result.Created = append(result.Created, m.Email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Created) > 0 {
		s.rankings.invalidate(ctx, actor.FamilyID)
	}
	return result, nil
}

func (s *walletService) MyHistory(ctx context.Context, actor Actor) ([]*repository.PointHistoryEntry, error) {
	return s.store.Repos().HistoryRepo.ListByEmail(ctx, actor.Email)
}

func (s *walletService) MemberHistory(ctx context.Context, actor Actor, email string) ([]*repository.PointHistoryEntry, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	member, err := memberInFamily(ctx, repos, actor.FamilyID, email)
	if err != nil {
		return nil, err
	}
	return repos.HistoryRepo.ListByEmail(ctx, member.Email)
}

func (s *walletService) FamilyHistory(ctx context.Context, actor Actor) ([]*repository.PointHistoryEntry, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	return s.store.Repos().HistoryRepo.ListByFamily(ctx, actor.FamilyID)
}

func (s *walletService) Ranking(ctx context.Context, actor Actor) ([]RankingEntry, error) {
	cached, gen, ok := s.rankings.get(ctx, actor.FamilyID)
	if ok {
		return cached, nil
	}

	repos := s.store.Repos()
	members, err := repos.MemberRepo.FindByFamily(ctx, actor.FamilyID)
	if err != nil {
		return nil, err
	}
	emails := make([]string, len(members))
	for i, m := range members {
		emails[i] = m.Email
	}
	wallets, err := repos.WalletRepo.FindByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	ranking := buildRanking(members, wallets)
	s.rankings.put(ctx, actor.FamilyID, gen, ranking)
	return ranking, nil
}

// buildRanking sorts by points descending, then member id, and numbers
// the result 1..N without collapsing ties.
func buildRanking(members []*repository.Member, wallets []*repository.Wallet) []RankingEntry {
	totals := make(map[string]int, len(wallets))
	for _, w := range wallets {
		totals[w.MemberEmail] = w.TotalPoints
	}

	ranking := make([]RankingEntry, 0, len(members))
	for _, m := range members {
		ranking = append(ranking, RankingEntry{
			MemberID:    m.ID,
			Username:    m.Username,
			Email:       m.Email,
			MemberType:  m.TypeName,
			TotalPoints: totals[normalizeEmail(m.Email)],
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].TotalPoints != ranking[j].TotalPoints {
			return ranking[i].TotalPoints > ranking[j].TotalPoints
		}
		return ranking[i].MemberID < ranking[j].MemberID
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking
}

func (s *walletService) ReconcileFamily(ctx context.Context, actor Actor) ([]ReconcileEntry, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, actor.FamilyID)
}

func (s *walletService) Reconcile(ctx context.Context, familyID string) ([]ReconcileEntry, error) {
	repos := s.store.Repos()
	members, err := repos.MemberRepo.FindByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}

	report := make([]ReconcileEntry, 0, len(members))
	for _, m := range members {
		w, err := repos.WalletRepo.FindByEmail(ctx, m.Email)
		if err != nil {
			return nil, err
		}
		if w == nil {
			continue
		}
		sum, err := repos.HistoryRepo.SumByWallet(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		entry := ReconcileEntry{
			MemberEmail: w.MemberEmail,
			WalletID:    w.ID,
			TotalPoints: w.TotalPoints,
			HistorySum:  sum,
			Balanced:    sum == w.TotalPoints,
		}
		if !entry.Balanced {
			s.log.WithFields(logrus.Fields{
				"member":      w.MemberEmail,
				"total":       w.TotalPoints,
				"history_sum": sum,
			}).Warn("wallet does not match its history")
		}
		report = append(report, entry)
	}
	return report, nil
}
