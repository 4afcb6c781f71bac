// Package memory implements the domain ledger interfaces in process memory.
// It mirrors the transactional contract of the PostgreSQL ledger under a
// single lock, and backs both the unit tests and the sandbox run mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// Ledger is an in-memory domain.Ledger. A write transaction holds the write
// lock for its whole duration, which trivially serializes operations; reads
// outside a transaction take the read lock.
type Ledger struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	markets      map[string]domain.Market
	positions    map[string]domain.Position
	quests       map[string]domain.Quest
	achievements map[string]map[domain.AchievementType]time.Time
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		users:        make(map[string]domain.User),
		markets:      make(map[string]domain.Market),
		positions:    make(map[string]domain.Position),
		quests:       make(map[string]domain.Quest),
		achievements: make(map[string]map[domain.AchievementType]time.Time),
	}
}

func (l *Ledger) Users() domain.UserStore               { return (*userStore)(l) }
func (l *Ledger) Markets() domain.MarketStore           { return (*marketStore)(l) }
func (l *Ledger) Positions() domain.PositionStore       { return (*positionStore)(l) }
func (l *Ledger) Quests() domain.QuestStore             { return (*questStore)(l) }
func (l *Ledger) Achievements() domain.AchievementStore { return (*achievementStore)(l) }

// WithTx runs fn under the write lock with an overlay of staged writes.
// A fn error discards the overlay; success applies it atomically.
func (l *Ledger) WithTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := &tx{
		l:         l,
		users:     make(map[string]domain.User),
		markets:   make(map[string]domain.Market),
		positions: make(map[string]domain.Position),
		quests:    make(map[string]domain.Quest),
	}
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// tx stages writes until commit. Reads see staged writes first.
type tx struct {
	l         *Ledger
	users     map[string]domain.User
	markets   map[string]domain.Market
	positions map[string]domain.Position
	quests    map[string]domain.Quest
	earned    []domain.Achievement
}

func (t *tx) commit() {
	for k, v := range t.users {
		t.l.users[k] = v
	}
	for k, v := range t.markets {
		t.l.markets[k] = v
	}
	for k, v := range t.positions {
		t.l.positions[k] = v
	}
	for k, v := range t.quests {
		t.l.quests[k] = v
	}
	for _, a := range t.earned {
		set := t.l.achievements[a.Address]
		if set == nil {
			set = make(map[domain.AchievementType]time.Time)
			t.l.achievements[a.Address] = set
		}
		set[a.Type] = a.EarnedAt
	}
}

func (t *tx) GetUserForUpdate(_ context.Context, address string) (domain.User, error) {
	if u, ok := t.users[address]; ok {
		return u, nil
	}
	if u, ok := t.l.users[address]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrNotFound
}

func (t *tx) CreateUser(ctx context.Context, u domain.User) error {
	if _, err := t.GetUserForUpdate(ctx, u.Address); err == nil {
		return domain.ErrAlreadyExists
	}
	t.users[u.Address] = u
	return nil
}

func (t *tx) PutUser(_ context.Context, u domain.User) error {
	t.users[u.Address] = u
	return nil
}

func (t *tx) GetMarketForUpdate(_ context.Context, id string) (domain.Market, error) {
	if m, ok := t.markets[id]; ok {
		return m, nil
	}
	if m, ok := t.l.markets[id]; ok {
		return m, nil
	}
	return domain.Market{}, domain.ErrNotFound
}

func (t *tx) CreateMarket(ctx context.Context, m domain.Market) error {
	if _, err := t.GetMarketForUpdate(ctx, m.ID); err == nil {
		return domain.ErrAlreadyExists
	}
	t.markets[m.ID] = m
	return nil
}

func (t *tx) PutMarket(_ context.Context, m domain.Market) error {
	t.markets[m.ID] = m
	return nil
}

func (t *tx) FindOpenMarketByQuestion(_ context.Context, question string, now time.Time) (domain.Market, error) {
	var best domain.Market
	found := false
	consider := func(m domain.Market) {
		if m.Question != question || !m.Open(now) {
			return
		}
		if !found || m.CreatedAt.After(best.CreatedAt) {
			best, found = m, true
		}
	}
	for _, m := range t.l.markets {
		if _, staged := t.markets[m.ID]; staged {
			continue
		}
		consider(m)
	}
	for _, m := range t.markets {
		consider(m)
	}
	if !found {
		return domain.Market{}, domain.ErrNotFound
	}
	return best, nil
}

func (t *tx) GetPositionForUpdate(_ context.Context, id string) (domain.Position, error) {
	if p, ok := t.positions[id]; ok {
		return p, nil
	}
	if p, ok := t.l.positions[id]; ok {
		return p, nil
	}
	return domain.Position{}, domain.ErrNotFound
}

func (t *tx) CreatePosition(ctx context.Context, p domain.Position) error {
	if _, err := t.GetPositionForUpdate(ctx, p.ID); err == nil {
		return domain.ErrAlreadyExists
	}
	t.positions[p.ID] = p
	return nil
}

func (t *tx) PutPosition(_ context.Context, p domain.Position) error {
	t.positions[p.ID] = p
	return nil
}

func (t *tx) ListRecentClaimed(_ context.Context, address string, limit int) ([]domain.Position, error) {
	merged := make(map[string]domain.Position)
	for id, p := range t.l.positions {
		merged[id] = p
	}
	for id, p := range t.positions {
		merged[id] = p
	}

	var out []domain.Position
	for _, p := range merged {
		if p.Address == address && p.Claimed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ClaimedAt.After(*out[j].ClaimedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) GetQuestForUpdate(_ context.Context, id string) (domain.Quest, error) {
	if q, ok := t.quests[id]; ok {
		return q, nil
	}
	if q, ok := t.l.quests[id]; ok {
		return q, nil
	}
	return domain.Quest{}, domain.ErrNotFound
}

func (t *tx) CreateQuest(ctx context.Context, q domain.Quest) error {
	if _, err := t.GetQuestForUpdate(ctx, q.ID); err == nil {
		return domain.ErrAlreadyExists
	}
	t.quests[q.ID] = q
	return nil
}

func (t *tx) PutQuest(_ context.Context, q domain.Quest) error {
	t.quests[q.ID] = q
	return nil
}

func (t *tx) ListOpenQuestsByMarket(_ context.Context, address, marketID string) ([]domain.Quest, error) {
	merged := make(map[string]domain.Quest)
	for id, q := range t.l.quests {
		merged[id] = q
	}
	for id, q := range t.quests {
		merged[id] = q
	}

	var out []domain.Quest
	for _, q := range merged {
		if q.Address == address && q.Accepted && !q.Completed &&
			q.MarketID != nil && *q.MarketID == marketID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) EarnAchievement(_ context.Context, a domain.Achievement) (bool, error) {
	if set, ok := t.l.achievements[a.Address]; ok {
		if _, dup := set[a.Type]; dup {
			return false, nil
		}
	}
	for _, staged := range t.earned {
		if staged.Address == a.Address && staged.Type == a.Type {
			return false, nil
		}
	}
	t.earned = append(t.earned, a)
	return true, nil
}

func (t *tx) ListAchievements(_ context.Context, address string) ([]domain.Achievement, error) {
	var out []domain.Achievement
	for typ, at := range t.l.achievements[address] {
		out = append(out, domain.Achievement{Address: address, Type: typ, EarnedAt: at})
	}
	for _, staged := range t.earned {
		if staged.Address == address {
			out = append(out, staged)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// ---------------------------------------------------------------------------
// Read-only stores
// ---------------------------------------------------------------------------

type userStore Ledger

func (s *userStore) Get(_ context.Context, address string) (domain.User, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.users[address]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *userStore) ListForAccrual(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var due []domain.User
	for _, u := range l.users {
		if u.Principal.Sign() > 0 && !u.LastAccrualAt.After(cutoff) {
			due = append(due, u)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].LastAccrualAt.Before(due[j].LastAccrualAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]string, 0, len(due))
	for _, u := range due {
		out = append(out, u.Address)
	}
	return out, nil
}

func (s *userStore) Leaderboard(_ context.Context, q domain.LeaderboardQuery) ([]domain.User, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var out []domain.User
	for _, u := range l.users {
		if u.TotalBets < 10 || !u.ShowOnLeaderboard {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Address), search) &&
			!strings.Contains(strings.ToLower(u.DisplayName), search) {
			continue
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Metric {
		case domain.MetricQuests:
			if a.CompletedQuests != b.CompletedQuests {
				return a.CompletedQuests > b.CompletedQuests
			}
		case domain.MetricWisdom:
			if a.WisdomIndex != b.WisdomIndex {
				return a.WisdomIndex > b.WisdomIndex
			}
		default:
			if a.Accuracy != b.Accuracy {
				return a.Accuracy > b.Accuracy
			}
		}
		return a.Address < b.Address
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type marketStore Ledger

func (s *marketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *marketStore) List(_ context.Context, f domain.MarketFilter, opts domain.ListOpts) ([]domain.Market, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now().UTC()
	search := strings.ToLower(f.Search)
	var out []domain.Market
	for _, m := range l.markets {
		if f.OpenOnly && !m.Open(now) {
			continue
		}
		if f.ResolvedOnly && !m.Resolved {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Question), search) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *marketStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Market, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Market
	for _, m := range l.markets {
		if !m.Resolved && !m.CloseTime.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CloseTime.Before(out[j].CloseTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *marketStore) Count(_ context.Context) (int64, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.markets)), nil
}

type positionStore Ledger

func (s *positionStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *positionStore) ListByMarket(_ context.Context, marketID string) ([]domain.Position, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Position
	for _, p := range l.positions {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out, nil
}

func (s *positionStore) ListByUser(_ context.Context, address string, opts domain.ListOpts) ([]domain.Position, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Position
	for _, p := range l.positions {
		if p.Address == address {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type questStore Ledger

func (s *questStore) GetByID(_ context.Context, id string) (domain.Quest, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.quests[id]
	if !ok {
		return domain.Quest{}, domain.ErrNotFound
	}
	return q, nil
}

func (s *questStore) ListByUser(_ context.Context, address string, opts domain.ListOpts) ([]domain.Quest, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Quest
	for _, q := range l.quests {
		if q.Address == address {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type achievementStore Ledger

func (s *achievementStore) ListByUser(_ context.Context, address string) ([]domain.Achievement, error) {
	l := (*Ledger)(s)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Achievement
	for typ, at := range l.achievements[address] {
		out = append(out, domain.Achievement{Address: address, Type: typ, EarnedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

var _ domain.Ledger = (*Ledger)(nil)
