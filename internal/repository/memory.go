package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/google/uuid"
)

// ============================================
// In-memory store (development and tests)
// ============================================

type memoryState struct {
	families      map[string]Family
	memberTypes   map[string]MemberType
	members       map[string]Member
	refreshTokens map[string]RefreshToken
	categories    map[string]Category
	tasks         map[string]Task
	assignments   map[string]TaskAssignment
	wallets       map[string]Wallet
	history       []PointHistoryEntry
	wishlists     map[string]Wishlist
	items         map[string]WishlistItem
	redeems       map[string]RedeemRequest
}

func newMemoryState() *memoryState {
	return &memoryState{
		families:      make(map[string]Family),
		memberTypes:   make(map[string]MemberType),
		members:       make(map[string]Member),
		refreshTokens: make(map[string]RefreshToken),
		categories:    make(map[string]Category),
		tasks:         make(map[string]Task),
		assignments:   make(map[string]TaskAssignment),
		wallets:       make(map[string]Wallet),
		wishlists:     make(map[string]Wishlist),
		items:         make(map[string]WishlistItem),
		redeems:       make(map[string]RedeemRequest),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Records are stored by value and replaced whole
// on write, so a shallow copy per map is a full snapshot.
func (s *memoryState) clone() *memoryState {
	return &memoryState{
		families:      cloneMap(s.families),
		memberTypes:   cloneMap(s.memberTypes),
		members:       cloneMap(s.members),
		refreshTokens: cloneMap(s.refreshTokens),
		categories:    cloneMap(s.categories),
		tasks:         cloneMap(s.tasks),
		assignments:   cloneMap(s.assignments),
		wallets:       cloneMap(s.wallets),
		history:       append([]PointHistoryEntry(nil), s.history...),
		wishlists:     cloneMap(s.wishlists),
		items:         cloneMap(s.items),
		redeems:       cloneMap(s.redeems),
	}
}

// memDB guards a state. mu is nil for transaction views, whose caller
// already holds the store lock.
type memDB struct {
	mu    *sync.Mutex
	state *memoryState
}

func (d *memDB) read(fn func(st *memoryState)) {
	if d.mu != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	fn(d.state)
}

func (d *memDB) write(fn func(st *memoryState) error) error {
	if d.mu != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	return fn(d.state)
}

// MemoryStore keeps everything in process. Transactions serialize on a
// single lock and run against a snapshot that replaces the live state on
// success.
type MemoryStore struct {
	mu    sync.Mutex
	root  *memDB
	repos *Repositories
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.root = &memDB{mu: &s.mu, state: newMemoryState()}
	s.repos = newMemoryRepositories(s.root)
	return s
}

func newMemoryRepositories(db *memDB) *Repositories {
	return &Repositories{
		FamilyRepo:     &memFamilyRepository{db: db},
		MemberTypeRepo: &memMemberTypeRepository{db: db},
		MemberRepo:     &memMemberRepository{db: db},
		CategoryRepo:   &memCategoryRepository{db: db},
		TaskRepo:       &memTaskRepository{db: db},
		AssignmentRepo: &memAssignmentRepository{db: db},
		WalletRepo:     &memWalletRepository{db: db},
		HistoryRepo:    &memPointHistoryRepository{db: db},
		WishlistRepo:   &memWishlistRepository{db: db},
		RedeemRepo:     &memRedeemRepository{db: db},
	}
}

func (s *MemoryStore) Repos() *Repositories {
	return s.repos
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.root.state.clone()
	if err := fn(ctx, newMemoryRepositories(&memDB{state: snapshot})); err != nil {
		return err
	}
	s.root.state = snapshot
	return nil
}

func (s *MemoryStore) Close() {}

func newID() string {
	return uuid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}

func ptrCopy[T any](v T) *T {
	return &v
}

// ============================================
// Families
// ============================================

type memFamilyRepository struct {
	db *memDB
}

func (r *memFamilyRepository) Create(ctx context.Context, family *Family) error {
	return r.db.write(func(st *memoryState) error {
		for _, f := range st.families {
			if strings.EqualFold(f.Email, family.Email) {
				return &UniqueViolationError{Constraint: "families_email_key", Field: "email"}
			}
		}
		family.ID = newID()
		family.CreatedAt = now()
		family.UpdatedAt = family.CreatedAt
		st.families[family.ID] = *family
		return nil
	})
}

func (r *memFamilyRepository) find(match func(f Family) bool) *Family {
	var found *Family
	r.db.read(func(st *memoryState) {
		for _, f := range st.families {
			if match(f) {
				found = ptrCopy(f)
				return
			}
		}
	})
	return found
}

func (r *memFamilyRepository) FindByID(ctx context.Context, id string) (*Family, error) {
	return r.find(func(f Family) bool { return f.ID == id }), nil
}

func (r *memFamilyRepository) FindByIDForUpdate(ctx context.Context, id string) (*Family, error) {
	return r.FindByID(ctx, id)
}

func (r *memFamilyRepository) FindByEmail(ctx context.Context, email string) (*Family, error) {
	return r.find(func(f Family) bool { return strings.EqualFold(f.Email, email) }), nil
}

func (r *memFamilyRepository) FindByResetTokenHash(ctx context.Context, hash string) (*Family, error) {
	return r.find(func(f Family) bool { return f.ResetTokenHash != nil && *f.ResetTokenHash == hash }), nil
}

func (r *memFamilyRepository) FindAll(ctx context.Context) ([]*Family, error) {
	var result []*Family
	r.db.read(func(st *memoryState) {
		for _, f := range st.families {
			result = append(result, ptrCopy(f))
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *memFamilyRepository) Update(ctx context.Context, family *Family) error {
	return r.db.write(func(st *memoryState) error {
		if _, ok := st.families[family.ID]; !ok {
			return nil
		}
		family.UpdatedAt = now()
		st.families[family.ID] = *family
		return nil
	})
}

// ============================================
// Member types
// ============================================

type memMemberTypeRepository struct {
	db *memDB
}

func (r *memMemberTypeRepository) Create(ctx context.Context, mt *MemberType) error {
	return r.db.write(func(st *memoryState) error {
		for _, existing := range st.memberTypes {
			if existing.FamilyID == mt.FamilyID && existing.Name == mt.Name {
				return &UniqueViolationError{Constraint: "member_types_family_name_key", Field: "name"}
			}
		}
		mt.ID = newID()
		mt.CreatedAt = now()
		mt.Permissions = append([]string{}, mt.Permissions...)
		st.memberTypes[mt.ID] = *mt
		return nil
	})
}

func (r *memMemberTypeRepository) FindByID(ctx context.Context, id string) (*MemberType, error) {
	var found *MemberType
	r.db.read(func(st *memoryState) {
		if mt, ok := st.memberTypes[id]; ok {
			found = ptrCopy(mt)
		}
	})
	return found, nil
}

func (r *memMemberTypeRepository) FindByName(ctx context.Context, familyID, name string) (*MemberType, error) {
	var found *MemberType
	r.db.read(func(st *memoryState) {
		for _, mt := range st.memberTypes {
			if mt.FamilyID == familyID && mt.Name == name {
				found = ptrCopy(mt)
				return
			}
		}
	})
	return found, nil
}

func (r *memMemberTypeRepository) FindByFamily(ctx context.Context, familyID string) ([]*MemberType, error) {
	var result []*MemberType
	r.db.read(func(st *memoryState) {
		for _, mt := range st.memberTypes {
			if mt.FamilyID == familyID {
				result = append(result, ptrCopy(mt))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *memMemberTypeRepository) UpdatePermissions(ctx context.Context, id string, permissions []string) error {
	return r.db.write(func(st *memoryState) error {
		mt, ok := st.memberTypes[id]
		if !ok {
			return nil
		}
		mt.Permissions = append([]string{}, permissions...)
		st.memberTypes[id] = mt
		return nil
	})
}

// ============================================
// Members
// ============================================

type memMemberRepository struct {
	db *memDB
}

func withType(st *memoryState, m Member) *Member {
	out := ptrCopy(m)
	if mt, ok := st.memberTypes[m.MemberTypeID]; ok {
		out.TypeName = mt.Name
		out.Role = mt.Role
	} else {
		out.Role = types.RoleChild
	}
	return out
}

func (r *memMemberRepository) Create(ctx context.Context, member *Member) error {
	return r.db.write(func(st *memoryState) error {
		for _, m := range st.members {
			if strings.EqualFold(m.Email, member.Email) {
				return &UniqueViolationError{Constraint: "members_email_key", Field: "email"}
			}
			if m.FamilyID == member.FamilyID && m.Username == member.Username {
				return &UniqueViolationError{Constraint: "members_family_username_key", Field: "username"}
			}
		}
		member.ID = newID()
		member.CreatedAt = now()
		member.UpdatedAt = member.CreatedAt
		stored := *member
		stored.TypeName, stored.Role = "", ""
		st.members[member.ID] = stored
		if mt, ok := st.memberTypes[member.MemberTypeID]; ok {
			member.TypeName, member.Role = mt.Name, mt.Role
		}
		return nil
	})
}

func (r *memMemberRepository) FindByID(ctx context.Context, id string) (*Member, error) {
	var found *Member
	r.db.read(func(st *memoryState) {
		if m, ok := st.members[id]; ok {
			found = withType(st, m)
		}
	})
	return found, nil
}

func (r *memMemberRepository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	var found *Member
	r.db.read(func(st *memoryState) {
		for _, m := range st.members {
			if strings.EqualFold(m.Email, email) {
				found = withType(st, m)
				return
			}
		}
	})
	return found, nil
}

func (r *memMemberRepository) FindByFamily(ctx context.Context, familyID string) ([]*Member, error) {
	var result []*Member
	r.db.read(func(st *memoryState) {
		for _, m := range st.members {
			if m.FamilyID == familyID {
				result = append(result, withType(st, m))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memMemberRepository) CountByRole(ctx context.Context, familyID string, role types.Role) (int, error) {
	count := 0
	r.db.read(func(st *memoryState) {
		for _, m := range st.members {
			if m.FamilyID == familyID && withType(st, m).Role == role {
				count++
			}
		}
	})
	return count, nil
}

func (r *memMemberRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.db.write(func(st *memoryState) error {
		m, ok := st.members[id]
		if !ok {
			return nil
		}
		m.Password = ptrCopy(passwordHash)
		m.IsFirstLogin = false
		m.UpdatedAt = now()
		st.members[id] = m
		return nil
	})
}

func (r *memMemberRepository) Delete(ctx context.Context, id string) error {
	return r.db.write(func(st *memoryState) error {
		delete(st.members, id)
		for token, rt := range st.refreshTokens {
			if rt.MemberID == id {
				delete(st.refreshTokens, token)
			}
		}
		return nil
	})
}

func (r *memMemberRepository) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	return r.db.write(func(st *memoryState) error {
		token.CreatedAt = now()
		st.refreshTokens[token.Token] = *token
		return nil
	})
}

func (r *memMemberRepository) ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var found *RefreshToken
	err := r.db.write(func(st *memoryState) error {
		if rt, ok := st.refreshTokens[token]; ok {
			found = ptrCopy(rt)
			delete(st.refreshTokens, token)
		}
		return nil
	})
	return found, err
}

func (r *memMemberRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return r.db.write(func(st *memoryState) error {
		delete(st.refreshTokens, token)
		return nil
	})
}

func (r *memMemberRepository) DeleteRefreshTokensByMember(ctx context.Context, memberID string) error {
	return r.db.write(func(st *memoryState) error {
		for token, rt := range st.refreshTokens {
			if rt.MemberID == memberID {
				delete(st.refreshTokens, token)
			}
		}
		return nil
	})
}

func (r *memMemberRepository) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.db.write(func(st *memoryState) error {
		for token, rt := range st.refreshTokens {
			if rt.ExpiresAt.Before(before) {
				delete(st.refreshTokens, token)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// ============================================
// Categories
// ============================================

type memCategoryRepository struct {
	db *memDB
}

func titleTaken(st *memoryState, c *Category) bool {
	for _, existing := range st.categories {
		if existing.ID != c.ID && existing.FamilyID == c.FamilyID && existing.Kind == c.Kind && existing.Title == c.Title {
			return true
		}
	}
	return false
}

func (r *memCategoryRepository) Create(ctx context.Context, category *Category) error {
	return r.db.write(func(st *memoryState) error {
		if titleTaken(st, category) {
			return &UniqueViolationError{Constraint: "categories_family_kind_title_key", Field: "title"}
		}
		category.ID = newID()
		category.CreatedAt = now()
		category.UpdatedAt = category.CreatedAt
		st.categories[category.ID] = *category
		return nil
	})
}

func (r *memCategoryRepository) FindByID(ctx context.Context, id string) (*Category, error) {
	var found *Category
	r.db.read(func(st *memoryState) {
		if c, ok := st.categories[id]; ok {
			found = ptrCopy(c)
		}
	})
	return found, nil
}

func (r *memCategoryRepository) FindByFamily(ctx context.Context, familyID string, kind types.CategoryKind) ([]*Category, error) {
	var result []*Category
	r.db.read(func(st *memoryState) {
		for _, c := range st.categories {
			if c.FamilyID == familyID && c.Kind == kind {
				result = append(result, ptrCopy(c))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

func (r *memCategoryRepository) Update(ctx context.Context, category *Category) error {
	return r.db.write(func(st *memoryState) error {
		if titleTaken(st, category) {
			return &UniqueViolationError{Constraint: "categories_family_kind_title_key", Field: "title"}
		}
		category.UpdatedAt = now()
		st.categories[category.ID] = *category
		return nil
	})
}

func (r *memCategoryRepository) Delete(ctx context.Context, id string) error {
	return r.db.write(func(st *memoryState) error {
		delete(st.categories, id)
		for tid, t := range st.tasks {
			if t.CategoryID != nil && *t.CategoryID == id {
				t.CategoryID = nil
				st.tasks[tid] = t
			}
		}
		for iid, it := range st.items {
			if it.CategoryID != nil && *it.CategoryID == id {
				it.CategoryID = nil
				st.items[iid] = it
			}
		}
		return nil
	})
}

// ============================================
// Tasks
// ============================================

type memTaskRepository struct {
	db *memDB
}

func (r *memTaskRepository) Create(ctx context.Context, task *Task) error {
	return r.db.write(func(st *memoryState) error {
		task.ID = newID()
		task.CreatedAt = now()
		task.UpdatedAt = task.CreatedAt
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r *memTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	var found *Task
	r.db.read(func(st *memoryState) {
		if t, ok := st.tasks[id]; ok {
			found = ptrCopy(t)
		}
	})
	return found, nil
}

func (r *memTaskRepository) FindByFamily(ctx context.Context, familyID string) ([]*Task, error) {
	var result []*Task
	r.db.read(func(st *memoryState) {
		for _, t := range st.tasks {
			if t.FamilyID == familyID {
				result = append(result, ptrCopy(t))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *memTaskRepository) Update(ctx context.Context, task *Task) error {
	return r.db.write(func(st *memoryState) error {
		if _, ok := st.tasks[task.ID]; !ok {
			return nil
		}
		task.UpdatedAt = now()
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r *memTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.write(func(st *memoryState) error {
		delete(st.tasks, id)
		for aid, a := range st.assignments {
			if a.TaskID == id {
				delete(st.assignments, aid)
			}
		}
		return nil
	})
}

// ============================================
// Assignments
// ============================================

type memAssignmentRepository struct {
	db *memDB
}

func withTask(st *memoryState, a TaskAssignment) *TaskAssignment {
	out := ptrCopy(a)
	if t, ok := st.tasks[a.TaskID]; ok {
		out.TaskTitle = t.Title
	}
	return out
}

func (r *memAssignmentRepository) Create(ctx context.Context, a *TaskAssignment) error {
	return r.db.write(func(st *memoryState) error {
		a.ID = newID()
		a.CreatedAt = now()
		a.UpdatedAt = a.CreatedAt
		st.assignments[a.ID] = *a
		if t, ok := st.tasks[a.TaskID]; ok {
			a.TaskTitle = t.Title
		}
		return nil
	})
}

func (r *memAssignmentRepository) FindByID(ctx context.Context, id string) (*TaskAssignment, error) {
	var found *TaskAssignment
	r.db.read(func(st *memoryState) {
		if a, ok := st.assignments[id]; ok {
			found = withTask(st, a)
		}
	})
	return found, nil
}

func (r *memAssignmentRepository) FindByIDForUpdate(ctx context.Context, id string) (*TaskAssignment, error) {
	return r.FindByID(ctx, id)
}

func statusIn[S comparable](s S, set []S) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memAssignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]*TaskAssignment, error) {
	var result []*TaskAssignment
	r.db.read(func(st *memoryState) {
		for _, a := range st.assignments {
			if filter.FamilyID != "" && a.FamilyID != filter.FamilyID {
				continue
			}
			if filter.AssigneeEmail != "" && !strings.EqualFold(a.AssigneeEmail, filter.AssigneeEmail) {
				continue
			}
			if !statusIn(a.Status, filter.Statuses) {
				continue
			}
			if filter.Approved != nil && a.AssignmentApproved != *filter.Approved {
				continue
			}
			result = append(result, withTask(st, a))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if filter.ByDeadline {
			if !result[i].Deadline.Equal(result[j].Deadline) {
				return result[i].Deadline.Before(result[j].Deadline)
			}
			return result[i].ID < result[j].ID
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memAssignmentRepository) FindOverdue(ctx context.Context, at time.Time, limit int) ([]*TaskAssignment, error) {
	approved := true
	all, err := r.List(ctx, AssignmentFilter{
		Statuses:   []types.AssignmentStatus{types.AssignmentAssigned},
		Approved:   &approved,
		ByDeadline: true,
	})
	if err != nil {
		return nil, err
	}
	var overdue []*TaskAssignment
	for _, a := range all {
		if len(overdue) >= limit {
			break
		}
		if a.Deadline.Before(at) {
			overdue = append(overdue, a)
		}
	}
	return overdue, nil
}

func (r *memAssignmentRepository) Update(ctx context.Context, a *TaskAssignment, expected types.AssignmentStatus) error {
	return r.db.write(func(st *memoryState) error {
		current, ok := st.assignments[a.ID]
		if !ok || current.Status != expected {
			return ErrConcurrentUpdate
		}
		a.UpdatedAt = now()
		stored := *a
		stored.TaskTitle = ""
		st.assignments[a.ID] = stored
		return nil
	})
}

func (r *memAssignmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.write(func(st *memoryState) error {
		delete(st.assignments, id)
		return nil
	})
}

// ============================================
// Wallets and history
// ============================================

type memWalletRepository struct {
	db *memDB
}

func walletByEmail(st *memoryState, email string) (Wallet, bool) {
	for _, w := range st.wallets {
		if w.MemberEmail == email {
			return w, true
		}
	}
	return Wallet{}, false
}

func (r *memWalletRepository) GetOrCreate(ctx context.Context, email string) (*Wallet, error) {
	email = strings.ToLower(email)
	var wallet *Wallet
	err := r.db.write(func(st *memoryState) error {
		if w, ok := walletByEmail(st, email); ok {
			wallet = ptrCopy(w)
			return nil
		}
		w := Wallet{ID: newID(), MemberEmail: email, LastUpdated: now()}
		st.wallets[w.ID] = w
		wallet = ptrCopy(w)
		return nil
	})
	return wallet, err
}

func (r *memWalletRepository) LockByEmail(ctx context.Context, email string) (*Wallet, error) {
	return r.GetOrCreate(ctx, email)
}

func (r *memWalletRepository) FindByEmail(ctx context.Context, email string) (*Wallet, error) {
	var found *Wallet
	r.db.read(func(st *memoryState) {
		if w, ok := walletByEmail(st, strings.ToLower(email)); ok {
			found = ptrCopy(w)
		}
	})
	return found, nil
}

func (r *memWalletRepository) FindByEmails(ctx context.Context, emails []string) ([]*Wallet, error) {
	wanted := make(map[string]bool, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(e)] = true
	}
	var result []*Wallet
	r.db.read(func(st *memoryState) {
		for _, w := range st.wallets {
			if wanted[w.MemberEmail] {
				result = append(result, ptrCopy(w))
			}
		}
	})
	return result, nil
}

func (r *memWalletRepository) UpdateTotal(ctx context.Context, id string, total int, at time.Time) error {
	return r.db.write(func(st *memoryState) error {
		w, ok := st.wallets[id]
		if !ok {
			return nil
		}
		w.TotalPoints = total
		w.LastUpdated = at
		st.wallets[id] = w
		return nil
	})
}

func (r *memWalletRepository) DeleteByEmail(ctx context.Context, email string) error {
	email = strings.ToLower(email)
	return r.db.write(func(st *memoryState) error {
		w, ok := walletByEmail(st, email)
		if !ok {
			return nil
		}
		delete(st.wallets, w.ID)
		kept := st.history[:0:0]
		for _, e := range st.history {
			if e.WalletID != w.ID {
				kept = append(kept, e)
			}
		}
		st.history = kept
		return nil
	})
}

type memPointHistoryRepository struct {
	db *memDB
}

func (r *memPointHistoryRepository) Create(ctx context.Context, e *PointHistoryEntry) error {
	return r.db.write(func(st *memoryState) error {
		e.ID = newID()
		e.MemberEmail = strings.ToLower(e.MemberEmail)
		e.CreatedAt = now()
		st.history = append(st.history, *e)
		return nil
	})
}

// newestFirst walks history backwards; append order is chronological.
func (r *memPointHistoryRepository) newestFirst(match func(e PointHistoryEntry) bool) []*PointHistoryEntry {
	var result []*PointHistoryEntry
	r.db.read(func(st *memoryState) {
		for i := len(st.history) - 1; i >= 0; i-- {
			if match(st.history[i]) {
				result = append(result, ptrCopy(st.history[i]))
			}
		}
	})
	return result
}

func (r *memPointHistoryRepository) ListByEmail(ctx context.Context, email string) ([]*PointHistoryEntry, error) {
	email = strings.ToLower(email)
	return r.newestFirst(func(e PointHistoryEntry) bool { return e.MemberEmail == email }), nil
}

func (r *memPointHistoryRepository) ListByFamily(ctx context.Context, familyID string) ([]*PointHistoryEntry, error) {
	return r.newestFirst(func(e PointHistoryEntry) bool { return e.FamilyID == familyID }), nil
}

func (r *memPointHistoryRepository) SumByWallet(ctx context.Context, walletID string) (int, error) {
	sum := 0
	r.db.read(func(st *memoryState) {
		for _, e := range st.history {
			if e.WalletID == walletID {
				sum += e.Points
			}
		}
	})
	return sum, nil
}

func (r *memPointHistoryRepository) DeleteByEmail(ctx context.Context, email string) error {
	email = strings.ToLower(email)
	return r.db.write(func(st *memoryState) error {
		kept := st.history[:0:0]
		for _, e := range st.history {
			if e.MemberEmail != email {
				kept = append(kept, e)
			}
		}
		st.history = kept
		return nil
	})
}

// ============================================
// Wishlists
// ============================================

type memWishlistRepository struct {
	db *memDB
}

func wishlistByEmail(st *memoryState, email string) (Wishlist, bool) {
	for _, w := range st.wishlists {
		if w.MemberEmail == email {
			return w, true
		}
	}
	return Wishlist{}, false
}

func (r *memWishlistRepository) GetOrCreate(ctx context.Context, email, title string) (*Wishlist, error) {
	email = strings.ToLower(email)
	var wishlist *Wishlist
	err := r.db.write(func(st *memoryState) error {
		if w, ok := wishlistByEmail(st, email); ok {
			wishlist = ptrCopy(w)
			return nil
		}
		w := Wishlist{ID: newID(), MemberEmail: email, Title: title, CreatedAt: now()}
		st.wishlists[w.ID] = w
		wishlist = ptrCopy(w)
		return nil
	})
	return wishlist, err
}

func (r *memWishlistRepository) FindByEmail(ctx context.Context, email string) (*Wishlist, error) {
	var found *Wishlist
	r.db.read(func(st *memoryState) {
		if w, ok := wishlistByEmail(st, strings.ToLower(email)); ok {
			found = ptrCopy(w)
		}
	})
	return found, nil
}

func (r *memWishlistRepository) FindByID(ctx context.Context, id string) (*Wishlist, error) {
	var found *Wishlist
	r.db.read(func(st *memoryState) {
		if w, ok := st.wishlists[id]; ok {
			found = ptrCopy(w)
		}
	})
	return found, nil
}

func (r *memWishlistRepository) DeleteByEmail(ctx context.Context, email string) error {
	email = strings.ToLower(email)
	return r.db.write(func(st *memoryState) error {
		w, ok := wishlistByEmail(st, email)
		if !ok {
			return nil
		}
		delete(st.wishlists, w.ID)
		for id, it := range st.items {
			if it.WishlistID != w.ID {
				continue
			}
			delete(st.items, id)
			for rid, rr := range st.redeems {
				if rr.WishlistItemID != nil && *rr.WishlistItemID == id {
					rr.WishlistItemID = nil
					st.redeems[rid] = rr
				}
			}
		}
		return nil
	})
}

func (r *memWishlistRepository) CreateItem(ctx context.Context, item *WishlistItem) error {
	return r.db.write(func(st *memoryState) error {
		if item.Status == "" {
			item.Status = types.WishlistItemActive
		}
		item.ID = newID()
		item.CreatedAt = now()
		item.UpdatedAt = item.CreatedAt
		st.items[item.ID] = *item
		return nil
	})
}

func (r *memWishlistRepository) FindItemByID(ctx context.Context, id string) (*WishlistItem, error) {
	var found *WishlistItem
	r.db.read(func(st *memoryState) {
		if it, ok := st.items[id]; ok {
			found = ptrCopy(it)
		}
	})
	return found, nil
}

func (r *memWishlistRepository) FindItemByIDForUpdate(ctx context.Context, id string) (*WishlistItem, error) {
	return r.FindItemByID(ctx, id)
}

func (r *memWishlistRepository) ListItems(ctx context.Context, wishlistID string, status types.WishlistItemStatus) ([]*WishlistItem, error) {
	var result []*WishlistItem
	r.db.read(func(st *memoryState) {
		for _, it := range st.items {
			if it.WishlistID != wishlistID {
				continue
			}
			if status != "" && it.Status != status {
				continue
			}
			result = append(result, ptrCopy(it))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memWishlistRepository) UpdateItem(ctx context.Context, item *WishlistItem) error {
	return r.db.write(func(st *memoryState) error {
		if _, ok := st.items[item.ID]; !ok {
			return nil
		}
		item.UpdatedAt = now()
		st.items[item.ID] = *item
		return nil
	})
}

// ============================================
// Redemptions
// ============================================

type memRedeemRepository struct {
	db *memDB
}

func (r *memRedeemRepository) Create(ctx context.Context, req *RedeemRequest) error {
	return r.db.write(func(st *memoryState) error {
		if req.Status == "" {
			req.Status = types.RedeemPending
		}
		req.ID = newID()
		req.RequesterEmail = strings.ToLower(req.RequesterEmail)
		req.CreatedAt = now()
		req.UpdatedAt = req.CreatedAt
		st.redeems[req.ID] = *req
		return nil
	})
}

func (r *memRedeemRepository) FindByID(ctx context.Context, id string) (*RedeemRequest, error) {
	var found *RedeemRequest
	r.db.read(func(st *memoryState) {
		if rr, ok := st.redeems[id]; ok {
			found = ptrCopy(rr)
		}
	})
	return found, nil
}

func (r *memRedeemRepository) FindByIDForUpdate(ctx context.Context, id string) (*RedeemRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memRedeemRepository) List(ctx context.Context, filter RedeemFilter) ([]*RedeemRequest, error) {
	var result []*RedeemRequest
	r.db.read(func(st *memoryState) {
		for _, rr := range st.redeems {
			if filter.FamilyID != "" && rr.FamilyID != filter.FamilyID {
				continue
			}
			if filter.RequesterEmail != "" && !strings.EqualFold(rr.RequesterEmail, filter.RequesterEmail) {
				continue
			}
			if filter.WishlistItemID != "" && (rr.WishlistItemID == nil || *rr.WishlistItemID != filter.WishlistItemID) {
				continue
			}
			if !statusIn(rr.Status, filter.Statuses) {
				continue
			}
			result = append(result, ptrCopy(rr))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memRedeemRepository) Update(ctx context.Context, req *RedeemRequest, expected types.RedeemStatus) error {
	return r.db.write(func(st *memoryState) error {
		current, ok := st.redeems[req.ID]
		if !ok || current.Status != expected {
			return ErrConcurrentUpdate
		}
		req.UpdatedAt = now()
		st.redeems[req.ID] = *req
		return nil
	})
}
