package stub

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/locker-client/internal/domain"
)

var (
	errNotFound   = errors.New("not found")
	errConflict   = errors.New("conflict")
	errBadOTP     = errors.New("invalid otp")
	errExpiredOTP = errors.New("otp expired")
)

// user is a stub account.
type user struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         domain.Role
}

// storedItem is an item plus its OTP gate.
type storedItem struct {
	domain.Item
	OTPHash      string
	OTPExpiresAt time.Time
}

// memoryStore holds all stub server state in memory. Deliberately not backed
// by a database: the stub exists so the CLI can run end-to-end with nothing
// else installed.
type memoryStore struct {
	mu           sync.Mutex
	usersByEmail map[string]*user
	usersByID    map[string]*user
	states       []domain.State
	lockers      map[string]*domain.Locker
	items        map[string]*storedItem
	transactions []domain.Transaction
	itemSeq      int64
	bcryptCost   int
	otpTTL       time.Duration
	ratePerHour  float64
}

func newMemoryStore(bcryptCost int, otpTTL time.Duration, ratePerHour float64) *memoryStore {
	s := &memoryStore{
		usersByEmail: make(map[string]*user),
		usersByID:    make(map[string]*user),
		lockers:      make(map[string]*domain.Locker),
		items:        make(map[string]*storedItem),
		bcryptCost:   bcryptCost,
		otpTTL:       otpTTL,
		ratePerHour:  ratePerHour,
	}
	s.seed()
	return s
}

// seed provisions one admin, one user, and a small locker topology so the
// client has something to talk to out of the box.
func (s *memoryStore) seed() {
	_, _ = s.createUser("Admin", "admin@example.com", "admin123", domain.RoleAdmin)
	_, _ = s.createUser("Demo User", "user@example.com", "user1234", domain.RoleUser)

	pointID := uuid.NewString()
	point := domain.LockerPoint{ID: pointID, Name: "Central Station", Address: "1 Station Sq", CityID: uuid.NewString()}
	for i := 0; i < 4; i++ {
		locker := &domain.Locker{
			ID:              uuid.NewString(),
			Name:            fmt.Sprintf("L-%02d", i+1),
			Status:          domain.LockerAvailable,
			LockerPointID:   pointID,
			LockerPointName: point.Name,
		}
		s.lockers[locker.ID] = locker
		point.Lockers = append(point.Lockers, *locker)
	}
	city := domain.City{ID: point.CityID, Name: "Springfield", LockerPoints: []domain.LockerPoint{point}}
	s.states = []domain.State{{ID: uuid.NewString(), Name: "Illinois", Cities: []domain.City{city}}}
}

func (s *memoryStore) createUser(name, email, password string, role domain.Role) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[email]; exists {
		return nil, errConflict
	}
	u := &user{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: string(hash), Role: role}
	s.usersByEmail[email] = u
	s.usersByID[u.ID] = u
	return u, nil
}

func (s *memoryStore) authenticate(email, password string) (*user, error) {
	s.mu.Lock()
	u, ok := s.usersByEmail[email]
	s.mu.Unlock()
	if !ok {
		return nil, errNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errNotFound
	}
	return u, nil
}

func (s *memoryStore) userByID(id string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByID[id]
	return u, ok
}

func (s *memoryStore) listStates() []domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.State(nil), s.states...)
}

func (s *memoryStore) listLockers() []domain.Locker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Locker, 0, len(s.lockers))
	for _, l := range s.lockers {
		out = append(out, *l)
	}
	return out
}

func (s *memoryStore) createLocker(pointID string) domain.Locker {
	s.mu.Lock()
	defer s.mu.Unlock()
	locker := &domain.Locker{
		ID:            uuid.NewString(),
		Name:          fmt.Sprintf("L-%02d", len(s.lockers)+1),
		Status:        domain.LockerAvailable,
		LockerPointID: pointID,
	}
	s.lockers[locker.ID] = locker
	return *locker
}

func (s *memoryStore) updateLocker(id string, name, status *string) (domain.Locker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locker, ok := s.lockers[id]
	if !ok {
		return domain.Locker{}, errNotFound
	}
	if name != nil {
		locker.Name = *name
	}
	if status != nil {
		locker.Status = domain.LockerStatus(*status)
	}
	return *locker, nil
}

func (s *memoryStore) deleteLocker(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lockers[id]; !ok {
		return errNotFound
	}
	delete(s.lockers, id)
	return nil
}

func (s *memoryStore) forceClearLocker(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	locker, ok := s.lockers[id]
	if !ok {
		return errNotFound
	}
	delete(s.items, id)
	locker.Status = domain.LockerAvailable
	return nil
}

func (s *memoryStore) storeItem(item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locker, ok := s.lockers[item.LockerID]
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: %s locker not found", errNotFound, item.LockerID)
	}
	if locker.Status != domain.LockerAvailable {
		return domain.Item{}, fmt.Errorf("%w: %s locker is already occupied", errConflict, locker.ID)
	}

	s.itemSeq++
	item.ID = s.itemSeq
	item.Status = domain.ItemStored
	item.CreatedAt = time.Now().UTC()
	locker.Status = domain.LockerOccupied
	s.items[item.LockerID] = &storedItem{Item: item}
	return item, nil
}

func (s *memoryStore) listItems(senderEmail string) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0)
	for _, it := range s.items {
		if it.SenderEmail == senderEmail {
			out = append(out, it.Item)
		}
	}
	return out
}

func (s *memoryStore) listTransactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transaction(nil), s.transactions...)
}

// issueOTP generates a 6-digit code for the locker's occupied item, storing
// only its bcrypt hash. Returns the plaintext code so the server can "send"
// it (the stub just logs it).
func (s *memoryStore) issueOTP(lockerID string) (string, error) {
	s.mu.Lock()
	item, ok := s.items[lockerID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: no item awaiting collection", errNotFound)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	item.OTPHash = string(hash)
	item.OTPExpiresAt = time.Now().Add(s.otpTTL)
	s.mu.Unlock()
	return code, nil
}

// collect verifies the OTP and completes the collection, billing per started
// hour and freeing the locker.
func (s *memoryStore) collect(lockerID, otp string) (domain.CollectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[lockerID]
	if !ok || item.Status != domain.ItemStored {
		return domain.CollectionResult{}, fmt.Errorf("%w: no item to collect", errNotFound)
	}
	if item.OTPHash == "" || bcrypt.CompareHashAndPassword([]byte(item.OTPHash), []byte(otp)) != nil {
		return domain.CollectionResult{}, errBadOTP
	}
	if time.Now().After(item.OTPExpiresAt) {
		return domain.CollectionResult{}, errExpiredOTP
	}

	now := time.Now().UTC()
	hours := now.Sub(item.CreatedAt).Hours()
	amount := math.Ceil(hours*s.ratePerHour*100) / 100

	item.Status = domain.ItemCollected
	if locker, ok := s.lockers[lockerID]; ok {
		locker.Status = domain.LockerAvailable
	}
	delete(s.items, lockerID)

	result := domain.CollectionResult{
		ItemID:      item.Item.ID,
		LockerID:    lockerID,
		TotalAmount: amount,
		StoredAt:    item.CreatedAt,
		CollectedAt: now,
		Detail:      fmt.Sprintf("Item collected successfully, %s locker is now available", lockerID),
	}
	s.transactions = append(s.transactions, domain.Transaction{
		ItemID:      result.ItemID,
		LockerID:    lockerID,
		TotalAmount: amount,
		Detail:      result.Detail,
	})
	return result, nil
}
