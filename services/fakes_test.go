package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"github.com/bolaodoscria/bolao-backend/storage"
)

// memDB is an in-memory stand-in for the Postgres schema, including its unique
// constraints, shared by the fake repositories below.
type memDB struct {
	mu           sync.Mutex
	clock        time.Time
	profiles     []*models.Profile
	resets       map[string]*models.PasswordReset
	pools        []*models.Pool
	participants []*models.Participant
	matches      []*models.Match
	predictions  []*models.Prediction
	failWith     error
	// failResetDelete makes DeletePasswordReset fail without touching the row.
	failResetDelete error
}

func newMemDB() *memDB {
	return &memDB{
		clock:  time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
		resets: make(map[string]*models.PasswordReset),
	}
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) profile(id string) *models.Profile {
	for _, p := range db.profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (db *memDB) pool(id string) *models.Pool {
	for _, p := range db.pools {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (db *memDB) match(id string) *models.Match {
	for _, m := range db.matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (db *memDB) poolView(p *models.Pool) *models.Pool {
	c := *p
	for _, participant := range db.participants {
		if participant.PoolID == p.ID {
			c.ParticipantsCount++
		}
	}
	if creator := db.profile(p.CreatorID); creator != nil {
		c.Creator = &models.ProfileSummary{Name: creator.Name, Email: creator.Email}
	}
	return &c
}

type memSnapshot struct {
	profiles     []*models.Profile
	resets       map[string]*models.PasswordReset
	pools        []*models.Pool
	participants []*models.Participant
	matches      []*models.Match
	predictions  []*models.Prediction
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	resets := make(map[string]*models.PasswordReset, len(db.resets))
	for id, reset := range db.resets {
		resets[id] = reset
	}
	return memSnapshot{
		profiles:     append([]*models.Profile(nil), db.profiles...),
		resets:       resets,
		pools:        append([]*models.Pool(nil), db.pools...),
		participants: append([]*models.Participant(nil), db.participants...),
		matches:      append([]*models.Match(nil), db.matches...),
		predictions:  append([]*models.Prediction(nil), db.predictions...),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.profiles, db.resets = s.profiles, s.resets
	db.pools, db.participants, db.matches, db.predictions = s.pools, s.participants, s.matches, s.predictions
}

// fakeTx restores the in-memory state when fn fails.
type fakeTx struct {
	db *memDB
}

func (t fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	snap := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type fakePools struct{ db *memDB }

func (r fakePools) Create(ctx context.Context, exec repositories.SQLExecutor, pool *models.Pool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWith != nil {
		return r.db.failWith
	}
	for _, p := range r.db.pools {
		if p.Password == pool.Password {
			return repositories.ErrPoolPasswordConflict
		}
	}
	pool.CreatedAt = r.db.tick()
	pool.UpdatedAt = pool.CreatedAt
	c := *pool
	r.db.pools = append(r.db.pools, &c)
	return nil
}

func (r fakePools) GetByID(ctx context.Context, id string) (*models.Pool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWith != nil {
		return nil, r.db.failWith
	}
	p := r.db.pool(id)
	if p == nil {
		return nil, repositories.ErrPoolNotFound
	}
	return r.db.poolView(p), nil
}

func (r fakePools) FindByPassword(ctx context.Context, password string) ([]*models.Pool, error) {
	return r.filter(func(p *models.Pool) bool { return p.Password == password }, 2)
}

func (r fakePools) ListAll(ctx context.Context) ([]*models.Pool, error) {
	pools, err := r.filter(func(*models.Pool) bool { return true }, 0)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pools, func(i, j int) bool { return pools[i].CreatedAt.After(pools[j].CreatedAt) })
	return pools, nil
}

func (r fakePools) ListByCreator(ctx context.Context, userID string) ([]*models.Pool, error) {
	return r.filter(func(p *models.Pool) bool { return p.CreatorID == userID }, 0)
}

func (r fakePools) ListByParticipant(ctx context.Context, userID string) ([]*models.Pool, error) {
	r.db.mu.Lock()
	joined := make(map[string]bool)
	for _, p := range r.db.participants {
		if p.UserID == userID {
			joined[p.PoolID] = true
		}
	}
	r.db.mu.Unlock()
	return r.filter(func(p *models.Pool) bool { return joined[p.ID] }, 0)
}

func (r fakePools) filter(keep func(*models.Pool) bool, limit int) ([]*models.Pool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWith != nil {
		return nil, r.db.failWith
	}
	out := make([]*models.Pool, 0)
	for _, p := range r.db.pools {
		if keep(p) {
			out = append(out, r.db.poolView(p))
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeParticipants struct{ db *memDB }

func (r fakeParticipants) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.pool(p.PoolID) == nil {
		return repositories.ErrParticipantPoolInvalid
	}
	for _, existing := range r.db.participants {
		if existing.PoolID == p.PoolID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.JoinedAt = r.db.tick()
	c := *p
	r.db.participants = append(r.db.participants, &c)
	return nil
}

func (r fakeParticipants) FindByPoolAndUser(ctx context.Context, poolID, userID string) (*models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.participants {
		if p.PoolID == poolID && p.UserID == userID {
			c := *p
			return &c, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r fakeParticipants) ListByPool(ctx context.Context, poolID string) ([]*models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range r.db.participants {
		if p.PoolID != poolID {
			continue
		}
		c := *p
		if profile := r.db.profile(p.UserID); profile != nil {
			c.User = &models.ProfileSummary{Name: profile.Name, Email: profile.Email}
		}
		out = append(out, &c)
	}
	return out, nil
}

type fakeMatches struct{ db *memDB }

func (r fakeMatches) Create(ctx context.Context, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.pool(m.PoolID) == nil {
		return repositories.ErrMatchPoolInvalid
	}
	for _, existing := range r.db.matches {
		if existing.PoolID == m.PoolID && existing.SameFixture(m.HomeTeam, m.AwayTeam) {
			return repositories.ErrMatchConflict
		}
	}
	m.CreatedAt = r.db.tick()
	m.UpdatedAt = m.CreatedAt
	c := *m
	r.db.matches = append(r.db.matches, &c)
	return nil
}

func (r fakeMatches) GetByID(ctx context.Context, id string) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m := r.db.match(id)
	if m == nil {
		return nil, repositories.ErrMatchNotFound
	}
	c := *m
	return &c, nil
}

func (r fakeMatches) ListByPool(ctx context.Context, poolID string) ([]*models.Match, error) {
	out := r.filter(func(m *models.Match) bool { return m.PoolID == poolID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchDatetime.Before(out[j].MatchDatetime) })
	return out, nil
}

func (r fakeMatches) FindByFixture(ctx context.Context, poolID, homeTeam, awayTeam string) (*models.Match, error) {
	found := r.filter(func(m *models.Match) bool { return m.PoolID == poolID && m.SameFixture(homeTeam, awayTeam) })
	if len(found) == 0 {
		return nil, repositories.ErrMatchNotFound
	}
	return found[0], nil
}

func (r fakeMatches) ListOpenWithExternalID(ctx context.Context) ([]*models.Match, error) {
	return r.filter(func(m *models.Match) bool {
		return m.ExternalID != nil && m.Status != models.MatchStatusFinished
	}), nil
}

func (r fakeMatches) UpdateResult(ctx context.Context, id string, status models.MatchStatus, homeScore, awayScore *int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m := r.db.match(id)
	if m == nil || m.Status == models.MatchStatusFinished {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	m.HomeScore = copyScore(homeScore)
	m.AwayScore = copyScore(awayScore)
	m.UpdatedAt = r.db.tick()
	return nil
}

func (r fakeMatches) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, m := range r.db.matches {
		if m.ID == id {
			r.db.matches = append(r.db.matches[:i:i], r.db.matches[i+1:]...)
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r fakeMatches) filter(keep func(*models.Match) bool) []*models.Match {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.db.matches {
		if keep(m) {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

type fakePredictions struct{ db *memDB }

func (r fakePredictions) Upsert(ctx context.Context, p *models.Prediction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p.PredictedHomeScore < models.MinPredictedScore || p.PredictedHomeScore > models.MaxPredictedScore ||
		p.PredictedAwayScore < models.MinPredictedScore || p.PredictedAwayScore > models.MaxPredictedScore {
		return repositories.ErrPredictionOutOfRange
	}
	if r.db.match(p.MatchID) == nil {
		return repositories.ErrPredictionMatchInvalid
	}
	now := r.db.tick()
	for _, existing := range r.db.predictions {
		if existing.MatchID == p.MatchID && existing.UserID == p.UserID {
			existing.PredictedHomeScore = p.PredictedHomeScore
			existing.PredictedAwayScore = p.PredictedAwayScore
			existing.UpdatedAt = now
			*p = *existing
			return nil
		}
	}
	p.Points = 0
	p.CreatedAt, p.UpdatedAt = now, now
	c := *p
	r.db.predictions = append(r.db.predictions, &c)
	return nil
}

func (r fakePredictions) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	found := r.filter(func(p *models.Prediction) bool { return p.ID == id })
	if len(found) == 0 {
		return nil, repositories.ErrPredictionNotFound
	}
	return found[0], nil
}

func (r fakePredictions) ListByUserAndMatches(ctx context.Context, userID string, matchIDs []string) ([]*models.Prediction, error) {
	wanted := make(map[string]bool, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = true
	}
	return r.filter(func(p *models.Prediction) bool { return p.UserID == userID && wanted[p.MatchID] }), nil
}

func (r fakePredictions) ListByPool(ctx context.Context, poolID string) ([]*models.Prediction, error) {
	r.db.mu.Lock()
	inPool := make(map[string]bool)
	for _, m := range r.db.matches {
		if m.PoolID == poolID {
			inPool[m.ID] = true
		}
	}
	r.db.mu.Unlock()
	return r.filter(func(p *models.Prediction) bool { return inPool[p.MatchID] }), nil
}

func (r fakePredictions) ListAll(ctx context.Context) ([]*models.Prediction, error) {
	return r.filter(func(*models.Prediction) bool { return true }), nil
}

func (r fakePredictions) UpdatePoints(ctx context.Context, id string, points int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.predictions {
		if p.ID == id {
			p.Points = points
			return nil
		}
	}
	return repositories.ErrPredictionNotFound
}

func (r fakePredictions) DeleteByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.predictions[:0:0]
	var removed int64
	for _, p := range r.db.predictions {
		if p.MatchID == matchID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	r.db.predictions = kept
	return removed, nil
}

func (r fakePredictions) filter(keep func(*models.Prediction) bool) []*models.Prediction {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Prediction, 0)
	for _, p := range r.db.predictions {
		if keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	return out
}

type fakeProfiles struct{ db *memDB }

func (r fakeProfiles) Create(ctx context.Context, profile *models.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if p.Email == profile.Email {
			return repositories.ErrProfileEmailConflict
		}
	}
	profile.CreatedAt = r.db.tick()
	profile.UpdatedAt = profile.CreatedAt
	c := *profile
	r.db.profiles = append(r.db.profiles, &c)
	return nil
}

func (r fakeProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p := r.db.profile(id); p != nil {
		c := *p
		return &c, nil
	}
	return nil, repositories.ErrProfileNotFound
}

func (r fakeProfiles) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if p.Email == email {
			c := *p
			return &c, nil
		}
	}
	return nil, repositories.ErrProfileNotFound
}

func (r fakeProfiles) ListByIDs(ctx context.Context, ids []string) ([]*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Profile, 0)
	for _, id := range ids {
		if p := r.db.profile(id); p != nil {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeProfiles) UpdatePasswordHash(ctx context.Context, exec repositories.SQLExecutor, id, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, p := range r.db.profiles {
		if p.ID == id {
			// Copy on write so a snapshot taken by fakeTx keeps the old hash.
			c := *p
			c.PasswordHash = hash
			r.db.profiles[i] = &c
			return nil
		}
	}
	return repositories.ErrProfileNotFound
}

func (r fakeProfiles) SavePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *reset
	c.FailedAttempts = 0
	r.db.resets[reset.ProfileID] = &c
	return nil
}

func (r fakeProfiles) AttemptPasswordReset(ctx context.Context, profileID, code string, maxFailures int) (*models.PasswordReset, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reset, ok := r.db.resets[profileID]
	if !ok || reset.FailedAttempts >= maxFailures {
		return nil, false, repositories.ErrPasswordResetNotFound
	}
	c := *reset
	matched := c.Code == code
	if !matched {
		c.FailedAttempts++
	}
	r.db.resets[profileID] = &c
	out := c
	out.Code = ""
	return &out, matched, nil
}

func (r fakeProfiles) DeletePasswordReset(ctx context.Context, exec repositories.SQLExecutor, profileID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failResetDelete != nil {
		return r.db.failResetDelete
	}
	delete(r.db.resets, profileID)
	return nil
}

type publishedEvent struct {
	PoolID  string
	Type    string
	Payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishToPool(poolID, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{PoolID: poolID, Type: eventType, Payload: payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeSource struct {
	mu      sync.Mutex
	records []feed.Match
	err     error
	calls   int
}

func (s *fakeSource) LiveRaw(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return json.Marshal(s.records)
}

func (s *fakeSource) Live(ctx context.Context) ([]feed.Match, error) {
	raw, err := s.LiveRaw(ctx)
	if err != nil {
		return nil, err
	}
	return feed.Decode(raw)
}

func (s *fakeSource) Find(ctx context.Context, id int64) (*feed.Match, error) {
	records, err := s.Live(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, feed.ErrMatchNotFound
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, contentType string, body []byte) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = append([]byte(nil), body...)
	return &storage.Object{Key: key, Location: "memory://" + key}, nil
}

func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStore) PublicURL(key string) string { return "memory://" + key }

type sentCode struct {
	To, Name, Code string
}

type fakeMailer struct {
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendPasswordResetCode(ctx context.Context, to, name, code string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{To: to, Name: name, Code: code})
	return nil
}

var errStorageDown = errors.New("connection refused")

// testEnv wires every service against one memDB.
type testEnv struct {
	db          *memDB
	events      *fakePublisher
	source      *fakeSource
	pools       PoolService
	matches     MatchService
	predictions PredictionService
	rankings    RankingService
}

func newTestEnv() *testEnv {
	db := newMemDB()
	events := &fakePublisher{}
	source := &fakeSource{}
	poolRepo, participantRepo := fakePools{db}, fakeParticipants{db}
	matchRepo, predictionRepo := fakeMatches{db}, fakePredictions{db}

	return &testEnv{
		db:          db,
		events:      events,
		source:      source,
		pools:       NewPoolService(poolRepo, participantRepo, matchRepo, predictionRepo, fakeTx{db}, events, nil),
		matches:     NewMatchService(poolRepo, matchRepo, predictionRepo, fakeTx{db}, source, events, nil),
		predictions: NewPredictionService(poolRepo, participantRepo, matchRepo, predictionRepo, events, nil),
		rankings:    NewRankingService(poolRepo, participantRepo, predictionRepo, fakeProfiles{db}, nil),
	}
}

func (e *testEnv) addProfile(id, name string) *models.Session {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.profiles = append(e.db.profiles, &models.Profile{ID: id, Name: name, Email: id + "@example.com"})
	return &models.Session{UserID: id, Name: name}
}

func intPtr(v int) *int { return &v }
