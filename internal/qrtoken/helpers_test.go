package qrtoken_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/qrtoken"
)

const (
	testIssuer = "HOYN_QR_V1"
	testOrigin = "authorized"
)

var (
	testEncryptionKey = qrtoken.Key(bytes.Repeat([]byte{0x11}, qrtoken.KeySize))
	testSigningKey    = bytes.Repeat([]byte{0x22}, 32)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type profileStub struct {
	profiles map[string]*domain.Profile
	err      error
}

func (p *profileStub) Exists(_ context.Context, id string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	_, ok := p.profiles[id]
	return ok, nil
}

func (p *profileStub) Get(_ context.Context, id string) (*domain.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	profile, ok := p.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

type scanRecord struct {
	SubjectID string
	Origin    string
	Succeeded bool
}

type scanSpy struct {
	mu      sync.Mutex
	records []scanRecord
}

func (s *scanSpy) Record(subjectID, origin string, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, scanRecord{SubjectID: subjectID, Origin: origin, Succeeded: succeeded})
}

func (s *scanSpy) All() []scanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scanRecord(nil), s.records...)
}

type fixture struct {
	svc      *qrtoken.Service
	clock    *fakeClock
	profiles *profileStub
	scans    *scanSpy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithSigningKey(t, testSigningKey)
}

func newFixtureWithSigningKey(t *testing.T, signingKey []byte) *fixture {
	t.Helper()

	clock := newFakeClock()
	profiles := &profileStub{profiles: map[string]*domain.Profile{
		"p-1": {ID: "p-1", OwnerID: "owner-1", DisplayName: "Cumhur", Active: true},
	}}
	scans := &scanSpy{}

	svc, err := qrtoken.NewService(qrtoken.Config{
		IssuerTag:        testIssuer,
		AuthorizedOrigin: testOrigin,
		MaxAge:           300 * time.Second,
		ClockSkew:        30 * time.Second,
	}, qrtoken.Dependencies{
		EncryptionKey: testEncryptionKey,
		SigningKey:    signingKey,
		Profiles:      profiles,
		Scans:         scans,
		Logger:        zaptest.NewLogger(t),
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, clock: clock, profiles: profiles, scans: scans}
}
