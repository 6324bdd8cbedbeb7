package exchange

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type mockSpi struct {
	mock.Mock
	name string
}

func (m *mockSpi) Name() string { return m.name }

func (m *mockSpi) Rate(ctx context.Context, q Query) (*ExchangeRate, bool) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*ExchangeRate), args.Bool(1)
}

func (m *mockSpi) IsAvailable(ctx context.Context, q Query) bool {
	args := m.Called(ctx, q)
	return args.Bool(0)
}

type RegistryTestSuite struct {
	suite.Suite
	ctx      context.Context
	registry *Registry
	first    *mockSpi
	second   *mockSpi
	query    Query
}

func (s *RegistryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.registry = NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.first = &mockSpi{name: "first"}
	s.second = &mockSpi{name: "second"}
	s.query = Query{Source: usd, Target: eur}
}

func (s *RegistryTestSuite) TearDownTest() {
	s.first.AssertExpectations(s.T())
	s.second.AssertExpectations(s.T())
}

func (s *RegistryTestSuite) TestUnknownRateType() {
	p, ok := s.registry.Provider("XYZ-unregistered-type")
	s.False(ok)
	s.Nil(p)
}

func (s *RegistryTestSuite) TestFirstMatchWins() {
	fromFirst := direct(s.T(), usd, eur, "0.92")
	s.registry.Register(RateTypeECB, s.first).Register(RateTypeECB, s.second)
	s.first.On("Rate", mock.Anything, s.query).Return(fromFirst, true).Once()

	p, ok := s.registry.Provider(RateTypeECB)
	s.Require().True(ok)
	got, ok := p.Get(s.ctx, s.query)
	s.True(ok)
	s.Same(fromFirst, got)
	s.second.AssertNotCalled(s.T(), "Rate", mock.Anything, mock.Anything)
}

func (s *RegistryTestSuite) TestFallsThroughToSecond() {
	fromSecond := direct(s.T(), usd, eur, "0.93")
	s.registry.Register(RateTypeECB, s.first).Register(RateTypeECB, s.second)
	s.first.On("Rate", mock.Anything, s.query).Return(nil, false).Once()
	s.second.On("Rate", mock.Anything, s.query).Return(fromSecond, true).Once()

	p, _ := s.registry.Provider(RateTypeECB)
	got, ok := p.Get(s.ctx, s.query)
	s.True(ok)
	s.Same(fromSecond, got)
}

func (s *RegistryTestSuite) TestMissIsSilent() {
	s.registry.Register(RateTypeECB, s.first)
	s.first.On("Rate", mock.Anything, s.query).Return(nil, false).Once()

	p, _ := s.registry.Provider(RateTypeECB)
	got, ok := p.Get(s.ctx, s.query)
	s.False(ok)
	s.Nil(got)
}

func (s *RegistryTestSuite) TestIsAvailableShortCircuits() {
	s.registry.Register(RateTypeECB, s.first).Register(RateTypeECB, s.second)
	s.first.On("IsAvailable", mock.Anything, s.query).Return(true).Once()

	p, _ := s.registry.Provider(RateTypeECB)
	s.True(p.IsAvailable(s.ctx, s.query))
	s.second.AssertNotCalled(s.T(), "IsAvailable", mock.Anything, mock.Anything)
}

func (s *RegistryTestSuite) TestDuplicateNameIgnored() {
	s.registry.Register(RateTypeECB, s.first)
	s.registry.Register(RateTypeECB, &mockSpi{name: "first"})
	s.Equal([]string{"first"}, s.registry.ProviderNames(RateTypeECB))
}

func (s *RegistryTestSuite) TestReloadIsMonotonic() {
	loaded := map[RateType][]ProviderSpi{
		RateTypeIMF: {s.second},
	}
	r := NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)), WithLoader(func() map[RateType][]ProviderSpi {
		return loaded
	}))
	r.Register(RateTypeECB, s.first)

	s.Equal(1, r.Reload())
	s.Equal([]RateType{RateTypeECB, RateTypeIMF}, r.RateTypes())

	loaded = map[RateType][]ProviderSpi{}
	s.Equal(0, r.Reload())
	s.Equal([]RateType{RateTypeECB, RateTypeIMF}, r.RateTypes())
	s.Equal([]string{"first"}, r.ProviderNames(RateTypeECB))
}

func (s *RegistryTestSuite) TestFacadeSeesLaterRegistrations() {
	s.registry.Register(RateTypeECB, s.first)
	p, _ := s.registry.Provider(RateTypeECB)

	fromSecond := direct(s.T(), usd, eur, "0.93")
	s.first.On("Rate", mock.Anything, s.query).Return(nil, false).Once()
	s.second.On("Rate", mock.Anything, s.query).Return(fromSecond, true).Once()
	s.registry.Register(RateTypeECB, s.second)

	got, ok := p.Get(s.ctx, s.query)
	s.True(ok)
	s.Same(fromSecond, got)
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func TestRegistry_NilLogger(t *testing.T) {
	r := NewRegistry(nil)
	require.NotNil(t, r)
	require.Empty(t, r.RateTypes())
}
