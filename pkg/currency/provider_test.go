package currency

import (
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSpi struct {
	mock.Mock
}

func (m *mockSpi) Name() string {
	return m.Called().String(0)
}

func (m *mockSpi) Namespaces() []string {
	return m.Called().Get(0).([]string)
}

func (m *mockSpi) Currency(namespace string, code money.Code, at time.Time) (money.Currency, bool) {
	args := m.Called(namespace, code, at)
	return args.Get(0).(money.Currency), args.Bool(1)
}

func (m *mockSpi) Currencies(namespace string) []money.Currency {
	return m.Called(namespace).Get(0).([]money.Currency)
}

func mustISO(t *testing.T) *StaticProvider {
	t.Helper()
	p, err := NewISOProvider()
	require.NoError(t, err)
	return p
}

func TestProvider_UnknownCurrency(t *testing.T) {
	p := New(nil, []ProviderSpi{mustISO(t)})

	_, err := p.Get("ISO-4217", "ZZZ")
	require.ErrorIs(t, err, money.ErrUnknownCurrency)

	var unknown *money.UnknownCurrencyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ISO-4217", unknown.Namespace)
	assert.Equal(t, money.Code("ZZZ"), unknown.Code)
	assert.False(t, p.IsAvailable("", "ZZZ"))
}

func TestProvider_GetISO(t *testing.T) {
	p := New(nil, []ProviderSpi{mustISO(t)})

	chf, err := p.Get("", money.CHF)
	require.NoError(t, err)
	assert.Equal(t, 756, chf.NumericCode())
	assert.Equal(t, 2, chf.DefaultFractionDigits())
	assert.Equal(t, money.DefaultNamespace, chf.Namespace())

	xxx, err := p.Get(money.DefaultNamespace, "XXX")
	require.NoError(t, err)
	assert.Equal(t, -1, xxx.DefaultFractionDigits())
	assert.True(t, xxx.IsVirtual())

	kwd := p.MustGet(money.KWD)
	assert.Equal(t, 3, kwd.DefaultFractionDigits())
	d, ok := kwd.Display()
	require.True(t, ok)
	assert.Equal(t, "Kuwaiti Dinar", d.DisplayName())
}

func TestProvider_GetAtHistorical(t *testing.T) {
	p := New(nil, []ProviderSpi{mustISO(t)})

	dem, err := p.GetAt("", "DEM", time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, money.Code("DEM"), dem.Code())

	_, err = p.GetAt("", "DEM", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, money.ErrUnknownCurrency)

	_, err = p.GetAt("", "EUR", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, money.ErrUnknownCurrency)

	// a withdrawn currency still resolves without a timestamp
	dem, err = p.Get("", "DEM")
	require.NoError(t, err)
	assert.False(t, dem.IsValidAt(time.Now()))
}

func TestProvider_FirstMatchWins(t *testing.T) {
	first := NewStaticProvider("first", money.MustCurrency("USD", 2))
	overrideUSD, err := money.NewCurrencyBuilder("USD").FractionDigits(4).Build()
	require.NoError(t, err)
	second := NewStaticProvider("second",
		overrideUSD,
		money.MustCurrency("ABC", 1),
	)

	p := New(nil, []ProviderSpi{first, second})

	usd, err := p.Get("", "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, usd.DefaultFractionDigits())

	abc, err := p.Get("", "ABC")
	require.NoError(t, err)
	assert.Equal(t, 1, abc.DefaultFractionDigits())

	codes := []money.Code{}
	for _, c := range p.Currencies("") {
		codes = append(codes, c.Code())
	}
	assert.Equal(t, []money.Code{"USD", "ABC"}, codes)
}

func TestProvider_CachesCurrentLookups(t *testing.T) {
	spi := new(mockSpi)
	spi.On("Name").Return("mock")
	spi.On("Namespaces").Return([]string{"LOYALTY"})
	pts, err := money.NewCurrencyBuilder("PTS").Namespace("LOYALTY").FractionDigits(0).Build()
	require.NoError(t, err)
	spi.On("Currency", "LOYALTY", money.Code("PTS"), time.Time{}).Return(pts, true).Once()

	p := New(nil, []ProviderSpi{spi})
	for i := 0; i < 3; i++ {
		got, err := p.Get("LOYALTY", "PTS")
		require.NoError(t, err)
		assert.Equal(t, "LOYALTY:PTS", got.Key())
	}
	spi.AssertExpectations(t)
	assert.Equal(t, []string{"LOYALTY"}, p.Namespaces())
}

func TestProvider_ReloadIsMonotonic(t *testing.T) {
	iso := mustISO(t)
	crypto, err := money.NewCurrencyBuilder("BTC").Namespace("CRYPTO").FractionDigits(8).Build()
	require.NoError(t, err)
	cryptoSpi := NewStaticProvider("crypto", crypto)

	calls := 0
	p := New(nil, []ProviderSpi{iso}, WithLoader(func() []ProviderSpi {
		calls++
		if calls == 1 {
			return []ProviderSpi{iso, cryptoSpi}
		}
		return nil
	}))

	assert.False(t, p.IsAvailable("CRYPTO", "BTC"))
	assert.Equal(t, 1, p.Reload())
	assert.True(t, p.IsAvailable("CRYPTO", "BTC"))

	// the loader no longer returns anything, but nothing is dropped
	assert.Equal(t, 0, p.Reload())
	assert.True(t, p.IsAvailable("CRYPTO", "BTC"))
	assert.True(t, p.IsAvailable("", "USD"))
}

func TestLoadISOCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		count   int
		wantErr bool
	}{
		{
			name:  "valid rows",
			input: "code,numeric,digits,name,symbol,valid_from,valid_until,virtual\nUSD,840,2,US Dollar,$,,,false\nXXX,999,-1,None,XXX,,,true\n",
			count: 2,
		},
		{
			name:    "short header",
			input:   "code,numeric\nUSD,840\n",
			wantErr: true,
		},
		{
			name:    "bad numeric",
			input:   "code,numeric,digits,name,symbol,valid_from,valid_until,virtual\nUSD,x,2,US Dollar,$,,,false\n",
			wantErr: true,
		},
		{
			name:    "bad date",
			input:   "code,numeric,digits,name,symbol,valid_from,valid_until,virtual\nUSD,840,2,US Dollar,$,yesterday,,false\n",
			wantErr: true,
		},
		{
			name:    "invalid code",
			input:   "code,numeric,digits,name,symbol,valid_from,valid_until,virtual\nusd,840,2,US Dollar,$,,,false\n",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			currencies, err := LoadISOCSV(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, currencies, tt.count)
		})
	}
}
