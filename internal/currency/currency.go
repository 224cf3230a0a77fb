package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"medipos/backend/internal/cache"
	"medipos/backend/internal/domain"
)

const (
	cacheKey = "currency:rates"

	defaultExchangeBaseURL = "https://api.exchangerate-api.com/v4/latest/USD"
	defaultMetalBaseURL    = "https://api.metalpriceapi.com/v1/latest"

	gramsPerTroyOunce = 31.1034768
)

// Static fallbacks used when both providers are unreachable and the cache is
// cold. They keep the POS screen functional rather than blank.
var (
	fallbackUSDTRY    = decimal.NewFromFloat(35.50)
	fallbackEURTRY    = decimal.NewFromFloat(38.20)
	fallbackGoldTRY   = decimal.NewFromFloat(3250.00)
	fallbackSilverTRY = decimal.NewFromFloat(38.50)
)

// Service fetches TRY exchange rates and gram metal prices from the upstream
// providers, caching each snapshot for the configured TTL.
type Service struct {
	httpClient      *http.Client
	kv              cache.KV
	logger          *zap.Logger
	metalAPIKey     string
	exchangeBaseURL string
	metalBaseURL    string
	ttl             time.Duration
}

type Option func(*Service)

// WithBaseURLs overrides the provider endpoints, used by tests.
func WithBaseURLs(exchange, metal string) Option {
	return func(s *Service) {
		s.exchangeBaseURL = exchange
		s.metalBaseURL = metal
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

func New(kv cache.KV, logger *zap.Logger, metalAPIKey string, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &Service{
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		kv:              kv,
		logger:          logger,
		metalAPIKey:     metalAPIKey,
		exchangeBaseURL: defaultExchangeBaseURL,
		metalBaseURL:    defaultMetalBaseURL,
		ttl:             ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rates returns the cached snapshot when fresh, otherwise refreshes from the
// providers. Provider failures degrade to static fallbacks instead of
// propagating errors to the POS screen.
func (s *Service) Rates(ctx context.Context) (domain.CurrencyRates, error) {
	if cached, ok, err := s.kv.Get(ctx, cacheKey); err == nil && ok {
		var rates domain.CurrencyRates
		if err := json.Unmarshal(cached, &rates); err == nil {
			return rates, nil
		}
		s.logger.Warn("discarding unreadable currency cache entry")
	} else if err != nil {
		s.logger.Warn("currency cache read failed", zap.Error(err))
	}

	rates := s.fetch(ctx)

	if payload, err := json.Marshal(rates); err == nil {
		if err := s.kv.Set(ctx, cacheKey, payload, s.ttl); err != nil {
			s.logger.Warn("currency cache write failed", zap.Error(err))
		}
	}
	return rates, nil
}

func (s *Service) fetch(ctx context.Context) domain.CurrencyRates {
	rates := domain.CurrencyRates{
		USDTRY:    fallbackUSDTRY,
		EURTRY:    fallbackEURTRY,
		GoldTRY:   fallbackGoldTRY,
		SilverTRY: fallbackSilverTRY,
		Timestamp: time.Now().UTC(),
	}

	usdTRY, eurUSD, err := s.fetchExchangeRates(ctx)
	if err != nil {
		s.logger.Warn("exchange rate fetch failed, using fallbacks", zap.Error(err))
		return rates
	}
	rates.USDTRY = usdTRY
	rates.EURTRY = usdTRY.Div(eurUSD).Round(4)

	goldUSD, silverUSD, err := s.fetchMetalPrices(ctx)
	if err != nil {
		s.logger.Warn("metal price fetch failed, using fallbacks", zap.Error(err))
		return rates
	}
	gramFactor := decimal.NewFromFloat(gramsPerTroyOunce)
	rates.GoldTRY = goldUSD.Mul(usdTRY).Div(gramFactor).Round(2)
	rates.SilverTRY = silverUSD.Mul(usdTRY).Div(gramFactor).Round(2)
	return rates
}

type exchangeResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// fetchExchangeRates returns TRY-per-USD and USD-per-EUR from the USD-based
// rate table.
func (s *Service) fetchExchangeRates(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var body exchangeResponse
	if err := s.getJSON(ctx, s.exchangeBaseURL, &body); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	try, ok := body.Rates["TRY"]
	if !ok || try <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("provider response missing TRY rate")
	}
	eur, ok := body.Rates["EUR"]
	if !ok || eur <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("provider response missing EUR rate")
	}
	return decimal.NewFromFloat(try), decimal.NewFromFloat(eur), nil
}

type metalResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
}

// fetchMetalPrices returns USD-per-ounce prices for gold and silver.
func (s *Service) fetchMetalPrices(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	url := fmt.Sprintf("%s?api_key=%s&base=USD&currencies=XAU,XAG", s.metalBaseURL, s.metalAPIKey)

	var body metalResponse
	if err := s.getJSON(ctx, url, &body); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !body.Success {
		return decimal.Zero, decimal.Zero, fmt.Errorf("metal provider reported failure")
	}

	xau, ok := body.Rates["XAU"]
	if !ok || xau <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("provider response missing XAU rate")
	}
	xag, ok := body.Rates["XAG"]
	if !ok || xag <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("provider response missing XAG rate")
	}

	// Rates arrive as ounces per USD; invert to USD per ounce.
	goldUSD := decimal.NewFromInt(1).Div(decimal.NewFromFloat(xau))
	silverUSD := decimal.NewFromInt(1).Div(decimal.NewFromFloat(xag))
	return goldUSD, silverUSD, nil
}

func (s *Service) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
