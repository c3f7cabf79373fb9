package pipeline

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/andygrunwald/fuel-price-ingester/internal/config"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
)

type fakeSource struct {
	token      string
	tokenErr   error
	payload    []byte
	pricesErr  error
	gotToken   string
	gotAPIKey  string
	tokenCalls int
	priceCalls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchToken(ctx context.Context, cfg config.FuelAPIConfig) (*oauth2.Token, error) {
	f.tokenCalls++
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &oauth2.Token{AccessToken: f.token}, nil
}

func (f *fakeSource) FetchNewPrices(ctx context.Context, token *oauth2.Token, cfg config.FuelAPIConfig) ([]byte, error) {
	f.priceCalls++
	f.gotToken = token.AccessToken
	f.gotAPIKey = cfg.APIKey
	if f.pricesErr != nil {
		return nil, f.pricesErr
	}
	return f.payload, nil
}

type fakeStore struct {
	objects []storage.Object
	err     error
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Put(ctx context.Context, obj storage.Object) error {
	if f.err != nil {
		return f.err
	}
	f.objects = append(f.objects, obj)
	return nil
}

type fakeRecorder struct {
	steps map[string]string
	runs  []string
}

func (r *fakeRecorder) RecordStep(step, status string, duration float64) {
	if r.steps == nil {
		r.steps = make(map[string]string)
	}
	r.steps[step] = status
}
func (r *fakeRecorder) RecordRun(status string, duration float64) { r.runs = append(r.runs, status) }
func (r *fakeRecorder) RecordLastSuccess(timestamp float64) {}
func (r *fakeRecorder) RecordPayloadSize(bytes float64) {}

func testSettings() *config.Settings {
	return &config.Settings{
		FuelAPI: config.FuelAPIConfig{
			APIKey:        "abc",
			APISecret:     "xyz",
			BaseURL:       "http://localhost",
			AuthPath:      "/auth",
			NewPricesPath: "/prices",
			States:        config.DefaultStates,
		},
		Storage: config.StorageConfig{
			Backend:   config.BackendS3,
			Bucket:    "fuel-raw",
			KeyPrefix: "nsw/",
		},
	}
}

func staticLoader(s *config.Settings) config.Loader {
	return config.LoaderFunc(func() (*config.Settings, error) { return s, nil })
}

func TestRunTimestamp(t *testing.T) {
	sydney := time.FixedZone("AEDT", 11*60*60)

	assert.Equal(t, "20251207_090000", RunTimestamp(time.Date(2025, 12, 7, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "20251206_230507", RunTimestamp(time.Date(2025, 12, 7, 10, 5, 7, 0, sydney)))
	assert.Equal(t, "20251231_235959", RunTimestamp(time.Date(2025, 12, 31, 23, 59, 59, 999, time.UTC)))
}

func TestRunTimestampPatternAndOrder(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{8}_\d{6}$`)
	start := time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC)

	prev := ""
	for i := 0; i < 48; i++ {
		ts := RunTimestamp(start.Add(time.Duration(i) * 17 * time.Minute))
		assert.Regexp(t, pattern, ts)
		assert.GreaterOrEqual(t, ts, prev)
		prev = ts
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "nsw/fuel_new_prices_raw_20251207_090000.json", ObjectKey("nsw/", "20251207_090000"))
	assert.Equal(t, "fuel_new_prices_raw_20251207_090000.json", ObjectKey("", "20251207_090000"))
}

func TestRun(t *testing.T) {
	source := &fakeSource{token: "tok123", payload: []byte(`{"prices":[{"price":189.9}]}`)}
	store := &fakeStore{}
	recorder := &fakeRecorder{}

	p := New(staticLoader(testSettings()), source, store, zerolog.Nop())
	p.SetPrometheusMetrics(recorder)

	logical := time.Date(2025, 12, 7, 9, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), logical)
	require.NoError(t, err)

	assert.Equal(t, "tok123", source.gotToken)
	assert.Equal(t, "abc", source.gotAPIKey)

	require.Len(t, store.objects, 1)
	obj := store.objects[0]
	assert.Equal(t, "fuel-raw", obj.Bucket)
	assert.Equal(t, "nsw/fuel_new_prices_raw_20251207_090000.json", obj.Key)
	assert.Equal(t, storage.ContentTypeJSON, obj.ContentType)
	assert.Equal(t, source.payload, obj.Body)

	assert.True(t, result.Stored)
	assert.Equal(t, "20251207_090000", result.Timestamp)
	assert.Equal(t, obj.Key, result.ObjectKey)

	snapshot := p.Metrics().GetSnapshot()
	assert.Equal(t, int64(1), snapshot.TotalRuns)
	assert.Equal(t, int64(0), snapshot.TotalErrors)
	assert.True(t, snapshot.LastRunSuccess)
	assert.Equal(t, obj.Key, snapshot.LastObjectKey)
	assert.Equal(t, len(source.payload), snapshot.LastPayloadBytes)

	assert.Equal(t, map[string]string{StepToken: "success", StepPrices: "success", StepStore: "success"}, recorder.steps)
	assert.Equal(t, []string{"success"}, recorder.runs)
}

func TestRunTokenFailureStoresNothing(t *testing.T) {
	tokenErr := errors.New("unauthorized")
	source := &fakeSource{tokenErr: tokenErr}
	store := &fakeStore{}

	p := New(staticLoader(testSettings()), source, store, zerolog.Nop())

	result, err := p.Run(context.Background(), time.Now())
	assert.Nil(t, result)
	require.ErrorIs(t, err, tokenErr)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepToken, stepErr.Step)

	assert.Equal(t, 0, source.priceCalls)
	assert.Empty(t, store.objects)

	snapshot := p.Metrics().GetSnapshot()
	assert.Equal(t, int64(1), snapshot.TotalErrors)
	assert.False(t, snapshot.LastRunSuccess)
	assert.Equal(t, StepToken, snapshot.LastFailedStep)
	require.NotNil(t, snapshot.LastError)
}

func TestRunPricesFailureStoresNothing(t *testing.T) {
	pricesErr := errors.New("bad gateway")
	source := &fakeSource{token: "tok", pricesErr: pricesErr}
	store := &fakeStore{}
	recorder := &fakeRecorder{}

	p := New(staticLoader(testSettings()), source, store, zerolog.Nop())
	p.SetPrometheusMetrics(recorder)

	_, err := p.Run(context.Background(), time.Now())
	require.ErrorIs(t, err, pricesErr)
	assert.Empty(t, store.objects)
	assert.Equal(t, "error", recorder.steps[StepPrices])
	assert.Equal(t, []string{"error"}, recorder.runs)
}

func TestRunStoreFailure(t *testing.T) {
	storeErr := errors.New("access denied")
	source := &fakeSource{token: "tok", payload: []byte(`{}`)}

	p := New(staticLoader(testSettings()), source, &fakeStore{err: storeErr}, zerolog.Nop())

	_, err := p.Run(context.Background(), time.Now())
	require.ErrorIs(t, err, storeErr)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepStore, stepErr.Step)
}

func TestRunLoaderFailure(t *testing.T) {
	source := &fakeSource{token: "tok"}
	loader := config.LoaderFunc(func() (*config.Settings, error) { return nil, config.ErrInvalid })

	p := New(loader, source, &fakeStore{}, zerolog.Nop())

	_, err := p.Run(context.Background(), time.Now())
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, 0, source.tokenCalls)
}

func TestRunLoadsSettingsEveryRun(t *testing.T) {
	loads := 0
	loader := config.LoaderFunc(func() (*config.Settings, error) {
		loads++
		return testSettings(), nil
	})
	source := &fakeSource{token: "tok", payload: []byte(`{}`)}

	p := New(loader, source, &fakeStore{}, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := p.Run(context.Background(), time.Now())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, loads)
	assert.Equal(t, 3, source.tokenCalls)
}

func TestFetchDoesNotStore(t *testing.T) {
	source := &fakeSource{token: "tok", payload: []byte(`[1,2,3]`)}
	store := &fakeStore{}

	p := New(staticLoader(testSettings()), source, store, zerolog.Nop())

	result, err := p.Fetch(context.Background(), time.Date(2025, 12, 7, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, result.Stored)
	assert.Equal(t, []byte(`[1,2,3]`), result.Payload)
	assert.Empty(t, store.objects)
}
