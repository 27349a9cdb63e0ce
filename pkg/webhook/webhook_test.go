package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gehringer/solarboard/pkg/common"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr error
	}{
		{"Array", `[{"a":1},{"a":2}]`, 2, nil},
		{"Empty Array", `[]`, 0, nil},
		{"Object", `{"a":1}`, 1, nil},
		{"Whitespace", "  \n", 0, common.ErrEmptyResponse},
		{"Empty", "", 0, common.ErrEmptyResponse},
		{"Not JSON", `<html>oops</html>`, 0, common.ErrMalformedResponse},
		{"Null", `null`, 0, common.ErrNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Normalize([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.want)
		})
	}

	t.Run("Object Kept Verbatim", func(t *testing.T) {
		items, err := Normalize([]byte(`{"sunrise":"06:00:00"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"sunrise":"06:00:00"}`, string(items[0]))
	})
}

type fakeWebhook struct {
	t      *testing.T
	bodies map[string]string
	status int
	delay  time.Duration
	dates  []string
}

func (f *fakeWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodGet, r.Method)
	assert.Contains(f.t, r.Header.Get("User-Agent"), "SolarBoard/")
	f.dates = append(f.dates, r.URL.Query().Get("date"))
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	w.Write([]byte(f.bodies[r.URL.Path]))
}

func newTestClient(t *testing.T, f *fakeWebhook, timeout time.Duration, m *metrics.Metrics) *Client {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(map[types.DataType]string{
		types.DataTypeHourly:  srv.URL + "/solar-data",
		types.DataTypeAstro:   srv.URL + "/astro-data?token=abc",
		types.DataTypeHistory: srv.URL + "/solar-history",
	}, srv.URL+"/source", timeout, m)
}

func TestClient(t *testing.T) {
	f := &fakeWebhook{t: t, bodies: map[string]string{
		"/solar-data": `[
			{"timestamp":"2024-06-15T10:00:00","date":"2024-06-15","hour":0,"forecast_day_kwh":"12.5","forecast_hour_cumul_kwh":0,"produced_kwh":null,"consumed_kwh":"0.4"},
			{"timestamp":"2024-06-15T10:00:00","date":"2024-06-15","hour":1,"forecast_day_kwh":12.5,"produced_kwh":0}
		]`,
		"/astro-data": `{"sunrise":"05:52:10","sunset":"21:56:02","solar_noon":"13:54:06"}`,
		"/solar-history": `[
			{"Date":"2024-06-13","Autoconsommation (%)":"81,2%","Autosuffisance (%)":40,"Écart (%)":"−3,2%"},
			{"Date":"2024-06-14","Autoconsommation (%)":"","Autosuffisance (%)":"55 %","Écart (%)":12.5}
		]`,
		"/source": `[{"timestamp":"2024-06-15T10:00:00","data":{"time":["00"],"produced":[1]},"forecasts":[{"date":"2024-06-15","forecast_kwh":20}],"hourlyForecasts":[]}]`,
	}}
	m := metrics.New()
	c := newTestClient(t, f, time.Second, m)
	ctx := context.Background()

	t.Run("Hourly", func(t *testing.T) {
		rows, err := c.Hourly(ctx, "2024-06-15")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, types.Number(12.5), rows[0].ForecastDayKWh)
		assert.False(t, rows[0].ProducedKWh.Valid)
		assert.Equal(t, types.Float(0.4), rows[0].ConsumedKWh)
		assert.Equal(t, types.Float(0), rows[1].ProducedKWh)
		assert.Equal(t, 1, rows[1].Hour)
	})

	t.Run("Astro Object", func(t *testing.T) {
		astro, err := c.Astro(ctx, "2024-06-15")
		require.NoError(t, err)
		require.Len(t, astro, 1)
		assert.Equal(t, "13:54:06", astro[0].SolarNoon)
	})

	t.Run("History", func(t *testing.T) {
		history, err := c.History(ctx, "2024-06-14")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, types.HistoryEntry{Date: "2024-06-13", Autoconsumption: 81.2, Autosufficiency: 40, Deviation: -3.2}, history[0])
		assert.Equal(t, types.HistoryEntry{Date: "2024-06-14", Autoconsumption: 0, Autosufficiency: 55, Deviation: 12.5}, history[1])
	})

	t.Run("Source", func(t *testing.T) {
		require.True(t, c.HasSource())
		p, err := c.Source(ctx, "2024-06-15")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-15T10:00:00", p.Timestamp)
		assert.Equal(t, []string{"00"}, p.Data.Time)
		assert.Equal(t, types.Number(20), p.Forecasts[0].ForecastKWh)
	})

	t.Run("Raw Fetch", func(t *testing.T) {
		items, err := c.Fetch(ctx, types.DataTypeHistory, "2024-06-14")
		require.NoError(t, err)
		var first map[string]any
		require.NoError(t, json.Unmarshal(items[0], &first))
		assert.Equal(t, "81,2%", first["Autoconsommation (%)"])
	})

	t.Run("Unsupported Type", func(t *testing.T) {
		_, err := c.Fetch(ctx, "weather", "2024-06-14")
		assert.Error(t, err)
	})

	assert.Contains(t, f.dates, "2024-06-15")
	assert.Contains(t, f.dates, "2024-06-14")
	n, err := testutil.GatherAndCount(m.Registry(), "solarboard_upstream_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only successful webhook calls")
}

func TestClientQueryPreserved(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(map[types.DataType]string{types.DataTypeAstro: srv.URL + "/astro?token=abc"}, "", time.Second, nil)
	_, err := c.Astro(context.Background(), "2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "date=2024-06-15&token=abc", query)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("HTTP Error", func(t *testing.T) {
		c := newTestClient(t, &fakeWebhook{t: t, status: http.StatusInternalServerError, bodies: map[string]string{
			"/solar-data": "Workflow could not be started",
		}}, time.Second, nil)
		_, err := c.Hourly(ctx, "2024-06-15")
		var herr *common.HTTPError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, http.StatusInternalServerError, herr.StatusCode)
		assert.Contains(t, err.Error(), "Workflow could not be started")
	})

	t.Run("Empty Body", func(t *testing.T) {
		c := newTestClient(t, &fakeWebhook{t: t}, time.Second, nil)
		_, err := c.Hourly(ctx, "2024-06-15")
		assert.ErrorIs(t, err, common.ErrEmptyResponse)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		c := newTestClient(t, &fakeWebhook{t: t, bodies: map[string]string{"/solar-data": "{not json"}}, time.Second, nil)
		_, err := c.Hourly(ctx, "2024-06-15")
		assert.ErrorIs(t, err, common.ErrMalformedResponse)
	})

	t.Run("Wrong Shape", func(t *testing.T) {
		c := newTestClient(t, &fakeWebhook{t: t, bodies: map[string]string{"/solar-data": `["a","b"]`}}, time.Second, nil)
		_, err := c.Hourly(ctx, "2024-06-15")
		assert.ErrorIs(t, err, common.ErrMalformedResponse)
	})

	t.Run("Timeout", func(t *testing.T) {
		m := metrics.New()
		c := newTestClient(t, &fakeWebhook{t: t, delay: 200 * time.Millisecond, bodies: map[string]string{"/solar-data": `[]`}}, 20*time.Millisecond, m)
		_, err := c.Hourly(ctx, "2024-06-15")
		assert.ErrorIs(t, err, common.ErrTimeout)
		n, err := testutil.GatherAndCount(m.Registry(), "solarboard_upstream_requests_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("No Source", func(t *testing.T) {
		c := New(map[types.DataType]string{}, "", time.Second, nil)
		assert.False(t, c.HasSource())
		_, err := c.Source(ctx, "2024-06-15")
		assert.ErrorIs(t, err, ErrNoSource)
	})
}

func TestValidate(t *testing.T) {
	c := New(map[types.DataType]string{
		types.DataTypeHourly:  DefaultHourlyURL,
		types.DataTypeAstro:   DefaultAstroURL,
		types.DataTypeHistory: DefaultHistoryURL,
	}, "", DefaultTimeout, nil)
	assert.NoError(t, c.Validate())

	delete(c.urls, types.DataTypeAstro)
	assert.ErrorContains(t, c.Validate(), "webhook-astro-url")

	c.urls[types.DataTypeAstro] = "http://[::1"
	assert.Error(t, c.Validate())
}
