//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/godilite/customerviz/internal/app"
	"github.com/godilite/customerviz/internal/config"
	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	handler "github.com/godilite/customerviz/internal/grpc"
	"github.com/godilite/customerviz/internal/service"
)

type testEnv struct {
	baseURL string
	client  *handler.PlotServiceClient
	health  healthpb.HealthClient
}

// loopback rewrites a wildcard listen address into one a client can dial.
func loopback(t *testing.T, addr net.Addr) string {
	t.Helper()
	_, port, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	return net.JoinHostPort("127.0.0.1", port)
}

func startApp(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:          "test",
		DatasetDriver:   config.DriverCSV,
		DatasetPath:     filepath.Join("..", "..", "internal", "dataset", "testdata", "customers.csv"),
		DatasetTable:    "customers",
		FilterColumn:    "Credit Score",
		ExcludedColumns: []string{"Customer ID", "Name"},
		ShutdownTimeout: 2 * time.Second,
	}

	application, err := app.NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("application did not stop")
		}
	})

	conn, err := grpc.NewClient(loopback(t, application.GRPCAddr()), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	env := &testEnv{
		baseURL: "http://" + loopback(t, application.HTTPAddr()),
		client:  handler.NewPlotServiceClient(conn),
		health:  healthpb.NewHealthClient(conn),
	}

	require.Eventually(t, func() bool {
		resp, err := http.Get(env.baseURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	return env
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestE2E_HTTP(t *testing.T) {
	env := startApp(t)

	t.Run("page lists dataset choices", func(t *testing.T) {
		resp, err := http.Get(env.baseURL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		page := buf.String()
		assert.Contains(t, page, `value="Payment Behaviour"`)
		assert.Contains(t, page, `value="Annual Income"`)
		assert.NotContains(t, page, `value="Name"`)
	})

	t.Run("choices", func(t *testing.T) {
		resp, err := http.Get(env.baseURL + "/api/choices")
		require.NoError(t, err)
		defer resp.Body.Close()

		var choices dataset.Choices
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&choices))
		assert.Equal(t, []string{dataset.NoSelection, "Good", "Standard", "Poor"}, choices.FilterValues.Choices)
		assert.Equal(t, []string{dataset.NoSelection, "Occupation", "Payment Behaviour"}, choices.CategoricalVar.Choices)
		assert.Equal(t, []string{dataset.NoSelection, "Age", "Annual Income", "Num Bank Accounts"}, choices.NumericVar.Choices)
	})

	t.Run("filtered sum bar", func(t *testing.T) {
		resp := postJSON(t, env.baseURL+"/api/plot", service.PlotRequest{
			FilterValues:   []string{"Good"},
			CategoricalVar: "Occupation",
			NumericVar:     "Age",
			AggregateMode:  "sum",
			ChartKind:      "bar chart",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var fig figure.Figure
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&fig))
		assert.Equal(t, "Age by Occupation (sum)", fig.Title())
		require.Len(t, fig.Data, 1)
		assert.Equal(t, []string{"Lawyer", "Scientist", "Teacher"}, fig.Data[0].X)
		assert.Equal(t, figure.Values{31, 23, 28}, fig.Data[0].Y)
	})

	t.Run("running sum line", func(t *testing.T) {
		resp := postJSON(t, env.baseURL+"/api/plot", service.PlotRequest{
			FilterValues:   []string{"Standard"},
			CategoricalVar: "Occupation",
			NumericVar:     "Num Bank Accounts",
			AggregateMode:  "running sum",
			ChartKind:      "line chart",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var fig figure.Figure
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&fig))
		require.Len(t, fig.Data, 1)
		assert.Equal(t, []string{"Developer", "Doctor", "Engineer", "Lawyer"}, fig.Data[0].X)
		assert.Equal(t, figure.Values{7, 16, 17, 17}, fig.Data[0].Y)
	})

	t.Run("invalid selection", func(t *testing.T) {
		resp := postJSON(t, env.baseURL+"/api/plot", map[string]any{"filter_values": []string{"Excellent"}})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("png download", func(t *testing.T) {
		resp := postJSON(t, env.baseURL+"/api/plot.png", service.PlotRequest{
			CategoricalVar: "Payment Behaviour",
			ShowFrequency:  true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, figure.Width, img.Bounds().Dx())
		assert.Equal(t, figure.Height, img.Bounds().Dy())
	})
}

func TestE2E_GRPC(t *testing.T) {
	env := startApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("health", func(t *testing.T) {
		resp, err := env.health.Check(ctx, &healthpb.HealthCheckRequest{Service: handler.ServiceName}, grpc.WaitForReady(true))
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	})

	t.Run("choices", func(t *testing.T) {
		resp, err := env.client.GetChoices(ctx, &emptypb.Empty{}, grpc.WaitForReady(true))
		require.NoError(t, err)

		choices, err := handler.ChoicesFromStruct(resp)
		require.NoError(t, err)
		assert.Equal(t, "Select Credit Score", choices.FilterValues.Label)
	})

	t.Run("frequency histogram", func(t *testing.T) {
		in, err := handler.EncodePlotRequest(service.PlotRequest{
			FilterValues:   []string{"Standard", "Poor"},
			CategoricalVar: "Occupation",
			ShowFrequency:  true,
		}, "")
		require.NoError(t, err)

		resp, err := env.client.GeneratePlot(ctx, in, grpc.WaitForReady(true))
		require.NoError(t, err)

		fig, err := handler.FigureFromStruct(resp)
		require.NoError(t, err)
		assert.Equal(t, "Frequency Distribution of Occupation", fig.Title())
		require.Len(t, fig.Data, 1)
		assert.Equal(t, figure.TypeHistogram, fig.Data[0].Type)
		assert.Equal(t, []string{"Engineer", "Entrepreneur", "Developer", "Lawyer", "Media_Manager", "Doctor"}, fig.Data[0].X)
	})

	t.Run("mean pie svg", func(t *testing.T) {
		in, err := handler.EncodePlotRequest(service.PlotRequest{
			CategoricalVar: "Occupation",
			NumericVar:     "Annual Income",
			AggregateMode:  "mean",
			ChartKind:      "pie chart",
		}, "svg")
		require.NoError(t, err)

		resp, err := env.client.RenderPlot(ctx, in, grpc.WaitForReady(true))
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(resp.GetValue()), "<svg"), "expected svg document")
	})

	t.Run("unsupported mode", func(t *testing.T) {
		in, err := handler.EncodePlotRequest(service.PlotRequest{AggregateMode: "median"}, "")
		require.NoError(t, err)

		_, err = env.client.GeneratePlot(ctx, in, grpc.WaitForReady(true))
		assert.Equal(t, codes.InvalidArgument, status.Code(err), fmt.Sprint(err))
	})
}
