package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/mocks"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/writer"
)

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	tempDir      string
	start        time.Time
	end          time.Time
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

// SetupTest runs before each test
func (suite *ClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
	suite.mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	suite.tempDir = suite.T().TempDir()
	suite.start = time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)
}

// TearDownTest runs after each test
func (suite *ClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ClientTestSuite) newClient(writerType WriterType, outputPath string, onProgress OnAcquireProgress) *Client {
	client, err := NewClientWithProvider(ClientConfig{
		ProviderType: ProviderYahoo,
		WriterType:   writerType,
		OutputPath:   outputPath,
	}, suite.mockProvider, nil, onProgress)
	suite.Require().NoError(err)

	return client
}

func (suite *ClientTestSuite) generateBars(count int) []types.PriceBar {
	config := mocks.DefaultConfig()
	config.Count = count

	return mocks.NewDataGenerator(42).Generate(config)
}

func (suite *ClientTestSuite) TestAcquireFallsBackToFirstSymbolWithData() {
	outputPath := filepath.Join(suite.tempDir, "hbl_stock_data.csv")
	bars := suite.generateBars(252)

	var progress []string
	client := suite.newClient(WriterCSV, outputPath, func(current, total float64, message string) {
		suite.Equal(4.0, total)
		progress = append(progress, message)
	})

	gomock.InOrder(
		suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL.KA", suite.start, suite.end).
			Return(nil, fmt.Errorf("404 Not Found")),
		suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL.PSX", suite.start, suite.end).
			Return([]types.PriceBar{}, nil),
		suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL", suite.start, suite.end).
			Return(nil, fmt.Errorf("symbol may be delisted")),
		suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "6052.PSX", suite.start, suite.end).
			Return(bars, nil),
	)

	result, err := client.Acquire(context.Background(), AcquireParams{
		Symbols:   []string{"HBL.KA", "HBL.PSX", "HBL", "6052.PSX"},
		StartDate: suite.start,
		EndDate:   suite.end,
	})
	suite.Require().NoError(err)
	suite.Require().True(result.IsSome())

	acquired := result.Unwrap()
	suite.Equal("6052.PSX", acquired.Symbol)
	suite.Equal(outputPath, acquired.Path)
	suite.Equal(252, acquired.Rows)
	suite.Equal(bars[0].Date, acquired.First)
	suite.Equal(bars[251].Date, acquired.Last)
	suite.Equal([]string{"Trying HBL.KA", "Trying HBL.PSX", "Trying HBL", "Trying 6052.PSX"}, progress)

	content, err := os.ReadFile(outputPath)
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	suite.Len(lines, 252+3)
	suite.Equal("Ticker,6052.PSX,6052.PSX,6052.PSX,6052.PSX,6052.PSX", lines[1])
	suite.NotContains(string(content), "HBL.KA")
	suite.NotContains(string(content), "HBL.PSX")
}

func (suite *ClientTestSuite) TestAcquireReturnsNoneWhenEverySymbolFails() {
	outputPath := filepath.Join(suite.tempDir, "none.csv")
	client := suite.newClient(WriterCSV, outputPath, nil)

	suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "AAA", gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("not found"))
	suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "BBB", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	result, err := client.Acquire(context.Background(), AcquireParams{
		Symbols:   []string{"AAA", "BBB"},
		StartDate: suite.start,
		EndDate:   suite.end,
	})
	suite.NoError(err)
	suite.True(result.IsNone())

	_, statErr := os.Stat(outputPath)
	suite.True(os.IsNotExist(statErr))
}

func (suite *ClientTestSuite) TestAcquireWithDuckDBWriter() {
	outputPath := filepath.Join(suite.tempDir, "bars.parquet")
	bars := suite.generateBars(30)
	client := suite.newClient(WriterDuckDB, outputPath, nil)

	suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL.KA", gomock.Any(), gomock.Any()).Return(bars, nil)

	result, err := client.Acquire(context.Background(), AcquireParams{
		Symbols:   []string{"HBL.KA"},
		StartDate: suite.start,
		EndDate:   suite.end,
	})
	suite.Require().NoError(err)
	suite.Require().True(result.IsSome())
	suite.Equal(30, result.Unwrap().Rows)

	info, err := os.Stat(outputPath)
	suite.Require().NoError(err)
	suite.Greater(info.Size(), int64(0))
}

func (suite *ClientTestSuite) TestAcquireSingleDayInterval() {
	outputPath := filepath.Join(suite.tempDir, "single_day.csv")
	day := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	bars := mocks.LinearBars(day, 1, 150, 150)
	client := suite.newClient(WriterCSV, outputPath, nil)

	suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL.KA", day, day).Return(bars, nil)

	result, err := client.Acquire(context.Background(), AcquireParams{
		Symbols:   []string{"HBL.KA"},
		StartDate: day,
		EndDate:   day,
	})
	suite.Require().NoError(err)
	suite.Require().True(result.IsSome())
	suite.Equal(1, result.Unwrap().Rows)
	suite.Equal(day, result.Unwrap().First)
	suite.Equal(day, result.Unwrap().Last)
}

func (suite *ClientTestSuite) TestAcquireRemovesPartialFileOnWriteFailure() {
	outputPath := filepath.Join(suite.tempDir, "partial.csv")
	suite.Require().NoError(os.WriteFile(outputPath, []byte("partial"), 0644))

	bars := suite.generateBars(3)
	client := suite.newClient(WriterCSV, outputPath, nil)

	mockWriter := mocks.NewMockMarketDataWriter(suite.ctrl)
	client.newWriter = func(string) (writer.MarketDataWriter, error) {
		return mockWriter, nil
	}

	suite.mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL.KA", gomock.Any(), gomock.Any()).Return(bars, nil)
	mockWriter.EXPECT().GetOutputPath().Return(outputPath).AnyTimes()
	mockWriter.EXPECT().Initialize().Return(nil)
	mockWriter.EXPECT().Write(bars[0]).Return(nil)
	mockWriter.EXPECT().Write(bars[1]).Return(fmt.Errorf("disk full"))
	mockWriter.EXPECT().Close().Return(nil)

	result, err := client.Acquire(context.Background(), AcquireParams{
		Symbols:   []string{"HBL.KA", "HBL"},
		StartDate: suite.start,
		EndDate:   suite.end,
	})
	suite.Error(err)
	suite.True(result.IsNone())
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataWriteFailed))

	_, statErr := os.Stat(outputPath)
	suite.True(os.IsNotExist(statErr))
}

func (suite *ClientTestSuite) TestAcquireStopsOnCancelledContext() {
	client := suite.newClient(WriterCSV, filepath.Join(suite.tempDir, "cancelled.csv"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := client.Acquire(ctx, AcquireParams{
		Symbols:   []string{"HBL.KA"},
		StartDate: suite.start,
		EndDate:   suite.end,
	})
	suite.ErrorIs(err, context.Canceled)
	suite.True(result.IsNone())
}

func (suite *ClientTestSuite) TestAcquireParamsValidation() {
	client := suite.newClient(WriterCSV, filepath.Join(suite.tempDir, "invalid.csv"), nil)

	testCases := []struct {
		name   string
		params AcquireParams
	}{
		{
			name:   "no symbols",
			params: AcquireParams{StartDate: suite.start, EndDate: suite.end},
		},
		{
			name:   "empty symbol",
			params: AcquireParams{Symbols: []string{""}, StartDate: suite.start, EndDate: suite.end},
		},
		{
			name:   "missing start date",
			params: AcquireParams{Symbols: []string{"HBL.KA"}, EndDate: suite.end},
		},
		{
			name:   "end before start",
			params: AcquireParams{Symbols: []string{"HBL.KA"}, StartDate: suite.end, EndDate: suite.start},
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			result, err := client.Acquire(context.Background(), tc.params)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
			suite.True(result.IsNone())
		})
	}
}

func (suite *ClientTestSuite) TestClientConfigValidation() {
	testCases := []struct {
		name        string
		config      ClientConfig
		expectError bool
	}{
		{
			name:   "yahoo csv",
			config: ClientConfig{ProviderType: ProviderYahoo, WriterType: WriterCSV, OutputPath: "out.csv"},
		},
		{
			name:   "polygon with key",
			config: ClientConfig{ProviderType: ProviderPolygon, WriterType: WriterDuckDB, OutputPath: "out.parquet", PolygonApiKey: "key"},
		},
		{
			name:        "polygon without key",
			config:      ClientConfig{ProviderType: ProviderPolygon, WriterType: WriterCSV, OutputPath: "out.csv"},
			expectError: true,
		},
		{
			name:        "unknown provider",
			config:      ClientConfig{ProviderType: "stooq", WriterType: WriterCSV, OutputPath: "out.csv"},
			expectError: true,
		},
		{
			name:        "unknown writer",
			config:      ClientConfig{ProviderType: ProviderYahoo, WriterType: "json", OutputPath: "out.json"},
			expectError: true,
		},
		{
			name:        "missing output path",
			config:      ClientConfig{ProviderType: ProviderYahoo, WriterType: WriterCSV},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			client, err := NewClient(tc.config, nil, nil)
			if tc.expectError {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
				suite.Nil(client)

				return
			}

			suite.NoError(err)
			suite.NotNil(client)
		})
	}
}
