package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"
	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/argo-forecast/mocks"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/provider"
)

type AppTestSuite struct {
	suite.Suite
	tempDir string
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (suite *AppTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.stdout = &bytes.Buffer{}
	suite.stderr = &bytes.Buffer{}
}

func (suite *AppTestSuite) run(args ...string) error {
	return suite.runWith(nil, args...)
}

func (suite *AppTestSuite) runWith(marketProvider provider.Provider, args ...string) error {
	a := &app{stdout: suite.stdout, stderr: suite.stderr, provider: marketProvider}
	cmd := a.command()
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	return cmd.Run(context.Background(), append([]string{"forecast"}, args...))
}

func (suite *AppTestSuite) TestDownloadCommand() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	bars := mocks.LinearBars(time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), 70, 100, 169)
	mockProvider := mocks.NewMockProvider(ctrl)
	mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL.KA", gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("unknown symbol"))
	mockProvider.EXPECT().FetchDaily(gomock.Any(), "HBL", gomock.Any(), gomock.Any()).Return(bars, nil)

	raw := filepath.Join(suite.tempDir, "raw.csv")
	suite.Require().NoError(suite.runWith(mockProvider, "--raw", raw, "--symbol", "HBL.KA", "--symbol", "HBL", "download"))

	out := suite.stdout.String()
	suite.Contains(out, "Downloading daily bars from Yahoo Finance")
	suite.Contains(out, "Candidates: HBL.KA, HBL")
	suite.Contains(out, "Success! Found data for HBL")
	suite.Contains(out, "Rows: 70")

	_, err := os.Stat(raw)
	suite.NoError(err)
}

func (suite *AppTestSuite) TestDownloadCommandNoData() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	mockProvider := mocks.NewMockProvider(ctrl)
	mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	mockProvider.EXPECT().FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(4)

	raw := filepath.Join(suite.tempDir, "raw.csv")
	err := suite.runWith(mockProvider, "--raw", raw, "download")
	suite.Require().Error(err)
	suite.Contains(suite.stderr.String(), "Could not find data with any of the tried symbols.")

	_, statErr := os.Stat(raw)
	suite.True(os.IsNotExist(statErr))
}

func (suite *AppTestSuite) TestSchemaCommand() {
	suite.Require().NoError(suite.run("schema"))
	suite.Contains(suite.stdout.String(), `"symbols"`)
	suite.Contains(suite.stdout.String(), `"learning_rate"`)
}

func (suite *AppTestSuite) TestCleanCommand() {
	raw := filepath.Join(suite.tempDir, "raw.csv")
	clean := filepath.Join(suite.tempDir, "clean.csv")
	bars := mocks.LinearBars(time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), 50, 100, 149)
	suite.Require().NoError(mocks.WriteRawCSV(raw, "HBL.KA", bars))

	suite.Require().NoError(suite.run("--raw", raw, "--clean", clean, "clean"))

	out := suite.stdout.String()
	suite.Contains(out, "Data range: 2024-08-12 to 2024-09-30")
	suite.Contains(out, "Latest closing price: $149.00")
	suite.Contains(out, "Total trading days: 50")
	suite.Contains(out, "at least 61 trading days")

	_, err := os.Stat(clean)
	suite.NoError(err)
}

func (suite *AppTestSuite) TestRunWithoutRawFile() {
	raw := filepath.Join(suite.tempDir, "missing.csv")

	err := suite.run("--raw", raw, "--clean", filepath.Join(suite.tempDir, "clean.csv"))
	suite.Require().Error(err)

	exitErr, ok := err.(cli.ExitCoder)
	suite.Require().True(ok)
	suite.Equal(1, exitErr.ExitCode())
	suite.Contains(suite.stderr.String(), "missing.csv not found")
	suite.Contains(suite.stderr.String(), "forecast download")
	suite.Empty(suite.stdout.String())
}

func (suite *AppTestSuite) TestRunWithShortSeries() {
	raw := filepath.Join(suite.tempDir, "raw.csv")
	bars := mocks.LinearBars(time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), 30, 100, 129)
	suite.Require().NoError(mocks.WriteRawCSV(raw, "HBL.KA", bars))

	err := suite.run("--raw", raw, "--clean", filepath.Join(suite.tempDir, "clean.csv"))
	suite.Require().Error(err)
	suite.Contains(suite.stderr.String(), "need 61 trading days, got 30")
	suite.NotContains(suite.stdout.String(), "PREDICTION RESULTS")
}

func (suite *AppTestSuite) TestInvalidProviderFlag() {
	err := suite.run("--provider", "stooq", "download")
	suite.Require().Error(err)

	exitErr, ok := err.(cli.ExitCoder)
	suite.Require().True(ok)
	suite.Equal(1, exitErr.ExitCode())
}

func (suite *AppTestSuite) TestVersionFlag() {
	suite.Require().NoError(suite.run("--version"))
	suite.Contains(suite.stdout.String(), "main")
}
